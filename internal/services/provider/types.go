// Package provider talks to the mobile-money operators. Each operator is a
// Gateway; callers never see provider-specific payloads or vocabularies.
package provider

import (
	"context"
	"net/http"
	"time"

	"momopay/internal/models"
	"momopay/internal/repositories/cache"
	"momopay/internal/services/correlation"

	"github.com/shopspring/decimal"
)

type Status = models.PaymentStatus

const (
	StatusPending = models.PaymentPending
	StatusSuccess = models.PaymentSuccess
	StatusFailed  = models.PaymentFailed
)

// Gateway is the uniform surface over one mobile-money provider.
type Gateway interface {
	Name() string
	// Collect asks the payer to approve a payment. It never waits for settlement.
	Collect(ctx context.Context, req CollectRequest) (*Result, error)
	// Disburse pays out to a phone that owns a wallet.
	Disburse(ctx context.Context, req DisburseRequest) (*Result, error)
	// CheckStatus queries the provider without side effects beyond caching the answer.
	CheckStatus(ctx context.Context, id string) (*Result, error)
}

type CollectRequest struct {
	Phone            string
	Amount           decimal.Decimal
	Reference        string
	CounterpartPhone string
	Currency         string
	Note             string
}

type DisburseRequest struct {
	Phone     string
	Amount    decimal.Decimal
	Reference string
	Currency  string
	Note      string
}

// Result is the normalized answer of any gateway call. RawStatus keeps the
// provider's own word for diagnostics.
type Result struct {
	Provider   string `json:"provider"`
	Reference  string `json:"reference,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Status     Status `json:"status"`
	RawStatus  string `json:"raw_status"`
	Message    string `json:"message,omitempty"`
}

// WalletLookup resolves a destination wallet by phone.
type WalletLookup interface {
	GetByPhone(ctx context.Context, phone string) (*models.Wallet, error)
}

// CorrelationRecorder stores who to credit when a collection settles.
type CorrelationRecorder interface {
	Put(ctx context.Context, reference string, c correlation.Correlation) error
}

// Deps are shared by all gateways.
type Deps struct {
	Store        cache.Store
	Wallets      WalletLookup
	Correlations CorrelationRecorder
	HTTPClient   *http.Client
	// StatusTTL bounds cached CheckStatus answers.
	StatusTTL time.Duration
}

func (d Deps) withDefaults(timeout time.Duration) Deps {
	if d.HTTPClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		d.HTTPClient = &http.Client{Timeout: timeout}
	}
	if d.StatusTTL <= 0 {
		d.StatusTTL = 24 * time.Hour
	}
	return d
}

// StatusKey returns status:<provider>:<id>.
func StatusKey(provider, id string) string {
	return cache.GenerateKey("status", provider, id)
}
