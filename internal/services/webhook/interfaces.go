package webhook

import (
	"context"
	"time"

	"momopay/internal/models"
	"momopay/internal/services/correlation"
	"momopay/internal/services/provider"
)

// Service absorbs provider callbacks.
type Service interface {
	HandleAirtelCollection(ctx context.Context, raw []byte, signature string) (*Outcome, error)
	HandleIotecCollection(ctx context.Context, raw []byte, signature string) (*Outcome, error)
	HandleDisbursement(ctx context.Context, raw []byte, signature string) (*DisbursementOutcome, error)
	Reconciler
}

// Reconciler finishes collections whose callback was lost or whose side
// effects did not complete.
type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration) (*ReconcileReport, error)
}

type CorrelationLookup interface {
	Lookup(ctx context.Context, reference string) (*correlation.Correlation, error)
}

type VoucherSlot interface {
	Deliver(ctx context.Context, reference, code string) error
}

type WithdrawalUpdater interface {
	ApplyProviderStatus(ctx context.Context, reference string, status models.WithdrawalStatus, providerRef string) (*models.Withdrawal, error)
}

type GatewayResolver interface {
	Get(name string) (provider.Gateway, error)
}

type Config struct {
	PlatformWalletID   string
	AirtelSecret       string
	IotecSecret        string
	DisbursementSecret string
	// DisbursementProvider names the payout provider on recorded callbacks.
	DisbursementProvider string
	// ReplayTTL bounds how long a disbursement event id is remembered.
	ReplayTTL time.Duration
	Currency  string
}

// Outcome reports how far a collection callback was processed.
type Outcome struct {
	Reference string
	Status    provider.Status
	// Processed is true once the wallet was credited and the voucher handed off.
	Processed bool
	Code      string
	Reason    string
}

type DisbursementOutcome struct {
	Reference string
	Status    models.WithdrawalStatus
}

type ReconcileReport struct {
	Resumed   int `json:"resumed"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}
