package withdrawal

import (
	"context"

	"momopay/internal/models"
	"momopay/internal/services/provider"

	"github.com/shopspring/decimal"
)

// Service drives the withdrawal lifecycle.
type Service interface {
	Request(ctx context.Context, req Request) (*models.Withdrawal, error)
	// ApplyProviderStatus moves the withdrawal behind reference to status as
	// reported by the payout provider.
	ApplyProviderStatus(ctx context.Context, reference string, status models.WithdrawalStatus, providerRef string) (*models.Withdrawal, error)
	Get(ctx context.Context, id string) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
}

type Request struct {
	UserID      string          `json:"-"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Destination string          `json:"destination" validate:"required,msisdn"`
}

// Disburser pays out through a mobile-money provider.
type Disburser interface {
	Name() string
	Disburse(ctx context.Context, req provider.DisburseRequest) (*provider.Result, error)
}

type Config struct {
	Charge           decimal.Decimal
	Minimum          decimal.Decimal
	PlatformWalletID string
	Currency         string
}
