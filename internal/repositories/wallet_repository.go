package repositories

import (
	"context"

	"momopay/internal/models"
)

// WalletRepository defines the interface for wallet-related database operations.
// Balances are written only by LedgerRepository.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id string) (*models.Wallet, error)
	GetByPhone(ctx context.Context, phone string) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	List(ctx context.Context, limit, offset int) ([]models.Wallet, int64, error)
	SetFrozen(ctx context.Context, id string, frozen bool) error
}
