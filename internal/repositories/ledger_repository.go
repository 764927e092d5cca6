package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"momopay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository persists ledger entries and the balances they move.
type LedgerRepository interface {
	// ExecuteInTransaction runs fn against a repository bound to one DB transaction.
	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
	// LockWallets loads wallets FOR UPDATE in ascending id order.
	LockWallets(ctx context.Context, ids ...string) (map[string]*models.Wallet, error)
	HasEntries(ctx context.Context, reference string) (bool, error)
	CreateEntries(ctx context.Context, entries ...*models.LedgerEntry) error
	UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error
	ListByReference(ctx context.Context, reference string) ([]models.LedgerEntry, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) LockWallets(ctx context.Context, ids ...string) (map[string]*models.Wallet, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	out := make(map[string]*models.Wallet, len(ordered))
	for _, id := range ordered {
		if _, seen := out[id]; seen {
			continue
		}
		var w models.Wallet
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&w).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrWalletNotFound
			}
			return nil, fmt.Errorf("failed to lock wallet %s: %w", id, err)
		}
		out[id] = &w
	}
	return out, nil
}

func (r *ledgerRepository) HasEntries(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("reference = ?", reference).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ledger reference: %w", err)
	}
	return count > 0, nil
}

// CreateEntries returns gorm.ErrDuplicatedKey (wrapped) when the reference
// already carries an entry in the same direction.
func (r *ledgerRepository) CreateEntries(ctx context.Context, entries ...*models.LedgerEntry) error {
	for _, e := range entries {
		if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
	}
	return nil
}

func (r *ledgerRepository) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *ledgerRepository) ListByReference(ctx context.Context, reference string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("direction DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
