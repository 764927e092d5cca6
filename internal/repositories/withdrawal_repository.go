package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momopay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	// Reserve creates w while holding its wallet row, provided the balance
	// covers w.Amount plus every live withdrawal not yet debited.
	Reserve(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id string) (*models.Withdrawal, error)
	// Transition persists w's status and bookkeeping fields only when the
	// stored status still equals from.
	Transition(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
}

type withdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *withdrawalRepository) Reserve(ctx context.Context, w *models.Withdrawal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", w.WalletID).
			First(&wallet).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		var held []decimal.Decimal
		err = tx.Model(&models.Withdrawal{}).
			Where("wallet_id = ? AND debited = ? AND status <> ?", w.WalletID, false, models.WithdrawalRejected).
			Pluck("amount", &held).Error
		if err != nil {
			return fmt.Errorf("failed to sum held withdrawals: %w", err)
		}
		needed := w.Amount
		for _, amount := range held {
			needed = needed.Add(amount)
		}
		if !wallet.CanDebit(needed) {
			return ErrBalanceHeld
		}

		if err := tx.Create(w).Error; err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}
		return nil
	})
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

func (r *withdrawalRepository) Transition(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error {
	w.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", w.ID, from).
		Updates(map[string]interface{}{
			"status":             w.Status,
			"failure_reason":     w.FailureReason,
			"debited":            w.Debited,
			"provider":           w.Provider,
			"provider_reference": w.ProviderReference,
			"updated_at":         w.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update withdrawal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return out, nil
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return out, nil
}
