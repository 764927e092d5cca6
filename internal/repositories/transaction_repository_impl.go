package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momopay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Upsert leaves a settled row untouched; late redeliveries cannot rewrite
// the status a processed payment settled with.
func (r *transactionRepository) Upsert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reference"}},
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "transactions.processed_at IS NULL"},
		}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "normalized_status", "metadata", "updated_at",
		}),
	}).Create(tx).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return r.GetByReference(ctx, tx.Reference)
}

func (r *transactionRepository) CreateIfAbsent(ctx context.Context, tx *models.Transaction) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(tx).Error
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) MarkProcessed(ctx context.Context, reference, voucherCode string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("reference = ? AND processed_at IS NULL", reference).
		Updates(map[string]interface{}{
			"processed_at": now,
			"voucher_code": voucherCode,
			"updated_at":   now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark transaction processed: %w", err)
	}
	return nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, reference, raw string, status models.PaymentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("reference = ?", reference).
		Updates(map[string]interface{}{
			"status":            raw,
			"normalized_status": status,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepository) ListUnprocessedSuccess(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	return r.list(ctx, limit,
		"payment_method LIKE ? AND normalized_status = ? AND processed_at IS NULL AND updated_at < ?",
		"%"+models.CollectionSuffix, models.PaymentSuccess, before)
}

func (r *transactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	return r.list(ctx, limit,
		"payment_method LIKE ? AND normalized_status = ? AND updated_at < ?",
		"%"+models.CollectionSuffix, models.PaymentPending, before)
}

func (r *transactionRepository) list(ctx context.Context, limit int, query string, args ...interface{}) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
