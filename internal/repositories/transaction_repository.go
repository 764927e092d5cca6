package repositories

import (
	"context"
	"time"

	"momopay/internal/models"
)

// TransactionRepository stores provider payments keyed by external reference.
type TransactionRepository interface {
	// Upsert inserts or updates by reference atomically and returns the stored row.
	Upsert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	// CreateIfAbsent inserts only when the reference is new.
	CreateIfAbsent(ctx context.Context, tx *models.Transaction) error
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// MarkProcessed stamps ProcessedAt once; later calls are no-ops.
	MarkProcessed(ctx context.Context, reference, voucherCode string) error
	UpdateStatus(ctx context.Context, reference, raw string, status models.PaymentStatus) error
	// ListUnprocessedSuccess and ListStalePending only return collections.
	ListUnprocessedSuccess(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}
