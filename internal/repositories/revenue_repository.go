package repositories

import (
	"context"
	"errors"
	"fmt"

	"momopay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const platformRevenueID = 1

// RevenueRepository keeps the running platform revenue row.
type RevenueRepository interface {
	AddCharge(ctx context.Context, amount decimal.Decimal) (*models.PlatformRevenue, error)
	// ReverseCharge takes back a charge recorded for a withdrawal that was later refunded.
	ReverseCharge(ctx context.Context, amount decimal.Decimal) (*models.PlatformRevenue, error)
	Get(ctx context.Context) (*models.PlatformRevenue, error)
}

type revenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

func (r *revenueRepository) AddCharge(ctx context.Context, amount decimal.Decimal) (*models.PlatformRevenue, error) {
	return r.adjust(ctx, amount, 1)
}

func (r *revenueRepository) ReverseCharge(ctx context.Context, amount decimal.Decimal) (*models.PlatformRevenue, error) {
	return r.adjust(ctx, amount.Neg(), -1)
}

func (r *revenueRepository) adjust(ctx context.Context, amount decimal.Decimal, count int64) (*models.PlatformRevenue, error) {
	var rev models.PlatformRevenue
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PlatformRevenue{ID: platformRevenueID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rev, platformRevenueID).Error; err != nil {
			return err
		}
		rev.LastRevenue = rev.CurrentRevenue
		rev.CurrentRevenue = rev.CurrentRevenue.Add(amount)
		rev.TotalTransactions += count
		return tx.Save(&rev).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record platform revenue: %w", err)
	}
	return &rev, nil
}

func (r *revenueRepository) Get(ctx context.Context) (*models.PlatformRevenue, error) {
	var rev models.PlatformRevenue
	err := r.db.WithContext(ctx).First(&rev, platformRevenueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PlatformRevenue{ID: platformRevenueID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform revenue: %w", err)
	}
	return &rev, nil
}
