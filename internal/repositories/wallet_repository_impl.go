package repositories

import (
	"context"
	"errors"
	"fmt"

	"momopay/internal/models"

	"gorm.io/gorm"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByID(ctx context.Context, id string) (*models.Wallet, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *walletRepository) GetByPhone(ctx context.Context, phone string) (*models.Wallet, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *walletRepository) first(ctx context.Context, query string, arg interface{}) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where(query, arg).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) List(ctx context.Context, limit, offset int) ([]models.Wallet, int64, error) {
	var (
		wallets []models.Wallet
		total   int64
	)
	q := r.db.WithContext(ctx).Model(&models.Wallet{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&wallets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, total, nil
}

func (r *walletRepository) SetFrozen(ctx context.Context, id string, frozen bool) error {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", id).Update("frozen", frozen)
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
