package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Wallet struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string          `gorm:"index;not null" json:"user_id"`
	Phone          string          `gorm:"uniqueIndex;not null" json:"phone"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	Currency       string          `gorm:"default:'UGX'" json:"currency"`
	Frozen         bool            `gorm:"default:false" json:"frozen"`
	AllowOverdraft bool            `gorm:"default:false" json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	// Balances only move through ledger postings.
	w.Balance = decimal.Zero
	return nil
}

// CanDebit reports whether amount can leave the wallet.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.AllowOverdraft || w.Balance.GreaterThanOrEqual(amount)
}
