package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "REQUESTED"
	WithdrawalApproved  WithdrawalStatus = "APPROVED"
	WithdrawalPaid      WithdrawalStatus = "PAID"
	WithdrawalRejected  WithdrawalStatus = "REJECTED"
)

type Withdrawal struct {
	ID                string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID            string           `gorm:"index;not null" json:"user_id"`
	WalletID          string           `gorm:"index;not null" json:"wallet_id"`
	Amount            decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"amount"`
	Charge            decimal.Decimal  `gorm:"type:numeric(20,2);not null;default:0" json:"charge"`
	NetAmount         decimal.Decimal  `gorm:"type:numeric(20,2);not null;default:0" json:"net_amount"`
	Destination       string           `gorm:"not null" json:"destination"`
	Status            WithdrawalStatus `gorm:"index;not null;default:'REQUESTED'" json:"status"`
	Provider          string           `json:"provider,omitempty"`
	ProviderReference string           `json:"provider_reference,omitempty"`
	Debited           bool             `gorm:"default:false" json:"-"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = WithdrawalRequested
	}
	return nil
}

// Reference is the idempotency key used for the payout and its ledger posting.
func (w *Withdrawal) Reference() string {
	return "withdrawal-" + w.ID
}
