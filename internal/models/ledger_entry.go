package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// LedgerEntry is an append-only balance movement. A reference carries at
// most one entry per direction.
type LedgerEntry struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WalletID  string          `gorm:"index;not null" json:"wallet_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Direction EntryDirection  `gorm:"type:varchar(6);not null;uniqueIndex:idx_ledger_reference_direction,priority:2" json:"direction"`
	Reference string          `gorm:"not null;uniqueIndex:idx_ledger_reference_direction,priority:1" json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Signed returns the amount with debits negative.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}
