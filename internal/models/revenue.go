package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformRevenue is the single running total of withdrawal charges.
type PlatformRevenue struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	CurrentRevenue    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"current_revenue"`
	LastRevenue       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"last_revenue"`
	TotalTransactions int64           `gorm:"not null;default:0" json:"total_transactions"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
