package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the provider-independent status of a transaction.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

const (
	// CollectionSuffix ends the PaymentMethod of every collection, e.g. "airtel-collection".
	CollectionSuffix = "-collection"
	// MethodDisbursement is the PaymentMethod of payout callbacks.
	MethodDisbursement = "disbursement"
)

// CollectionMethod returns the PaymentMethod recorded for collections via provider.
func CollectionMethod(provider string) string {
	return provider + CollectionSuffix
}

// Transaction is the local record of one provider-side payment, keyed by
// its external reference. Redelivered events update the same row.
type Transaction struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Reference        string          `gorm:"uniqueIndex;not null" json:"reference"`
	Provider         string          `gorm:"index" json:"provider"`
	Phone            string          `json:"phone"`
	CounterpartPhone string          `json:"counterpart_phone,omitempty"`
	Amount           decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"amount"`
	Currency         string          `gorm:"default:'UGX'" json:"currency"`
	Status           string          `json:"status"`
	NormalizedStatus PaymentStatus   `gorm:"index;not null;default:'PENDING'" json:"normalized_status"`
	PaymentMethod    string          `json:"payment_method"`
	Metadata         JSON            `gorm:"type:text" json:"metadata,omitempty"`
	VoucherCode      string          `json:"-"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.NormalizedStatus == "" {
		t.NormalizedStatus = PaymentPending
	}
	return nil
}

// Processed reports whether post-success side effects have completed.
func (t *Transaction) Processed() bool {
	return t.ProcessedAt != nil
}
