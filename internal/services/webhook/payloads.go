package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "momopay/internal/errors"
	"momopay/internal/services/provider"
	"momopay/internal/utils/validation"

	"github.com/shopspring/decimal"
)

// CollectionEvent is a provider collection callback in provider-neutral form.
type CollectionEvent struct {
	Provider   string
	Reference  string
	ProviderID string
	RawStatus  string
	Status     provider.Status
	PayerPhone string
	// CreditPhone is set only when the provider echoes the credited phone.
	CreditPhone string
	Amount      decimal.Decimal
	Currency    string
}

// AirtelCollection is the body Airtel posts when a collection settles.
type AirtelCollection struct {
	Transaction struct {
		ID            string `json:"id" validate:"required"`
		Status        string `json:"status" validate:"required"`
		Message       string `json:"message"`
		AirtelMoneyID string `json:"airtel_money_id"`
	} `json:"transaction"`
	Phone  string          `json:"phone"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

func (p AirtelCollection) Event() CollectionEvent {
	return CollectionEvent{
		Provider:   "airtel",
		Reference:  p.Transaction.ID,
		ProviderID: p.Transaction.AirtelMoneyID,
		RawStatus:  p.Transaction.Status,
		Status:     provider.Normalize("airtel", p.Transaction.Status),
		PayerPhone: p.Phone,
		Amount:     p.Amount,
	}
}

// IotecCollection is the body ioTec posts for collection status changes.
// payeeNote carries the reseller phone set at initiation.
type IotecCollection struct {
	ID         string          `json:"id" validate:"required"`
	ExternalID string          `json:"externalId"`
	Status     string          `json:"status" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
	Payer      string          `json:"payer"`
	PayeeNote  string          `json:"payeeNote"`
	Currency   string          `json:"currency"`
}

func (p IotecCollection) Event() CollectionEvent {
	reference := p.ExternalID
	if reference == "" {
		reference = p.ID
	}
	return CollectionEvent{
		Provider:    "iotec",
		Reference:   reference,
		ProviderID:  p.ID,
		RawStatus:   p.Status,
		Status:      provider.Normalize("iotec", p.Status),
		PayerPhone:  p.Payer,
		CreditPhone: strings.TrimSpace(p.PayeeNote),
		Amount:      p.Amount,
		Currency:    p.Currency,
	}
}

// Disbursement is the payout callback body.
type Disbursement struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		TransactionID string          `json:"transactionId" validate:"required"`
		Status        string          `json:"status" validate:"required"`
		Amount        decimal.Decimal `json:"amount"`
		Phone         string          `json:"phone"`
		Reference     string          `json:"reference"`
		UserID        string          `json:"userId"`
		Currency      string          `json:"currency"`
	} `json:"data"`
}

// EventID identifies the delivery for replay protection. Without an event id
// the status is part of the key, so interim and final callbacks for one
// payout are distinct events.
func (p Disbursement) EventID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Data.TransactionID + ":" + strings.ToUpper(strings.TrimSpace(p.Data.Status))
}

// Reference is our payout reference, falling back to the provider id.
func (p Disbursement) Reference() string {
	if p.Data.Reference != "" {
		return p.Data.Reference
	}
	return p.Data.TransactionID
}

// decode parses raw into dest and validates it.
func decode(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	if err := validation.Struct(dest); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidPayload, strings.Join(validation.FormatValidationError(err), "; "))
	}
	return nil
}
