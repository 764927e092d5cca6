// Package collection starts mobile-money collections and optionally waits
// for the voucher issued when the payment settles.
package collection

import (
	"context"
	"time"

	apperrors "momopay/internal/errors"
	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/services/provider"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
)

type Service interface {
	Collect(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Phone            string          `json:"phone" validate:"required,msisdn"`
	Amount           decimal.Decimal `json:"amount" validate:"gt=0"`
	Reference        string          `json:"reference" validate:"omitempty,max=64"`
	CounterpartPhone string          `json:"counterpart_phone" validate:"omitempty,msisdn"`
	Note             string          `json:"note" validate:"max=160"`
	// Wait blocks until the voucher is handed off or the handoff window closes.
	Wait bool `json:"wait"`
}

type Result struct {
	Reference string `json:"reference"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
}

// Initiator starts a collection on some provider.
type Initiator interface {
	Collect(ctx context.Context, req provider.CollectRequest) (*provider.Result, error)
}

// Slot is the consumer side of the voucher handoff.
type Slot interface {
	Open(ctx context.Context, reference string) error
	Wait(ctx context.Context, reference string) (string, bool, error)
}

type service struct {
	initiator    Initiator
	transactions repositories.TransactionRepository
	slots        Slot
	currency     string
	maxAmount    decimal.Decimal
}

// NewService builds the collection flow. A positive maxAmount caps single
// payments.
func NewService(initiator Initiator, transactions repositories.TransactionRepository, slots Slot, currency string, maxAmount decimal.Decimal) Service {
	if initiator == nil || transactions == nil || slots == nil {
		panic("collection service dependencies are required")
	}
	return &service{
		initiator:    initiator,
		transactions: transactions,
		slots:        slots,
		currency:     currency,
		maxAmount:    maxAmount,
	}
}

func (s *service) Collect(ctx context.Context, req Request) (*Result, error) {
	if s.maxAmount.IsPositive() && req.Amount.GreaterThan(s.maxAmount) {
		return nil, apperrors.ErrAmountTooLarge
	}
	if req.Reference == "" {
		req.Reference = uuid.NewString()
	}
	log := logger.WithFields(logrus.Fields{
		"reference": req.Reference,
		"amount":    req.Amount.String(),
	})

	// The slot is reset before the provider can possibly settle.
	if err := s.slots.Open(ctx, req.Reference); err != nil {
		return nil, err
	}

	res, err := s.initiator.Collect(ctx, provider.CollectRequest{
		Phone:            req.Phone,
		Amount:           req.Amount,
		Reference:        req.Reference,
		CounterpartPhone: req.CounterpartPhone,
		Currency:         s.currency,
		Note:             req.Note,
	})
	if err != nil {
		log.WithField("error", err.Error()).Error("collection initiation failed")
		return nil, err
	}

	metadata := models.JSON{"initiated_at": time.Now().UTC().Format(time.RFC3339)}
	if res.ProviderID != "" {
		metadata["provider_id"] = res.ProviderID
	}
	if err := s.transactions.CreateIfAbsent(ctx, &models.Transaction{
		Reference:        req.Reference,
		Provider:         res.Provider,
		Phone:            req.Phone,
		CounterpartPhone: req.CounterpartPhone,
		Amount:           req.Amount,
		Currency:         s.currency,
		Status:           res.RawStatus,
		NormalizedStatus: models.PaymentPending,
		PaymentMethod:    models.CollectionMethod(res.Provider),
		Metadata:         metadata,
	}); err != nil {
		return nil, err
	}
	log.WithField("provider", res.Provider).Info("collection initiated")

	out := &Result{Reference: req.Reference, Provider: res.Provider, Status: StatusPending}
	if !req.Wait {
		return out, nil
	}

	code, ok, err := s.slots.Wait(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("voucher not handed off in time")
		return out, nil
	}
	out.Status = StatusCompleted
	out.Code = code
	return out, nil
}
