// Package webhook verifies provider callbacks, records them idempotently
// and runs the settlement side effects: wallet credit, voucher issue and
// handoff to the waiting collection request.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/repositories/cache"
	"momopay/internal/services/correlation"
	"momopay/internal/services/ledger"
	"momopay/internal/services/provider"
	"momopay/internal/services/voucher"

	"github.com/sirupsen/logrus"
)

const defaultReplayTTL = 10 * time.Minute

type service struct {
	transactions repositories.TransactionRepository
	logs         repositories.WebhookLogRepository
	wallets      repositories.WalletRepository
	ledger       ledger.Service
	correlations CorrelationLookup
	issuer       voucher.Issuer
	slots        VoucherSlot
	store        cache.Store
	withdrawals  WithdrawalUpdater
	gateways     GatewayResolver
	cfg          Config
	now          func() time.Time
}

// Deps groups the collaborators of the webhook service.
type Deps struct {
	Transactions repositories.TransactionRepository
	Logs         repositories.WebhookLogRepository
	Wallets      repositories.WalletRepository
	Ledger       ledger.Service
	Correlations CorrelationLookup
	Issuer       voucher.Issuer
	Slots        VoucherSlot
	Store        cache.Store
	Withdrawals  WithdrawalUpdater
	Gateways     GatewayResolver
}

func NewService(deps Deps, cfg Config) Service {
	if deps.Transactions == nil || deps.Logs == nil || deps.Wallets == nil || deps.Ledger == nil ||
		deps.Correlations == nil || deps.Issuer == nil || deps.Slots == nil || deps.Store == nil {
		panic("webhook service dependencies are required")
	}
	if cfg.PlatformWalletID == "" {
		panic("platform wallet id is required")
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = defaultReplayTTL
	}
	if cfg.DisbursementProvider == "" {
		cfg.DisbursementProvider = models.MethodDisbursement
	}
	return &service{
		transactions: deps.Transactions,
		logs:         deps.Logs,
		wallets:      deps.Wallets,
		ledger:       deps.Ledger,
		correlations: deps.Correlations,
		issuer:       deps.Issuer,
		slots:        deps.Slots,
		store:        deps.Store,
		withdrawals:  deps.Withdrawals,
		gateways:     deps.Gateways,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *service) HandleAirtelCollection(ctx context.Context, raw []byte, signature string) (*Outcome, error) {
	if err := VerifySignature(s.cfg.AirtelSecret, raw, signature, ""); err != nil {
		logger.Warn("rejected airtel webhook with invalid signature")
		return nil, err
	}
	var payload AirtelCollection
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	return s.absorb(ctx, payload.Event(), raw)
}

func (s *service) HandleIotecCollection(ctx context.Context, raw []byte, signature string) (*Outcome, error) {
	if err := VerifySignature(s.cfg.IotecSecret, raw, signature, SignaturePrefix); err != nil {
		logger.Warn("rejected iotec webhook with invalid signature")
		return nil, err
	}
	var payload IotecCollection
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	return s.absorb(ctx, payload.Event(), raw)
}

// absorb records a verified collection callback and, on success, settles it.
func (s *service) absorb(ctx context.Context, ev CollectionEvent, raw []byte) (*Outcome, error) {
	entry := &models.WebhookLog{
		Provider:  ev.Provider,
		EventType: "collection",
		Reference: ev.Reference,
		Payload:   string(raw),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}

	currency := ev.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	tx, err := s.transactions.Upsert(ctx, &models.Transaction{
		Reference:        ev.Reference,
		Provider:         ev.Provider,
		Phone:            ev.PayerPhone,
		CounterpartPhone: ev.CreditPhone,
		Amount:           ev.Amount,
		Currency:         currency,
		Status:           ev.RawStatus,
		NormalizedStatus: ev.Status,
		PaymentMethod:    models.CollectionMethod(ev.Provider),
		Metadata:         models.FromRaw(raw),
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Reference: ev.Reference, Status: ev.Status}
	if ev.Status != provider.StatusSuccess {
		s.log(ev).Info("collection callback recorded")
		return out, nil
	}
	if tx.Processed() {
		out.Reason = "already processed"
		s.log(ev).Info("duplicate collection callback")
		return out, nil
	}

	if ev.Amount.IsZero() {
		ev.Amount = tx.Amount
	}
	if err := s.settle(ctx, ev, out, false); err != nil {
		return nil, err
	}
	if out.Processed {
		if err := s.logs.MarkProcessed(ctx, entry.ID); err != nil {
			s.log(ev).WithField("error", err.Error()).Warn("failed to mark webhook log processed")
		}
	}
	return out, nil
}

// settle credits the correlated wallet, issues the voucher and hands it to
// the waiting request. With resume set, an existing posting under the
// reference is taken as an earlier partial run rather than a duplicate.
func (s *service) settle(ctx context.Context, ev CollectionEvent, out *Outcome, resume bool) error {
	log := s.log(ev)

	corr, err := s.correlations.Lookup(ctx, ev.Reference)
	switch {
	case errors.Is(err, correlation.ErrNotFound) && ev.CreditPhone != "":
		c := correlation.New(ev.PayerPhone, ev.CreditPhone, ev.Provider)
		corr = &c
	case errors.Is(err, correlation.ErrNotFound):
		out.Reason = "no correlation for reference"
		log.Warn("no correlation for settled collection")
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up correlation: %w", err)
	}

	wallet, err := s.wallets.GetByPhone(ctx, corr.CreditPhone)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		out.Reason = "no wallet for credited phone"
		log.WithField("phone", corr.CreditPhone).Warn("no wallet for credited phone")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:      s.cfg.PlatformWalletID,
		To:        wallet.ID,
		Amount:    ev.Amount,
		Reference: ev.Reference,
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyPosted) && !resume:
		out.Reason = "already credited"
		log.Info("collection already credited")
		return nil
	case errors.Is(err, ledger.ErrAlreadyPosted):
	case err != nil:
		return fmt.Errorf("failed to credit wallet: %w", err)
	default:
		log.WithField("wallet_id", wallet.ID).Info("wallet credited")
	}

	validity, err := voucher.DurationFor(ev.Amount)
	if err != nil {
		out.Reason = "amount not eligible for a voucher"
		log.Warn("amount not eligible for a voucher")
		return s.transactions.MarkProcessed(ctx, ev.Reference, "")
	}

	payer := corr.PayerPhone
	if payer == "" {
		payer = ev.PayerPhone
	}
	code, err := s.issuer.Issue(ctx, payer, validity)
	if err != nil {
		return fmt.Errorf("failed to issue voucher: %w", err)
	}
	if err := s.slots.Deliver(ctx, ev.Reference, code); err != nil {
		log.WithField("error", err.Error()).Warn("failed to hand off voucher")
	}
	if err := s.transactions.MarkProcessed(ctx, ev.Reference, code); err != nil {
		return err
	}

	out.Processed = true
	out.Code = code
	log.WithField("validity", validity.String()).Info("collection settled")
	return nil
}

func (s *service) log(ev CollectionEvent) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"provider":   ev.Provider,
		"reference":  ev.Reference,
		"status":     ev.Status,
		"raw_status": ev.RawStatus,
		"amount":     ev.Amount.String(),
	})
}
