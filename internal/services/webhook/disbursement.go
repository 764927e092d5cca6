package webhook

import (
	"context"
	"errors"

	apperrors "momopay/internal/errors"
	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories/cache"
	"momopay/internal/services/provider"
	"momopay/internal/services/withdrawal"

	"github.com/sirupsen/logrus"
)

// ReplayKey returns disbursement_webhook:<eventID>.
func ReplayKey(eventID string) string {
	return cache.GenerateKey("disbursement_webhook", eventID)
}

// HandleDisbursement records a payout callback and moves the matching
// withdrawal. The signature is checked before the replay marker so forged
// deliveries cannot burn event ids.
func (s *service) HandleDisbursement(ctx context.Context, raw []byte, signature string) (*DisbursementOutcome, error) {
	if err := VerifySignature(s.cfg.DisbursementSecret, raw, signature, SignaturePrefix); err != nil {
		logger.Warn("rejected disbursement webhook with invalid signature")
		return nil, err
	}
	var payload Disbursement
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}

	if id := payload.EventID(); id != "" {
		fresh, err := s.store.SetNX(ctx, ReplayKey(id), "1", s.cfg.ReplayTTL)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, apperrors.ErrReplayDetected
		}
	}

	reference := payload.Reference()
	entry := &models.WebhookLog{
		Provider:  s.cfg.DisbursementProvider,
		EventType: payload.Event,
		Reference: reference,
		Payload:   string(raw),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}

	currency := payload.Data.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	if _, err := s.transactions.Upsert(ctx, &models.Transaction{
		Reference:        reference,
		Provider:         s.cfg.DisbursementProvider,
		Phone:            payload.Data.Phone,
		Amount:           payload.Data.Amount,
		Currency:         currency,
		Status:           payload.Data.Status,
		NormalizedStatus: normalizePayout(payload.Data.Status),
		PaymentMethod:    models.MethodDisbursement,
		Metadata:         models.FromRaw(raw),
	}); err != nil {
		return nil, err
	}

	status := withdrawal.StatusFromProvider(payload.Data.Status)
	out := &DisbursementOutcome{Reference: reference, Status: status}
	log := logger.WithFields(logrus.Fields{
		"reference":      reference,
		"transaction_id": payload.Data.TransactionID,
		"event":          payload.Event,
		"status":         payload.Data.Status,
	})

	if s.withdrawals == nil || status == models.WithdrawalRequested {
		log.Info("disbursement callback recorded")
		return out, nil
	}
	w, err := s.withdrawals.ApplyProviderStatus(ctx, reference, status, payload.Data.TransactionID)
	switch {
	case errors.Is(err, withdrawal.ErrWithdrawalNotFound):
		log.Warn("no withdrawal for disbursement callback")
		return out, nil
	case errors.Is(err, withdrawal.ErrInvalidTransition):
		log.WithField("error", err.Error()).Warn("ignored disbursement status")
		return out, nil
	case err != nil:
		return nil, err
	}

	out.Status = w.Status
	if err := s.logs.MarkProcessed(ctx, entry.ID); err != nil {
		log.WithField("error", err.Error()).Warn("failed to mark webhook log processed")
	}
	log.WithField("withdrawal_status", w.Status).Info("disbursement callback applied")
	return out, nil
}

// normalizePayout folds the payout vocabulary onto payment statuses.
func normalizePayout(raw string) models.PaymentStatus {
	switch withdrawal.StatusFromProvider(raw) {
	case models.WithdrawalPaid:
		return provider.StatusSuccess
	case models.WithdrawalRejected:
		return provider.StatusFailed
	default:
		return provider.StatusPending
	}
}
