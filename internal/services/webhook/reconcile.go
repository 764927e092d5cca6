package webhook

import (
	"context"
	"fmt"
	"time"

	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/services/provider"

	"github.com/sirupsen/logrus"
)

const reconcileBatch = 100

// Reconcile resumes settled collections whose side effects did not finish
// and asks providers about collections still pending after olderThan.
func (s *service) Reconcile(ctx context.Context, olderThan time.Duration) (*ReconcileReport, error) {
	before := s.now().Add(-olderThan)
	report := &ReconcileReport{}

	unprocessed, err := s.transactions.ListUnprocessedSuccess(ctx, before, reconcileBatch)
	if err != nil {
		return nil, err
	}
	for i := range unprocessed {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.resume(ctx, &unprocessed[i]) {
			report.Resumed++
		} else {
			report.Failed++
		}
	}

	if s.gateways != nil {
		pending, err := s.transactions.ListStalePending(ctx, before, reconcileBatch)
		if err != nil {
			return report, err
		}
		for i := range pending {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			refreshed, err := s.refresh(ctx, &pending[i])
			if err != nil {
				report.Failed++
				logger.WithFields(logrus.Fields{
					"reference": pending[i].Reference,
					"provider":  pending[i].Provider,
					"error":     err.Error(),
				}).Warn("failed to refresh pending collection")
				continue
			}
			if refreshed {
				report.Refreshed++
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"resumed":   report.Resumed,
		"refreshed": report.Refreshed,
		"failed":    report.Failed,
	}).Info("reconciliation finished")
	return report, nil
}

func (s *service) resume(ctx context.Context, tx *models.Transaction) bool {
	ev := eventFromTransaction(tx)
	out := &Outcome{Reference: tx.Reference, Status: provider.StatusSuccess}
	if err := s.settle(ctx, ev, out, true); err != nil {
		s.log(ev).WithField("error", err.Error()).Warn("failed to resume collection")
		return false
	}
	return true
}

// refresh reports whether the provider moved the collection out of PENDING.
func (s *service) refresh(ctx context.Context, tx *models.Transaction) (bool, error) {
	gw, err := s.gateways.Get(tx.Provider)
	if err != nil {
		return false, err
	}

	id := tx.Reference
	if v, ok := tx.Metadata["provider_id"].(string); ok && v != "" {
		id = v
	}
	res, err := gw.CheckStatus(ctx, id)
	if err != nil {
		return false, err
	}
	if res.Status == provider.StatusPending {
		return false, nil
	}

	if err := s.transactions.UpdateStatus(ctx, tx.Reference, res.RawStatus, res.Status); err != nil {
		return false, err
	}
	tx.Status = res.RawStatus
	tx.NormalizedStatus = res.Status
	if res.Status == provider.StatusSuccess {
		ev := eventFromTransaction(tx)
		if err := s.settle(ctx, ev, &Outcome{Reference: tx.Reference}, true); err != nil {
			return true, fmt.Errorf("failed to settle %s: %w", tx.Reference, err)
		}
	}
	return true, nil
}

func eventFromTransaction(tx *models.Transaction) CollectionEvent {
	return CollectionEvent{
		Provider:    tx.Provider,
		Reference:   tx.Reference,
		RawStatus:   tx.Status,
		Status:      tx.NormalizedStatus,
		PayerPhone:  tx.Phone,
		CreditPhone: tx.CounterpartPhone,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
	}
}
