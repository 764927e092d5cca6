// Package withdrawal implements the user withdrawal lifecycle:
// REQUESTED -> {APPROVED, PAID, REJECTED}, APPROVED -> {PAID, REJECTED}.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "momopay/internal/errors"
	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/services/ledger"
	"momopay/internal/services/provider"

	"github.com/sirupsen/logrus"
)

const referencePrefix = "withdrawal-"

type service struct {
	repo    repositories.WithdrawalRepository
	wallets repositories.WalletRepository
	ledger  ledger.Service
	revenue repositories.RevenueRepository
	payout  Disburser
	cfg     Config
}

func NewService(
	repo repositories.WithdrawalRepository,
	wallets repositories.WalletRepository,
	ledgerSvc ledger.Service,
	revenue repositories.RevenueRepository,
	payout Disburser,
	cfg Config,
) Service {
	if repo == nil || wallets == nil || ledgerSvc == nil || revenue == nil || payout == nil {
		panic("withdrawal service dependencies are required")
	}
	if cfg.PlatformWalletID == "" {
		panic("platform wallet id is required")
	}
	return &service{
		repo:    repo,
		wallets: wallets,
		ledger:  ledgerSvc,
		revenue: revenue,
		payout:  payout,
		cfg:     cfg,
	}
}

// Request creates a withdrawal and drives it through the payout. Provider
// failures end in REJECTED and are reported on the returned withdrawal.
func (s *service) Request(ctx context.Context, req Request) (*models.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.wallets.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if req.Amount.LessThan(s.cfg.Minimum) {
		return nil, &apperrors.DomainError{
			Code:    ErrInvalidAmount.Code,
			Message: fmt.Sprintf("minimum withdrawal is %s", s.cfg.Minimum),
			Status:  ErrInvalidAmount.Status,
		}
	}
	if wallet.Frozen {
		return nil, apperrors.ErrWalletFrozen
	}
	if !wallet.CanDebit(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	w := &models.Withdrawal{
		UserID:      req.UserID,
		WalletID:    wallet.ID,
		Amount:      req.Amount,
		Charge:      s.cfg.Charge,
		NetAmount:   req.Amount.Sub(s.cfg.Charge),
		Destination: req.Destination,
		Status:      models.WithdrawalRequested,
		Provider:    s.payout.Name(),
	}
	// Reserve serializes requests per wallet so concurrent payouts cannot
	// spend the same balance.
	if err := s.repo.Reserve(ctx, w); err != nil {
		switch {
		case errors.Is(err, repositories.ErrBalanceHeld):
			return nil, ErrInsufficientFunds
		case errors.Is(err, repositories.ErrWalletNotFound):
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	s.log(w).Info("withdrawal requested")

	if !w.NetAmount.IsPositive() {
		return s.reject(ctx, w, models.WithdrawalRequested, "amount does not cover the withdrawal charge")
	}

	res, err := s.payout.Disburse(ctx, provider.DisburseRequest{
		Phone:     w.Destination,
		Amount:    w.NetAmount,
		Reference: w.Reference(),
		Currency:  s.cfg.Currency,
		Note:      "withdrawal",
	})
	if err != nil {
		s.log(w).WithField("error", err.Error()).Warn("withdrawal payout failed")
		return s.reject(ctx, w, models.WithdrawalRequested, err.Error())
	}
	w.ProviderReference = res.ProviderID

	switch res.Status {
	case provider.StatusFailed:
		reason := res.Message
		if reason == "" {
			reason = "payout failed: " + res.RawStatus
		}
		return s.reject(ctx, w, models.WithdrawalRequested, reason)
	case provider.StatusSuccess:
		return s.commit(ctx, w, models.WithdrawalRequested, models.WithdrawalPaid)
	default:
		return s.commit(ctx, w, models.WithdrawalRequested, models.WithdrawalApproved)
	}
}

func (s *service) ApplyProviderStatus(ctx context.Context, reference string, status models.WithdrawalStatus, providerRef string) (*models.Withdrawal, error) {
	w, err := s.Get(ctx, strings.TrimPrefix(reference, referencePrefix))
	if err != nil {
		return nil, err
	}
	if status == models.WithdrawalRequested || status == w.Status {
		return w, nil
	}
	if !CanTransition(w.Status, status) {
		return w, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, status)
	}
	if providerRef != "" {
		w.ProviderReference = providerRef
	}

	if status == models.WithdrawalRejected {
		return s.reject(ctx, w, w.Status, "rejected by provider")
	}
	return s.commit(ctx, w, w.Status, status)
}

// commit debits the full amount (once) and moves w to APPROVED or PAID. The
// payout has already left, so a failed debit still records the move.
func (s *service) commit(ctx context.Context, w *models.Withdrawal, from, to models.WithdrawalStatus) (*models.Withdrawal, error) {
	var debitErr error
	if !w.Debited {
		posted, err := s.debit(ctx, w)
		switch {
		case err != nil:
			debitErr = fmt.Errorf("%w: %v", ErrDebitFailed, err)
			w.FailureReason = debitErr.Error()
			s.log(w).WithField("error", err.Error()).Error("withdrawal debit failed after payout")
		default:
			w.Debited = true
			if posted {
				s.recordCharge(ctx, w)
			}
		}
	}

	w.Status = to
	if err := s.transition(ctx, w, from); err != nil {
		if current, ok := s.settledAt(ctx, w.ID, to); ok {
			return current, debitErr
		}
		return nil, err
	}
	s.log(w).Info("withdrawal " + strings.ToLower(string(to)))
	return w, debitErr
}

// reject moves w to REJECTED, refunding an earlier debit.
func (s *service) reject(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus, reason string) (*models.Withdrawal, error) {
	if w.Debited {
		if _, err := s.ledger.Reverse(ctx, w.Reference()); err != nil && !errors.Is(err, ledger.ErrAlreadyPosted) {
			return nil, fmt.Errorf("failed to refund withdrawal %s: %w", w.ID, err)
		}
		if _, err := s.revenue.ReverseCharge(ctx, w.Charge); err != nil {
			s.log(w).WithField("error", err.Error()).Error("failed to reverse withdrawal charge")
		}
		w.Debited = false
	}

	w.Status = models.WithdrawalRejected
	w.FailureReason = reason
	if err := s.transition(ctx, w, from); err != nil {
		if current, ok := s.settledAt(ctx, w.ID, models.WithdrawalRejected); ok {
			return current, nil
		}
		return nil, err
	}
	s.log(w).WithField("reason", reason).Info("withdrawal rejected")
	return w, nil
}

// debit reports whether this call posted the entries.
func (s *service) debit(ctx context.Context, w *models.Withdrawal) (bool, error) {
	_, err := s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:      w.WalletID,
		To:        s.cfg.PlatformWalletID,
		Amount:    w.Amount,
		Reference: w.Reference(),
	})
	if errors.Is(err, ledger.ErrAlreadyPosted) {
		return false, nil
	}
	return err == nil, err
}

func (s *service) recordCharge(ctx context.Context, w *models.Withdrawal) {
	if !w.Charge.IsPositive() {
		return
	}
	if _, err := s.revenue.AddCharge(ctx, w.Charge); err != nil {
		s.log(w).WithField("error", err.Error()).Error("failed to record withdrawal charge")
	}
}

func (s *service) transition(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error {
	err := s.repo.Transition(ctx, w, from)
	if errors.Is(err, repositories.ErrStaleStatus) {
		return fmt.Errorf("%w: withdrawal %s is no longer %s", ErrInvalidTransition, w.ID, from)
	}
	return err
}

// settledAt re-reads a withdrawal that lost a guarded update. A concurrent
// provider callback that already moved it to target, or past it, wins.
func (s *service) settledAt(ctx context.Context, id string, target models.WithdrawalStatus) (*models.Withdrawal, bool) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false
	}
	if current.Status == target || (CanTransition(target, current.Status) && current.Status != models.WithdrawalRejected) {
		return current, true
	}
	return nil, false
}

func (s *service) Get(ctx context.Context, id string) (*models.Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrWithdrawalNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	return w, err
}

func (s *service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Withdrawal, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *service) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	return s.repo.ListByStatus(ctx, status, limit)
}

func (s *service) log(w *models.Withdrawal) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"amount":        w.Amount.String(),
		"status":        w.Status,
	})
}
