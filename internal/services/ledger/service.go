package ledger

import (
	"context"
	"errors"
	"fmt"

	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type service struct {
	repo repositories.LedgerRepository
}

func NewService(repo repositories.LedgerRepository) Service {
	if repo == nil {
		panic("ledger repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*Posting, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("ledger: reference is required")
	}
	if req.From == req.To {
		return nil, ErrSameWallet
	}

	posting := &Posting{Reference: req.Reference}
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		posted, err := tx.HasEntries(ctx, req.Reference)
		if err != nil {
			return err
		}
		if posted {
			return ErrAlreadyPosted
		}

		wallets, err := tx.LockWallets(ctx, req.From, req.To)
		if err != nil {
			return err
		}
		src, dst := wallets[req.From], wallets[req.To]
		if src.Frozen || dst.Frozen {
			return ErrWalletFrozen
		}
		if !src.CanDebit(req.Amount) {
			return ErrInsufficientFunds
		}

		posting.Debit = models.LedgerEntry{
			WalletID:  src.ID,
			Amount:    req.Amount,
			Direction: models.Debit,
			Reference: req.Reference,
		}
		posting.Credit = models.LedgerEntry{
			WalletID:  dst.ID,
			Amount:    req.Amount,
			Direction: models.Credit,
			Reference: req.Reference,
		}
		if err := tx.CreateEntries(ctx, &posting.Debit, &posting.Credit); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, src.ID, src.Balance.Sub(req.Amount)); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, dst.ID, dst.Balance.Add(req.Amount))
	})
	if err != nil {
		return nil, translate(err)
	}

	logger.WithFields(logrus.Fields{
		"reference": req.Reference,
		"from":      req.From,
		"to":        req.To,
		"amount":    req.Amount.String(),
	}).Info("ledger transfer posted")
	return posting, nil
}

func (s *service) PostEntry(ctx context.Context, walletID string, amount decimal.Decimal, direction models.EntryDirection, reference string) (*models.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if direction != models.Debit && direction != models.Credit {
		return nil, fmt.Errorf("ledger: unknown direction %q", direction)
	}

	entry := &models.LedgerEntry{
		WalletID:  walletID,
		Amount:    amount,
		Direction: direction,
		Reference: reference,
	}
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		wallets, err := tx.LockWallets(ctx, walletID)
		if err != nil {
			return err
		}
		w := wallets[walletID]
		if w.Frozen {
			return ErrWalletFrozen
		}

		balance := w.Balance.Add(amount)
		if direction == models.Debit {
			if !w.CanDebit(amount) {
				return ErrInsufficientFunds
			}
			balance = w.Balance.Sub(amount)
		}
		if err := tx.CreateEntries(ctx, entry); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, walletID, balance)
	})
	if err != nil {
		return nil, translate(err)
	}
	return entry, nil
}

func (s *service) Reverse(ctx context.Context, reference string) (*Posting, error) {
	entries, err := s.repo.ListByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	var from, to string
	var amount decimal.Decimal
	for _, e := range entries {
		switch e.Direction {
		case models.Debit:
			to = e.WalletID
			amount = e.Amount
		case models.Credit:
			from = e.WalletID
		}
	}
	if from == "" || to == "" {
		return nil, ErrNotPosted
	}

	return s.Transfer(ctx, TransferRequest{
		From:      from,
		To:        to,
		Amount:    amount,
		Reference: ReversalPrefix + reference,
	})
}

func (s *service) Entries(ctx context.Context, reference string) ([]models.LedgerEntry, error) {
	return s.repo.ListByReference(ctx, reference)
}

func (s *service) History(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByWallet(ctx, walletID, limit, offset)
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyPosted
	case errors.Is(err, repositories.ErrWalletNotFound):
		return ErrWalletNotFound
	}
	return err
}
