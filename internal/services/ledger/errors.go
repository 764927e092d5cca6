package ledger

import (
	"errors"

	apperrors "momopay/internal/errors"
)

var (
	// ErrAlreadyPosted means the reference already carries entries; nothing was written.
	ErrAlreadyPosted = errors.New("ledger reference already posted")
	ErrNotPosted     = errors.New("ledger reference has no entries")
	ErrSameWallet    = errors.New("cannot transfer to the same wallet")

	ErrInvalidAmount     = apperrors.ErrInvalidAmount
	ErrInsufficientFunds = apperrors.ErrInsufficientFunds
	ErrWalletNotFound    = apperrors.ErrWalletNotFound
	ErrWalletFrozen      = apperrors.ErrWalletFrozen
)
