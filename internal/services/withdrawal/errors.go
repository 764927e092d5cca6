package withdrawal

import (
	"errors"

	apperrors "momopay/internal/errors"
)

var (
	ErrWalletNotFound     = apperrors.ErrWalletNotFound
	ErrInsufficientFunds  = apperrors.ErrInsufficientFunds
	ErrInvalidAmount      = apperrors.ErrInvalidAmount
	ErrInvalidTransition  = apperrors.ErrInvalidTransition
	ErrWithdrawalNotFound = apperrors.ErrWithdrawalNotFound
	// ErrDebitFailed means the payout left but the wallet debit did not post.
	ErrDebitFailed = errors.New("withdrawal debit failed after payout")
)
