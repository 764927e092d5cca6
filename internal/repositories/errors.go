package repositories

import "errors"

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDuplicateWallet     = errors.New("wallet already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	// ErrBalanceHeld means the wallet cannot cover a new withdrawal on top of
	// those still waiting for their debit.
	ErrBalanceHeld = errors.New("balance is held by pending withdrawals")
	// ErrStaleStatus means a guarded status update found a different current status.
	ErrStaleStatus = errors.New("status changed concurrently")
)
