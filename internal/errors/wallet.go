package errors

import "net/http"

var (
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
		Status:  http.StatusBadRequest,
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
		Status:  http.StatusNotFound,
	}
	ErrWalletFrozen = &DomainError{
		Code:    "WALLET_FROZEN",
		Message: "wallet is frozen",
		Status:  http.StatusConflict,
	}
	ErrWithdrawalNotFound = &DomainError{
		Code:    "WITHDRAWAL_NOT_FOUND",
		Message: "withdrawal not found",
		Status:  http.StatusNotFound,
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "invalid withdrawal status transition",
		Status:  http.StatusConflict,
	}
	ErrWalletExists = &DomainError{
		Code:    "WALLET_EXISTS",
		Message: "wallet already exists",
		Status:  http.StatusConflict,
	}
)
