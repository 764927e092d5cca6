package errors

import "net/http"

var (
	ErrSignatureInvalid = &DomainError{
		Code:    "SIGNATURE_INVALID",
		Message: "invalid webhook signature",
		Status:  http.StatusUnauthorized,
	}
	ErrReplayDetected = &DomainError{
		Code:    "REPLAY_DETECTED",
		Message: "webhook already processed",
		Status:  http.StatusConflict,
	}
	ErrProvider = &DomainError{
		Code:    "PROVIDER_ERROR",
		Message: "mobile money provider request failed",
		Status:  http.StatusBadGateway,
	}
	ErrInvalidPayload = &DomainError{
		Code:    "INVALID_PAYLOAD",
		Message: "invalid webhook payload",
		Status:  http.StatusBadRequest,
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Status:  http.StatusNotFound,
	}
	ErrAmountNotEligible = &DomainError{
		Code:    "AMOUNT_NOT_ELIGIBLE",
		Message: "amount is not eligible for a voucher",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrAmountTooLarge = &DomainError{
		Code:    "AMOUNT_TOO_LARGE",
		Message: "amount exceeds the single payment limit",
		Status:  http.StatusForbidden,
	}
	ErrUnknownProvider = &DomainError{
		Code:    "UNKNOWN_PROVIDER",
		Message: "unknown provider",
		Status:  http.StatusNotFound,
	}
)
