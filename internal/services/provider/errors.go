package provider

import (
	"fmt"

	apperrors "momopay/internal/errors"
)

var (
	ErrWalletNotFound  = apperrors.ErrWalletNotFound
	ErrUnknownProvider = apperrors.ErrUnknownProvider
)

// ProviderError reports a failed provider call. It matches
// apperrors.ErrProvider with errors.Is.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s failed", e.Provider, e.Operation)
}

func (e *ProviderError) Unwrap() []error {
	errs := []error{apperrors.ErrProvider}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
