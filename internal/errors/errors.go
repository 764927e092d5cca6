// Package errors defines the domain error taxonomy surfaced to API clients.
package errors

import (
	"errors"
	"net/http"
)

// DomainError is an error with a stable machine-readable code.
type DomainError struct {
	Code    string
	Message string
	Status  int
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on code so wrapped copies compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus returns the status carried by a DomainError in the chain,
// or 500 when err is not a domain error.
func HTTPStatus(err error) int {
	var de *DomainError
	if errors.As(err, &de) && de.Status != 0 {
		return de.Status
	}
	return http.StatusInternalServerError
}

// Code returns the domain code of err, or "INTERNAL".
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
