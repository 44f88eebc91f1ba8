package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different checkout")
)

// GatewayError reports a failed exchange with the payment gateway.
// StatusCode is zero when no response was received.
type GatewayError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("payment gateway unavailable: %v", e.Err)
	}
	return fmt.Sprintf("payment gateway responded with status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// InvalidRequest wraps ErrInvalidRequest with a human readable reason.
func InvalidRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}
