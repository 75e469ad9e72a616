package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates that an account's available balance cannot cover a debit or reservation.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrDuplicateReference indicates that a gateway reference was already recorded against another entry.
var ErrDuplicateReference = errors.New("duplicate external reference")

// ErrRateUnavailable indicates that no exchange rate fresh enough could be obtained.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrInvalidRecipient indicates that a transfer receiver does not exist or is the sender.
var ErrInvalidRecipient = errors.New("invalid recipient")

// ErrBusy indicates lock contention. The operation had no effect and may be retried.
var ErrBusy = errors.New("resource busy, retry later")

// ErrUntrustedNotification indicates that an inbound gateway notification failed authenticity checks.
var ErrUntrustedNotification = errors.New("untrusted notification")

// ErrAlreadyProcessed indicates that a settlement was already finalized. It is benign.
var ErrAlreadyProcessed = errors.New("already processed")

// ErrTransferRejected indicates that a gateway definitively refused a payout. Any other
// initiation error leaves the outcome unknown.
var ErrTransferRejected = errors.New("transfer rejected by gateway")

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError wraps err with a status code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError returns an AppError matching ErrValidation.
func NewValidationError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

// NewNotFoundError returns an AppError matching ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// IsRetryable reports whether the caller may retry the same operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsBenign reports whether err signals a no-op outcome that should not be surfaced as a failure.
func IsBenign(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}
