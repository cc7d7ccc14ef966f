// Package errors provides standardized error handling for the Wrale Signage player
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be used across the player
var (
	// ErrNotFound indicates a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a resource already exists
	ErrConflict = errors.New("resource conflict")

	// ErrUnavailable indicates the backend could not be reached or failed
	ErrUnavailable = errors.New("backend unavailable")

	// ErrSuspended indicates the backend suspended service for this device
	ErrSuspended = errors.New("service suspended")

	// ErrCredentialRejected indicates the backend no longer accepts the device credential
	ErrCredentialRejected = errors.New("device credential rejected")

	// ErrPairingUnavailable indicates a pairing code could not be issued
	ErrPairingUnavailable = errors.New("pairing unavailable")
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Is reports whether any error in err's chain matches target.
// It saves callers from importing both this package and the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound returns true if err represents a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if err represents an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsSuspended returns true if err carries a suspension command
func IsSuspended(err error) bool {
	return errors.Is(err, ErrSuspended)
}

// IsCredentialRejected returns true if err means the device must pair again
func IsCredentialRejected(err error) bool {
	return errors.Is(err, ErrCredentialRejected)
}

// CodeOf returns the machine-readable code of the first *Error in the chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
