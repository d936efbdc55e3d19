package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInvalidOTP         = New("INVALID_OTP", http.StatusUnauthorized, "invalid one-time password")
	ErrOTPExpired         = New("OTP_EXPIRED", http.StatusUnauthorized, "one-time password expired")
	ErrOTPNotIssued       = New("OTP_NOT_ISSUED", http.StatusConflict, "no one-time password was requested")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Selection engine outcomes. Each gate failure carries its own code so
	// callers can tell "does not exist" apart from "exists but blocked".
	ErrInvalidSemester  = New("INVALID_SEMESTER", http.StatusBadRequest, "semester must be '1' or '2'")
	ErrWrongSemester    = New("WRONG_SEMESTER", http.StatusUnprocessableEntity, "discipline belongs to another semester")
	ErrSelectionClosed  = New("SELECTION_CLOSED", http.StatusForbidden, "discipline selection is not open for this student")
	ErrCreditsExceeded  = New("CREDITS_EXCEEDED", http.StatusUnprocessableEntity, "selection would exceed the semester credit ceiling")
	ErrInvalidCSV       = New("INVALID_CSV", http.StatusBadRequest, "csv payload is malformed")
	ErrEmailTaken       = New("EMAIL_TAKEN", http.StatusConflict, "a user with this email already exists")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
