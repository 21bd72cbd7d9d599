// Package apierr defines the error taxonomy surfaced by the PostForge API.
//
// Every failure a client can see maps to exactly one Code, one HTTP status,
// and one response envelope: {"error": {"code", "message", "details"}}.
// Pipeline stages return typed errors immediately; nothing is swallowed.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of API failure.
type Code string

const (
	CodeAuthRequired    Code = "AUTH_REQUIRED"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeProviderError   Code = "PROVIDER_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeProviderError:
		return http.StatusBadGateway
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// E is a typed API error.
type E struct {
	Code    Code
	Message string
	Details any
	cause   error
}

// Error implements the error interface.
func (e *E) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *E) Unwrap() error { return e.cause }

// New creates a typed API error.
func New(code Code, message string) *E {
	return &E{Code: code, Message: message}
}

// Wrap creates a typed API error with an underlying cause.
func Wrap(code Code, message string, cause error) *E {
	return &E{Code: code, Message: message, cause: cause}
}

// WithDetails attaches client-visible detail data.
func (e *E) WithDetails(details any) *E {
	e.Details = details
	return e
}

// From extracts a typed API error, or wraps err as INTERNAL_ERROR.
func From(err error) *E {
	var e *E
	if errors.As(err, &e) {
		return e
	}
	return Wrap(CodeInternal, "an unexpected error occurred", err)
}
