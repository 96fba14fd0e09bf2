// Package domainerrors defines the typed error taxonomy shared by services
// and transports.
//
// Operational failures (missing rows, stale versions, broken connections)
// travel as DomainError values carrying a Code. Policy denials from the
// transition guard are NOT errors - a denied transition is an expected
// outcome and is modeled as a decision value in the guard package.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP translation.
type Code string

const (
	// CodeInvalidInput marks malformed input rejected at a trust boundary.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeValidation marks structurally valid input that fails business validation.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict marks a state conflict (duplicate, concurrent change).
	CodeConflict Code = "CONFLICT"
	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeForbidden marks an actor lacking the privilege for an operation.
	CodeForbidden Code = "FORBIDDEN"
	// CodeInvariantViolation marks an attempt to put an entity in an illegal state.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	// CodeStaleState marks an optimistic concurrency failure: the caller's
	// snapshot is out of date and must be re-read before retrying.
	CodeStaleState Code = "STALE_STATE"
	// CodePersistence marks a storage-layer failure. Retryable without
	// re-deciding policy.
	CodePersistence Code = "PERSISTENCE_ERROR"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "INTERNAL"
)

// DomainError couples a Code with a message and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a DomainError with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStaleState:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
