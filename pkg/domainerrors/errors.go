// Package domainerrors defines coded errors for the intake domain.
//
// Services return these so transport can translate them into consistent HTTP
// responses without inspecting error strings. Stores and infrastructure use
// pkg/platform/sentinel instead; services translate sentinels into domain
// errors at their boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeBadRequest: malformed request body or parameters.
	CodeBadRequest Code = "bad_request"
	// CodeValidationFailed: submission missing required fields or out-of-enum values.
	CodeValidationFailed Code = "validation_failed"
	// CodeInvalidAnswer: clarification answer does not match the pending question.
	CodeInvalidAnswer Code = "invalid_answer"
	// CodeStaleTurn: answer submitted for a turn that was already consumed.
	CodeStaleTurn Code = "stale_turn"
	// CodeSessionNotFound: clarification session id is unknown.
	CodeSessionNotFound Code = "session_not_found"
	// CodeSessionExpired: clarification session passed its inactivity window.
	CodeSessionExpired Code = "session_expired"
	// CodeSessionClosed: clarification session already reached a terminal state.
	CodeSessionClosed Code = "session_closed"
	// CodeRateLimited: submitter exceeded the intake rate limit.
	CodeRateLimited Code = "rate_limited"
	// CodeTimeout: an external capability exceeded its bound.
	CodeTimeout Code = "timeout"
	// CodeInternal: unexpected failure; description is withheld from responses.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Fields carries the offending field names for
// validation failures so callers can correct their input. Err, when set, is
// the underlying cause and participates in errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewValidation creates a validation error listing the offending fields.
func NewValidation(fields []string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: "missing or invalid fields",
		Fields:  fields,
	}
}

// Wrap attaches a code and caller-facing message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// CodeOf extracts the domain code from an error, defaulting to CodeInternal
// for errors that did not originate in this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidationFailed, CodeInvalidAnswer, CodeStaleTurn, CodeSessionClosed:
		return http.StatusBadRequest
	case CodeSessionNotFound:
		return http.StatusNotFound
	case CodeSessionExpired:
		return http.StatusGone
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
