package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record or session does not exist in the store
// - ErrConflict: optimistic concurrency check failed (someone else advanced first)
// - ErrExpired: session passed its inactivity window
// - ErrInvalidState: session in a terminal state for the requested operation
// - ErrUnavailable: backing store or external capability temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domainerrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsExpired reports whether err wraps ErrExpired.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }
