// Package store persists clarification sessions. Two implementations: an
// in-memory store for single-instance and test use, and a Redis store for
// deployments where answers may land on any instance.
package store

import (
	"context"
	"time"

	"leadgate/internal/clarify/models"
)

// Store is the session persistence contract.
//
// Update is a compare-and-swap on the session's turn index: it persists the
// new state only if the stored turn index still equals expectedTurn, and
// returns sentinel.ErrConflict otherwise. This is the backstop that keeps
// racing answers from double-advancing a session even across instances.
//
// Get returns sentinel.ErrNotFound for unknown ids and sentinel.ErrExpired
// for sessions whose inactivity window has lapsed.
type Store interface {
	Create(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, sess *models.Session, expectedTurn int) error
	Touch(ctx context.Context, id string, expiresAt time.Time) error
}
