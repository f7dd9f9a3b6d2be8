// Package store persists inquiries: an in-memory store for single-instance
// and test use, and a Postgres store for durable deployments.
package store

import (
	"context"

	"github.com/google/uuid"

	"leadgate/internal/intake/models"
)

// Store is the inquiry persistence contract. Save inserts a new inquiry;
// UpdateVerdict rewrites the record, verdict fields, and status after a
// clarification session finishes.
type Store interface {
	Save(ctx context.Context, inq *models.Inquiry) error
	Get(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	UpdateVerdict(ctx context.Context, inq *models.Inquiry) error
}
