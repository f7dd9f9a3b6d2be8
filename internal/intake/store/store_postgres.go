package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"leadgate/internal/intake/models"
	"leadgate/pkg/platform/sentinel"
)

// Schema creates the inquiries table. Applied by deployment tooling and by
// the integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS inquiries (
	id                UUID PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL,
	email_domain      TEXT NOT NULL,
	role_title        TEXT NOT NULL,
	is_decision_maker BOOLEAN,
	service_type      TEXT NOT NULL,
	context_raw       TEXT NOT NULL,
	timeline          TEXT NOT NULL,
	budget_range      TEXT NOT NULL,
	access_model      TEXT NOT NULL,
	gate_status       TEXT NOT NULL,
	routing_result    TEXT NOT NULL,
	fail_reasons      TEXT[] NOT NULL DEFAULT '{}',
	status            TEXT NOT NULL,
	entry_point       TEXT NOT NULL DEFAULT '',
	referrer          TEXT NOT NULL DEFAULT '',
	utm_source        TEXT NOT NULL DEFAULT '',
	utm_medium        TEXT NOT NULL DEFAULT '',
	utm_campaign      TEXT NOT NULL DEFAULT '',
	ip_address        TEXT NOT NULL DEFAULT '',
	user_agent        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS inquiries_email_idx ON inquiries (email);
CREATE INDEX IF NOT EXISTS inquiries_created_at_idx ON inquiries (created_at);
`

// PostgresStore persists inquiries with plain SQL over lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed inquiry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Save inserts a new inquiry.
func (s *PostgresStore) Save(ctx context.Context, inq *models.Inquiry) error {
	query := `
		INSERT INTO inquiries (
			id, name, email, email_domain, role_title, is_decision_maker,
			service_type, context_raw, timeline, budget_range, access_model,
			gate_status, routing_result, fail_reasons, status,
			entry_point, referrer, utm_source, utm_medium, utm_campaign,
			ip_address, user_agent, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`
	_, err := s.db.ExecContext(ctx, query,
		inq.ID,
		inq.Record.Name,
		inq.Record.Email,
		inq.EmailDomain,
		string(inq.Record.RoleTitle),
		nullBool(inq.Record.IsDecisionMaker),
		string(inq.Record.ServiceType),
		inq.Record.ContextRaw,
		string(inq.Record.Timeline),
		string(inq.Record.BudgetRange),
		string(inq.Record.AccessModel),
		inq.GateStatus,
		inq.Routing,
		pq.Array(inq.FailReasons),
		string(inq.Status),
		inq.Tracking.EntryPoint,
		inq.Tracking.Referrer,
		inq.Tracking.UTMSource,
		inq.Tracking.UTMMedium,
		inq.Tracking.UTMCampaign,
		inq.Tracking.IPAddress,
		inq.Tracking.UserAgent,
		inq.CreatedAt,
		inq.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save inquiry: %w", err)
	}
	return nil
}

// Get loads one inquiry by id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	query := `
		SELECT id, name, email, email_domain, role_title, is_decision_maker,
			service_type, context_raw, timeline, budget_range, access_model,
			gate_status, routing_result, fail_reasons, status,
			entry_point, referrer, utm_source, utm_medium, utm_campaign,
			ip_address, user_agent, created_at, updated_at
		FROM inquiries WHERE id = $1
	`
	var (
		inq           models.Inquiry
		decisionMaker sql.NullBool
		failReasons   pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inq.ID,
		&inq.Record.Name,
		&inq.Record.Email,
		&inq.EmailDomain,
		&inq.Record.RoleTitle,
		&decisionMaker,
		&inq.Record.ServiceType,
		&inq.Record.ContextRaw,
		&inq.Record.Timeline,
		&inq.Record.BudgetRange,
		&inq.Record.AccessModel,
		&inq.GateStatus,
		&inq.Routing,
		&failReasons,
		&inq.Status,
		&inq.Tracking.EntryPoint,
		&inq.Tracking.Referrer,
		&inq.Tracking.UTMSource,
		&inq.Tracking.UTMMedium,
		&inq.Tracking.UTMCampaign,
		&inq.Tracking.IPAddress,
		&inq.Tracking.UserAgent,
		&inq.CreatedAt,
		&inq.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	if decisionMaker.Valid {
		inq.Record.IsDecisionMaker = &decisionMaker.Bool
	}
	inq.FailReasons = []string(failReasons)
	return &inq, nil
}

// UpdateVerdict rewrites the clarified record, verdict fields, and status.
func (s *PostgresStore) UpdateVerdict(ctx context.Context, inq *models.Inquiry) error {
	query := `
		UPDATE inquiries SET
			is_decision_maker = $2,
			service_type = $3,
			context_raw = $4,
			budget_range = $5,
			access_model = $6,
			gate_status = $7,
			routing_result = $8,
			fail_reasons = $9,
			status = $10,
			updated_at = $11
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		inq.ID,
		nullBool(inq.Record.IsDecisionMaker),
		string(inq.Record.ServiceType),
		inq.Record.ContextRaw,
		string(inq.Record.BudgetRange),
		string(inq.Record.AccessModel),
		inq.GateStatus,
		inq.Routing,
		pq.Array(inq.FailReasons),
		string(inq.Status),
		inq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update inquiry verdict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update inquiry verdict: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
