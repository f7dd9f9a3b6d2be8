// Package service implements the intake orchestrator: validate, rate-limit,
// evaluate, persist, and either return the routing outcome or open a
// clarification session.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"leadgate/internal/clarify/generator"
	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/ports"
	"leadgate/internal/gate"
	"leadgate/internal/intake/metrics"
	"leadgate/internal/intake/models"
	"leadgate/internal/intake/store"
	"leadgate/internal/ratelimit"
	dErrors "leadgate/pkg/domainerrors"
	"leadgate/pkg/email"
	"leadgate/pkg/requestcontext"
)

// ClarifyStarter opens a clarification session for an ambiguous submission.
type ClarifyStarter interface {
	Start(ctx context.Context, inquiryID string, rec models.IntakeRecord, triggers []string) (*clarify.Session, error)
}

// SubmissionLimiter gates how often one lead may submit.
type SubmissionLimiter interface {
	CheckSubmission(email, ip string) ratelimit.Result
}

// ClarificationOpener carries the first question of a freshly started
// session back to the submitter.
type ClarificationOpener struct {
	SessionID          string
	Question           *clarify.Question
	TurnIndex          int
	QuestionsRemaining int
	ExpiresAt          time.Time
}

// SubmitResult is the outcome of one submission: either a final routing
// decision or a pending clarification.
type SubmitResult struct {
	InquiryID     uuid.UUID
	GateStatus    gate.Status
	Routing       gate.Routing
	FailReasons   []string
	Message       string
	Clarification *ClarificationOpener
}

// Pending reports whether the submission is waiting on clarification.
func (r *SubmitResult) Pending() bool { return r.Clarification != nil }

// Config holds the orchestrator knobs.
type Config struct {
	MinContextLength int
}

// Service is the intake orchestrator.
type Service struct {
	inquiries store.Store
	engine    *gate.Engine
	clarifier ClarifyStarter
	limiter   SubmissionLimiter
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs the intake orchestrator.
func New(
	inquiries store.Store,
	engine *gate.Engine,
	clarifier ClarifyStarter,
	limiter SubmissionLimiter,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		inquiries: inquiries,
		engine:    engine,
		clarifier: clarifier,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("leadgate/intake"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit runs the full intake flow for one submission.
//
// The inquiry is persisted before any clarification begins, so a lead is
// never lost to a later failure. Infrastructure failures degrade the outcome
// to manual review rather than erroring out.
func (s *Service) Submit(ctx context.Context, rec models.IntakeRecord, tracking models.Tracking) (*SubmitResult, error) {
	start := s.now()
	defer s.metrics.ObserveSubmitLatency(start)

	ctx, span := s.tracer.Start(ctx, "intake.Submit")
	defer span.End()

	rec.Normalize()
	if fields := validate(rec); len(fields) > 0 {
		s.metrics.IncrementRejection("validation")
		return nil, dErrors.NewValidation(fields)
	}

	if tracking.IPAddress == "" {
		tracking.IPAddress = requestcontext.ClientIP(ctx)
	}
	if tracking.UserAgent == "" {
		tracking.UserAgent = requestcontext.UserAgent(ctx)
	}

	if limit := s.limiter.CheckSubmission(rec.Email, tracking.IPAddress); !limit.Allowed {
		s.metrics.IncrementRejection("rate_limited")
		return nil, dErrors.Newf(dErrors.CodeRateLimited,
			"submission limit reached, try again after %s", limit.ResetAt.Format(time.RFC3339))
	}

	verdict := s.engine.Decide(rec)
	span.SetAttributes(
		attribute.String("gate_status", string(verdict.GateStatus)),
		attribute.String("routing", string(verdict.Routing)),
	)

	now := s.now()
	inq := &models.Inquiry{
		ID:          uuid.New(),
		Record:      rec,
		EmailDomain: email.Domain(rec.Email),
		GateStatus:  string(verdict.GateStatus),
		Routing:     string(verdict.Routing),
		FailReasons: verdict.FailReasons,
		Status:      models.InquiryStatusNew,
		Tracking:    tracking,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.inquiries.Save(ctx, inq); err != nil {
		// The lead is never dropped: answer with manual review and keep the
		// locally minted id for correlation.
		s.logger.ErrorContext(ctx, "failed to persist inquiry, degrading to manual review",
			"inquiry_id", inq.ID, "error", err)
		s.metrics.IncrementDegradation()
		return manualResult(inq.ID), nil
	}

	s.metrics.IncrementSubmission(string(verdict.GateStatus), string(verdict.Routing))
	s.logger.InfoContext(ctx, "inquiry evaluated",
		"inquiry_id", inq.ID,
		"email_domain", inq.EmailDomain,
		"gate_status", verdict.GateStatus,
		"routing", verdict.Routing,
		"fail_reasons", verdict.FailReasons,
	)

	// A pass is final. Anything else may open a clarification session if the
	// submission is still ambiguous.
	if verdict.GateStatus != gate.StatusPass {
		if triggers := generator.Triggers(rec, s.cfg.MinContextLength); len(triggers) > 0 {
			if result := s.tryClarify(ctx, inq, rec, verdict, triggers); result != nil {
				return result, nil
			}
		}
	}

	return &SubmitResult{
		InquiryID:   inq.ID,
		GateStatus:  verdict.GateStatus,
		Routing:     verdict.Routing,
		FailReasons: verdict.FailReasons,
		Message:     gate.RoutingMessage(verdict.Routing),
	}, nil
}

// tryClarify attempts to open a session. Returns nil when the verdict should
// stand as-is, or a result carrying either the opener or the manual-review
// degradation.
func (s *Service) tryClarify(ctx context.Context, inq *models.Inquiry, rec models.IntakeRecord, verdict gate.Verdict, triggers []string) *SubmitResult {
	sess, err := s.clarifier.Start(ctx, inq.ID.String(), rec, triggers)
	if err == nil {
		return &SubmitResult{
			InquiryID:   inq.ID,
			GateStatus:  verdict.GateStatus,
			Routing:     verdict.Routing,
			FailReasons: verdict.FailReasons,
			Clarification: &ClarificationOpener{
				SessionID:          sess.ID,
				Question:           sess.PendingQuestion,
				TurnIndex:          sess.TurnIndex,
				QuestionsRemaining: sess.QuestionsRemaining(),
				ExpiresAt:          sess.ExpiresAt,
			},
		}
	}
	if errors.Is(err, ports.ErrCannotContinue) {
		return nil
	}

	// Generation timed out or the session store failed: a human picks it up.
	s.logger.WarnContext(ctx, "clarification unavailable, degrading to manual review",
		"inquiry_id", inq.ID, "error", err)
	s.metrics.IncrementDegradation()

	inq.GateStatus = string(gate.StatusManual)
	inq.Routing = string(gate.RouteManual)
	inq.UpdatedAt = s.now()
	if err := s.inquiries.UpdateVerdict(ctx, inq); err != nil {
		s.logger.ErrorContext(ctx, "failed to record manual degradation",
			"inquiry_id", inq.ID, "error", err)
	}
	return manualResult(inq.ID)
}

// RecordClarification applies a finished clarification session's record and
// verdict to the stored inquiry. Implements the clarification service's
// recorder port.
func (s *Service) RecordClarification(ctx context.Context, inquiryID string, rec models.IntakeRecord, verdict gate.Verdict) error {
	id, err := uuid.Parse(inquiryID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid inquiry id")
	}

	inq, err := s.inquiries.Get(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inquiry")
	}

	inq.Record = rec
	inq.GateStatus = string(verdict.GateStatus)
	inq.Routing = string(verdict.Routing)
	inq.FailReasons = verdict.FailReasons
	inq.Status = models.InquiryStatusClarified
	inq.UpdatedAt = s.now()

	if err := s.inquiries.UpdateVerdict(ctx, inq); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update inquiry")
	}

	s.metrics.IncrementSubmission(inq.GateStatus, inq.Routing)
	s.logger.InfoContext(ctx, "inquiry clarified",
		"inquiry_id", inq.ID,
		"gate_status", inq.GateStatus,
		"routing", inq.Routing,
	)
	return nil
}

// Inquiry loads one stored inquiry.
func (s *Service) Inquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	inq, err := s.inquiries.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inquiry")
	}
	return inq, nil
}

func manualResult(id uuid.UUID) *SubmitResult {
	return &SubmitResult{
		InquiryID:   id,
		GateStatus:  gate.StatusManual,
		Routing:     gate.RouteManual,
		FailReasons: []string{},
		Message:     gate.RoutingMessage(gate.RouteManual),
	}
}

// validate lists the missing or out-of-enum fields of a normalized record.
func validate(rec models.IntakeRecord) []string {
	var fields []string
	if rec.Name == "" {
		fields = append(fields, "name")
	}
	if !email.Valid(rec.Email) {
		fields = append(fields, "email")
	}
	if !rec.RoleTitle.IsValid() {
		fields = append(fields, "role_title")
	}
	if !rec.ServiceType.IsValid() {
		fields = append(fields, "service_type")
	}
	if rec.ContextRaw == "" {
		fields = append(fields, "context_raw")
	}
	if !rec.Timeline.IsValid() {
		fields = append(fields, "timeline")
	}
	if !rec.BudgetRange.IsValid() {
		fields = append(fields, "budget_range")
	}
	if !rec.AccessModel.IsValid() {
		fields = append(fields, "access_model")
	}
	return fields
}
