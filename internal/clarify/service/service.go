// Package service implements the clarification session flow: starting a
// session for an ambiguous submission, applying answers one turn at a time,
// and re-running the gate until the session resolves or degrades to manual
// review.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"leadgate/internal/clarify/generator"
	"leadgate/internal/clarify/metrics"
	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/ports"
	"leadgate/internal/clarify/store"
	"leadgate/internal/gate"
	"leadgate/internal/intake/models"
	dErrors "leadgate/pkg/domainerrors"
	"leadgate/pkg/platform/sentinel"
)

// InquiryRecorder receives the final clarified record and verdict so the
// durable inquiry reflects the session outcome.
type InquiryRecorder interface {
	RecordClarification(ctx context.Context, inquiryID string, rec models.IntakeRecord, verdict gate.Verdict) error
}

// Config bounds the session flow.
type Config struct {
	MaxTurns         int
	SessionTTL       time.Duration
	GeneratorTimeout time.Duration
	MinContextLength int
}

// Service coordinates sessions, the question generator, and the gate.
//
// Answers for the same session are serialized with a per-session mutex; the
// store's turn-index CAS is the cross-instance backstop.
type Service struct {
	sessions  store.Store
	questions ports.QuestionGenerator
	engine    *gate.Engine
	inquiries InquiryRecorder
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time

	locks sync.Map // session id -> *sync.Mutex
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

// New constructs the clarification service.
func New(
	sessions store.Store,
	questions ports.QuestionGenerator,
	engine *gate.Engine,
	inquiries InquiryRecorder,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		sessions:  sessions,
		questions: questions,
		engine:    engine,
		inquiries: inquiries,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("leadgate/clarify"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start opens a session for an ambiguous submission. triggers are the
// ambiguity tokens already computed by the caller; Start generates the first
// question and persists the session.
//
// Returns ports.ErrCannotContinue when no question can be produced, and a
// timeout domain error when generation exceeds its bound. Either way the
// caller owns the manual-review fallback.
func (s *Service) Start(ctx context.Context, inquiryID string, rec models.IntakeRecord, triggers []string) (*clarify.Session, error) {
	ctx, span := s.tracer.Start(ctx, "clarify.Start",
		trace.WithAttributes(attribute.String("inquiry_id", inquiryID)))
	defer span.End()

	question, err := s.generate(ctx, rec, nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &clarify.Session{
		ID:              uuid.NewString(),
		InquiryID:       inquiryID,
		Snapshot:        rec.Clone(),
		TurnIndex:       0,
		MaxTurns:        s.cfg.MaxTurns,
		Status:          clarify.SessionActive,
		PendingQuestion: &question,
		Turns:           []clarify.Turn{{Index: 0, Question: question}},
		TriggerReasons:  triggers,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.SessionTTL),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create clarification session")
	}

	if len(triggers) > 0 {
		s.metrics.IncrementSessionStarted(triggers[0])
	}
	s.logger.InfoContext(ctx, "clarification session started",
		"session_id", sess.ID,
		"inquiry_id", inquiryID,
		"triggers", triggers,
		"target_field", question.TargetField,
	)
	return sess, nil
}

// Answer applies one answer to the session's pending question, re-runs the
// gate on the amended snapshot, and either asks the next question or
// finalizes the session.
func (s *Service) Answer(ctx context.Context, sessionID string, turnIndex int, answer string) (*clarify.TurnResponse, error) {
	start := s.now()
	defer s.metrics.ObserveAnswerLatency(start)

	ctx, span := s.tracer.Start(ctx, "clarify.Answer",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("turn_index", turnIndex),
		))
	defer span.End()

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, mapSessionError(err)
	}
	if sess.Status.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeSessionClosed, "session is %s", sess.Status)
	}
	if turnIndex != sess.TurnIndex {
		return nil, dErrors.Newf(dErrors.CodeStaleTurn,
			"answer targets turn %d but session is at turn %d", turnIndex, sess.TurnIndex)
	}
	if sess.PendingQuestion == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "active session has no pending question")
	}

	update, err := s.applyAnswer(sess, answer)
	if err != nil {
		return nil, err
	}

	verdict := s.engine.Decide(sess.Snapshot)
	sess.LatestVerdict = &verdict
	sess.TurnIndex++
	sess.PendingQuestion = nil
	sess.ExpiresAt = s.now().Add(s.cfg.SessionTTL)

	resp := s.advance(ctx, sess, verdict)
	if update != nil {
		resp.FieldUpdated = update.Field
		resp.FieldOldValue = update.OldValue
		resp.FieldNewValue = update.NewValue
	}

	if err := s.sessions.Update(ctx, sess, turnIndex); err != nil {
		if sentinel.IsConflict(err) {
			s.metrics.IncrementTurnConflict()
			return nil, dErrors.New(dErrors.CodeStaleTurn, "another answer advanced this session first")
		}
		return nil, mapSessionError(err)
	}

	s.metrics.IncrementTurnAnswered(sess.Turns[turnIndex].Question.TargetField)

	if sess.Status.IsTerminal() {
		s.finalize(ctx, sess, verdict)
	}

	s.logger.InfoContext(ctx, "clarification answer processed",
		"session_id", sess.ID,
		"turn_index", turnIndex,
		"session_status", sess.Status,
		"gate_status", verdict.GateStatus,
	)
	return resp, nil
}

// Session returns the current state of a session for resume.
func (s *Service) Session(ctx context.Context, sessionID string) (*clarify.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, mapSessionError(err)
	}
	return sess, nil
}

// KeepAlive resets the inactivity window of an active session.
func (s *Service) KeepAlive(ctx context.Context, sessionID string) (time.Time, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return time.Time{}, mapSessionError(err)
	}
	if sess.Status.IsTerminal() {
		return time.Time{}, dErrors.Newf(dErrors.CodeSessionClosed, "session is %s", sess.Status)
	}
	expiresAt := s.now().Add(s.cfg.SessionTTL)
	if err := s.sessions.Touch(ctx, sessionID, expiresAt); err != nil {
		return time.Time{}, mapSessionError(err)
	}
	return expiresAt, nil
}

// advance decides what happens after a re-evaluation: resolve, ask the next
// question, or degrade to manual review. Mutates sess accordingly and builds
// the turn response.
func (s *Service) advance(ctx context.Context, sess *clarify.Session, verdict gate.Verdict) *clarify.TurnResponse {
	resp := &clarify.TurnResponse{
		SessionID: sess.ID,
		TurnIndex: sess.TurnIndex,
	}

	ambiguous := len(generator.Triggers(sess.Snapshot, s.cfg.MinContextLength)) > 0

	// A pass resolves immediately; so does any verdict once the snapshot is
	// no longer ambiguous.
	final := verdict.GateStatus == gate.StatusPass || !ambiguous

	if !final && sess.TurnIndex < sess.MaxTurns {
		question, err := s.generate(ctx, sess.Snapshot, sess.AskedFields())
		switch {
		case err == nil:
			sess.PendingQuestion = &question
			sess.Turns = append(sess.Turns, clarify.Turn{Index: sess.TurnIndex, Question: question})
			resp.SessionStatus = clarify.SessionActive
			resp.NextQuestion = &question
			resp.QuestionsRemaining = sess.QuestionsRemaining()
			return resp
		case errors.Is(err, ports.ErrCannotContinue):
			// Nothing left to ask; fall through to finalization.
		default:
			s.logger.WarnContext(ctx, "question generation failed, degrading to manual review",
				"session_id", sess.ID, "error", err)
			sess.Status = clarify.SessionManual
			fillTerminal(resp, sess, gate.StatusManual, gate.RouteManual)
			return resp
		}
	}

	// Finalization: a determinate verdict resolves the session, anything
	// still open goes to a human.
	switch verdict.GateStatus {
	case gate.StatusPass, gate.StatusFail:
		sess.Status = clarify.SessionResolved
		fillTerminal(resp, sess, verdict.GateStatus, verdict.Routing)
	default:
		sess.Status = clarify.SessionManual
		fillTerminal(resp, sess, gate.StatusManual, gate.RouteManual)
	}
	return resp
}

func fillTerminal(resp *clarify.TurnResponse, sess *clarify.Session, status gate.Status, routing gate.Routing) {
	resp.SessionStatus = sess.Status
	resp.GateStatus = status
	resp.Routing = routing
	resp.Message = gate.RoutingMessage(routing)
	resp.QuestionsRemaining = 0
}

// applyAnswer validates the answer against the pending question and applies
// the resulting field update to the snapshot. Returns the audit entry, or
// nil when the answer carried no update.
func (s *Service) applyAnswer(sess *clarify.Session, answer string) (*clarify.FieldUpdate, error) {
	q := sess.PendingQuestion
	answeredAt := s.now()
	turn := &sess.Turns[sess.TurnIndex]

	var field, value string
	switch q.Type {
	case clarify.QuestionText:
		text := strings.TrimSpace(answer)
		if text == "" {
			return nil, dErrors.New(dErrors.CodeInvalidAnswer, "answer text must not be empty")
		}
		turn.AnswerText = text
		turn.AnsweredAt = &answeredAt
		field, value = q.TargetField, text

	case clarify.QuestionSingleChoice:
		opt, ok := q.Option(answer)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidAnswer, "%q is not one of the offered options", answer)
		}
		turn.AnswerValue = opt.Value
		turn.AnsweredAt = &answeredAt
		if opt.MapsToField == "" {
			return nil, nil // keep current selection
		}
		field, value = opt.MapsToField, opt.MapsToValue

	case clarify.QuestionConfirmation:
		normalized := strings.ToLower(strings.TrimSpace(answer))
		if normalized != "yes" && normalized != "no" {
			return nil, dErrors.New(dErrors.CodeInvalidAnswer, `confirmation answer must be "yes" or "no"`)
		}
		turn.AnswerValue = normalized
		turn.AnsweredAt = &answeredAt
		field, value = q.TargetField, normalized

	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "unknown question type %q", q.Type)
	}

	old, err := setField(&sess.Snapshot, field, value)
	if err != nil {
		return nil, err
	}
	update := clarify.FieldUpdate{
		Field:     field,
		OldValue:  old,
		NewValue:  value,
		TurnIndex: sess.TurnIndex,
	}
	sess.FieldUpdates = append(sess.FieldUpdates, update)
	return &update, nil
}

// setField applies one named update to the snapshot and returns the prior
// value. Free-text context appends rather than replaces.
func setField(rec *models.IntakeRecord, field, value string) (string, error) {
	switch field {
	case "budget_range":
		b, err := models.ParseBudgetRange(value)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidAnswer, "invalid budget range")
		}
		old := string(rec.BudgetRange)
		rec.BudgetRange = b
		return old, nil

	case "service_type":
		t, err := models.ParseServiceType(value)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidAnswer, "invalid service type")
		}
		old := string(rec.ServiceType)
		rec.ServiceType = t
		return old, nil

	case "access_model":
		a, err := models.ParseAccessModel(value)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidAnswer, "invalid access model")
		}
		old := string(rec.AccessModel)
		rec.AccessModel = a
		return old, nil

	case "context_raw":
		old := rec.ContextRaw
		if rec.ContextRaw == "" {
			rec.ContextRaw = value
		} else {
			rec.ContextRaw = rec.ContextRaw + "\n\n" + value
		}
		return old, nil

	case "is_decision_maker":
		old := ""
		if rec.IsDecisionMaker != nil {
			old = fmt.Sprintf("%t", *rec.IsDecisionMaker)
		}
		v := value == "yes"
		rec.IsDecisionMaker = &v
		return old, nil
	}
	return "", dErrors.Newf(dErrors.CodeInternal, "question targets unknown field %q", field)
}

// generate calls the question generator under its timeout bound.
func (s *Service) generate(ctx context.Context, rec models.IntakeRecord, asked []string) (clarify.Question, error) {
	start := s.now()
	defer s.metrics.ObserveGeneratorLatency(start)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GeneratorTimeout)
	defer cancel()

	question, err := s.questions.Next(genCtx, rec, asked)
	if errors.Is(err, context.DeadlineExceeded) {
		return clarify.Question{}, dErrors.Wrap(err, dErrors.CodeTimeout, "question generation timed out")
	}
	return question, err
}

// finalize records the clarified outcome on the inquiry. Failures are logged,
// not surfaced: the caller already has the final routing and the session
// state is authoritative.
func (s *Service) finalize(ctx context.Context, sess *clarify.Session, verdict gate.Verdict) {
	s.metrics.IncrementSessionFinished(string(sess.Status))
	s.locks.Delete(sess.ID)

	if sess.Status == clarify.SessionManual {
		verdict = gate.Verdict{
			GateStatus:  gate.StatusManual,
			Routing:     gate.RouteManual,
			Criteria:    verdict.Criteria,
			FailReasons: verdict.FailReasons,
		}
	}
	if err := s.inquiries.RecordClarification(ctx, sess.InquiryID, sess.Snapshot, verdict); err != nil {
		s.logger.ErrorContext(ctx, "failed to record clarified verdict on inquiry",
			"session_id", sess.ID,
			"inquiry_id", sess.InquiryID,
			"error", err,
		)
	}
}

func (s *Service) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func mapSessionError(err error) error {
	switch {
	case sentinel.IsNotFound(err):
		return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	case sentinel.IsExpired(err):
		return dErrors.New(dErrors.CodeSessionExpired, "session expired due to inactivity")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
	}
}
