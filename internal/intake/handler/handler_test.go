package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/gate"
	"leadgate/internal/intake/handler"
	"leadgate/internal/intake/models"
	"leadgate/internal/intake/service"
	dErrors "leadgate/pkg/domainerrors"
)

type intakeStub struct {
	result *service.SubmitResult
	err    error
	gotRec models.IntakeRecord
}

func (s *intakeStub) Submit(_ context.Context, rec models.IntakeRecord, _ models.Tracking) (*service.SubmitResult, error) {
	s.gotRec = rec
	return s.result, s.err
}

type clarifyStub struct {
	turn      *clarify.TurnResponse
	session   *clarify.Session
	expiresAt time.Time
	err       error
}

func (s *clarifyStub) Answer(context.Context, string, int, string) (*clarify.TurnResponse, error) {
	return s.turn, s.err
}

func (s *clarifyStub) Session(context.Context, string) (*clarify.Session, error) {
	return s.session, s.err
}

func (s *clarifyStub) KeepAlive(context.Context, string) (time.Time, error) {
	return s.expiresAt, s.err
}

func newRouter(intake *intakeStub, clar *clarifyStub) http.Handler {
	r := chi.NewRouter()
	h := handler.New(intake, clar, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Register(r)
	return r
}

func submitBody() string {
	return `{
		"name": "Jordan Example",
		"email": "jordan@acmecorp.com",
		"role_title": "founder_csuite",
		"service_type": "project",
		"context_raw": "` + strings.Repeat("context ", 20) + `",
		"timeline": "urgent",
		"budget_range": "25k_50k",
		"access_model": "remote_access",
		"tracking": {"entry_point": "homepage", "utm_source": "newsletter"}
	}`
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestSubmitPass(t *testing.T) {
	id := uuid.New()
	intake := &intakeStub{result: &service.SubmitResult{
		InquiryID:   id,
		GateStatus:  gate.StatusPass,
		Routing:     gate.RouteCalendlyStrategyFree,
		FailReasons: []string{},
		Message:     gate.RoutingMessage(gate.RouteCalendlyStrategyFree),
	}}
	router := newRouter(intake, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake", submitBody())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id.String(), body["inquiry_id"])
	require.Equal(t, false, body["needs_clarification"])
	require.Equal(t, "pass", body["gate_status"])
	require.Equal(t, "calendly_strategy_free", body["routing_result"])
	require.NotContains(t, body, "clarification")

	require.Equal(t, "Jordan Example", intake.gotRec.Name)
	require.Equal(t, models.RoleFounderCSuite, intake.gotRec.RoleTitle)
}

func TestSubmitClarificationPendingHidesVerdict(t *testing.T) {
	question := clarify.Question{
		Text:        "Which budget range best fits your project?",
		Type:        clarify.QuestionSingleChoice,
		TargetField: "budget_range",
		Options: []clarify.QuestionOption{
			{Value: "over_50k", Label: "Over $50,000", MapsToField: "budget_range", MapsToValue: "over_50k"},
		},
	}
	intake := &intakeStub{result: &service.SubmitResult{
		InquiryID:  uuid.New(),
		GateStatus: gate.StatusManual,
		Routing:    gate.RouteManual,
		Clarification: &service.ClarificationOpener{
			SessionID:          "sess-1",
			Question:           &question,
			QuestionsRemaining: 3,
			ExpiresAt:          time.Now().Add(30 * time.Minute),
		},
	}}
	router := newRouter(intake, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake", submitBody())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["needs_clarification"])
	require.NotContains(t, body, "gate_status")
	require.NotContains(t, body, "routing_result")

	clarification := body["clarification"].(map[string]any)
	require.Equal(t, "sess-1", clarification["session_id"])
	question2 := clarification["question"].(map[string]any)
	require.Equal(t, "single_choice", question2["question_type"])

	// Option mapping internals never reach the client.
	opts := question2["options"].([]any)
	opt := opts[0].(map[string]any)
	require.NotContains(t, opt, "maps_to_field")
	require.NotContains(t, opt, "maps_to_value")
}

func TestSubmitValidationFailureListsFields(t *testing.T) {
	intake := &intakeStub{err: dErrors.NewValidation([]string{"email", "timeline"})}
	router := newRouter(intake, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake", submitBody())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_failed", body["error"])
	require.Equal(t, []any{"email", "timeline"}, body["fields"])
}

func TestSubmitRateLimited(t *testing.T) {
	intake := &intakeStub{err: dErrors.New(dErrors.CodeRateLimited, "submission limit reached")}
	router := newRouter(intake, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake", submitBody())

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", body["error"])
}

func TestSubmitMalformedJSON(t *testing.T) {
	router := newRouter(&intakeStub{}, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake", "{not json")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", body["error"])
}

func TestClarifyAnswerReturnsNextQuestion(t *testing.T) {
	clar := &clarifyStub{turn: &clarify.TurnResponse{
		SessionID:     "sess-1",
		TurnIndex:     1,
		SessionStatus: clarify.SessionActive,
		NextQuestion: &clarify.Question{
			Text:        "Which best describes what you're looking for?",
			Type:        clarify.QuestionSingleChoice,
			TargetField: "service_type",
		},
		QuestionsRemaining: 2,
		FieldUpdated:       "budget_range",
		FieldOldValue:      "unsure",
		FieldNewValue:      "over_50k",
	}}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake/clarify",
		`{"session_id": "sess-1", "turn_index": 0, "answer_value": "over_50k"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", body["session_status"])
	require.Equal(t, float64(1), body["turn_index"])
	require.Equal(t, "budget_range", body["field_updated"])
	next := body["next_question"].(map[string]any)
	require.Equal(t, "service_type", next["target_field"])
}

func TestClarifyRequiresSessionIDAndTurnIndex(t *testing.T) {
	router := newRouter(&intakeStub{}, &clarifyStub{})

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake/clarify",
		`{"turn_index": 0, "answer_value": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", body["error"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/intake/clarify",
		`{"session_id": "sess-1", "answer_value": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", body["error"])
}

func TestClarifyStaleTurn(t *testing.T) {
	clar := &clarifyStub{err: dErrors.New(dErrors.CodeStaleTurn, "another answer advanced this session first")}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake/clarify",
		`{"session_id": "sess-1", "turn_index": 0, "answer_value": "over_50k"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "stale_turn", body["error"])
}

func TestSessionStateRoundTrip(t *testing.T) {
	now := time.Now()
	clar := &clarifyStub{session: &clarify.Session{
		ID:        "sess-1",
		InquiryID: uuid.NewString(),
		Status:    clarify.SessionActive,
		TurnIndex: 1,
		MaxTurns:  3,
		PendingQuestion: &clarify.Question{
			Text: "Could you tell me more about your project?",
			Type: clarify.QuestionText,
		},
		TriggerReasons: []string{"context_insufficient"},
		FieldUpdates: []clarify.FieldUpdate{
			{Field: "budget_range", OldValue: "unsure", NewValue: "over_50k", TurnIndex: 0},
		},
		ExpiresAt: now.Add(10 * time.Minute),
	}}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodGet, "/api/intake/session/sess-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", body["status"])
	require.Equal(t, float64(2), body["questions_remaining"])
	updates := body["field_updates"].([]any)
	require.Len(t, updates, 1)
}

func TestSessionNotFound(t *testing.T) {
	clar := &clarifyStub{err: dErrors.New(dErrors.CodeSessionNotFound, "session not found")}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodGet, "/api/intake/session/missing", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "session_not_found", body["error"])
}

func TestSessionExpiredIsGone(t *testing.T) {
	clar := &clarifyStub{err: dErrors.New(dErrors.CodeSessionExpired, "session expired due to inactivity")}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodGet, "/api/intake/session/sess-1", "")

	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "session_expired", body["error"])
}

func TestKeepAlive(t *testing.T) {
	expiresAt := time.Now().Add(30 * time.Minute)
	clar := &clarifyStub{expiresAt: expiresAt}
	router := newRouter(&intakeStub{}, clar)

	rec, body := doJSON(t, router, http.MethodPost, "/api/intake/session/sess-1/keepalive", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sess-1", body["session_id"])
	require.Equal(t, "active", body["status"])
	require.NotEmpty(t, body["expires_at"])
}
