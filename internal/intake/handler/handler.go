// Package handler wires the intake and clarification endpoints to their
// services.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/intake/models"
	"leadgate/internal/intake/service"
	"leadgate/pkg/platform/httputil"
	"leadgate/pkg/requestcontext"
)

// IntakeService is the orchestrator surface the handler needs.
type IntakeService interface {
	Submit(ctx context.Context, rec models.IntakeRecord, tracking models.Tracking) (*service.SubmitResult, error)
}

// ClarifyService is the session surface the handler needs.
type ClarifyService interface {
	Answer(ctx context.Context, sessionID string, turnIndex int, answer string) (*clarify.TurnResponse, error)
	Session(ctx context.Context, sessionID string) (*clarify.Session, error)
	KeepAlive(ctx context.Context, sessionID string) (time.Time, error)
}

// Handler serves the public intake API.
type Handler struct {
	intake  IntakeService
	clarify ClarifyService
	logger  *slog.Logger
}

// New constructs an intake handler.
func New(intake IntakeService, clarify ClarifyService, logger *slog.Logger) *Handler {
	return &Handler{
		intake:  intake,
		clarify: clarify,
		logger:  logger,
	}
}

// Register mounts the intake endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/intake", h.HandleSubmit)
	r.Post("/api/intake/clarify", h.HandleClarify)
	r.Get("/api/intake/session/{sessionID}", h.HandleSession)
	r.Post("/api/intake/session/{sessionID}/keepalive", h.HandleKeepAlive)
}

// HandleSubmit handles POST /api/intake.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[IntakeRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.intake.Submit(ctx, req.Record(), req.TrackingModel())
	if err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromSubmitResult(result))
}

// HandleClarify handles POST /api/intake/clarify.
func (h *Handler) HandleClarify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[ClarifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	turn, err := h.clarify.Answer(ctx, req.SessionID, *req.TurnIndex, req.Answer)
	if err != nil {
		h.logger.WarnContext(ctx, "clarification answer rejected",
			"request_id", requestID,
			"session_id", req.SessionID,
			"turn_index", *req.TurnIndex,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromTurn(turn))
}

// HandleSession handles GET /api/intake/session/{sessionID}.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.clarify.Session(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromSession(sess))
}

// HandleKeepAlive handles POST /api/intake/session/{sessionID}/keepalive.
func (h *Handler) HandleKeepAlive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	expiresAt, err := h.clarify.KeepAlive(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Only active sessions can be extended; a terminal or expired session
	// errors out above.
	httputil.WriteJSON(w, http.StatusOK, KeepAliveResponse{
		SessionID: sessionID,
		Status:    string(clarify.SessionActive),
		ExpiresAt: expiresAt,
	})
}
