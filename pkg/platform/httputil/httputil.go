// Package httputil centralizes JSON encoding and domain error translation for
// HTTP handlers so every endpoint emits the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "leadgate/pkg/domainerrors"
)

// ErrorResponse is the JSON error envelope. ErrorDescription is omitted for
// internal errors so operator detail never leaks to callers.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Fields           []string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}

	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
			resp.Fields = de.Fields
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// Decode decodes the request body into T, writing a bad_request response and
// returning false on malformed JSON.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "malformed request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		return req, false
	}
	return req, true
}
