package handler

import (
	"strings"

	"leadgate/internal/intake/models"
	dErrors "leadgate/pkg/domainerrors"
)

// IntakeRequest is the HTTP request body for POST /api/intake.
//
// Enum and required-field validation happens in the intake service, which
// reports every offending field at once; the handler only maps shapes.
type IntakeRequest struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	RoleTitle       string          `json:"role_title"`
	IsDecisionMaker *bool           `json:"is_decision_maker,omitempty"`
	ServiceType     string          `json:"service_type"`
	ContextRaw      string          `json:"context_raw"`
	Timeline        string          `json:"timeline"`
	BudgetRange     string          `json:"budget_range"`
	AccessModel     string          `json:"access_model"`
	Tracking        TrackingRequest `json:"tracking"`
}

// TrackingRequest is the optional analytics metadata on a submission.
type TrackingRequest struct {
	EntryPoint  string `json:"entry_point,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

// Record maps the request to the domain record.
func (r *IntakeRequest) Record() models.IntakeRecord {
	return models.IntakeRecord{
		Name:            r.Name,
		Email:           r.Email,
		RoleTitle:       models.RoleTitle(r.RoleTitle),
		IsDecisionMaker: r.IsDecisionMaker,
		ServiceType:     models.ServiceType(r.ServiceType),
		ContextRaw:      r.ContextRaw,
		Timeline:        models.Timeline(r.Timeline),
		BudgetRange:     models.BudgetRange(r.BudgetRange),
		AccessModel:     models.AccessModel(r.AccessModel),
	}
}

// TrackingModel maps the tracking block; client IP and user agent come from
// request context, never from the body.
func (r *IntakeRequest) TrackingModel() models.Tracking {
	return models.Tracking{
		EntryPoint:  strings.TrimSpace(r.Tracking.EntryPoint),
		Referrer:    strings.TrimSpace(r.Tracking.Referrer),
		UTMSource:   strings.TrimSpace(r.Tracking.UTMSource),
		UTMMedium:   strings.TrimSpace(r.Tracking.UTMMedium),
		UTMCampaign: strings.TrimSpace(r.Tracking.UTMCampaign),
	}
}

// ClarifyRequest is the HTTP request body for POST /api/intake/clarify.
type ClarifyRequest struct {
	SessionID string `json:"session_id"`
	TurnIndex *int   `json:"turn_index"`
	Answer    string `json:"answer_value"`
}

// Validate checks the structural requirements of a clarify request.
func (r *ClarifyRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session_id is required")
	}
	if r.TurnIndex == nil {
		return dErrors.New(dErrors.CodeBadRequest, "turn_index is required")
	}
	if *r.TurnIndex < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "turn_index must not be negative")
	}
	return nil
}
