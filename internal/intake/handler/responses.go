package handler

import (
	"time"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/intake/service"
)

// QuestionResponse is the wire form of a clarifying question.
type QuestionResponse struct {
	Text        string           `json:"question_text"`
	Type        string           `json:"question_type"`
	Purpose     string           `json:"question_purpose,omitempty"`
	Options     []OptionResponse `json:"options,omitempty"`
	TargetField string           `json:"target_field,omitempty"`
}

// OptionResponse is one selectable answer.
type OptionResponse struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

func fromQuestion(q *clarify.Question) *QuestionResponse {
	if q == nil {
		return nil
	}
	resp := &QuestionResponse{
		Text:        q.Text,
		Type:        string(q.Type),
		Purpose:     q.Purpose,
		TargetField: q.TargetField,
	}
	for _, opt := range q.Options {
		// maps_to_* is server-side routing detail, not client contract.
		resp.Options = append(resp.Options, OptionResponse{
			Value:       opt.Value,
			Label:       opt.Label,
			Description: opt.Description,
		})
	}
	return resp
}

// ClarificationResponse carries a pending session back to the submitter.
type ClarificationResponse struct {
	SessionID          string            `json:"session_id"`
	TurnIndex          int               `json:"turn_index"`
	Question           *QuestionResponse `json:"question"`
	QuestionsRemaining int               `json:"questions_remaining"`
	ExpiresAt          time.Time         `json:"expires_at"`
}

// SubmitResponse is the HTTP response for POST /api/intake.
type SubmitResponse struct {
	InquiryID          string                 `json:"inquiry_id"`
	NeedsClarification bool                   `json:"needs_clarification"`
	GateStatus         string                 `json:"gate_status,omitempty"`
	Routing            string                 `json:"routing_result,omitempty"`
	FailReasons        []string               `json:"fail_reasons,omitempty"`
	Message            string                 `json:"message,omitempty"`
	Clarification      *ClarificationResponse `json:"clarification,omitempty"`
}

func fromSubmitResult(res *service.SubmitResult) *SubmitResponse {
	resp := &SubmitResponse{
		InquiryID:          res.InquiryID.String(),
		NeedsClarification: res.Pending(),
		GateStatus:         string(res.GateStatus),
		Routing:            string(res.Routing),
		FailReasons:        res.FailReasons,
		Message:            res.Message,
	}
	if res.Pending() {
		// The verdict is withheld while clarification is open.
		resp.GateStatus = ""
		resp.Routing = ""
		resp.FailReasons = nil
		resp.Clarification = &ClarificationResponse{
			SessionID:          res.Clarification.SessionID,
			TurnIndex:          res.Clarification.TurnIndex,
			Question:           fromQuestion(res.Clarification.Question),
			QuestionsRemaining: res.Clarification.QuestionsRemaining,
			ExpiresAt:          res.Clarification.ExpiresAt,
		}
	}
	return resp
}

// TurnResponse is the HTTP response for POST /api/intake/clarify.
type TurnResponse struct {
	SessionID          string            `json:"session_id"`
	TurnIndex          int               `json:"turn_index"`
	SessionStatus      string            `json:"session_status"`
	NextQuestion       *QuestionResponse `json:"next_question,omitempty"`
	GateStatus         string            `json:"gate_status,omitempty"`
	Routing            string            `json:"routing_result,omitempty"`
	Message            string            `json:"message,omitempty"`
	QuestionsRemaining int               `json:"questions_remaining"`
	FieldUpdated       string            `json:"field_updated,omitempty"`
	FieldOldValue      string            `json:"field_old_value,omitempty"`
	FieldNewValue      string            `json:"field_new_value,omitempty"`
}

func fromTurn(turn *clarify.TurnResponse) *TurnResponse {
	return &TurnResponse{
		SessionID:          turn.SessionID,
		TurnIndex:          turn.TurnIndex,
		SessionStatus:      string(turn.SessionStatus),
		NextQuestion:       fromQuestion(turn.NextQuestion),
		GateStatus:         string(turn.GateStatus),
		Routing:            string(turn.Routing),
		Message:            turn.Message,
		QuestionsRemaining: turn.QuestionsRemaining,
		FieldUpdated:       turn.FieldUpdated,
		FieldOldValue:      turn.FieldOldValue,
		FieldNewValue:      turn.FieldNewValue,
	}
}

// FieldUpdateResponse is one applied amendment in the session state.
type FieldUpdateResponse struct {
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	TurnIndex int    `json:"turn_index"`
}

// SessionStateResponse is the HTTP response for GET /api/intake/session/{id}.
type SessionStateResponse struct {
	SessionID          string                `json:"session_id"`
	InquiryID          string                `json:"inquiry_id"`
	Status             string                `json:"status"`
	TurnIndex          int                   `json:"turn_index"`
	MaxTurns           int                   `json:"max_turns"`
	PendingQuestion    *QuestionResponse     `json:"pending_question,omitempty"`
	QuestionsRemaining int                   `json:"questions_remaining"`
	TriggerReasons     []string              `json:"trigger_reasons,omitempty"`
	FieldUpdates       []FieldUpdateResponse `json:"field_updates"`
	ExpiresAt          time.Time             `json:"expires_at"`
}

func fromSession(sess *clarify.Session) *SessionStateResponse {
	resp := &SessionStateResponse{
		SessionID:          sess.ID,
		InquiryID:          sess.InquiryID,
		Status:             string(sess.Status),
		TurnIndex:          sess.TurnIndex,
		MaxTurns:           sess.MaxTurns,
		PendingQuestion:    fromQuestion(sess.PendingQuestion),
		QuestionsRemaining: sess.QuestionsRemaining(),
		TriggerReasons:     sess.TriggerReasons,
		FieldUpdates:       []FieldUpdateResponse{},
		ExpiresAt:          sess.ExpiresAt,
	}
	for _, u := range sess.FieldUpdates {
		resp.FieldUpdates = append(resp.FieldUpdates, FieldUpdateResponse(u))
	}
	return resp
}

// KeepAliveResponse is the HTTP response for the keepalive endpoint.
type KeepAliveResponse struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}
