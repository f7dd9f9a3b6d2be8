// Package models defines the clarification-session types: the bounded Q&A
// session, its questions and turns, and the responses the flow returns.
package models

import (
	"time"

	"leadgate/internal/gate"
	"leadgate/internal/intake/models"
)

// SessionStatus is the state of a clarification session. active is initial;
// the rest are terminal and no transition leaves them.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionResolved SessionStatus = "resolved"
	SessionManual   SessionStatus = "manual"
	SessionExpired  SessionStatus = "expired"
	SessionError    SessionStatus = "error"
)

// IsTerminal reports whether no further transition may leave this status.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionActive
}

// QuestionType drives how an answer is validated and applied.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionText         QuestionType = "text"
	QuestionConfirmation QuestionType = "confirmation"
)

// QuestionOption is one selectable answer for a single_choice question.
// MapsToField/MapsToValue describe the intake-field update the option
// carries; both empty means "keep current selection".
type QuestionOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	MapsToField string `json:"maps_to_field,omitempty"`
	MapsToValue string `json:"maps_to_value,omitempty"`
}

// Question is one clarifying question. The core treats it as opaque except
// for TargetField and Type, which drive answer application and validation.
type Question struct {
	Text        string           `json:"question_text"`
	Type        QuestionType     `json:"question_type"`
	Purpose     string           `json:"question_purpose,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	TargetField string           `json:"target_field,omitempty"`
}

// Option looks up a single_choice option by value.
func (q *Question) Option(value string) (QuestionOption, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return QuestionOption{}, false
}

// Turn records one asked question and, once answered, the answer and the
// field update it produced.
type Turn struct {
	Index       int        `json:"turn_index"`
	Question    Question   `json:"question"`
	AnswerValue string     `json:"answer_value,omitempty"`
	AnswerText  string     `json:"answer_text,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
}

// FieldUpdate records one amendment a clarification answer applied to the
// intake snapshot.
type FieldUpdate struct {
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	TurnIndex int    `json:"turn_index"`
}

// Session is a bounded multi-turn clarification exchange. Exclusively owned
// by the intake workflow that created it; stores enforce a compare-and-swap
// on TurnIndex so racing answers cannot double-advance it.
type Session struct {
	ID              string              `json:"session_id"`
	InquiryID       string              `json:"inquiry_id"`
	Snapshot        models.IntakeRecord `json:"intake_snapshot"`
	TurnIndex       int                 `json:"turn_index"`
	MaxTurns        int                 `json:"max_turns"`
	Status          SessionStatus       `json:"status"`
	PendingQuestion *Question           `json:"pending_question,omitempty"`
	Turns           []Turn              `json:"turns"`
	TriggerReasons  []string            `json:"trigger_reasons,omitempty"`
	FieldUpdates    []FieldUpdate       `json:"field_updates,omitempty"`
	LatestVerdict   *gate.Verdict       `json:"latest_verdict,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

// ExpiredAt reports whether the inactivity window has elapsed at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// QuestionsRemaining is how many more questions the session may ask.
func (s *Session) QuestionsRemaining() int {
	if remaining := s.MaxTurns - s.TurnIndex; remaining > 0 {
		return remaining
	}
	return 0
}

// AskedFields lists the target fields of questions already posed, so the
// generator never repeats one.
func (s *Session) AskedFields() []string {
	fields := make([]string, 0, len(s.Turns))
	for _, turn := range s.Turns {
		if turn.Question.TargetField != "" {
			fields = append(fields, turn.Question.TargetField)
		}
	}
	return fields
}

// Clone deep-copies the session so stores can hand out copies without
// aliasing their internal state.
func (s *Session) Clone() *Session {
	out := *s
	out.Snapshot = s.Snapshot.Clone()
	if s.PendingQuestion != nil {
		q := *s.PendingQuestion
		q.Options = append([]QuestionOption(nil), s.PendingQuestion.Options...)
		out.PendingQuestion = &q
	}
	out.Turns = append([]Turn(nil), s.Turns...)
	out.TriggerReasons = append([]string(nil), s.TriggerReasons...)
	out.FieldUpdates = append([]FieldUpdate(nil), s.FieldUpdates...)
	if s.LatestVerdict != nil {
		v := *s.LatestVerdict
		v.FailReasons = append([]string(nil), s.LatestVerdict.FailReasons...)
		out.LatestVerdict = &v
	}
	return &out
}

// TurnResponse is what one answered turn returns to the caller: either the
// next question or the final verdict.
type TurnResponse struct {
	SessionID          string        `json:"session_id"`
	TurnIndex          int           `json:"turn_index"`
	SessionStatus      SessionStatus `json:"session_status"`
	NextQuestion       *Question     `json:"next_question,omitempty"`
	GateStatus         gate.Status   `json:"gate_status,omitempty"`
	Routing            gate.Routing  `json:"routing_result,omitempty"`
	Message            string        `json:"message,omitempty"`
	QuestionsRemaining int           `json:"questions_remaining"`
	FieldUpdated       string        `json:"field_updated,omitempty"`
	FieldOldValue      string        `json:"field_old_value,omitempty"`
	FieldNewValue      string        `json:"field_new_value,omitempty"`
}
