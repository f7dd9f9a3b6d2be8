// Package generator implements the deterministic clarifying-question
// generator and the ambiguity triggers that decide whether a session starts.
package generator

import (
	"context"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/ports"
	"leadgate/internal/intake/models"
)

// Trigger tokens recorded on a session. Ordered by clarification priority;
// Triggers always emits them in this order.
const (
	TriggerBudgetUnsure         = "budget_unsure"
	TriggerServiceUnclear       = "service_type_unclear"
	TriggerAccessUnsure         = "access_model_unsure"
	TriggerContextInsufficient  = "context_insufficient"
	TriggerDecisionMakerUnknown = "decision_maker_unknown"
)

// triggerField maps each trigger to the intake field a question about it
// targets.
var triggerField = map[string]string{
	TriggerBudgetUnsure:         "budget_range",
	TriggerServiceUnclear:       "service_type",
	TriggerAccessUnsure:         "access_model",
	TriggerContextInsufficient:  "context_raw",
	TriggerDecisionMakerUnknown: "is_decision_maker",
}

// triggerOrder is the question priority: budget first because it moves the
// verdict the most, free-text context before the decision-maker confirmation.
var triggerOrder = []string{
	TriggerBudgetUnsure,
	TriggerServiceUnclear,
	TriggerAccessUnsure,
	TriggerContextInsufficient,
	TriggerDecisionMakerUnknown,
}

// Triggers evaluates the ambiguity rules against a record and returns the
// matching tokens in priority order. Empty means the record is unambiguous
// and no clarification session should start.
func Triggers(rec models.IntakeRecord, minContextLength int) []string {
	var out []string
	if rec.BudgetRange == models.BudgetUnsure {
		out = append(out, TriggerBudgetUnsure)
	}
	if rec.ServiceType == models.ServiceUnclear {
		out = append(out, TriggerServiceUnclear)
	}
	if rec.AccessModel == models.AccessUnsure {
		out = append(out, TriggerAccessUnsure)
	}
	if len(rec.ContextRaw) < minContextLength {
		out = append(out, TriggerContextInsufficient)
	}
	if (rec.RoleTitle == models.RoleICEngineer || rec.RoleTitle == models.RoleOther) &&
		!rec.DecisionMakerKnown() {
		out = append(out, TriggerDecisionMakerUnknown)
	}
	return out
}

// Fallback is a table-driven QuestionGenerator. It asks about the
// highest-priority still-ambiguous field that has not been asked yet and
// reports ErrCannotContinue when nothing remains.
type Fallback struct {
	minContextLength int
}

// NewFallback constructs a fallback generator. minContextLength must match
// the gate engine's threshold so the context question stops once the gate is
// satisfied.
func NewFallback(minContextLength int) *Fallback {
	return &Fallback{minContextLength: minContextLength}
}

var _ ports.QuestionGenerator = (*Fallback)(nil)

// Next returns the question for the first triggered, not-yet-asked field.
func (f *Fallback) Next(ctx context.Context, snapshot models.IntakeRecord, asked []string) (clarify.Question, error) {
	if err := ctx.Err(); err != nil {
		return clarify.Question{}, err
	}

	askedSet := make(map[string]bool, len(asked))
	for _, field := range asked {
		askedSet[field] = true
	}

	triggered := make(map[string]bool)
	for _, t := range Triggers(snapshot, f.minContextLength) {
		triggered[t] = true
	}

	for _, t := range triggerOrder {
		if !triggered[t] || askedSet[triggerField[t]] {
			continue
		}
		if q, ok := questionTable[triggerField[t]]; ok {
			return q, nil
		}
	}
	return clarify.Question{}, ports.ErrCannotContinue
}

// questionTable holds the canned question per target field. Option values
// mirror the intake enums; "keep_current" maps to no field update.
var questionTable = map[string]clarify.Question{
	"budget_range": {
		Text:        "Which budget range best fits your project?",
		Type:        clarify.QuestionSingleChoice,
		Purpose:     "Helps us recommend the right engagement",
		TargetField: "budget_range",
		Options: []clarify.QuestionOption{
			{Value: "under_10k", Label: "Under $10,000", MapsToField: "budget_range", MapsToValue: "under_10k"},
			{Value: "10k_25k", Label: "$10,000 - $25,000", MapsToField: "budget_range", MapsToValue: "10k_25k"},
			{Value: "25k_50k", Label: "$25,000 - $50,000", MapsToField: "budget_range", MapsToValue: "25k_50k"},
			{Value: "over_50k", Label: "Over $50,000", MapsToField: "budget_range", MapsToValue: "over_50k"},
			{Value: "keep_current", Label: "Keep my current selection"},
		},
	},
	"service_type": {
		Text:        "Which best describes what you're looking for?",
		Type:        clarify.QuestionSingleChoice,
		Purpose:     "Helps us point you in the right direction",
		TargetField: "service_type",
		Options: []clarify.QuestionOption{
			{Value: "audit", Label: "Audit my existing AI system", MapsToField: "service_type", MapsToValue: "audit"},
			{Value: "project", Label: "Build or ship something new", MapsToField: "service_type", MapsToValue: "project"},
			{Value: "advisory_paid", Label: "Get strategic advice", MapsToField: "service_type", MapsToValue: "advisory_paid"},
		},
	},
	"access_model": {
		Text:        "How can external collaborators access your systems?",
		Type:        clarify.QuestionSingleChoice,
		Purpose:     "Ensures we can work effectively together",
		TargetField: "access_model",
		Options: []clarify.QuestionOption{
			{Value: "remote_access", Label: "Remote access to cloud/repos", MapsToField: "access_model", MapsToValue: "remote_access"},
			{Value: "own_environment_own_tools", Label: "Sandboxed environment with our tools", MapsToField: "access_model", MapsToValue: "own_environment_own_tools"},
			{Value: "managed_devices", Label: "Must use company-managed devices", MapsToField: "access_model", MapsToValue: "managed_devices"},
			{Value: "onpremise_only", Label: "On-premise only, no remote access", MapsToField: "access_model", MapsToValue: "onpremise_only"},
		},
	},
	"context_raw": {
		Text:        "Could you tell me more about your project?",
		Type:        clarify.QuestionText,
		Purpose:     "Helps us understand your needs",
		TargetField: "context_raw",
	},
	"is_decision_maker": {
		Text:        "Do you have budget authority for this project?",
		Type:        clarify.QuestionConfirmation,
		Purpose:     "Helps us route your request",
		TargetField: "is_decision_maker",
	},
}
