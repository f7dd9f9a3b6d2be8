// Package gate implements the qualification gate: six boolean criteria over
// an intake record plus a fixed-precedence rule chain that converts them into
// a routing decision.
//
// Everything here is pure domain logic - no I/O, no side effects. The same
// engine serves the authoritative server-side decision and any advisory
// preview; there is deliberately no second copy to drift.
package gate

import (
	"strings"

	"leadgate/internal/intake/models"
	"leadgate/pkg/email"
)

// DefaultMinContextLength is the default minimum trimmed context length for
// the sufficient-context criterion.
const DefaultMinContextLength = 100

// Engine evaluates intake records against the qualification criteria.
// Safe for concurrent use: it only reads its configuration and arguments.
type Engine struct {
	emails           *email.Classifier
	minContextLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinContextLength overrides the minimum context length.
func WithMinContextLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minContextLength = n
		}
	}
}

// WithPersonalEmailDomains overrides the personal-email denylist.
func WithPersonalEmailDomains(domains []string) Option {
	return func(e *Engine) {
		if len(domains) > 0 {
			e.emails = email.NewClassifier(domains)
		}
	}
}

// NewEngine constructs a gate engine with default thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		emails:           email.NewClassifier(nil),
		minContextLength: DefaultMinContextLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Criteria computes the six qualification criteria for a record.
func (e *Engine) Criteria(rec models.IntakeRecord) CriteriaSet {
	return CriteriaSet{
		IsBusinessEmail:     e.emails.Classify(rec.Email).IsBusiness,
		IsQualifiedAccess:   qualifiedAccess[rec.AccessModel],
		IsUrgentTimeline:    urgentTimelines[rec.Timeline],
		IsSufficientBudget:  qualifyingBudgets[rec.BudgetRange],
		IsSeniorRole:        isSeniorRole(rec),
		IsSufficientContext: len(strings.TrimSpace(rec.ContextRaw)) >= e.minContextLength,
	}
}

// TriggersManualAccess reports whether the access model forces human review.
// Distinct from !IsQualifiedAccess: the engine keeps the two checks separate
// even though the five access values partition with no remainder.
func TriggersManualAccess(rec models.IntakeRecord) bool {
	return manualAccess[rec.AccessModel]
}

// Decide evaluates the rule chain in fixed precedence order (first match
// wins):
//
//  1. Paid-advisory bypass - advisory requests never enter the gate
//  2. Manual access override - restrictive access always forces review
//  3. Full pass - all six criteria hold
//  4. Strong IC/Other override - non-decision-maker with otherwise perfect
//     signals escalates to a human instead of auto-failing
//  5. Strong unsure-budget override - budget uncertainty from an otherwise
//     qualified senior lead merits review
//  6. Default fail
func (e *Engine) Decide(rec models.IntakeRecord) Verdict {
	criteria := e.Criteria(rec)

	// Rule 1: paid advisory bypasses the gate entirely.
	if rec.ServiceType == models.ServiceAdvisoryPaid {
		return Verdict{
			GateStatus:  StatusPass,
			Routing:     RoutePaidAdvisory,
			Criteria:    criteria,
			FailReasons: []string{},
		}
	}

	// Rule 2: restrictive access model forces human review.
	if TriggersManualAccess(rec) {
		return Verdict{
			GateStatus:  StatusManual,
			Routing:     RouteManual,
			Criteria:    criteria,
			FailReasons: criteria.FailReasons(),
		}
	}

	// Rule 3: full pass earns the free strategy call.
	if criteria.AllPass() {
		return Verdict{
			GateStatus:  StatusPass,
			Routing:     RouteCalendlyStrategyFree,
			Criteria:    criteria,
			FailReasons: []string{},
		}
	}

	// Rules 4 and 5: strong-signal overrides escalate instead of failing.
	if isStrongICSignal(rec, criteria) || isStrongUnsureBudget(rec, criteria) {
		return Verdict{
			GateStatus:  StatusManual,
			Routing:     RouteManual,
			Criteria:    criteria,
			FailReasons: criteria.FailReasons(),
		}
	}

	// Rule 6: default fail routes to the paid-advisory upsell.
	return Verdict{
		GateStatus:  StatusFail,
		Routing:     RoutePaidAdvisory,
		Criteria:    criteria,
		FailReasons: criteria.FailReasons(),
	}
}

func isSeniorRole(rec models.IntakeRecord) bool {
	if seniorRoles[rec.RoleTitle] {
		return true
	}
	// IC/Other with confirmed budget authority counts as senior.
	if rec.RoleTitle == models.RoleICEngineer || rec.RoleTitle == models.RoleOther {
		return rec.IsDecisionMaker != nil && *rec.IsDecisionMaker
	}
	return false
}

// isStrongICSignal: IC/Other who did not confirm decision-maker status but
// whose budget, timeline, access, and context are all strong. The seniority
// signal alone is unreliable for this subgroup, so escalate.
func isStrongICSignal(rec models.IntakeRecord, c CriteriaSet) bool {
	if rec.RoleTitle != models.RoleICEngineer && rec.RoleTitle != models.RoleOther {
		return false
	}
	if rec.IsDecisionMaker != nil && *rec.IsDecisionMaker {
		return false
	}
	return c.IsSufficientBudget && c.IsUrgentTimeline && c.IsQualifiedAccess && c.IsSufficientContext
}

// isStrongUnsureBudget: an unsure budget from an otherwise well-qualified
// senior lead merits review rather than automatic rejection.
func isStrongUnsureBudget(rec models.IntakeRecord, c CriteriaSet) bool {
	if rec.BudgetRange != models.BudgetUnsure {
		return false
	}
	return c.IsSeniorRole && c.IsUrgentTimeline && c.IsQualifiedAccess && c.IsSufficientContext
}
