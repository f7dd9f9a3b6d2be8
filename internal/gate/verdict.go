package gate

import "leadgate/internal/intake/models"

// Status is the qualification outcome for a submitted lead.
type Status string

const (
	StatusPass   Status = "pass"
	StatusFail   Status = "fail"
	StatusManual Status = "manual"
)

// Routing is the concrete next step offered to the lead.
type Routing string

const (
	RouteCalendlyStrategyFree Routing = "calendly_strategy_free"
	RoutePaidAdvisory         Routing = "paid_advisory"
	RouteManual               Routing = "manual"
)

// CriteriaSet holds the six independently computed qualification criteria.
// Derived, never stored; recomputed from the current record on every
// evaluation.
type CriteriaSet struct {
	IsBusinessEmail     bool `json:"is_business_email"`
	IsQualifiedAccess   bool `json:"is_qualified_access"`
	IsUrgentTimeline    bool `json:"is_urgent_timeline"`
	IsSufficientBudget  bool `json:"is_sufficient_budget"`
	IsSeniorRole        bool `json:"is_senior_role"`
	IsSufficientContext bool `json:"is_sufficient_context"`
}

// AllPass reports whether every criterion holds.
func (c CriteriaSet) AllPass() bool {
	return c.IsBusinessEmail &&
		c.IsQualifiedAccess &&
		c.IsUrgentTimeline &&
		c.IsSufficientBudget &&
		c.IsSeniorRole &&
		c.IsSufficientContext
}

// Fail reason tokens, emitted in this fixed order. The ordering is a contract
// for consumers; it is never re-sorted by severity.
const (
	ReasonPersonalEmail       = "personal_email"
	ReasonAccessNotQualified  = "access_not_qualified"
	ReasonTimelineNotUrgent   = "timeline_not_urgent"
	ReasonBudgetBelowThresh   = "budget_below_threshold"
	ReasonNotSeniorRole       = "not_senior_role"
	ReasonInsufficientContext = "insufficient_context"
)

// FailReasons returns the tokens for the failing criteria in canonical order.
func (c CriteriaSet) FailReasons() []string {
	reasons := []string{}
	if !c.IsBusinessEmail {
		reasons = append(reasons, ReasonPersonalEmail)
	}
	if !c.IsQualifiedAccess {
		reasons = append(reasons, ReasonAccessNotQualified)
	}
	if !c.IsUrgentTimeline {
		reasons = append(reasons, ReasonTimelineNotUrgent)
	}
	if !c.IsSufficientBudget {
		reasons = append(reasons, ReasonBudgetBelowThresh)
	}
	if !c.IsSeniorRole {
		reasons = append(reasons, ReasonNotSeniorRole)
	}
	if !c.IsSufficientContext {
		reasons = append(reasons, ReasonInsufficientContext)
	}
	return reasons
}

// Verdict is the full outcome of one gate evaluation. Immutable once
// produced; a re-evaluation replaces the prior verdict entirely.
type Verdict struct {
	GateStatus  Status      `json:"gate_status"`
	Routing     Routing     `json:"routing_result"`
	Criteria    CriteriaSet `json:"criteria"`
	FailReasons []string    `json:"fail_reasons"`
}

// RoutingMessage returns the user-facing message for a routing result.
func RoutingMessage(r Routing) string {
	switch r {
	case RouteCalendlyStrategyFree:
		return "You qualify for a free strategy call. Book a time that works for you."
	case RoutePaidAdvisory:
		return "Based on your needs, a paid advisory session would be the best fit. You'll get focused, actionable guidance."
	case RouteManual:
		return "Thanks for reaching out! We'll review your request and follow up via email within 24 hours."
	}
	return "Thanks for your submission!"
}

// seniorRoles pass the seniority criterion outright; ic_engineer/other only
// pass it when the submitter confirmed they hold budget authority.
var seniorRoles = map[models.RoleTitle]bool{
	models.RoleFounderCSuite: true,
	models.RoleVPDirector:    true,
	models.RoleEngManager:    true,
}

// qualifiedAccess and manualAccess partition the five access values; the
// engine still consults them as separate checks for clarity and
// extensibility.
var qualifiedAccess = map[models.AccessModel]bool{
	models.AccessRemote:         true,
	models.AccessOwnEnvironment: true,
}

var manualAccess = map[models.AccessModel]bool{
	models.AccessManagedDevices: true,
	models.AccessOnPremiseOnly:  true,
	models.AccessUnsure:         true,
}

var urgentTimelines = map[models.Timeline]bool{
	models.TimelineUrgent: true,
	models.TimelineSoon:   true,
}

var qualifyingBudgets = map[models.BudgetRange]bool{
	models.Budget25To50K: true,
	models.BudgetOver50K: true,
}
