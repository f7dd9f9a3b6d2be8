// Package models defines the intake domain types: the enumerated form fields,
// the canonical IntakeRecord the gate evaluates, and the persisted Inquiry.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "leadgate/pkg/domainerrors"
)

// RoleTitle is the submitter's role bucket.
type RoleTitle string

const (
	RoleFounderCSuite RoleTitle = "founder_csuite"
	RoleVPDirector    RoleTitle = "vp_director"
	RoleEngManager    RoleTitle = "eng_manager"
	RoleICEngineer    RoleTitle = "ic_engineer"
	RoleOther         RoleTitle = "other"
)

// IsValid checks if the role title is one of the supported enum values.
func (r RoleTitle) IsValid() bool {
	switch r {
	case RoleFounderCSuite, RoleVPDirector, RoleEngManager, RoleICEngineer, RoleOther:
		return true
	}
	return false
}

// ServiceType is the engagement the submitter is asking for.
type ServiceType string

const (
	ServiceAdvisoryPaid ServiceType = "advisory_paid"
	ServiceAudit        ServiceType = "audit"
	ServiceProject      ServiceType = "project"
	ServiceUnclear      ServiceType = "unclear"
)

// IsValid checks if the service type is one of the supported enum values.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceAdvisoryPaid, ServiceAudit, ServiceProject, ServiceUnclear:
		return true
	}
	return false
}

// Timeline is the submitter's stated urgency.
type Timeline string

const (
	TimelineUrgent    Timeline = "urgent"
	TimelineSoon      Timeline = "soon"
	TimelinePlanning  Timeline = "planning"
	TimelineExploring Timeline = "exploring"
)

// IsValid checks if the timeline is one of the supported enum values.
func (t Timeline) IsValid() bool {
	switch t {
	case TimelineUrgent, TimelineSoon, TimelinePlanning, TimelineExploring:
		return true
	}
	return false
}

// BudgetRange is the submitter's stated budget bucket.
type BudgetRange string

const (
	BudgetUnder10K BudgetRange = "under_10k"
	Budget10To25K  BudgetRange = "10k_25k"
	Budget25To50K  BudgetRange = "25k_50k"
	BudgetOver50K  BudgetRange = "over_50k"
	BudgetUnsure   BudgetRange = "unsure"
)

// IsValid checks if the budget range is one of the supported enum values.
func (b BudgetRange) IsValid() bool {
	switch b {
	case BudgetUnder10K, Budget10To25K, Budget25To50K, BudgetOver50K, BudgetUnsure:
		return true
	}
	return false
}

// AccessModel is how external collaborators may access the submitter's systems.
type AccessModel string

const (
	AccessRemote         AccessModel = "remote_access"
	AccessOwnEnvironment AccessModel = "own_environment_own_tools"
	AccessManagedDevices AccessModel = "managed_devices"
	AccessOnPremiseOnly  AccessModel = "onpremise_only"
	AccessUnsure         AccessModel = "unsure"
)

// IsValid checks if the access model is one of the supported enum values.
func (a AccessModel) IsValid() bool {
	switch a {
	case AccessRemote, AccessOwnEnvironment, AccessManagedDevices, AccessOnPremiseOnly, AccessUnsure:
		return true
	}
	return false
}

// ParseBudgetRange creates a BudgetRange from a string, validating it.
func ParseBudgetRange(s string) (BudgetRange, error) {
	b := BudgetRange(s)
	if !b.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid budget range: %q", s)
	}
	return b, nil
}

// ParseServiceType creates a ServiceType from a string, validating it.
func ParseServiceType(s string) (ServiceType, error) {
	t := ServiceType(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid service type: %q", s)
	}
	return t, nil
}

// ParseAccessModel creates an AccessModel from a string, validating it.
func ParseAccessModel(s string) (AccessModel, error) {
	a := AccessModel(s)
	if !a.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid access model: %q", s)
	}
	return a, nil
}

// IntakeRecord is the canonical set of attributes the gate evaluates.
//
// IsDecisionMaker is tri-state: nil means unknown, and it is only meaningful
// for ic_engineer/other roles. All other fields must be non-empty before gate
// evaluation runs.
type IntakeRecord struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	RoleTitle       RoleTitle   `json:"role_title"`
	IsDecisionMaker *bool       `json:"is_decision_maker,omitempty"`
	ServiceType     ServiceType `json:"service_type"`
	ContextRaw      string      `json:"context_raw"`
	Timeline        Timeline    `json:"timeline"`
	BudgetRange     BudgetRange `json:"budget_range"`
	AccessModel     AccessModel `json:"access_model"`
}

// Normalize trims name/context and lowercases the email in place. Runs once
// at the submission boundary so every later evaluation sees canonical values.
func (r *IntakeRecord) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.ContextRaw = strings.TrimSpace(r.ContextRaw)
}

// Clone returns a deep copy so clarification sessions can mutate a snapshot
// without aliasing the submitted record.
func (r IntakeRecord) Clone() IntakeRecord {
	out := r
	if r.IsDecisionMaker != nil {
		v := *r.IsDecisionMaker
		out.IsDecisionMaker = &v
	}
	return out
}

// DecisionMakerKnown reports whether the tri-state decision-maker answer has
// been given.
func (r IntakeRecord) DecisionMakerKnown() bool {
	return r.IsDecisionMaker != nil
}

// Tracking carries free-form submission metadata. The gate ignores it; the
// store persists it for analytics and human review.
type Tracking struct {
	EntryPoint  string `json:"entry_point,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// InquiryStatus tracks the human-review lifecycle of a persisted inquiry.
type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusClarified InquiryStatus = "clarified"
)

// Inquiry is the durable record of one submission: the (possibly clarified)
// intake answers plus the verdict that routed them.
type Inquiry struct {
	ID          uuid.UUID     `json:"id"`
	Record      IntakeRecord  `json:"record"`
	EmailDomain string        `json:"email_domain"`
	GateStatus  string        `json:"gate_status"`
	Routing     string        `json:"routing_result"`
	FailReasons []string      `json:"fail_reasons"`
	Status      InquiryStatus `json:"status"`
	Tracking    Tracking      `json:"tracking"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
