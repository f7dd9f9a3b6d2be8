package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/ports"
	"leadgate/internal/intake/models"
)

const minContext = 100

func clearRecord() models.IntakeRecord {
	yes := true
	return models.IntakeRecord{
		Name:            "Dana Example",
		Email:           "dana@widgets.io",
		RoleTitle:       models.RoleVPDirector,
		IsDecisionMaker: &yes,
		ServiceType:     models.ServiceAudit,
		ContextRaw:      strings.Repeat("Production LLM pipeline details. ", 5),
		Timeline:        models.TimelineSoon,
		BudgetRange:     models.BudgetOver50K,
		AccessModel:     models.AccessRemote,
	}
}

func TestTriggersNoneForClearRecord(t *testing.T) {
	require.Empty(t, Triggers(clearRecord(), minContext))
}

func TestTriggersPriorityOrder(t *testing.T) {
	rec := clearRecord()
	rec.BudgetRange = models.BudgetUnsure
	rec.ServiceType = models.ServiceUnclear
	rec.AccessModel = models.AccessUnsure
	rec.ContextRaw = "short"
	rec.RoleTitle = models.RoleICEngineer
	rec.IsDecisionMaker = nil

	require.Equal(t, []string{
		TriggerBudgetUnsure,
		TriggerServiceUnclear,
		TriggerAccessUnsure,
		TriggerContextInsufficient,
		TriggerDecisionMakerUnknown,
	}, Triggers(rec, minContext))
}

func TestTriggersDecisionMakerOnlyForICAndOther(t *testing.T) {
	rec := clearRecord()
	rec.IsDecisionMaker = nil

	// Senior roles never trigger the decision-maker question.
	require.Empty(t, Triggers(rec, minContext))

	rec.RoleTitle = models.RoleOther
	require.Equal(t, []string{TriggerDecisionMakerUnknown}, Triggers(rec, minContext))
}

func TestNextAsksBudgetFirst(t *testing.T) {
	g := NewFallback(minContext)
	rec := clearRecord()
	rec.BudgetRange = models.BudgetUnsure
	rec.ServiceType = models.ServiceUnclear

	q, err := g.Next(context.Background(), rec, nil)

	require.NoError(t, err)
	require.Equal(t, "budget_range", q.TargetField)
	require.Equal(t, clarify.QuestionSingleChoice, q.Type)

	values := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		values = append(values, opt.Value)
	}
	require.Equal(t, []string{"under_10k", "10k_25k", "25k_50k", "over_50k", "keep_current"}, values)

	keep, ok := q.Option("keep_current")
	require.True(t, ok)
	require.Empty(t, keep.MapsToField)
}

func TestNextSkipsAskedFields(t *testing.T) {
	g := NewFallback(minContext)
	rec := clearRecord()
	rec.BudgetRange = models.BudgetUnsure
	rec.ServiceType = models.ServiceUnclear

	q, err := g.Next(context.Background(), rec, []string{"budget_range"})

	require.NoError(t, err)
	require.Equal(t, "service_type", q.TargetField)
}

func TestNextCannotContinueWhenNothingTriggered(t *testing.T) {
	g := NewFallback(minContext)

	_, err := g.Next(context.Background(), clearRecord(), nil)

	require.ErrorIs(t, err, ports.ErrCannotContinue)
}

func TestNextCannotContinueWhenAllTriggeredFieldsAsked(t *testing.T) {
	g := NewFallback(minContext)
	rec := clearRecord()
	rec.BudgetRange = models.BudgetUnsure
	rec.ContextRaw = "short"

	_, err := g.Next(context.Background(), rec, []string{"budget_range", "context_raw"})

	require.ErrorIs(t, err, ports.ErrCannotContinue)
}

func TestNextDecisionMakerConfirmation(t *testing.T) {
	g := NewFallback(minContext)
	rec := clearRecord()
	rec.RoleTitle = models.RoleICEngineer
	rec.IsDecisionMaker = nil

	q, err := g.Next(context.Background(), rec, nil)

	require.NoError(t, err)
	require.Equal(t, clarify.QuestionConfirmation, q.Type)
	require.Equal(t, "is_decision_maker", q.TargetField)
}

func TestNextHonorsContextCancellation(t *testing.T) {
	g := NewFallback(minContext)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Next(ctx, clearRecord(), nil)

	require.ErrorIs(t, err, context.Canceled)
}
