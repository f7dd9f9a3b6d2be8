package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/ports"
	"leadgate/internal/gate"
	"leadgate/internal/intake/models"
	"leadgate/internal/intake/service"
	"leadgate/internal/intake/store"
	"leadgate/internal/ratelimit"
	dErrors "leadgate/pkg/domainerrors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clarifierStub struct {
	session *clarify.Session
	err     error
	calls   int
	lastID  string
}

func (c *clarifierStub) Start(_ context.Context, inquiryID string, rec models.IntakeRecord, triggers []string) (*clarify.Session, error) {
	c.calls++
	c.lastID = inquiryID
	if c.err != nil {
		return nil, c.err
	}
	if c.session == nil {
		question := clarify.Question{
			Text:        "Which budget range best fits your project?",
			Type:        clarify.QuestionSingleChoice,
			TargetField: "budget_range",
		}
		c.session = &clarify.Session{
			ID:              uuid.NewString(),
			InquiryID:       inquiryID,
			Snapshot:        rec,
			MaxTurns:        3,
			Status:          clarify.SessionActive,
			PendingQuestion: &question,
			TriggerReasons:  triggers,
			ExpiresAt:       time.Now().Add(30 * time.Minute),
		}
	}
	return c.session, nil
}

type limiterStub struct {
	denied bool
}

func (l *limiterStub) CheckSubmission(string, string) ratelimit.Result {
	if l.denied {
		return ratelimit.Result{Allowed: false, Limit: 3, ResetAt: time.Now().Add(time.Hour)}
	}
	return ratelimit.Result{Allowed: true, Remaining: 2, Limit: 3}
}

// failingStore fails writes while delegating reads.
type failingStore struct {
	store.Store
	saveErr   error
	updateErr error
}

func (f *failingStore) Save(ctx context.Context, inq *models.Inquiry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, inq)
}

func (f *failingStore) UpdateVerdict(ctx context.Context, inq *models.Inquiry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.Store.UpdateVerdict(ctx, inq)
}

type ServiceSuite struct {
	suite.Suite
	inquiries *store.MemoryStore
	clarifier *clarifierStub
	limiter   *limiterStub
	service   *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.inquiries = store.NewMemory()
	s.clarifier = &clarifierStub{}
	s.limiter = &limiterStub{}
	s.service = s.newService(s.inquiries)
}

func (s *ServiceSuite) newService(inquiries store.Store) *service.Service {
	return service.New(
		inquiries,
		gate.NewEngine(),
		s.clarifier,
		s.limiter,
		service.Config{MinContextLength: 100},
		discardLogger(),
	)
}

func qualifiedRecord() models.IntakeRecord {
	return models.IntakeRecord{
		Name:        "Jordan Example",
		Email:       "Jordan@AcmeCorp.com",
		RoleTitle:   models.RoleFounderCSuite,
		ServiceType: models.ServiceProject,
		ContextRaw:  strings.Repeat("We are scaling a production RAG system. ", 6),
		Timeline:    models.TimelineUrgent,
		BudgetRange: models.Budget25To50K,
		AccessModel: models.AccessRemote,
	}
}

func (s *ServiceSuite) TestSubmitPassIsFinal() {
	res, err := s.service.Submit(context.Background(), qualifiedRecord(), models.Tracking{EntryPoint: "homepage"})
	s.Require().NoError(err)

	s.Equal(gate.StatusPass, res.GateStatus)
	s.Equal(gate.RouteCalendlyStrategyFree, res.Routing)
	s.Empty(res.FailReasons)
	s.NotEmpty(res.Message)
	s.False(res.Pending())
	s.Equal(0, s.clarifier.calls)

	// Persisted with a normalized email and the tracking metadata.
	inq, err := s.inquiries.Get(context.Background(), res.InquiryID)
	s.Require().NoError(err)
	s.Equal("jordan@acmecorp.com", inq.Record.Email)
	s.Equal("acmecorp.com", inq.EmailDomain)
	s.Equal("homepage", inq.Tracking.EntryPoint)
	s.Equal(models.InquiryStatusNew, inq.Status)
}

func (s *ServiceSuite) TestSubmitValidationFailureListsFields() {
	rec := qualifiedRecord()
	rec.Name = "  "
	rec.Email = "not-an-email"
	rec.Timeline = "whenever"

	_, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidationFailed))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal([]string{"name", "email", "timeline"}, de.Fields)
}

func (s *ServiceSuite) TestSubmitRateLimited() {
	s.limiter.denied = true

	_, err := s.service.Submit(context.Background(), qualifiedRecord(), models.Tracking{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Equal(0, s.clarifier.calls)
}

func (s *ServiceSuite) TestSubmitAmbiguousOpensClarification() {
	rec := qualifiedRecord()
	rec.BudgetRange = models.BudgetUnsure

	res, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().NoError(err)

	s.Require().True(res.Pending())
	s.Equal(gate.StatusManual, res.GateStatus) // strong unsure-budget override
	s.NotEmpty(res.Clarification.SessionID)
	s.Require().NotNil(res.Clarification.Question)
	s.Equal("budget_range", res.Clarification.Question.TargetField)
	s.Equal(1, s.clarifier.calls)
	s.Equal(res.InquiryID.String(), s.clarifier.lastID)
}

func (s *ServiceSuite) TestSubmitUnambiguousFailSkipsClarification() {
	rec := qualifiedRecord()
	rec.Email = "jordan@gmail.com"

	res, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().NoError(err)

	s.False(res.Pending())
	s.Equal(gate.StatusFail, res.GateStatus)
	s.Equal(gate.RoutePaidAdvisory, res.Routing)
	s.Equal([]string{gate.ReasonPersonalEmail}, res.FailReasons)
	s.Equal(0, s.clarifier.calls)
}

func (s *ServiceSuite) TestSubmitVerdictStandsWhenNothingToAsk() {
	s.clarifier.err = ports.ErrCannotContinue
	rec := qualifiedRecord()
	rec.BudgetRange = models.BudgetUnsure

	res, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().NoError(err)

	s.False(res.Pending())
	s.Equal(gate.StatusManual, res.GateStatus)
	s.Equal(gate.RouteManual, res.Routing)
}

func (s *ServiceSuite) TestSubmitClarifierFailureDegradesToManual() {
	s.clarifier.err = errors.New("session store down")
	rec := qualifiedRecord()
	rec.BudgetRange = models.BudgetUnsure
	rec.Timeline = models.TimelineExploring // verdict would be fail

	res, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().NoError(err)

	s.False(res.Pending())
	s.Equal(gate.StatusManual, res.GateStatus)
	s.Equal(gate.RouteManual, res.Routing)

	inq, err := s.inquiries.Get(context.Background(), res.InquiryID)
	s.Require().NoError(err)
	s.Equal("manual", inq.GateStatus)
}

func (s *ServiceSuite) TestSubmitSaveFailureDegradesToManual() {
	svc := s.newService(&failingStore{Store: s.inquiries, saveErr: errors.New("db down")})

	res, err := svc.Submit(context.Background(), qualifiedRecord(), models.Tracking{})
	s.Require().NoError(err)

	s.Equal(gate.StatusManual, res.GateStatus)
	s.Equal(gate.RouteManual, res.Routing)
	s.NotEqual(uuid.Nil, res.InquiryID)
}

func (s *ServiceSuite) TestRecordClarificationUpdatesInquiry() {
	rec := qualifiedRecord()
	rec.BudgetRange = models.BudgetUnsure
	res, err := s.service.Submit(context.Background(), rec, models.Tracking{})
	s.Require().NoError(err)

	clarified := rec
	clarified.Normalize()
	clarified.BudgetRange = models.BudgetOver50K
	verdict := gate.NewEngine().Decide(clarified)
	s.Require().Equal(gate.StatusPass, verdict.GateStatus)

	err = s.service.RecordClarification(context.Background(), res.InquiryID.String(), clarified, verdict)
	s.Require().NoError(err)

	inq, err := s.inquiries.Get(context.Background(), res.InquiryID)
	s.Require().NoError(err)
	s.Equal(models.BudgetOver50K, inq.Record.BudgetRange)
	s.Equal("pass", inq.GateStatus)
	s.Equal("calendly_strategy_free", inq.Routing)
	s.Equal(models.InquiryStatusClarified, inq.Status)
}

func (s *ServiceSuite) TestRecordClarificationBadID() {
	err := s.service.RecordClarification(context.Background(), "not-a-uuid", qualifiedRecord(), gate.Verdict{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
