package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leadgate/internal/intake/models"
	"leadgate/internal/intake/store"
	"leadgate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *store.MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = store.NewMemory()
}

func makeInquiry() *models.Inquiry {
	now := time.Now()
	return &models.Inquiry{
		ID: uuid.New(),
		Record: models.IntakeRecord{
			Name:        "Alex Example",
			Email:       "alex@globex.com",
			RoleTitle:   models.RoleFounderCSuite,
			ServiceType: models.ServiceProject,
			ContextRaw:  strings.Repeat("context ", 20),
			Timeline:    models.TimelineUrgent,
			BudgetRange: models.BudgetOver50K,
			AccessModel: models.AccessRemote,
		},
		EmailDomain: "globex.com",
		GateStatus:  "pass",
		Routing:     "calendly_strategy_free",
		FailReasons: []string{},
		Status:      models.InquiryStatusNew,
		Tracking: models.Tracking{
			EntryPoint: "pricing_page",
			UTMSource:  "newsletter",
			IPAddress:  "203.0.113.9",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *MemoryStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	inq := makeInquiry()

	s.Require().NoError(s.store.Save(ctx, inq))

	got, err := s.store.Get(ctx, inq.ID)
	s.Require().NoError(err)
	s.Equal(inq.ID, got.ID)
	s.Equal(inq.Record, got.Record)
	s.Equal("pricing_page", got.Tracking.EntryPoint)
}

func (s *MemoryStoreSuite) TestSaveDuplicateConflicts() {
	ctx := context.Background()
	inq := makeInquiry()

	s.Require().NoError(s.store.Save(ctx, inq))
	s.Require().ErrorIs(s.store.Save(ctx, inq), sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestGetUnknownNotFound() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestGetReturnsCopy() {
	ctx := context.Background()
	inq := makeInquiry()
	s.Require().NoError(s.store.Save(ctx, inq))

	got, err := s.store.Get(ctx, inq.ID)
	s.Require().NoError(err)
	got.Record.BudgetRange = models.BudgetUnder10K
	got.GateStatus = "fail"

	again, err := s.store.Get(ctx, inq.ID)
	s.Require().NoError(err)
	s.Equal(models.BudgetOver50K, again.Record.BudgetRange)
	s.Equal("pass", again.GateStatus)
}

func (s *MemoryStoreSuite) TestUpdateVerdict() {
	ctx := context.Background()
	inq := makeInquiry()
	s.Require().NoError(s.store.Save(ctx, inq))

	clarified := *inq
	clarified.Record = inq.Record.Clone()
	clarified.Record.BudgetRange = models.Budget25To50K
	clarified.GateStatus = "pass"
	clarified.Status = models.InquiryStatusClarified
	clarified.UpdatedAt = time.Now()
	s.Require().NoError(s.store.UpdateVerdict(ctx, &clarified))

	got, err := s.store.Get(ctx, inq.ID)
	s.Require().NoError(err)
	s.Equal(models.Budget25To50K, got.Record.BudgetRange)
	s.Equal(models.InquiryStatusClarified, got.Status)
}

func (s *MemoryStoreSuite) TestUpdateVerdictUnknownNotFound() {
	inq := makeInquiry()
	s.Require().ErrorIs(s.store.UpdateVerdict(context.Background(), inq), sentinel.ErrNotFound)
}
