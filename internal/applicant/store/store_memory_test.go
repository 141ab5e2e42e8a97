package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) seed(externalID string, status models.Status) *models.Applicant {
	record, err := s.store.Transition(s.ctx, externalID, func(a *models.Applicant, found bool) ([]*models.Event, error) {
		s.False(found)
		a.Kind = models.KindFromExternalID(externalID)
		a.Status = status
		return nil, nil
	})
	s.Require().NoError(err)
	return record
}

func (s *MemoryStoreSuite) TestTransitionCreatesRecord() {
	record := s.seed("cpf_12345678901", models.StatusCreated)
	s.NotEmpty(record.ID)
	s.Equal("cpf_12345678901", record.ExternalID)
	s.Equal(models.KindIndividual, record.Kind)
	s.False(record.CreatedAt.IsZero())
}

func (s *MemoryStoreSuite) TestTransitionMutatesExisting() {
	s.seed("cpf_12345678901", models.StatusCreated)

	record, err := s.store.Transition(s.ctx, "cpf_12345678901", func(a *models.Applicant, found bool) ([]*models.Event, error) {
		s.True(found)
		a.Status = models.StatusPending
		return []*models.Event{{Kind: models.EventApplicantPending, PriorStatus: models.StatusCreated, NewStatus: models.StatusPending}}, nil
	})
	s.Require().NoError(err)
	s.Equal(models.StatusPending, record.Status)

	events, err := s.store.ListEvents(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.EventApplicantPending, events[0].Kind)
	s.Equal(record.ID, events[0].ApplicantID)
	s.NotEmpty(events[0].ID)
}

func (s *MemoryStoreSuite) TestTransitionErrorWritesNothing() {
	_, err := s.store.Transition(s.ctx, "cpf_12345678901", func(a *models.Applicant, found bool) ([]*models.Event, error) {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown event for absent applicant")
	})
	s.Error(err)

	_, err = s.store.Find(s.ctx, Ref{ExternalID: "cpf_12345678901"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestExecuteValidateFailureAborts() {
	seeded := s.seed("cpf_12345678901", models.StatusApproved)

	_, err := s.store.Execute(s.ctx, Ref{ID: seeded.ID},
		func(a *models.Applicant) error {
			return dErrors.New(dErrors.CodeExpired, "credential expired")
		},
		func(a *models.Applicant) []*models.Event {
			a.Status = models.StatusRejected
			return nil
		})
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	record, err := s.store.Find(s.ctx, Ref{ID: seeded.ID})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, record.Status)
}

func (s *MemoryStoreSuite) TestFindByTokens() {
	s.seed("cpf_12345678901", models.StatusApproved)

	record, err := s.store.Execute(s.ctx, Ref{ExternalID: "cpf_12345678901"},
		func(a *models.Applicant) error { return nil },
		func(a *models.Applicant) []*models.Event {
			a.ContractToken = "ct-token"
			a.WalletToken = "wt-token"
			return nil
		})
	s.Require().NoError(err)

	byContract, err := s.store.Find(s.ctx, Ref{ContractToken: "ct-token"})
	s.Require().NoError(err)
	s.Equal(record.ID, byContract.ID)

	byWallet, err := s.store.Find(s.ctx, Ref{WalletToken: "wt-token"})
	s.Require().NoError(err)
	s.Equal(record.ID, byWallet.ID)

	_, err = s.store.Find(s.ctx, Ref{ContractToken: "no-such"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestFindReturnsCopy() {
	s.seed("cpf_12345678901", models.StatusPending)

	first, err := s.store.Find(s.ctx, Ref{ExternalID: "cpf_12345678901"})
	s.Require().NoError(err)
	first.Status = models.StatusRejected

	second, err := s.store.Find(s.ctx, Ref{ExternalID: "cpf_12345678901"})
	s.Require().NoError(err)
	s.Equal(models.StatusPending, second.Status)
}

func (s *MemoryStoreSuite) TestListPendingReview() {
	s.seed("cpf_11111111111", models.StatusApproved)
	s.seed("cpf_22222222222", models.StatusApproved)

	_, err := s.store.Execute(s.ctx, Ref{ExternalID: "cpf_22222222222"},
		func(a *models.Applicant) error { return nil },
		func(a *models.Applicant) []*models.Event {
			a.WalletAddress = "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6"
			a.WalletPendingReview = true
			return nil
		})
	s.Require().NoError(err)

	pending, err := s.store.ListPendingReview(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("cpf_22222222222", pending[0].ExternalID)
}

func (s *MemoryStoreSuite) TestConcurrentTransitionsSerialize() {
	s.seed("cpf_12345678901", models.StatusCreated)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Transition(s.ctx, "cpf_12345678901", func(a *models.Applicant, found bool) ([]*models.Event, error) {
				a.Status = models.StatusPending
				return []*models.Event{{Kind: models.EventApplicantPending, NewStatus: models.StatusPending, CreatedAt: time.Now()}}, nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	record, err := s.store.Find(s.ctx, Ref{ExternalID: "cpf_12345678901"})
	s.Require().NoError(err)

	events, err := s.store.ListEvents(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Len(events, 20)
}
