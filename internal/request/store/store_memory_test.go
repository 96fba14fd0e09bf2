package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *MemoryStoreSuite) newRequest(citizenID id.CitizenID) *models.ServiceRequest {
	req, err := models.NewServiceRequest(
		id.NewRequestID(), citizenID, models.CategoryConsularCard, models.PriorityNormal,
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), req))
	return req
}

func mustCitizenID(s string) id.CitizenID {
	parsed, err := id.ParseCitizenID(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

var citizenA = mustCitizenID("f2a9a6ce-8e0c-4b5f-9a59-1c0f38b102aa")

func (s *MemoryStoreSuite) TestCreate() {
	ctx := context.Background()

	s.Run("duplicate id conflicts", func() {
		req := s.newRequest(citizenA)
		err := s.store.Create(ctx, req)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("stored snapshot is isolated from the caller", func() {
		req := s.newRequest(citizenA)
		req.Status = models.StatusCompleted

		loaded, err := s.store.FindByID(ctx, req.ID)
		s.NoError(err)
		s.Equal(models.StatusDraft, loaded.Status)
	})
}

func (s *MemoryStoreSuite) TestFindByID() {
	ctx := context.Background()

	s.Run("missing request", func() {
		_, err := s.store.FindByID(ctx, id.NewRequestID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned snapshot is a copy", func() {
		req := s.newRequest(citizenA)
		loaded, err := s.store.FindByID(ctx, req.ID)
		s.NoError(err)
		loaded.Status = models.StatusRejected

		again, err := s.store.FindByID(ctx, req.ID)
		s.NoError(err)
		s.Equal(models.StatusDraft, again.Status)
	})
}

func (s *MemoryStoreSuite) TestExecute() {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	s.Run("applies mutation and bumps version", func() {
		req := s.newRequest(citizenA)
		updated, err := s.store.Execute(ctx, req.ID, 0,
			func(*models.ServiceRequest) error { return nil },
			func(r *models.ServiceRequest) { r.ApplyStatus(models.StatusSubmitted, now) },
		)
		s.NoError(err)
		s.Equal(models.StatusSubmitted, updated.Status)
		s.Equal(1, updated.Version)
	})

	s.Run("stale version is rejected before validate runs", func() {
		req := s.newRequest(citizenA)
		validated := false
		_, err := s.store.Execute(ctx, req.ID, 7,
			func(*models.ServiceRequest) error { validated = true; return nil },
			func(r *models.ServiceRequest) { r.ApplyStatus(models.StatusSubmitted, now) },
		)
		s.ErrorIs(err, sentinel.ErrStale)
		s.False(validated)

		loaded, err := s.store.FindByID(ctx, req.ID)
		s.NoError(err)
		s.Equal(0, loaded.Version)
	})

	s.Run("VersionAny bypasses the version check", func() {
		req := s.newRequest(citizenA)
		updated, err := s.store.Execute(ctx, req.ID, VersionAny,
			func(*models.ServiceRequest) error { return nil },
			func(r *models.ServiceRequest) { r.ApplyStatus(models.StatusSubmitted, now) },
		)
		s.NoError(err)
		s.Equal(1, updated.Version)
	})

	s.Run("validate failure leaves the request untouched", func() {
		req := s.newRequest(citizenA)
		wantErr := sentinel.ErrInvalidState
		_, err := s.store.Execute(ctx, req.ID, 0,
			func(*models.ServiceRequest) error { return wantErr },
			func(r *models.ServiceRequest) { r.ApplyStatus(models.StatusSubmitted, now) },
		)
		s.ErrorIs(err, wantErr)

		loaded, err := s.store.FindByID(ctx, req.ID)
		s.NoError(err)
		s.Equal(models.StatusDraft, loaded.Status)
		s.Equal(0, loaded.Version)
	})

	s.Run("missing request", func() {
		_, err := s.store.Execute(ctx, id.NewRequestID(), VersionAny,
			func(*models.ServiceRequest) error { return nil },
			func(*models.ServiceRequest) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestListByCitizen() {
	ctx := context.Background()
	first := s.newRequest(citizenA)
	second := s.newRequest(citizenA)
	other := mustCitizenID("f2a9a6ce-8e0c-4b5f-9a59-1c0f38b102bb")
	s.newRequest(other)

	reqs, err := s.store.ListByCitizen(ctx, citizenA)
	s.NoError(err)
	s.Len(reqs, 2)
	ids := []id.RequestID{reqs[0].ID, reqs[1].ID}
	s.Contains(ids, first.ID)
	s.Contains(ids, second.ID)
}

func (s *MemoryStoreSuite) TestListByAssignee() {
	ctx := context.Background()
	reviewer, err := id.ParseUserID("9c1d3c5e-0a2b-4c6d-8e9f-aa11bb22cc33")
	s.Require().NoError(err)

	assigned := s.newRequest(citizenA)
	_, err = s.store.Execute(ctx, assigned.ID, VersionAny,
		func(*models.ServiceRequest) error { return nil },
		func(r *models.ServiceRequest) {
			r.ApplyAssignment(&reviewer, time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC))
		},
	)
	s.Require().NoError(err)
	s.newRequest(citizenA)

	reqs, err := s.store.ListByAssignee(ctx, reviewer)
	s.NoError(err)
	s.Len(reqs, 1)
	s.Equal(assigned.ID, reqs[0].ID)
}
