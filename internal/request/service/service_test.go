package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/okatech-org/consulat-sub002/internal/audit"
	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/guard"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/store"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	requests  *store.InMemoryStore
	profiles  *profile.InMemoryStore
	publisher *audit.MemoryPublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

var (
	agentID   = mustUserID("7b3e0cc1-46a1-4fa2-9f04-1d0e2ff90101")
	managerID = mustUserID("7b3e0cc1-46a1-4fa2-9f04-1d0e2ff90102")
	citizenID = mustCitizenID("f2a9a6ce-8e0c-4b5f-9a59-1c0f38b102aa")
)

func mustUserID(s string) id.UserID {
	parsed, err := id.ParseUserID(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustCitizenID(s string) id.CitizenID {
	parsed, err := id.ParseCitizenID(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

type failingFinalizer struct{ err error }

func (f failingFinalizer) NotifyValidated(context.Context, *models.ServiceRequest) error {
	return f.err
}

func (s *ServiceSuite) SetupTest() {
	s.requests = store.NewInMemoryStore()
	s.profiles = profile.NewInMemoryStore()
	s.publisher = audit.NewMemoryPublisher()
	s.service = New(s.requests, s.profiles, guard.New(guard.Policy{}),
		WithAuditPublisher(s.publisher),
	)
}

func (s *ServiceSuite) manager() models.Actor {
	return models.Actor{ID: managerID, Role: models.RoleManager}
}

func (s *ServiceSuite) agent() models.Actor {
	return models.Actor{ID: agentID, Role: models.RoleAgent}
}

func (s *ServiceSuite) createRequest() *models.ServiceRequest {
	req, err := s.service.CreateRequest(context.Background(), citizenID, models.CategoryConsularCard, models.PriorityNormal)
	s.Require().NoError(err)
	return req
}

// forceStatus walks the stored request straight to the given status,
// bypassing the guard, to set up mid-lifecycle scenarios.
func (s *ServiceSuite) forceStatus(requestID id.RequestID, status models.Status) *models.ServiceRequest {
	updated, err := s.requests.Execute(context.Background(), requestID, store.VersionAny,
		func(*models.ServiceRequest) error { return nil },
		func(r *models.ServiceRequest) {
			r.ApplyStatus(status, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
		},
	)
	s.Require().NoError(err)
	return updated
}

// storeCompleteProfile persists a fully filled adult profile for citizenID.
func (s *ServiceSuite) storeCompleteProfile() {
	birth := time.Date(1988, 3, 14, 0, 0, 0, 0, time.UTC)
	issued := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	p := &profile.Profile{
		CitizenID: citizenID,
		Variant:   profile.VariantAdult,
		Identity: profile.Identity{
			FirstName: "Awa", LastName: "Ndong", Gender: "F",
			BirthDate: &birth, BirthCity: "Libreville", BirthCountry: "GA",
			Nationality: "GA", NationalIDNumber: "NID-2233",
			PassportNumber: "PA1234567", PassportIssueDate: &issued, PassportExpiryDate: &expiry,
			HeightCM: 168, EyeColor: "brown",
		},
		Contact: profile.Contact{
			Email: "awa@example.org", Phone: "+33123456789",
			Address:          profile.Address{Line1: "12 rue des Consulats", City: "Paris", Country: "FR"},
			ResidenceCountry: "FR",
		},
		Family: profile.Family{
			MaritalStatus: profile.MaritalSingle, FatherFullName: "Jean Ndong", MotherFullName: "Marie Ndong",
		},
		Professional: profile.Professional{WorkStatus: profile.WorkStudent},
		Documents: profile.Documents{
			IdentityDocument: profile.DocumentRef{Type: "passport", Reference: "doc-1"},
			Photo:            profile.DocumentRef{Type: "photo", Reference: "doc-2"},
			ProofOfResidence: profile.DocumentRef{Type: "utility_bill", Reference: "doc-3"},
		},
	}
	s.Require().NoError(s.profiles.Upsert(context.Background(), p))
}

func (s *ServiceSuite) TestCreateRequest() {
	s.Run("creates a draft", func() {
		req := s.createRequest()
		s.Equal(models.StatusDraft, req.Status)
		s.Equal(0, req.Version)
		s.Nil(req.SubmittedAt)
	})

	s.Run("unknown category fails validation", func() {
		_, err := s.service.CreateRequest(context.Background(), citizenID, "mystery", models.PriorityNormal)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestApplyTransition() {
	ctx := context.Background()

	s.Run("forward transition stamps submission", func() {
		req := s.createRequest()
		result, err := s.service.ApplyTransition(ctx, req.ID, models.StatusSubmitted, req.Version, s.manager(), nil)
		s.NoError(err)
		s.Equal(models.StatusSubmitted, result.Request.Status)
		s.Equal(1, result.Request.Version)
		s.NotNil(result.Request.SubmittedAt)
		s.NoError(result.FinalizationErr)
	})

	s.Run("stale version is surfaced as stale state", func() {
		req := s.createRequest()
		_, err := s.service.ApplyTransition(ctx, req.ID, models.StatusSubmitted, req.Version+5, s.manager(), nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStaleState))
	})

	s.Run("rejection without note is denied", func() {
		req := s.createRequest()
		_, err := s.service.ApplyTransition(ctx, req.ID, models.StatusRejected, req.Version, s.manager(), nil)
		var denied *DeniedError
		s.ErrorAs(err, &denied)
		s.Equal(ReasonMissingRequiredNote, denied.Reason)
	})

	s.Run("rejection with note applies atomically", func() {
		req := s.forceStatus(s.createRequest().ID, models.StatusPending)
		result, err := s.service.ApplyTransition(ctx, req.ID, models.StatusRejected, req.Version, s.manager(),
			&NoteInput{Body: "missing birth certificate", Type: models.NoteFeedback})
		s.NoError(err)
		s.Equal(models.StatusRejected, result.Request.Status)
		s.Require().Len(result.Request.Notes, 1)
		s.Equal("missing birth certificate", result.Request.Notes[0].Body)
		s.Equal(managerID, result.Request.Notes[0].AuthorID)
	})

	s.Run("guard denial carries the reason", func() {
		req := s.forceStatus(s.createRequest().ID, models.StatusPending)
		_, err := s.service.ApplyTransition(ctx, req.ID, models.StatusSubmitted, req.Version, s.agent(), nil)
		var denied *DeniedError
		s.ErrorAs(err, &denied)
		s.Equal(guard.ReasonOutOfOrder, denied.Reason)
	})

	s.Run("validated is blocked without a complete profile", func() {
		req := s.forceStatus(s.createRequest().ID, models.StatusReadyForPickup)
		_, err := s.service.ApplyTransition(ctx, req.ID, models.StatusValidated, req.Version, s.manager(), nil)
		var denied *DeniedError
		s.ErrorAs(err, &denied)
		s.Equal(guard.ReasonProfileIncomplete, denied.Reason)
	})

	s.Run("missing request", func() {
		_, err := s.service.ApplyTransition(ctx, id.NewRequestID(), models.StatusSubmitted, 0, s.manager(), nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestFinalization() {
	ctx := context.Background()
	s.storeCompleteProfile()

	s.Run("validated triggers the finalizer", func() {
		req := s.forceStatus(s.createRequest().ID, models.StatusReadyForPickup)
		result, err := s.service.ApplyTransition(ctx, req.ID, models.StatusValidated, req.Version, s.manager(), nil)
		s.NoError(err)
		s.Equal(models.StatusValidated, result.Request.Status)
		s.NoError(result.FinalizationErr)
	})

	s.Run("finalizer failure does not undo the transition", func() {
		wantErr := errors.New("queue unavailable")
		svc := New(s.requests, s.profiles, guard.New(guard.Policy{}),
			WithFinalizer(failingFinalizer{err: wantErr}),
		)

		req := s.forceStatus(s.createRequest().ID, models.StatusReadyForPickup)
		result, err := svc.ApplyTransition(ctx, req.ID, models.StatusValidated, req.Version, s.manager(), nil)
		s.NoError(err)
		s.ErrorIs(result.FinalizationErr, wantErr)

		loaded, err := svc.GetRequest(ctx, req.ID)
		s.NoError(err)
		s.Equal(models.StatusValidated, loaded.Status)
	})
}

func (s *ServiceSuite) TestAuditTrail() {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))

	req := s.createRequest()
	_, err := s.service.ApplyTransition(ctx, req.ID, models.StatusSubmitted, req.Version, s.manager(), nil)
	s.Require().NoError(err)
	_, err = s.service.ApplyTransition(ctx, req.ID, models.StatusDraft, 1, s.agent(), nil)
	s.Require().Error(err)

	events := s.publisher.Events()
	s.Require().Len(events, 2)

	s.True(events[0].Allowed)
	s.Equal(models.StatusDraft, events[0].FromStatus)
	s.Equal(models.StatusSubmitted, events[0].ToStatus)
	s.Equal(managerID, events[0].ActorID)

	s.False(events[1].Allowed)
	s.Equal(string(guard.ReasonOutOfOrder), events[1].Reason)
}

func (s *ServiceSuite) TestListAvailableTransitions() {
	ctx := context.Background()
	req := s.forceStatus(s.createRequest().ID, models.StatusPending)

	options, err := s.service.ListAvailableTransitions(ctx, req.ID, s.manager())
	s.NoError(err)
	s.Len(options, len(models.All()))

	byTarget := map[models.Status]TransitionOption{}
	for _, opt := range options {
		byTarget[opt.Target] = opt
	}

	s.False(byTarget[models.StatusPending].Allowed)
	s.Equal(guard.ReasonNoOp, byTarget[models.StatusPending].Reason)

	s.True(byTarget[models.StatusPendingCompletion].Allowed)
	s.True(byTarget[models.StatusDraft].Allowed) // manager rollback

	s.False(byTarget[models.StatusValidated].Allowed)
	s.Equal(guard.ReasonProfileIncomplete, byTarget[models.StatusValidated].Reason)

	s.True(byTarget[models.StatusCancelled].Allowed)
}

func (s *ServiceSuite) TestGetCitizenOverview() {
	ctx := context.Background()
	s.createRequest()
	s.createRequest()
	s.storeCompleteProfile()

	overview, err := s.service.GetCitizenOverview(ctx, citizenID)
	s.NoError(err)
	s.Len(overview.Requests, 2)
	s.Equal(100, overview.Completion.Overall)
	s.True(overview.Completion.CanSubmit)
}

func (s *ServiceSuite) TestProfileCompletionWithoutProfile() {
	completion, err := s.service.ProfileCompletion(context.Background(), citizenID)
	s.NoError(err)
	s.Equal(0, completion.Overall)
	s.False(completion.CanSubmit)
}
