// Package service orchestrates request review: it composes the profile
// scorer, the transition guard and the store into atomic review operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okatech-org/consulat-sub002/internal/audit"
	"github.com/okatech-org/consulat-sub002/internal/finalization"
	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/guard"
	"github.com/okatech-org/consulat-sub002/internal/request/metrics"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/store"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

const tracerName = "consulat/request/service"

// ReasonMissingRequiredNote denies a rejection that arrives without the
// mandatory explanation note. Checked by the orchestrator, not the guard:
// the note is a side effect of the transition, not a property of the state
// machine.
const ReasonMissingRequiredNote guard.Reason = "MISSING_REQUIRED_NOTE"

// DeniedError carries a guard denial across the service boundary.
type DeniedError struct {
	Reason guard.Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("transition denied: %s", e.Reason)
}

// NoteInput is an optional note applied atomically with a transition.
type NoteInput struct {
	Body string
	Type models.NoteType
}

// TransitionOption is one entry of the full decision map for a request: a
// target status together with the guard's verdict for the current actor.
type TransitionOption struct {
	Target   models.Status  `json:"target"`
	Allowed  bool           `json:"allowed"`
	Reason   guard.Reason   `json:"reason,omitempty"`
	Category guard.Category `json:"category"`
}

// ApplyResult is the outcome of an applied transition. FinalizationErr is
// non-nil when the transition to VALIDATED was persisted but the handover
// side effect failed; the transition itself stands.
type ApplyResult struct {
	Request         *models.ServiceRequest
	FinalizationErr error
}

// Service is the request review orchestrator.
type Service struct {
	requests  store.Store
	profiles  profile.Store
	guard     *guard.Guard
	finalizer finalization.Finalizer
	logger    *slog.Logger
	publisher audit.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithFinalizer(f finalization.Finalizer) Option {
	return func(s *Service) { s.finalizer = f }
}

// New constructs the orchestrator.
func New(requests store.Store, profiles profile.Store, g *guard.Guard, opts ...Option) *Service {
	s := &Service{
		requests:  requests,
		profiles:  profiles,
		guard:     g,
		finalizer: finalization.NewLogFinalizer(nil),
		logger:    slog.Default(),
		publisher: audit.NopPublisher{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest opens a new draft request for a citizen.
func (s *Service) CreateRequest(ctx context.Context, citizenID id.CitizenID, category models.ServiceCategory, priority models.Priority) (*models.ServiceRequest, error) {
	req, err := models.NewServiceRequest(id.NewRequestID(), citizenID, category, priority, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "request already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create request")
	}
	s.logger.InfoContext(ctx, "request created",
		slog.String("request_id", req.ID.String()),
		slog.String("citizen_id", citizenID.String()),
		slog.String("service_category", string(category)),
	)
	return req, nil
}

// GetRequest loads one request.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*models.ServiceRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load request")
	}
	return req, nil
}

// ListByCitizen returns a citizen's requests in creation order.
func (s *Service) ListByCitizen(ctx context.Context, citizenID id.CitizenID) ([]*models.ServiceRequest, error) {
	reqs, err := s.requests.ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list requests")
	}
	return reqs, nil
}

// ListByAssignee returns the requests assigned to a reviewer.
func (s *Service) ListByAssignee(ctx context.Context, reviewerID id.UserID) ([]*models.ServiceRequest, error) {
	reqs, err := s.requests.ListByAssignee(ctx, reviewerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list requests")
	}
	return reqs, nil
}

// ProfileCompletion scores a citizen's profile snapshot. A citizen without a
// stored profile scores zero everywhere.
func (s *Service) ProfileCompletion(ctx context.Context, citizenID id.CitizenID) (profile.Completion, error) {
	p, err := s.profiles.FindByCitizen(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return profile.Score(&profile.Profile{Variant: profile.VariantAdult}), nil
		}
		return profile.Completion{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load profile")
	}
	return profile.Score(p), nil
}

// ListAvailableTransitions evaluates every known status against the current
// request snapshot and returns the full decision map. The request and the
// profile load in parallel; both are needed before the guard runs.
func (s *Service) ListAvailableTransitions(ctx context.Context, requestID id.RequestID, actor models.Actor) ([]TransitionOption, error) {
	req, completion, err := s.loadReviewState(ctx, requestID)
	if err != nil {
		return nil, err
	}

	statuses := models.All()
	options := make([]TransitionOption, 0, len(statuses))
	for _, target := range statuses {
		decision := s.guard.CanSwitchTo(target, req, completion, actor)
		options = append(options, TransitionOption{
			Target:   target,
			Allowed:  decision.Allowed,
			Reason:   decision.Reason,
			Category: s.guard.Categorize(req.Status, target),
		})
	}
	return options, nil
}

// ApplyTransition atomically moves a request to target.
//
// The guard runs twice: once against the freshly loaded snapshot to produce
// the audit record, and again inside the store's Execute closure against the
// locked row, so no concurrent mutation can slip between check and apply.
// A rejection must carry a note; the note is appended in the same mutation.
func (s *Service) ApplyTransition(ctx context.Context, requestID id.RequestID, target models.Status, expectedVersion int, actor models.Actor, note *NoteInput) (*ApplyResult, error) {
	ctx, span := s.tracer.Start(ctx, "ApplyTransition",
		trace.WithAttributes(
			attribute.String("request.id", requestID.String()),
			attribute.String("transition.target", string(target)),
			attribute.String("actor.role", string(actor.Role)),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveApplyLatency(time.Since(start)) }()

	if !target.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown target status")
	}
	if target == models.StatusRejected && (note == nil || note.Body == "") {
		s.metrics.IncrementDenied(string(ReasonMissingRequiredNote))
		return nil, &DeniedError{Reason: ReasonMissingRequiredNote}
	}

	req, completion, err := s.loadReviewState(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var noteToAppend *models.Note
	if note != nil {
		n, err := models.NewNote(id.NewNoteID(), actor.ID, note.Body, note.Type, requestcontext.Now(ctx))
		if err != nil {
			return nil, err
		}
		noteToAppend = &n
	}

	now := requestcontext.Now(ctx)
	from := req.Status
	updated, err := s.requests.Execute(ctx, requestID, expectedVersion,
		func(current *models.ServiceRequest) error {
			decision := s.guard.CanSwitchTo(target, current, completion, actor)
			if !decision.Allowed {
				return &DeniedError{Reason: decision.Reason}
			}
			return nil
		},
		func(current *models.ServiceRequest) {
			current.ApplyStatus(target, now)
			if noteToAppend != nil {
				current.ApplyNote(*noteToAppend)
			}
		},
	)

	s.emitAudit(ctx, requestID, actor, from, target, err)

	if err != nil {
		var denied *DeniedError
		switch {
		case errors.As(err, &denied):
			s.metrics.IncrementDenied(string(denied.Reason))
			return nil, err
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		case errors.Is(err, sentinel.ErrStale):
			s.metrics.IncrementDenied("STALE_STATE")
			return nil, dErrors.New(dErrors.CodeStaleState, "request was modified concurrently")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to apply transition")
		}
	}

	s.metrics.IncrementApplied(string(target))
	s.logger.InfoContext(ctx, "transition applied",
		slog.String("request_id", requestID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("actor_id", actor.ID.String()),
		slog.Int("version", updated.Version),
	)

	result := &ApplyResult{Request: updated}
	if target == models.StatusValidated {
		if err := s.finalizer.NotifyValidated(ctx, updated); err != nil {
			s.metrics.IncrementFinalizationFailure()
			s.logger.ErrorContext(ctx, "finalization failed after validated transition",
				slog.String("request_id", requestID.String()),
				slog.Any("error", err),
			)
			result.FinalizationErr = err
		}
	}
	return result, nil
}

// CitizenOverview bundles a citizen's requests and profile completion. The
// two loads are independent and run in parallel with shared cancellation.
type CitizenOverview struct {
	Requests   []*models.ServiceRequest `json:"requests"`
	Completion profile.Completion       `json:"completion"`
}

// GetCitizenOverview loads everything the citizen dashboard needs in one
// call.
func (s *Service) GetCitizenOverview(ctx context.Context, citizenID id.CitizenID) (*CitizenOverview, error) {
	overview := &CitizenOverview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := s.ListByCitizen(gctx, citizenID)
		if err != nil {
			return err
		}
		overview.Requests = reqs
		return nil
	})
	g.Go(func() error {
		completion, err := s.ProfileCompletion(gctx, citizenID)
		if err != nil {
			return err
		}
		overview.Completion = completion
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// loadReviewState fetches the request, then scores its citizen's profile.
func (s *Service) loadReviewState(ctx context.Context, requestID id.RequestID) (*models.ServiceRequest, profile.Completion, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, profile.Completion{}, err
	}
	completion, err := s.ProfileCompletion(ctx, req.CitizenID)
	if err != nil {
		return nil, profile.Completion{}, err
	}
	return req, completion, nil
}

func (s *Service) emitAudit(ctx context.Context, requestID id.RequestID, actor models.Actor, from, to models.Status, applyErr error) {
	event := audit.Event{
		RequestID:  requestID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: from,
		ToStatus:   to,
		Allowed:    applyErr == nil,
		OccurredAt: requestcontext.Now(ctx),
	}
	var denied *DeniedError
	if errors.As(applyErr, &denied) {
		event.Reason = string(denied.Reason)
	}
	s.publisher.Publish(ctx, event)
}
