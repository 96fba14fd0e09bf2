// Package handler is the thin HTTP layer over the review orchestrator and
// the ledger. It delegates to services without embedding business logic.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okatech-org/consulat-sub002/internal/platform/middleware"
	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/service"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

// ReviewService defines the orchestrator operations the handler needs.
type ReviewService interface {
	CreateRequest(ctx context.Context, citizenID id.CitizenID, category models.ServiceCategory, priority models.Priority) (*models.ServiceRequest, error)
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.ServiceRequest, error)
	ListByAssignee(ctx context.Context, reviewerID id.UserID) ([]*models.ServiceRequest, error)
	ListAvailableTransitions(ctx context.Context, requestID id.RequestID, actor models.Actor) ([]service.TransitionOption, error)
	ApplyTransition(ctx context.Context, requestID id.RequestID, target models.Status, expectedVersion int, actor models.Actor, note *service.NoteInput) (*service.ApplyResult, error)
	ProfileCompletion(ctx context.Context, citizenID id.CitizenID) (profile.Completion, error)
	GetCitizenOverview(ctx context.Context, citizenID id.CitizenID) (*service.CitizenOverview, error)
}

// LedgerService defines the assignment and note operations.
type LedgerService interface {
	Assign(ctx context.Context, requestID id.RequestID, reviewerID *id.UserID, expectedVersion int, actor models.Actor) (*models.ServiceRequest, error)
	AppendNote(ctx context.Context, requestID id.RequestID, body string, noteType models.NoteType, expectedVersion int, actor models.Actor) (*models.ServiceRequest, error)
	ListNotes(ctx context.Context, requestID id.RequestID, viewer models.Actor) ([]models.Note, error)
}

// Handler handles request review endpoints.
type Handler struct {
	logger    *slog.Logger
	review    ReviewService
	ledger    LedgerService
	validator middleware.TokenValidator
}

// New creates a review Handler.
func New(review ReviewService, ledger LedgerService, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		review:    review,
		ledger:    ledger,
		validator: validator,
	}
}

// Register registers the review routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))

	router.Post("/requests", h.handleCreateRequest)
	router.Get("/requests/{requestID}", h.handleGetRequest)
	router.Get("/requests/{requestID}/transitions", h.handleListTransitions)
	router.Post("/requests/{requestID}/transitions", h.handleApplyTransition)
	router.Post("/requests/{requestID}/assignee", h.handleAssign)
	router.Get("/requests/{requestID}/notes", h.handleListNotes)
	router.Post("/requests/{requestID}/notes", h.handleAppendNote)
	router.Get("/reviewers/me/requests", h.handleListAssigned)
	router.Get("/profiles/{citizenID}/completion", h.handleProfileCompletion)
	router.Get("/citizens/{citizenID}/overview", h.handleCitizenOverview)

	r.Mount("/", router)
}

// actorFromContext resolves the acting staff user placed on the context by
// RequireActor.
func actorFromContext(ctx context.Context) (models.Actor, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsZero() {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "no authenticated actor")
	}
	role, err := models.ParseRole(requestcontext.ActorRole(ctx))
	if err != nil {
		return models.Actor{}, dErrors.New(dErrors.CodeForbidden, "actor has no review role")
	}
	return models.Actor{ID: actorID, Role: role}, nil
}
