package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okatech-org/consulat-sub002/internal/platform/middleware"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/service"
	"github.com/okatech-org/consulat-sub002/internal/request/store"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

type createRequestBody struct {
	CitizenID       string `json:"citizen_id"`
	ServiceCategory string `json:"service_category"`
	Priority        string `json:"priority"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := actorFromContext(ctx); err != nil {
		writeError(w, err)
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	citizenID, err := id.ParseCitizenID(body.CitizenID)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := h.review.CreateRequest(ctx, citizenID, models.ServiceCategory(body.ServiceCategory), models.Priority(body.Priority))
	if err != nil {
		h.logger.WarnContext(ctx, "create request failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.review.GetRequest(ctx, requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}

	options, err := h.review.ListAvailableTransitions(ctx, requestID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transitions": toTransitionResponses(options),
	})
}

type applyTransitionBody struct {
	Target          string `json:"target"`
	ExpectedVersion *int   `json:"expected_version"`
	Note            *struct {
		Body string `json:"body"`
		Type string `json:"type"`
	} `json:"note,omitempty"`
}

func (h *Handler) handleApplyTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body applyTransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	target, err := models.ParseStatus(body.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	if body.ExpectedVersion == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "expected_version is required"))
		return
	}

	var note *service.NoteInput
	if body.Note != nil {
		note = &service.NoteInput{Body: body.Note.Body, Type: models.NoteType(body.Note.Type)}
	}

	result, err := h.review.ApplyTransition(ctx, requestID, target, *body.ExpectedVersion, actor, note)
	if err != nil {
		h.logger.WarnContext(ctx, "transition not applied",
			"request_id", middleware.GetRequestID(ctx),
			"target", string(target),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applyResponse{
		Request:            toRequestResponse(result.Request),
		FinalizationFailed: result.FinalizationErr != nil,
	})
}

type assignBody struct {
	ReviewerID      *string `json:"reviewer_id"`
	ExpectedVersion *int    `json:"expected_version"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body assignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	var reviewerID *id.UserID
	if body.ReviewerID != nil {
		parsed, err := id.ParseUserID(*body.ReviewerID)
		if err != nil {
			writeError(w, err)
			return
		}
		reviewerID = &parsed
	}
	expectedVersion := store.VersionAny
	if body.ExpectedVersion != nil {
		expectedVersion = *body.ExpectedVersion
	}

	req, err := h.ledger.Assign(ctx, requestID, reviewerID, expectedVersion, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

type appendNoteBody struct {
	Body            string `json:"body"`
	Type            string `json:"type"`
	ExpectedVersion *int   `json:"expected_version"`
}

func (h *Handler) handleAppendNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body appendNoteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	expectedVersion := store.VersionAny
	if body.ExpectedVersion != nil {
		expectedVersion = *body.ExpectedVersion
	}

	req, err := h.ledger.AppendNote(ctx, requestID, body.Body, models.NoteType(body.Type), expectedVersion, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}

	notes, err := h.ledger.ListNotes(ctx, requestID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": toNoteResponses(notes),
	})
}

func (h *Handler) handleListAssigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	reqs, err := h.review.ListByAssignee(ctx, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *Handler) handleProfileCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	citizenID, err := id.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		writeError(w, err)
		return
	}
	completion, err := h.review.ProfileCompletion(ctx, citizenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (h *Handler) handleCitizenOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	citizenID, err := id.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		writeError(w, err)
		return
	}
	overview, err := h.review.GetCitizenOverview(ctx, citizenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
