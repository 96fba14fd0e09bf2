package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okatech-org/consulat-sub002/internal/request/guard"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/service"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

// statusLabels are the human-readable captions shown next to each status in
// the review screens.
var statusLabels = map[models.Status]string{
	models.StatusDraft:                "Draft",
	models.StatusSubmitted:            "Submitted",
	models.StatusPending:              "Pending review",
	models.StatusPendingCompletion:    "Awaiting completion",
	models.StatusDocumentInProduction: "Document in production",
	models.StatusAppointmentScheduled: "Appointment scheduled",
	models.StatusReadyForPickup:       "Ready for pickup",
	models.StatusValidated:            "Validated",
	models.StatusCompleted:            "Completed",
	models.StatusEdited:               "Edited by citizen",
	models.StatusRejected:             "Rejected",
	models.StatusCancelled:            "Cancelled",
}

type requestResponse struct {
	ID              string         `json:"id"`
	CitizenID       string         `json:"citizen_id"`
	Status          string         `json:"status"`
	StatusLabel     string         `json:"status_label"`
	Priority        string         `json:"priority"`
	ServiceCategory string         `json:"service_category"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	Notes           []noteResponse `json:"notes"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	LastActionAt    time.Time      `json:"last_action_at"`
}

type noteResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type transitionResponse struct {
	Target      string `json:"target"`
	TargetLabel string `json:"target_label"`
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	Category    string `json:"category"`
}

type applyResponse struct {
	Request            requestResponse `json:"request"`
	FinalizationFailed bool            `json:"finalization_failed,omitempty"`
}

func toRequestResponse(req *models.ServiceRequest) requestResponse {
	resp := requestResponse{
		ID:              req.ID.String(),
		CitizenID:       req.CitizenID.String(),
		Status:          string(req.Status),
		StatusLabel:     statusLabels[req.Status],
		Priority:        string(req.Priority),
		ServiceCategory: string(req.ServiceCategory),
		Notes:           toNoteResponses(req.Notes),
		Version:         req.Version,
		CreatedAt:       req.CreatedAt,
		SubmittedAt:     req.SubmittedAt,
		LastActionAt:    req.LastActionAt,
	}
	if req.AssignedTo != nil {
		v := req.AssignedTo.String()
		resp.AssignedTo = &v
	}
	return resp
}

func toNoteResponses(notes []models.Note) []noteResponse {
	out := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteResponse{
			ID:        n.ID.String(),
			AuthorID:  n.AuthorID.String(),
			Body:      n.Body,
			Type:      string(n.Type),
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func toTransitionResponses(options []service.TransitionOption) []transitionResponse {
	out := make([]transitionResponse, 0, len(options))
	for _, opt := range options {
		out = append(out, transitionResponse{
			Target:      string(opt.Target),
			TargetLabel: statusLabels[opt.Target],
			Allowed:     opt.Allowed,
			Reason:      string(opt.Reason),
			Category:    string(opt.Category),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError centralizes domain error translation to HTTP responses. Guard
// denials get a dedicated envelope carrying the machine-readable reason.
func writeError(w http.ResponseWriter, err error) {
	var denied *service.DeniedError
	if errors.As(err, &denied) {
		status := http.StatusConflict
		if denied.Reason == guard.ReasonInsufficientRole {
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]string{
			"error":  "TRANSITION_DENIED",
			"reason": string(denied.Reason),
		})
		return
	}

	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error": string(code),
	})
}
