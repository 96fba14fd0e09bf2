package models

import (
	"strings"
	"time"

	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

// Priority orders the review queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ServiceCategory classifies what the citizen is asking for.
type ServiceCategory string

const (
	CategoryRegistration    ServiceCategory = "registration"
	CategoryConsularCard    ServiceCategory = "consular_card"
	CategoryPassportRenewal ServiceCategory = "passport_renewal"
	CategoryCivilStatus     ServiceCategory = "civil_status"
	CategoryTravelDocument  ServiceCategory = "travel_document"
)

func (c ServiceCategory) IsValid() bool {
	switch c {
	case CategoryRegistration, CategoryConsularCard, CategoryPassportRenewal,
		CategoryCivilStatus, CategoryTravelDocument:
		return true
	}
	return false
}

// NoteType controls note visibility. FEEDBACK notes are shown to the
// citizen; INTERNAL notes are staff-only.
type NoteType string

const (
	NoteFeedback NoteType = "FEEDBACK"
	NoteInternal NoteType = "INTERNAL"
)

func (t NoteType) IsValid() bool { return t == NoteFeedback || t == NoteInternal }

// Note is an annotation attached to a request. Notes are append-only: once
// persisted they are never edited or deleted, only listed in insertion order.
type Note struct {
	ID        id.NoteID `json:"id"`
	AuthorID  id.UserID `json:"author_id"`
	Body      string    `json:"body"`
	Type      NoteType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment is a scheduled consulate visit attached to a request.
type Appointment struct {
	ID          string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location"`
}

// ServiceRequest is the aggregate root for a citizen-submitted case.
//
// Invariants:
//   - Status is always a member of the closed enumeration
//   - Notes are append-only and insertion-ordered
//   - Version increases by exactly 1 on every persisted mutation; writers
//     must present the version they read (optimistic concurrency)
//   - Mutation happens only through the orchestrator and ledger services
type ServiceRequest struct {
	ID              id.RequestID    `json:"id"`
	CitizenID       id.CitizenID    `json:"citizen_id"`
	Status          Status          `json:"status"`
	Priority        Priority        `json:"priority"`
	ServiceCategory ServiceCategory `json:"service_category"`
	AssignedTo      *id.UserID      `json:"assigned_to,omitempty"`
	Notes           []Note          `json:"notes"`
	Appointments    []Appointment   `json:"appointments"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	LastActionAt    time.Time       `json:"last_action_at"`
}

// NewServiceRequest constructs a draft request, validating invariants.
func NewServiceRequest(requestID id.RequestID, citizenID id.CitizenID, category ServiceCategory, priority Priority, now time.Time) (*ServiceRequest, error) {
	if citizenID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request requires a citizen")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown service category")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown priority")
	}
	return &ServiceRequest{
		ID:              requestID,
		CitizenID:       citizenID,
		Status:          StatusDraft,
		Priority:        priority,
		ServiceCategory: category,
		CreatedAt:       now,
		LastActionAt:    now,
	}, nil
}

// IsAssignedTo reports whether the request is currently assigned to userID.
func (r *ServiceRequest) IsAssignedTo(userID id.UserID) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}

// ApplyStatus moves the request to target and stamps the action time.
// SubmittedAt is recorded on the first entry into SUBMITTED. Callers must
// have validated the transition through the guard first.
func (r *ServiceRequest) ApplyStatus(target Status, now time.Time) {
	r.Status = target
	r.LastActionAt = now
	if target == StatusSubmitted && r.SubmittedAt == nil {
		t := now
		r.SubmittedAt = &t
	}
}

// ApplyNote appends a note and stamps the action time.
func (r *ServiceRequest) ApplyNote(note Note) {
	r.Notes = append(r.Notes, note)
	r.LastActionAt = note.CreatedAt
}

// ApplyAssignment sets or clears the assigned reviewer.
func (r *ServiceRequest) ApplyAssignment(reviewerID *id.UserID, now time.Time) {
	r.AssignedTo = reviewerID
	r.LastActionAt = now
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (r *ServiceRequest) Clone() *ServiceRequest {
	cp := *r
	if r.AssignedTo != nil {
		v := *r.AssignedTo
		cp.AssignedTo = &v
	}
	if r.SubmittedAt != nil {
		v := *r.SubmittedAt
		cp.SubmittedAt = &v
	}
	cp.Notes = append([]Note(nil), r.Notes...)
	cp.Appointments = append([]Appointment(nil), r.Appointments...)
	return &cp
}

// NewNote constructs a note, validating invariants.
func NewNote(noteID id.NoteID, authorID id.UserID, body string, noteType NoteType, now time.Time) (Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Note{}, dErrors.New(dErrors.CodeInvariantViolation, "note body cannot be empty")
	}
	if noteType == "" {
		noteType = NoteInternal
	}
	if !noteType.IsValid() {
		return Note{}, dErrors.New(dErrors.CodeInvariantViolation, "unknown note type")
	}
	return Note{
		ID:        noteID,
		AuthorID:  authorID,
		Body:      body,
		Type:      noteType,
		CreatedAt: now,
	}, nil
}
