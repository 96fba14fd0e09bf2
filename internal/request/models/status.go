package models

import (
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

// Status is the lifecycle stage of a service request. The set is closed: a
// request's status is always one of these values, never free text.
type Status string

const (
	StatusDraft                Status = "DRAFT"
	StatusSubmitted            Status = "SUBMITTED"
	StatusPending              Status = "PENDING"
	StatusPendingCompletion    Status = "PENDING_COMPLETION"
	StatusDocumentInProduction Status = "DOCUMENT_IN_PRODUCTION"
	StatusAppointmentScheduled Status = "APPOINTMENT_SCHEDULED"
	StatusReadyForPickup       Status = "READY_FOR_PICKUP"
	StatusValidated            Status = "VALIDATED"
	StatusCompleted            Status = "COMPLETED"

	// Side states. REJECTED and CANCELLED are absorbing exits reachable from
	// any non-terminal state; EDITED marks a citizen correction and re-enters
	// the forward order at the SUBMITTED rank.
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusEdited    Status = "EDITED"
)

// forwardOrder is the total order of the main lifecycle. Side states are
// deliberately absent; their ordering semantics live in Position.
var forwardOrder = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusPending,
	StatusPendingCompletion,
	StatusDocumentInProduction,
	StatusAppointmentScheduled,
	StatusReadyForPickup,
	StatusValidated,
	StatusCompleted,
}

var forwardPosition = func() map[Status]int {
	m := make(map[Status]int, len(forwardOrder))
	for i, s := range forwardOrder {
		m[s] = i
	}
	return m
}()

// All returns the fixed enumeration of every status, in display order.
// Selection surfaces iterate this to build their option lists.
func All() []Status {
	all := make([]Status, 0, len(forwardOrder)+3)
	all = append(all, forwardOrder...)
	all = append(all, StatusEdited, StatusRejected, StatusCancelled)
	return all
}

// IsValid reports whether s is a member of the closed enumeration.
func (s Status) IsValid() bool {
	if _, ok := forwardPosition[s]; ok {
		return true
	}
	switch s {
	case StatusRejected, StatusCancelled, StatusEdited:
		return true
	}
	return false
}

// Position returns the status's rank in the forward order. EDITED ranks with
// SUBMITTED: a corrected request resumes where a fresh submission would.
// The second return is false for statuses outside the order (REJECTED,
// CANCELLED).
func (s Status) Position() (int, bool) {
	if s == StatusEdited {
		return forwardPosition[StatusSubmitted], true
	}
	pos, ok := forwardPosition[s]
	return pos, ok
}

// IsTerminal reports whether the status normally permits no further
// transitions. COMPLETED ends the forward order; REJECTED and CANCELLED are
// absorbing side exits.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// String returns the wire representation.
func (s Status) String() string { return string(s) }

// ParseStatus validates a string from a trust boundary into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown status: "+raw)
	}
	return s, nil
}
