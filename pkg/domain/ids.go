// Package domain provides typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a CitizenID can never be passed where a UserID is expected).
// Parse helpers enforce the trust-boundary invariant that IDs are valid,
// non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

// RequestID identifies a service request.
type RequestID uuid.UUID

// CitizenID identifies a registered citizen (the submitter of requests).
type CitizenID uuid.UUID

// UserID identifies a staff user (reviewer, manager, administrator).
type UserID uuid.UUID

// NoteID identifies a note appended to a request.
type NoteID uuid.UUID

func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id CitizenID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id NoteID) String() string    { return uuid.UUID(id).String() }

func (id RequestID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id CitizenID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id NoteID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// NewRequestID returns a fresh random request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewNoteID returns a fresh random note ID.
func NewNoteID() NoteID { return NoteID(uuid.New()) }

// ParseRequestID validates and converts a string into a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseCitizenID validates and converts a string into a CitizenID.
func ParseCitizenID(s string) (CitizenID, error) {
	u, err := parseUUID(s, "citizen id")
	return CitizenID(u), err
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be the nil UUID")
	}
	return u, nil
}
