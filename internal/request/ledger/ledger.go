// Package ledger manages the append-only side channels of a request:
// reviewer assignment and notes.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/store"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

// Ledger appends assignment changes and notes to requests. Everything it
// writes goes through the store's Execute path, so each append bumps the
// request version like any other mutation.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Assign sets or clears the reviewer on a request. Assignment is a managerial
// act: agents cannot assign, not even to themselves.
func (l *Ledger) Assign(ctx context.Context, requestID id.RequestID, reviewerID *id.UserID, expectedVersion int, actor models.Actor) (*models.ServiceRequest, error) {
	if !actor.IsPrivileged() {
		return nil, dErrors.New(dErrors.CodeForbidden, "assignment requires manager role or above")
	}

	now := requestcontext.Now(ctx)
	req, err := l.store.Execute(ctx, requestID, expectedVersion,
		func(*models.ServiceRequest) error { return nil },
		func(r *models.ServiceRequest) { r.ApplyAssignment(reviewerID, now) },
	)
	if err != nil {
		return nil, mapStoreErr(err, "assign reviewer")
	}

	l.logger.InfoContext(ctx, "reviewer assigned",
		slog.String("request_id", requestID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Any("reviewer_id", reviewerID),
	)
	return req, nil
}

// AppendNote validates and appends a note. The note's author is the acting
// user; the body is trimmed and must be non-empty.
func (l *Ledger) AppendNote(ctx context.Context, requestID id.RequestID, body string, noteType models.NoteType, expectedVersion int, actor models.Actor) (*models.ServiceRequest, error) {
	note, err := models.NewNote(id.NewNoteID(), actor.ID, body, noteType, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	req, err := l.store.Execute(ctx, requestID, expectedVersion,
		func(*models.ServiceRequest) error { return nil },
		func(r *models.ServiceRequest) { r.ApplyNote(note) },
	)
	if err != nil {
		return nil, mapStoreErr(err, "append note")
	}

	l.logger.InfoContext(ctx, "note appended",
		slog.String("request_id", requestID.String()),
		slog.String("note_id", note.ID.String()),
		slog.String("note_type", string(note.Type)),
	)
	return req, nil
}

// ListNotes returns a request's notes in insertion order. Staff see every
// note; anyone else (the citizen) sees only FEEDBACK notes.
func (l *Ledger) ListNotes(ctx context.Context, requestID id.RequestID, viewer models.Actor) ([]models.Note, error) {
	req, err := l.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, mapStoreErr(err, "list notes")
	}
	if viewer.Role.IsValid() {
		return req.Notes, nil
	}
	visible := make([]models.Note, 0, len(req.Notes))
	for _, note := range req.Notes {
		if note.Type == models.NoteFeedback {
			visible = append(visible, note)
		}
	}
	return visible, nil
}

func mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrStale):
		return dErrors.New(dErrors.CodeStaleState, "request was modified concurrently")
	case isDomainErr(err):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodePersistence, op+" failed")
	}
}

func isDomainErr(err error) bool {
	var de *dErrors.DomainError
	return errors.As(err, &de)
}
