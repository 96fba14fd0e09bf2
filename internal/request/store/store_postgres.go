package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
)

// PostgresStore persists requests in PostgreSQL. The store is pure I/O; all
// lifecycle rules live in the guard and orchestrator. Notes go to a child
// table whose sequence column preserves insertion order; appointments are a
// JSONB document since the core never queries into them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, citizen_id, status, priority, service_category, assigned_to, appointments, version, created_at, submitted_at, last_action_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.ServiceRequest) error {
	appointments, err := json.Marshal(req.Appointments)
	if err != nil {
		return fmt.Errorf("encode appointments: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(req.ID),
		uuid.UUID(req.CitizenID),
		string(req.Status),
		string(req.Priority),
		string(req.ServiceCategory),
		nullableUserID(req.AssignedTo),
		appointments,
		req.Version,
		req.CreatedAt,
		req.SubmittedAt,
		req.LastActionAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, uuid.UUID(requestID))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	req.Notes, err = s.loadNotes(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *PostgresStore) ListByCitizen(ctx context.Context, citizenID id.CitizenID) ([]*models.ServiceRequest, error) {
	return s.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE citizen_id = $1 ORDER BY created_at`, uuid.UUID(citizenID))
}

func (s *PostgresStore) ListByAssignee(ctx context.Context, reviewerID id.UserID) ([]*models.ServiceRequest, error) {
	return s.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE assigned_to = $1 ORDER BY created_at`, uuid.UUID(reviewerID))
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	for _, req := range out {
		req.Notes, err = s.loadNotes(ctx, s.db, req.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Execute runs the validate-then-mutate sequence under a row lock. The
// version check happens against the locked row, so a concurrent reviewer's
// committed change surfaces as sentinel.ErrStale rather than being
// overwritten.
func (s *PostgresStore) Execute(
	ctx context.Context,
	requestID id.RequestID,
	expectedVersion int,
	validate func(*models.ServiceRequest) error,
	mutate func(*models.ServiceRequest),
) (*models.ServiceRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	req.Notes, err = s.loadNotes(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	if expectedVersion != VersionAny && req.Version != expectedVersion {
		return nil, sentinel.ErrStale
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	existingNotes := len(req.Notes)
	mutate(req)
	req.Version++

	appointments, err := json.Marshal(req.Appointments)
	if err != nil {
		return nil, fmt.Errorf("encode appointments: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE requests SET
			status = $2,
			priority = $3,
			assigned_to = $4,
			appointments = $5,
			version = $6,
			submitted_at = $7,
			last_action_at = $8
		WHERE id = $1
	`,
		uuid.UUID(req.ID),
		string(req.Status),
		string(req.Priority),
		nullableUserID(req.AssignedTo),
		appointments,
		req.Version,
		req.SubmittedAt,
		req.LastActionAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	// Notes are append-only: persist only the ones mutate added.
	for _, note := range req.Notes[existingNotes:] {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_notes (id, request_id, author_id, body, note_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			uuid.UUID(note.ID),
			uuid.UUID(req.ID),
			uuid.UUID(note.AuthorID),
			note.Body,
			string(note.Type),
			note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return req, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) loadNotes(ctx context.Context, q querier, requestID id.RequestID) ([]models.Note, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, author_id, body, note_type, created_at
		FROM request_notes
		WHERE request_id = $1
		ORDER BY seq
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note
		var noteID, authorID uuid.UUID
		var noteType string
		if err := rows.Scan(&noteID, &authorID, &note.Body, &noteType, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		note.ID = id.NoteID(noteID)
		note.AuthorID = id.UserID(authorID)
		note.Type = models.NoteType(noteType)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.ServiceRequest, error) {
	var (
		req          models.ServiceRequest
		reqID        uuid.UUID
		citizenID    uuid.UUID
		status       string
		priority     string
		category     string
		assignedTo   uuid.NullUUID
		appointments []byte
		submittedAt  sql.NullTime
	)
	if err := row.Scan(
		&reqID, &citizenID, &status, &priority, &category,
		&assignedTo, &appointments, &req.Version,
		&req.CreatedAt, &submittedAt, &req.LastActionAt,
	); err != nil {
		return nil, err
	}
	req.ID = id.RequestID(reqID)
	req.CitizenID = id.CitizenID(citizenID)
	req.Status = models.Status(status)
	req.Priority = models.Priority(priority)
	req.ServiceCategory = models.ServiceCategory(category)
	if assignedTo.Valid {
		v := id.UserID(assignedTo.UUID)
		req.AssignedTo = &v
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		req.SubmittedAt = &t
	}
	if len(appointments) > 0 {
		if err := json.Unmarshal(appointments, &req.Appointments); err != nil {
			return nil, fmt.Errorf("decode appointments: %w", err)
		}
	}
	return &req, nil
}

func nullableUserID(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return uuid.UUID(*userID)
}
