package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
)

// PostgresStore persists profile snapshots as JSONB documents. The scorer
// only ever consumes whole snapshots, so a document column keeps the store
// pure I/O with no per-field schema drift.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByCitizen(ctx context.Context, citizenID id.CitizenID) (*Profile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM profiles WHERE citizen_id = $1`,
		uuid.UUID(citizenID),
	).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile snapshot: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p *Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (citizen_id, variant, snapshot, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (citizen_id) DO UPDATE SET
			variant = EXCLUDED.variant,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
	`, uuid.UUID(p.CitizenID), string(p.Variant), raw, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
