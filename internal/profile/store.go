package profile

import (
	"context"

	id "github.com/okatech-org/consulat-sub002/pkg/domain"
)

// Store provides read access to profile snapshots. Profiles are owned by the
// citizen-facing edit flows; this core reads them and, for seeding and staff
// corrections, writes whole snapshots back.
type Store interface {
	FindByCitizen(ctx context.Context, citizenID id.CitizenID) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}
