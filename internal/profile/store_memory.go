package profile

import (
	"context"
	"sync"

	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
)

// InMemoryStore keeps profile snapshots in a map. Used by unit tests and
// local development; production deployments use the postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.CitizenID]*Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.CitizenID]*Profile)}
}

func (s *InMemoryStore) FindByCitizen(_ context.Context, citizenID id.CitizenID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.CitizenID] = clone(p)
	return nil
}

func clone(p *Profile) *Profile {
	cp := *p
	cp.Guardians = append([]Guardian(nil), p.Guardians...)
	return &cp
}
