package store

import (
	"context"
	"sort"
	"sync"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	"github.com/okatech-org/consulat-sub002/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map guarded by a mutex. Snapshots are
// deep-copied on the way in and out so callers can never mutate stored
// state except through Execute.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.ServiceRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*models.ServiceRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) ListByCitizen(_ context.Context, citizenID id.CitizenID) ([]*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ServiceRequest
	for _, req := range s.requests {
		if req.CitizenID == citizenID {
			out = append(out, req.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListByAssignee(_ context.Context, reviewerID id.UserID) ([]*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ServiceRequest
	for _, req := range s.requests {
		if req.IsAssignedTo(reviewerID) {
			out = append(out, req.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

// Execute holds the write lock for the whole validate-then-mutate sequence,
// which makes the version check and the mutation one atomic unit.
func (s *InMemoryStore) Execute(
	_ context.Context,
	requestID id.RequestID,
	expectedVersion int,
	validate func(*models.ServiceRequest) error,
	mutate func(*models.ServiceRequest),
) (*models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if expectedVersion != VersionAny && req.Version != expectedVersion {
		return nil, sentinel.ErrStale
	}

	working := req.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version++

	s.requests[requestID] = working
	return working.Clone(), nil
}

func sortByCreation(reqs []*models.ServiceRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}
