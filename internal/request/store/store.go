// Package store persists service requests with optimistic concurrency.
package store

import (
	"context"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
)

// VersionAny skips the optimistic concurrency check in Execute. Reserved
// for internal maintenance paths; review mutations always pass the version
// they read.
const VersionAny = -1

// Store is the persistence port for service requests.
//
// Execute is the single mutation path: it atomically loads the request,
// verifies the caller's last-observed version, runs validate, applies
// mutate, bumps the version and persists, all under the store's lock (mutex
// or row lock). A version mismatch returns sentinel.ErrStale before validate
// runs; a validate error aborts with nothing written.
type Store interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.ServiceRequest, error)
	ListByCitizen(ctx context.Context, citizenID id.CitizenID) ([]*models.ServiceRequest, error)
	ListByAssignee(ctx context.Context, reviewerID id.UserID) ([]*models.ServiceRequest, error)
	Execute(
		ctx context.Context,
		requestID id.RequestID,
		expectedVersion int,
		validate func(*models.ServiceRequest) error,
		mutate func(*models.ServiceRequest),
	) (*models.ServiceRequest, error)
}
