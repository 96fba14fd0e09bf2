// Package audit records review decisions as an append-only event stream.
package audit

import (
	"context"
	"time"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
)

// Event is one immutable audit record. Every evaluated transition produces
// exactly one event, whether it was applied or denied.
type Event struct {
	RequestID  id.RequestID  `json:"request_id"`
	ActorID    id.UserID     `json:"actor_id"`
	ActorRole  models.Role   `json:"actor_role"`
	FromStatus models.Status `json:"from_status"`
	ToStatus   models.Status `json:"to_status"`
	Allowed    bool          `json:"allowed"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Publisher receives audit events. Publishing is best-effort from the
// orchestrator's point of view: a publish failure never rolls back an
// applied transition.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
