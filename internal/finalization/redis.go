package finalization

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

// handoverJob is the queue payload consumed by the document production
// workers.
type handoverJob struct {
	RequestID       string    `json:"request_id"`
	CitizenID       string    `json:"citizen_id"`
	ServiceCategory string    `json:"service_category"`
	ValidatedAt     time.Time `json:"validated_at"`
}

// RedisFinalizer enqueues a handover job on a Redis list. Workers pop with
// BRPOP, so the list behaves as a FIFO queue across instances.
type RedisFinalizer struct {
	client *redis.Client
	key    string
}

func NewRedisFinalizer(client *redis.Client, queueKey string) *RedisFinalizer {
	return &RedisFinalizer{client: client, key: queueKey}
}

func (f *RedisFinalizer) NotifyValidated(ctx context.Context, req *models.ServiceRequest) error {
	payload, err := json.Marshal(handoverJob{
		RequestID:       req.ID.String(),
		CitizenID:       req.CitizenID.String(),
		ServiceCategory: string(req.ServiceCategory),
		ValidatedAt:     requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("encode handover job: %w", err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue handover job: %w", err)
	}
	return nil
}
