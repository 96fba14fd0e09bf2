// Package finalization kicks off document handover side effects when a
// request reaches VALIDATED.
package finalization

import (
	"context"
	"log/slog"

	"github.com/okatech-org/consulat-sub002/internal/request/models"
)

// Finalizer is notified after a request is persisted in VALIDATED. A
// finalizer failure does not undo the transition; the orchestrator reports
// it alongside the applied state so operators can replay the handover.
type Finalizer interface {
	NotifyValidated(ctx context.Context, req *models.ServiceRequest) error
}

// LogFinalizer records the handover in the structured log. The default when
// no queue is configured.
type LogFinalizer struct {
	logger *slog.Logger
}

func NewLogFinalizer(logger *slog.Logger) *LogFinalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogFinalizer{logger: logger}
}

func (f *LogFinalizer) NotifyValidated(ctx context.Context, req *models.ServiceRequest) error {
	f.logger.InfoContext(ctx, "request validated, handover due",
		slog.String("request_id", req.ID.String()),
		slog.String("citizen_id", req.CitizenID.String()),
		slog.String("service_category", string(req.ServiceCategory)),
	)
	return nil
}
