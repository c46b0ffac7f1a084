package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// OutboxRelay delivers pending lifecycle notifications to the bus.
// Delivery is best-effort: a publish failure is logged and retried on the
// next pass without blocking the transition that produced the row.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.NotificationPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("delegation outbox list failed",
			"event", "delegation_outbox_list_failed",
			"module", "identity-access/delegation-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			return err
		}
		if err := r.Publisher.PublishDelegationEvent(ctx, event); err != nil {
			logger.Error("delegation outbox publish failed",
				"event", "delegation_outbox_publish_failed",
				"module", "identity-access/delegation-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}
	return nil
}
