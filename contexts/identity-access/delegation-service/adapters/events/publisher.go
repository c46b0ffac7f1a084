package events

import (
	"context"
	"log/slog"

	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// Bus is the minimal publish surface of the platform messaging adapter.
type Bus interface {
	Publish(ctx context.Context, topic string, event ports.EventEnvelope) error
}

// Publisher emits delegation lifecycle envelopes onto the event bus. One
// topic carries the whole lifecycle; consumers branch on event_type.
type Publisher struct {
	bus    Bus
	topic  string
	logger *slog.Logger
}

func NewPublisher(bus Bus, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = "identity-access.delegations.v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		bus:    bus,
		topic:  topic,
		logger: logger,
	}
}

func (p *Publisher) PublishDelegationEvent(ctx context.Context, event ports.EventEnvelope) error {
	if err := p.bus.Publish(ctx, p.topic, event); err != nil {
		return err
	}
	p.logger.Info("delegation event published",
		"event", "delegation_event_published",
		"module", "identity-access/delegation-service",
		"layer", "adapter",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"tenant_id", event.TenantID,
		"partition_key", event.PartitionKey,
	)
	return nil
}
