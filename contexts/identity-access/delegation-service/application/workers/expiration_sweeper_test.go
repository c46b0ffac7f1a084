package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/adapters/memory"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// faultyRepository wraps the memory store and fails transitions for one
// delegation id, simulating a poisoned row mid-batch.
type faultyRepository struct {
	ports.Repository
	failID string
}

func (r faultyRepository) ApplyTransition(ctx context.Context, input ports.TransitionInput) error {
	if input.Delegation.DelegationID == r.failID {
		return errors.New("storage unavailable")
	}
	return r.Repository.ApplyTransition(ctx, input)
}

func seedDelegation(t *testing.T, store *memory.Store, id string, status entities.DelegationStatus, expiresAt time.Time) {
	t.Helper()
	err := store.CreateDelegation(context.Background(), ports.CreateDelegationInput{
		Delegation: entities.Delegation{
			DelegationID: id,
			TenantID:     "tenant-a",
			DelegatorID:  "u1",
			DelegateID:   "u2",
			Type:         entities.DelegationTypeFullAccess,
			Title:        "seeded",
			Status:       status,
			RequestedAt:  expiresAt.Add(-24 * time.Hour),
			ExpiresAt:    expiresAt,
			Version:      1,
		},
		Audit: entities.AuditLog{
			AuditLogID:   id + "-audit",
			DelegationID: id,
			TenantID:     "tenant-a",
			UserID:       "u1",
			Action:       entities.AuditActionDelegationCreated,
			CreatedAt:    expiresAt.Add(-24 * time.Hour),
		},
		Envelope: ports.EventEnvelope{
			EventID:    id + "-created",
			EventType:  "delegation.created",
			TenantID:   "tenant-a",
			OccurredAt: expiresAt.Add(-24 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("seed %s failed: %v", id, err)
	}
}

func TestExpirationSweeperContinuesPastFailingItem(t *testing.T) {
	store := memory.NewStore(nil, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.NowFunc = func() time.Time { return now }

	seedDelegation(t, store, "d-poisoned", entities.DelegationStatusActive, now.Add(-2*time.Hour))
	seedDelegation(t, store, "d-overdue", entities.DelegationStatusPending, now.Add(-time.Hour))
	seedDelegation(t, store, "d-fresh", entities.DelegationStatusActive, now.Add(time.Hour))

	sweeper := ExpirationSweeper{
		Repository:  faultyRepository{Repository: store, failID: "d-poisoned"},
		Clock:       store,
		IDGenerator: store,
	}

	expired, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(expired) != 1 || expired[0] != "d-overdue" {
		t.Fatalf("expected only the healthy overdue row expired, got %v", expired)
	}

	overdue, err := store.GetDelegation(context.Background(), "tenant-a", "d-overdue")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if overdue.Status != entities.DelegationStatusExpired || overdue.Version != 2 {
		t.Fatalf("expected expired v2, got %s v%d", overdue.Status, overdue.Version)
	}

	poisoned, err := store.GetDelegation(context.Background(), "tenant-a", "d-poisoned")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if poisoned.Status != entities.DelegationStatusActive {
		t.Fatalf("failed row must keep its state, got %s", poisoned.Status)
	}

	fresh, err := store.GetDelegation(context.Background(), "tenant-a", "d-fresh")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh.Status != entities.DelegationStatusActive {
		t.Fatalf("unexpired row must be untouched, got %s", fresh.Status)
	}
}

func TestExpirationSweeperSkipsTerminalStates(t *testing.T) {
	store := memory.NewStore(nil, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.NowFunc = func() time.Time { return now }

	seedDelegation(t, store, "d-revoked", entities.DelegationStatusRevoked, now.Add(-time.Hour))
	seedDelegation(t, store, "d-rejected", entities.DelegationStatusRejected, now.Add(-time.Hour))
	seedDelegation(t, store, "d-expired", entities.DelegationStatusExpired, now.Add(-time.Hour))

	sweeper := ExpirationSweeper{
		Repository:  store,
		Clock:       store,
		IDGenerator: store,
	}

	expired, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("terminal rows must not be swept, got %v", expired)
	}
}

type flakyPublisher struct {
	failures int
	events   []ports.EventEnvelope
}

func (p *flakyPublisher) PublishDelegationEvent(_ context.Context, event ports.EventEnvelope) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("bus unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func TestOutboxRelayRetriesFailedPublish(t *testing.T) {
	store := memory.NewStore(nil, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.NowFunc = func() time.Time { return now }

	seedDelegation(t, store, "d-1", entities.DelegationStatusPending, now.Add(time.Hour))

	publisher := &flakyPublisher{failures: 1}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
	}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected first pass to surface the publish failure")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("failed publish must not record events, got %d", len(publisher.events))
	}

	// The row stays pending and the next pass delivers it.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventID != "d-1-created" {
		t.Fatalf("expected the pending row delivered once, got %v", publisher.events)
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("third pass failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published rows must not be redelivered, got %d", len(publisher.events))
	}
}
