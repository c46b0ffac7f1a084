package queries

import (
	"context"
	"testing"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/adapters/memory"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

func seedStore(t *testing.T, store *memory.Store, id string, status entities.DelegationStatus) {
	t.Helper()
	now := store.Now()
	err := store.CreateDelegation(context.Background(), ports.CreateDelegationInput{
		Delegation: entities.Delegation{
			DelegationID:  id,
			TenantID:      "tenant-a",
			DelegatorID:   "u1",
			DelegateID:    "u2",
			Type:          entities.DelegationTypePermissionBased,
			PermissionIDs: []string{"p1"},
			Title:         "seeded",
			Status:        status,
			RequestedAt:   now,
			ExpiresAt:     now.Add(24 * time.Hour),
			Version:       1,
		},
		Audit: entities.AuditLog{
			AuditLogID:   id + "-audit",
			DelegationID: id,
			TenantID:     "tenant-a",
			UserID:       "u1",
			Action:       entities.AuditActionDelegationCreated,
			CreatedAt:    now,
		},
		Envelope: ports.EventEnvelope{EventID: id + "-created", TenantID: "tenant-a", OccurredAt: now},
	})
	if err != nil {
		t.Fatalf("seed %s failed: %v", id, err)
	}
}

func TestListDelegationsClampsPagination(t *testing.T) {
	store := memory.NewStore(nil, nil)
	seedStore(t, store, "d-1", entities.DelegationStatusPending)

	useCase := ListDelegationsUseCase{
		Repository: store,
		Directory:  store,
		Catalog:    store,
		Clock:      store,
	}

	result, err := useCase.Execute(context.Background(), "tenant-a", ports.DelegationFilter{
		Page:  -3,
		Limit: 5000,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", result.Page)
	}
	if result.Limit != maxPageLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageLimit, result.Limit)
	}
}

func TestCheckActiveDelegationShortCircuitsEmptyRequest(t *testing.T) {
	store := memory.NewStore(nil, nil)
	seedStore(t, store, "d-1", entities.DelegationStatusActive)

	useCase := CheckActiveDelegationUseCase{
		Repository: store,
		Clock:      store,
	}

	active, err := useCase.Execute(context.Background(), "tenant-a", "u2", nil)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if active {
		t.Fatalf("empty permission request must never match")
	}

	active, err = useCase.Execute(context.Background(), "tenant-a", "u2", []string{"p1"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !active {
		t.Fatalf("active delegation covering p1 must match")
	}
}
