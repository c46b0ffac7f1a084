package ports

import (
	"context"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	contractsv1 "tenantkit/contracts/gen/events/v1"
)

// Clock abstracts current time for deterministic expiry tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for delegation/audit/outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UserDirectory validates participant membership and resolves identity.
// Lookups are tenant-scoped: a user outside the tenant is not found.
type UserDirectory interface {
	FindUser(ctx context.Context, tenantID string, userID string) (entities.User, bool, error)
}

// PermissionCatalog resolves permission ids to catalog entries. A count
// mismatch between requested and resolved ids is a validation failure in the
// caller; the catalog itself returns only what exists.
type PermissionCatalog interface {
	ResolvePermissions(ctx context.Context, permissionIDs []string) ([]entities.Permission, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// NotificationPublisher emits delegation lifecycle events to the bus adapter.
// Publishing is best-effort: callers log failures and never propagate them.
type NotificationPublisher interface {
	PublishDelegationEvent(ctx context.Context, event EventEnvelope) error
}

// CreateDelegationInput is persisted atomically: the delegation row, its
// first audit record and the outbox row commit or roll back together.
type CreateDelegationInput struct {
	Delegation entities.Delegation
	Audit      entities.AuditLog
	Envelope   EventEnvelope
}

// TransitionInput captures a guarded status change plus its audit and outbox
// rows. The write must match ExpectedStatus/ExpectedVersion or fail with a
// state conflict so concurrent callers cannot double-transition.
type TransitionInput struct {
	TenantID        string
	Delegation      entities.Delegation
	ExpectedStatus  entities.DelegationStatus
	ExpectedVersion int
	Audit           entities.AuditLog
	Envelope        EventEnvelope
}

// DelegationFilter narrows tenant-scoped listings. Zero values mean "any".
type DelegationFilter struct {
	Status      entities.DelegationStatus
	Type        entities.DelegationType
	DelegatorID string
	DelegateID  string
	ApproverID  string
	Emergency   *bool
	Expired     *bool
	Search      string
	Page        int
	Limit       int
}

// DelegationPage is one page of a filtered listing, newest first.
type DelegationPage struct {
	Items      []entities.Delegation
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// DelegationStats aggregates a tenant's delegations regardless of status.
type DelegationStats struct {
	Total                int64
	ByStatus             map[entities.DelegationStatus]int64
	Emergency            int64
	CreatedThisMonth     int64
	AverageDurationHours float64
}

// Repository is the tenant-scoped read/write boundary for delegation state.
// Every method except ListOverdue is parameterized by tenant and must not
// return rows from other tenants.
type Repository interface {
	CreateDelegation(ctx context.Context, input CreateDelegationInput) error
	GetDelegation(ctx context.Context, tenantID string, delegationID string) (entities.Delegation, error)
	ApplyTransition(ctx context.Context, input TransitionInput) error
	ListDelegations(ctx context.Context, tenantID string, filter DelegationFilter) (DelegationPage, error)
	ListActiveByDelegate(ctx context.Context, tenantID string, delegateID string, now time.Time) ([]entities.Delegation, error)
	GetDelegationStats(ctx context.Context, tenantID string, now time.Time) (DelegationStats, error)
	ListAuditLogs(ctx context.Context, tenantID string, delegationID string) ([]entities.AuditLog, error)

	// ListOverdue is the admin/cross-tenant sweep read: non-terminal
	// delegations whose expiry has passed, oldest expiry first.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]entities.Delegation, error)
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	TenantID  string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}
