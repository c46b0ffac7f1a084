package commands

import (
	"encoding/json"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

const (
	EventDelegationCreated   = "delegation.created"
	EventDelegationApproved  = "delegation.approved"
	EventDelegationRejected  = "delegation.rejected"
	EventDelegationActivated = "delegation.activated"
	EventDelegationRevoked   = "delegation.revoked"
	EventDelegationExpired   = "delegation.expired"

	sourceService = "identity-access/delegation-service"
)

// AuditMeta carries optional request metadata captured at the transport edge.
type AuditMeta struct {
	IPAddress string
	UserAgent string
}

// DelegationEnvelope builds the lifecycle event persisted to the outbox in
// the same transaction as the state change.
func DelegationEnvelope(
	eventID string,
	eventType string,
	delegation entities.Delegation,
	actorID string,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(map[string]any{
		"delegation_id": delegation.DelegationID,
		"tenant_id":     delegation.TenantID,
		"delegator_id":  delegation.DelegatorID,
		"delegate_id":   delegation.DelegateID,
		"approver_id":   delegation.ApproverID,
		"type":          string(delegation.Type),
		"status":        string(delegation.Status),
		"is_emergency":  delegation.IsEmergency,
		"expires_at":    delegation.ExpiresAt.UTC(),
		"actor_id":      actorID,
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		SourceService: sourceService,
		TenantID:      delegation.TenantID,
		SchemaVersion: 1,
		PartitionKey:  delegation.DelegationID,
		Data:          payload,
	}, nil
}

func auditLog(
	auditLogID string,
	delegation entities.Delegation,
	userID string,
	action string,
	details string,
	meta AuditMeta,
	createdAt time.Time,
) entities.AuditLog {
	return entities.AuditLog{
		AuditLogID:   auditLogID,
		DelegationID: delegation.DelegationID,
		TenantID:     delegation.TenantID,
		UserID:       userID,
		Action:       action,
		Details:      details,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		CreatedAt:    createdAt.UTC(),
	}
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
