package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
)

type delegationModel struct {
	DelegationID      string     `gorm:"column:delegation_id;primaryKey"`
	TenantID          string     `gorm:"column:tenant_id;index:idx_delegations_tenant"`
	DelegatorID       string     `gorm:"column:delegator_id;index:idx_delegations_delegator"`
	DelegateID        string     `gorm:"column:delegate_id;index:idx_delegations_delegate"`
	ApproverID        string     `gorm:"column:approver_id"`
	DelegationType    string     `gorm:"column:delegation_type"`
	PermissionIDs     string     `gorm:"column:permission_ids"`
	Title             string     `gorm:"column:title"`
	Description       string     `gorm:"column:description"`
	Status            string     `gorm:"column:status;index:idx_delegations_status"`
	RequiresApproval  bool       `gorm:"column:requires_approval"`
	IsEmergency       bool       `gorm:"column:is_emergency"`
	IsRecurring       bool       `gorm:"column:is_recurring"`
	RecurrencePattern string     `gorm:"column:recurrence_pattern"`
	ApprovalNotes     string     `gorm:"column:approval_notes"`
	RejectionReason   string     `gorm:"column:rejection_reason"`
	RevocationReason  string     `gorm:"column:revocation_reason"`
	Metadata          []byte     `gorm:"column:metadata;type:jsonb"`
	RequestedAt       time.Time  `gorm:"column:requested_at"`
	ApprovedAt        *time.Time `gorm:"column:approved_at"`
	RejectedAt        *time.Time `gorm:"column:rejected_at"`
	ActivatedAt       *time.Time `gorm:"column:activated_at"`
	RevokedAt         *time.Time `gorm:"column:revoked_at"`
	ExpiresAt         time.Time  `gorm:"column:expires_at;index:idx_delegations_expires"`
	Version           int        `gorm:"column:version"`
}

func (delegationModel) TableName() string { return "delegations" }

type auditLogModel struct {
	AuditLogID   string    `gorm:"column:audit_log_id;primaryKey"`
	DelegationID string    `gorm:"column:delegation_id;index:idx_delegation_audit_delegation"`
	TenantID     string    `gorm:"column:tenant_id;index:idx_delegation_audit_tenant"`
	UserID       string    `gorm:"column:user_id"`
	Action       string    `gorm:"column:action"`
	Details      string    `gorm:"column:details"`
	Metadata     []byte    `gorm:"column:metadata;type:jsonb"`
	IPAddress    string    `gorm:"column:ip_address"`
	UserAgent    string    `gorm:"column:user_agent"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "delegation_audit_logs" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	TenantID    string     `gorm:"column:tenant_id"`
	Payload     []byte     `gorm:"column:payload;type:jsonb"`
	Status      string     `gorm:"column:status;index:idx_delegation_outbox_status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "delegation_outbox" }

type userModel struct {
	UserID   string `gorm:"column:user_id;primaryKey"`
	TenantID string `gorm:"column:tenant_id"`
	Name     string `gorm:"column:name"`
	Email    string `gorm:"column:email"`
}

func (userModel) TableName() string { return "users" }

type permissionModel struct {
	PermissionID string `gorm:"column:permission_id;primaryKey"`
	Name         string `gorm:"column:name"`
	Description  string `gorm:"column:description"`
}

func (permissionModel) TableName() string { return "permissions" }

func delegationModelFromEntity(delegation entities.Delegation) (delegationModel, error) {
	metadata, err := marshalMetadata(delegation.Metadata)
	if err != nil {
		return delegationModel{}, err
	}
	return delegationModel{
		DelegationID:      delegation.DelegationID,
		TenantID:          delegation.TenantID,
		DelegatorID:       delegation.DelegatorID,
		DelegateID:        delegation.DelegateID,
		ApproverID:        delegation.ApproverID,
		DelegationType:    string(delegation.Type),
		PermissionIDs:     strings.Join(delegation.PermissionIDs, ","),
		Title:             delegation.Title,
		Description:       delegation.Description,
		Status:            string(delegation.Status),
		RequiresApproval:  delegation.RequiresApproval,
		IsEmergency:       delegation.IsEmergency,
		IsRecurring:       delegation.IsRecurring,
		RecurrencePattern: delegation.RecurrencePattern,
		ApprovalNotes:     delegation.ApprovalNotes,
		RejectionReason:   delegation.RejectionReason,
		RevocationReason:  delegation.RevocationReason,
		Metadata:          metadata,
		RequestedAt:       delegation.RequestedAt.UTC(),
		ApprovedAt:        utcPointer(delegation.ApprovedAt),
		RejectedAt:        utcPointer(delegation.RejectedAt),
		ActivatedAt:       utcPointer(delegation.ActivatedAt),
		RevokedAt:         utcPointer(delegation.RevokedAt),
		ExpiresAt:         delegation.ExpiresAt.UTC(),
		Version:           delegation.Version,
	}, nil
}

func (m delegationModel) toEntity() (entities.Delegation, error) {
	metadata, err := unmarshalMetadata(m.Metadata)
	if err != nil {
		return entities.Delegation{}, err
	}
	var permissionIDs []string
	if m.PermissionIDs != "" {
		permissionIDs = strings.Split(m.PermissionIDs, ",")
	}
	return entities.Delegation{
		DelegationID:      m.DelegationID,
		TenantID:          m.TenantID,
		DelegatorID:       m.DelegatorID,
		DelegateID:        m.DelegateID,
		ApproverID:        m.ApproverID,
		Type:              entities.DelegationType(m.DelegationType),
		PermissionIDs:     permissionIDs,
		Title:             m.Title,
		Description:       m.Description,
		Status:            entities.DelegationStatus(m.Status),
		RequiresApproval:  m.RequiresApproval,
		IsEmergency:       m.IsEmergency,
		IsRecurring:       m.IsRecurring,
		RecurrencePattern: m.RecurrencePattern,
		ApprovalNotes:     m.ApprovalNotes,
		RejectionReason:   m.RejectionReason,
		RevocationReason:  m.RevocationReason,
		Metadata:          metadata,
		RequestedAt:       m.RequestedAt.UTC(),
		ApprovedAt:        utcPointer(m.ApprovedAt),
		RejectedAt:        utcPointer(m.RejectedAt),
		ActivatedAt:       utcPointer(m.ActivatedAt),
		RevokedAt:         utcPointer(m.RevokedAt),
		ExpiresAt:         m.ExpiresAt.UTC(),
		Version:           m.Version,
	}, nil
}

// delegationUpdates spells out every mutable column so a guarded update can
// never skip a zero value the way struct-based Updates would.
func delegationUpdates(row delegationModel) map[string]any {
	return map[string]any{
		"status":            row.Status,
		"approval_notes":    row.ApprovalNotes,
		"rejection_reason":  row.RejectionReason,
		"revocation_reason": row.RevocationReason,
		"approved_at":       row.ApprovedAt,
		"rejected_at":       row.RejectedAt,
		"activated_at":      row.ActivatedAt,
		"revoked_at":        row.RevokedAt,
		"version":           row.Version,
	}
}

func auditModelFromEntity(log entities.AuditLog) (auditLogModel, error) {
	metadata, err := marshalMetadata(log.Metadata)
	if err != nil {
		return auditLogModel{}, err
	}
	return auditLogModel{
		AuditLogID:   log.AuditLogID,
		DelegationID: log.DelegationID,
		TenantID:     log.TenantID,
		UserID:       log.UserID,
		Action:       log.Action,
		Details:      log.Details,
		Metadata:     metadata,
		IPAddress:    log.IPAddress,
		UserAgent:    log.UserAgent,
		CreatedAt:    log.CreatedAt.UTC(),
	}, nil
}

func (m auditLogModel) toEntity() (entities.AuditLog, error) {
	metadata, err := unmarshalMetadata(m.Metadata)
	if err != nil {
		return entities.AuditLog{}, err
	}
	return entities.AuditLog{
		AuditLogID:   m.AuditLogID,
		DelegationID: m.DelegationID,
		TenantID:     m.TenantID,
		UserID:       m.UserID,
		Action:       m.Action,
		Details:      m.Details,
		Metadata:     metadata,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
