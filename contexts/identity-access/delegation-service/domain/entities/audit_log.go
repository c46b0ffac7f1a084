package entities

import "time"

const (
	AuditActionDelegationCreated   = "delegation_created"
	AuditActionDelegationApproved  = "delegation_approved"
	AuditActionDelegationRejected  = "delegation_rejected"
	AuditActionDelegationActivated = "delegation_activated"
	AuditActionDelegationRevoked   = "delegation_revoked"
	AuditActionDelegationExpired   = "delegation_expired"
)

// AuditLog is one immutable record of a delegation state change.
// Rows are append-only: never updated or deleted after insertion.
type AuditLog struct {
	AuditLogID   string
	DelegationID string
	TenantID     string
	UserID       string
	Action       string
	Details      string
	Metadata     map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
