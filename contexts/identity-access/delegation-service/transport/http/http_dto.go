package httptransport

import "time"

// CreateDelegationRequest is the request body for requesting a grant.
// The delegator is the authenticated caller, not a body field.
type CreateDelegationRequest struct {
	DelegateID        string         `json:"delegate_id"`
	ApproverID        string         `json:"approver_id,omitempty"`
	DelegationType    string         `json:"delegation_type"`
	PermissionIDs     []string       `json:"permission_ids,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	ExpiresAt         time.Time      `json:"expires_at"`
	RequiresApproval  bool           `json:"requires_approval,omitempty"`
	IsEmergency       bool           `json:"is_emergency,omitempty"`
	IsRecurring       bool           `json:"is_recurring,omitempty"`
	RecurrencePattern string         `json:"recurrence_pattern,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type ApproveDelegationRequest struct {
	Notes string `json:"notes,omitempty"`
}

type RejectDelegationRequest struct {
	Reason string `json:"reason"`
}

type ActivateDelegationRequest struct {
	Confirm bool `json:"confirm"`
}

type RevokeDelegationRequest struct {
	Reason string `json:"reason"`
}

// ParticipantDTO is a resolved tenant member. Name and email are empty when
// the member left the tenant after the grant was recorded.
type ParticipantDTO struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// DelegationResponse is the full outward projection of one delegation,
// including the derived time fields computed at response time.
type DelegationResponse struct {
	DelegationID      string          `json:"delegation_id"`
	TenantID          string          `json:"tenant_id"`
	Delegator         ParticipantDTO  `json:"delegator"`
	Delegate          ParticipantDTO  `json:"delegate"`
	Approver          *ParticipantDTO `json:"approver,omitempty"`
	DelegationType    string          `json:"delegation_type"`
	PermissionIDs     []string        `json:"permission_ids,omitempty"`
	PermissionNames   []string        `json:"permission_names,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Status            string          `json:"status"`
	RequiresApproval  bool            `json:"requires_approval"`
	IsEmergency       bool            `json:"is_emergency"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurrencePattern string          `json:"recurrence_pattern,omitempty"`
	ApprovalNotes     string          `json:"approval_notes,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	RevocationReason  string          `json:"revocation_reason,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	RequestedAt       time.Time       `json:"requested_at"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	RejectedAt        *time.Time      `json:"rejected_at,omitempty"`
	ActivatedAt       *time.Time      `json:"activated_at,omitempty"`
	RevokedAt         *time.Time      `json:"revoked_at,omitempty"`
	ExpiresAt         time.Time       `json:"expires_at"`
	IsActive          bool            `json:"is_active"`
	IsExpired         bool            `json:"is_expired"`
	DurationHours     float64         `json:"duration_hours"`
	RemainingHours    float64         `json:"remaining_hours"`
	Version           int             `json:"version"`
}

type DelegationListResponse struct {
	Items      []DelegationResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

type DelegationStatsResponse struct {
	Total                int64            `json:"total"`
	ByStatus             map[string]int64 `json:"by_status"`
	Emergency            int64            `json:"emergency"`
	CreatedThisMonth     int64            `json:"created_this_month"`
	AverageDurationHours float64          `json:"average_duration_hours"`
}

// ActiveDelegationCheckRequest asks whether the caller currently holds any of
// the listed permissions through an active delegation.
type ActiveDelegationCheckRequest struct {
	UserID        string   `json:"user_id,omitempty"`
	PermissionIDs []string `json:"permission_ids"`
}

type ActiveDelegationCheckResponse struct {
	UserID              string    `json:"user_id"`
	HasActiveDelegation bool      `json:"has_active_delegation"`
	CheckedAt           time.Time `json:"checked_at"`
}

type AuditLogDTO struct {
	AuditLogID   string         `json:"audit_log_id"`
	DelegationID string         `json:"delegation_id"`
	Actor        ParticipantDTO `json:"actor"`
	Action       string         `json:"action"`
	Details      string         `json:"details,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ListAuditLogsResponse struct {
	DelegationID string        `json:"delegation_id"`
	Entries      []AuditLogDTO `json:"entries"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
