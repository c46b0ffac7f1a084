package entities

import (
	"strings"
	"time"
)

type DelegationStatus string
type DelegationType string

const (
	DelegationStatusPending  DelegationStatus = "pending"
	DelegationStatusApproved DelegationStatus = "approved"
	DelegationStatusRejected DelegationStatus = "rejected"
	DelegationStatusActive   DelegationStatus = "active"
	DelegationStatusRevoked  DelegationStatus = "revoked"
	DelegationStatusExpired  DelegationStatus = "expired"

	DelegationTypePermissionBased DelegationType = "permission_based"
	DelegationTypeRoleBased       DelegationType = "role_based"
	DelegationTypeFullAccess      DelegationType = "full_access"
)

// Delegation is a time-bounded, approval-gated grant of a subset of one
// tenant member's access to another member.
type Delegation struct {
	DelegationID  string
	TenantID      string
	DelegatorID   string
	DelegateID    string
	ApproverID    string
	Type          DelegationType
	PermissionIDs []string
	Title         string
	Description   string

	Status            DelegationStatus
	RequiresApproval  bool
	IsEmergency       bool
	IsRecurring       bool
	RecurrencePattern string
	ApprovalNotes     string
	RejectionReason   string
	RevocationReason  string
	Metadata          map[string]any

	RequestedAt time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	ActivatedAt *time.Time
	RevokedAt   *time.Time
	ExpiresAt   time.Time

	// Version guards concurrent transitions. Every write that changes Status
	// must match the version it read or fail with a state conflict.
	Version int
}

// InitialStatus computes the creation state: a grant that names an approver
// or asks for approval starts pending, everything else is a self-service
// grant that is approved immediately but inert until activated.
func InitialStatus(requiresApproval bool, approverID string) DelegationStatus {
	if requiresApproval || strings.TrimSpace(approverID) != "" {
		return DelegationStatusPending
	}
	return DelegationStatusApproved
}

func (d Delegation) IsTerminal() bool {
	switch d.Status {
	case DelegationStatusRejected, DelegationStatusRevoked, DelegationStatusExpired:
		return true
	default:
		return false
	}
}

func (d Delegation) IsExpired(now time.Time) bool {
	return !now.UTC().Before(d.ExpiresAt.UTC())
}

// IsActive reports whether the grant currently confers access.
func (d Delegation) IsActive(now time.Time) bool {
	return d.Status == DelegationStatusActive && !d.IsExpired(now)
}

func (d Delegation) CanBeActivated(now time.Time) bool {
	return d.Status == DelegationStatusApproved && !d.IsExpired(now)
}

func (d Delegation) CanBeRevoked(now time.Time) bool {
	if d.IsExpired(now) {
		return false
	}
	return d.Status == DelegationStatusApproved || d.Status == DelegationStatusActive
}

// IsStakeholder reports whether the user may terminate the grant early.
func (d Delegation) IsStakeholder(userID string) bool {
	if userID == "" {
		return false
	}
	return userID == d.DelegatorID || userID == d.DelegateID || (d.ApproverID != "" && userID == d.ApproverID)
}

func (d Delegation) DurationHours() float64 {
	return d.ExpiresAt.Sub(d.RequestedAt).Hours()
}

func (d Delegation) RemainingHours(now time.Time) float64 {
	remaining := d.ExpiresAt.Sub(now.UTC()).Hours()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GrantsAny reports whether the delegation's permission set intersects the
// requested permission ids. Full-access grants match anything, role-based
// grants resolve outside this path and never match here.
func (d Delegation) GrantsAny(permissionIDs []string) bool {
	switch d.Type {
	case DelegationTypeFullAccess:
		return len(permissionIDs) > 0
	case DelegationTypePermissionBased:
		for _, requested := range permissionIDs {
			for _, granted := range d.PermissionIDs {
				if requested == granted {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func IsSupportedDelegationType(value DelegationType) bool {
	switch value {
	case DelegationTypePermissionBased, DelegationTypeRoleBased, DelegationTypeFullAccess:
		return true
	default:
		return false
	}
}

func IsSupportedStatus(value DelegationStatus) bool {
	switch value {
	case DelegationStatusPending, DelegationStatusApproved, DelegationStatusRejected,
		DelegationStatusActive, DelegationStatusRevoked, DelegationStatusExpired:
		return true
	default:
		return false
	}
}
