package application

import (
	"context"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// ParticipantView is the resolved identity of a delegation participant.
type ParticipantView struct {
	UserID string
	Name   string
	Email  string
}

// DelegationView separates the persisted entity from its outward-facing
// projection: resolved participants, resolved permission names and the
// derived time fields computed against the hydration clock.
type DelegationView struct {
	Delegation      entities.Delegation
	Delegator       ParticipantView
	Delegate        ParticipantView
	Approver        *ParticipantView
	PermissionNames []string
	IsActive        bool
	IsExpired       bool
	DurationHours   float64
	RemainingHours  float64
}

// HydrateDelegation resolves participant and permission summaries.
// Participants are weak references into the shared directory: a member that
// was removed after the grant hydrates with its id only.
func HydrateDelegation(
	ctx context.Context,
	directory ports.UserDirectory,
	catalog ports.PermissionCatalog,
	delegation entities.Delegation,
	now time.Time,
) (DelegationView, error) {
	view := DelegationView{
		Delegation:      delegation,
		Delegator:       ParticipantView{UserID: delegation.DelegatorID},
		Delegate:        ParticipantView{UserID: delegation.DelegateID},
		PermissionNames: []string{},
		IsActive:        delegation.IsActive(now),
		IsExpired:       delegation.IsExpired(now),
		DurationHours:   delegation.DurationHours(),
		RemainingHours:  delegation.RemainingHours(now),
	}

	if user, found, err := directory.FindUser(ctx, delegation.TenantID, delegation.DelegatorID); err != nil {
		return DelegationView{}, err
	} else if found {
		view.Delegator = participantFromUser(user)
	}
	if user, found, err := directory.FindUser(ctx, delegation.TenantID, delegation.DelegateID); err != nil {
		return DelegationView{}, err
	} else if found {
		view.Delegate = participantFromUser(user)
	}
	if delegation.ApproverID != "" {
		approver := ParticipantView{UserID: delegation.ApproverID}
		if user, found, err := directory.FindUser(ctx, delegation.TenantID, delegation.ApproverID); err != nil {
			return DelegationView{}, err
		} else if found {
			approver = participantFromUser(user)
		}
		view.Approver = &approver
	}

	if len(delegation.PermissionIDs) > 0 {
		permissions, err := catalog.ResolvePermissions(ctx, delegation.PermissionIDs)
		if err != nil {
			return DelegationView{}, err
		}
		names := make([]string, 0, len(permissions))
		for _, permission := range permissions {
			names = append(names, permission.Name)
		}
		view.PermissionNames = names
	}
	return view, nil
}

func participantFromUser(user entities.User) ParticipantView {
	return ParticipantView{
		UserID: user.UserID,
		Name:   user.Name,
		Email:  user.Email,
	}
}
