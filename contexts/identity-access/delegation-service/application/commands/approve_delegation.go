package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// ApproveDelegationCommand contains input for approving a pending grant.
type ApproveDelegationCommand struct {
	TenantID     string
	DelegationID string
	ActorID      string
	Notes        string
	Audit        AuditMeta
}

type ApproveDelegationUseCase struct {
	Repository  ports.Repository
	Directory   ports.UserDirectory
	Catalog     ports.PermissionCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ApproveDelegationUseCase) Execute(ctx context.Context, cmd ApproveDelegationCommand) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("approve delegation started",
		"event", "delegation_approve_started",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
		"actor_id", cmd.ActorID,
	)

	delegation, err := u.Repository.GetDelegation(ctx, cmd.TenantID, cmd.DelegationID)
	if err != nil {
		return application.DelegationView{}, err
	}
	if delegation.Status != entities.DelegationStatusPending {
		return application.DelegationView{}, domainerrors.ErrInvalidStatus
	}
	now := resolveNow(u.Clock)
	if delegation.IsExpired(now) {
		return application.DelegationView{}, domainerrors.ErrDelegationExpired
	}
	// An unassigned approval is open to anyone holding the approval
	// capability; the authorization layer enforces that capability upstream.
	if delegation.ApproverID != "" && delegation.ApproverID != cmd.ActorID {
		return application.DelegationView{}, domainerrors.ErrNotAssignedApprover
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}

	expectedVersion := delegation.Version
	updated := delegation
	updated.Status = entities.DelegationStatusApproved
	approvedAt := now
	updated.ApprovedAt = &approvedAt
	updated.ApprovalNotes = strings.TrimSpace(cmd.Notes)
	updated.Version = expectedVersion + 1

	envelope, err := DelegationEnvelope(outboxID, EventDelegationApproved, updated, cmd.ActorID, now)
	if err != nil {
		return application.DelegationView{}, err
	}

	details := "delegation approved"
	if updated.ApprovalNotes != "" {
		details = fmt.Sprintf("delegation approved: %s", updated.ApprovalNotes)
	}

	if err := u.Repository.ApplyTransition(ctx, ports.TransitionInput{
		TenantID:        cmd.TenantID,
		Delegation:      updated,
		ExpectedStatus:  entities.DelegationStatusPending,
		ExpectedVersion: expectedVersion,
		Audit:           auditLog(auditLogID, updated, cmd.ActorID, entities.AuditActionDelegationApproved, details, cmd.Audit, now),
		Envelope:        envelope,
	}); err != nil {
		logger.Error("approve delegation write failed",
			"event", "delegation_approve_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", cmd.TenantID,
			"delegation_id", cmd.DelegationID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}

	logger.Info("approve delegation completed",
		"event", "delegation_approve_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
	)

	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, updated, now)
}
