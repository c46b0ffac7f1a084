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

// RejectDelegationCommand contains input for rejecting a pending grant.
// The reason is mandatory.
type RejectDelegationCommand struct {
	TenantID     string
	DelegationID string
	ActorID      string
	Reason       string
	Audit        AuditMeta
}

type RejectDelegationUseCase struct {
	Repository  ports.Repository
	Directory   ports.UserDirectory
	Catalog     ports.PermissionCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u RejectDelegationUseCase) Execute(ctx context.Context, cmd RejectDelegationCommand) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("reject delegation started",
		"event", "delegation_reject_started",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
		"actor_id", cmd.ActorID,
	)

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return application.DelegationView{}, domainerrors.ErrReasonRequired
	}

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
	updated.Status = entities.DelegationStatusRejected
	rejectedAt := now
	updated.RejectedAt = &rejectedAt
	updated.RejectionReason = reason
	updated.Version = expectedVersion + 1

	envelope, err := DelegationEnvelope(outboxID, EventDelegationRejected, updated, cmd.ActorID, now)
	if err != nil {
		return application.DelegationView{}, err
	}

	if err := u.Repository.ApplyTransition(ctx, ports.TransitionInput{
		TenantID:        cmd.TenantID,
		Delegation:      updated,
		ExpectedStatus:  entities.DelegationStatusPending,
		ExpectedVersion: expectedVersion,
		Audit: auditLog(auditLogID, updated, cmd.ActorID, entities.AuditActionDelegationRejected,
			fmt.Sprintf("delegation rejected: %s", reason), cmd.Audit, now),
		Envelope: envelope,
	}); err != nil {
		logger.Error("reject delegation write failed",
			"event", "delegation_reject_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", cmd.TenantID,
			"delegation_id", cmd.DelegationID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}

	logger.Info("reject delegation completed",
		"event", "delegation_reject_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
	)

	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, updated, now)
}
