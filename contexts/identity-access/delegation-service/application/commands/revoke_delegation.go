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

// RevokeDelegationCommand contains input for terminating a grant early.
// Any of delegator, delegate or approver may revoke; the reason is mandatory.
type RevokeDelegationCommand struct {
	TenantID     string
	DelegationID string
	ActorID      string
	Reason       string
	Audit        AuditMeta
}

type RevokeDelegationUseCase struct {
	Repository  ports.Repository
	Directory   ports.UserDirectory
	Catalog     ports.PermissionCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u RevokeDelegationUseCase) Execute(ctx context.Context, cmd RevokeDelegationCommand) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("revoke delegation started",
		"event", "delegation_revoke_started",
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
	now := resolveNow(u.Clock)
	if !delegation.CanBeRevoked(now) {
		if delegation.IsExpired(now) && !delegation.IsTerminal() {
			return application.DelegationView{}, domainerrors.ErrDelegationExpired
		}
		return application.DelegationView{}, domainerrors.ErrInvalidStatus
	}
	if !delegation.IsStakeholder(cmd.ActorID) {
		return application.DelegationView{}, domainerrors.ErrNotStakeholder
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}

	expectedStatus := delegation.Status
	expectedVersion := delegation.Version
	updated := delegation
	updated.Status = entities.DelegationStatusRevoked
	revokedAt := now
	updated.RevokedAt = &revokedAt
	updated.RevocationReason = reason
	updated.Version = expectedVersion + 1

	envelope, err := DelegationEnvelope(outboxID, EventDelegationRevoked, updated, cmd.ActorID, now)
	if err != nil {
		return application.DelegationView{}, err
	}

	if err := u.Repository.ApplyTransition(ctx, ports.TransitionInput{
		TenantID:        cmd.TenantID,
		Delegation:      updated,
		ExpectedStatus:  expectedStatus,
		ExpectedVersion: expectedVersion,
		Audit: auditLog(auditLogID, updated, cmd.ActorID, entities.AuditActionDelegationRevoked,
			fmt.Sprintf("delegation revoked: %s", reason), cmd.Audit, now),
		Envelope: envelope,
	}); err != nil {
		logger.Error("revoke delegation write failed",
			"event", "delegation_revoke_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", cmd.TenantID,
			"delegation_id", cmd.DelegationID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}

	logger.Info("revoke delegation completed",
		"event", "delegation_revoke_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
	)

	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, updated, now)
}
