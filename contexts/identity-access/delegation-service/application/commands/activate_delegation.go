package commands

import (
	"context"
	"log/slog"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// ActivateDelegationCommand contains input for the delegate taking up an
// approved grant. Confirm must be set; only the delegate may self-activate.
type ActivateDelegationCommand struct {
	TenantID     string
	DelegationID string
	ActorID      string
	Confirm      bool
	Audit        AuditMeta
}

type ActivateDelegationUseCase struct {
	Repository  ports.Repository
	Directory   ports.UserDirectory
	Catalog     ports.PermissionCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ActivateDelegationUseCase) Execute(ctx context.Context, cmd ActivateDelegationCommand) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("activate delegation started",
		"event", "delegation_activate_started",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
		"actor_id", cmd.ActorID,
	)

	if !cmd.Confirm {
		return application.DelegationView{}, domainerrors.ErrConfirmationRequired
	}

	delegation, err := u.Repository.GetDelegation(ctx, cmd.TenantID, cmd.DelegationID)
	if err != nil {
		return application.DelegationView{}, err
	}
	now := resolveNow(u.Clock)
	if !delegation.CanBeActivated(now) {
		if delegation.IsExpired(now) {
			return application.DelegationView{}, domainerrors.ErrDelegationExpired
		}
		return application.DelegationView{}, domainerrors.ErrInvalidStatus
	}
	if cmd.ActorID != delegation.DelegateID {
		return application.DelegationView{}, domainerrors.ErrNotDelegate
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
	updated.Status = entities.DelegationStatusActive
	activatedAt := now
	updated.ActivatedAt = &activatedAt
	updated.Version = expectedVersion + 1

	envelope, err := DelegationEnvelope(outboxID, EventDelegationActivated, updated, cmd.ActorID, now)
	if err != nil {
		return application.DelegationView{}, err
	}

	if err := u.Repository.ApplyTransition(ctx, ports.TransitionInput{
		TenantID:        cmd.TenantID,
		Delegation:      updated,
		ExpectedStatus:  entities.DelegationStatusApproved,
		ExpectedVersion: expectedVersion,
		Audit: auditLog(auditLogID, updated, cmd.ActorID, entities.AuditActionDelegationActivated,
			"delegation activated by delegate", cmd.Audit, now),
		Envelope: envelope,
	}); err != nil {
		logger.Error("activate delegation write failed",
			"event", "delegation_activate_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", cmd.TenantID,
			"delegation_id", cmd.DelegationID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}

	logger.Info("activate delegation completed",
		"event", "delegation_activate_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", cmd.DelegationID,
	)

	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, updated, now)
}
