package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// CreateDelegationCommand contains input for requesting a delegation grant.
type CreateDelegationCommand struct {
	TenantID          string
	DelegatorID       string
	DelegateID        string
	ApproverID        string
	Type              entities.DelegationType
	PermissionIDs     []string
	Title             string
	Description       string
	ExpiresAt         time.Time
	RequiresApproval  bool
	IsEmergency       bool
	IsRecurring       bool
	RecurrencePattern string
	Metadata          map[string]any
	Audit             AuditMeta
}

// CreateDelegationUseCase validates participants and permissions, then
// persists the delegation with its first audit record in one unit of work.
type CreateDelegationUseCase struct {
	Repository  ports.Repository
	Directory   ports.UserDirectory
	Catalog     ports.PermissionCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u CreateDelegationUseCase) Execute(ctx context.Context, cmd CreateDelegationCommand) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("create delegation started",
		"event", "delegation_create_started",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegator_id", cmd.DelegatorID,
		"delegate_id", cmd.DelegateID,
		"delegation_type", string(cmd.Type),
	)

	if !entities.IsSupportedDelegationType(cmd.Type) {
		return application.DelegationView{}, domainerrors.ErrInvalidDelegationType
	}

	if _, found, err := u.Directory.FindUser(ctx, cmd.TenantID, cmd.DelegateID); err != nil {
		return application.DelegationView{}, err
	} else if !found {
		return application.DelegationView{}, domainerrors.ErrDelegateNotFound
	}
	if _, found, err := u.Directory.FindUser(ctx, cmd.TenantID, cmd.DelegatorID); err != nil {
		return application.DelegationView{}, err
	} else if !found {
		return application.DelegationView{}, domainerrors.ErrDelegatorNotFound
	}
	approverID := strings.TrimSpace(cmd.ApproverID)
	if approverID != "" {
		if _, found, err := u.Directory.FindUser(ctx, cmd.TenantID, approverID); err != nil {
			return application.DelegationView{}, err
		} else if !found {
			return application.DelegationView{}, domainerrors.ErrApproverNotFound
		}
	}

	// All-or-nothing: a single unresolved permission id rejects the request.
	if len(cmd.PermissionIDs) > 0 {
		resolved, err := u.Catalog.ResolvePermissions(ctx, cmd.PermissionIDs)
		if err != nil {
			return application.DelegationView{}, err
		}
		if len(resolved) != len(cmd.PermissionIDs) {
			return application.DelegationView{}, domainerrors.ErrPermissionNotFound
		}
	}

	now := resolveNow(u.Clock)
	if !cmd.ExpiresAt.UTC().After(now) {
		return application.DelegationView{}, domainerrors.ErrExpiryNotInFuture
	}

	delegationID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}
	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return application.DelegationView{}, err
	}

	delegation := entities.Delegation{
		DelegationID:      delegationID,
		TenantID:          cmd.TenantID,
		DelegatorID:       cmd.DelegatorID,
		DelegateID:        cmd.DelegateID,
		ApproverID:        approverID,
		Type:              cmd.Type,
		PermissionIDs:     append([]string(nil), cmd.PermissionIDs...),
		Title:             strings.TrimSpace(cmd.Title),
		Description:       strings.TrimSpace(cmd.Description),
		Status:            entities.InitialStatus(cmd.RequiresApproval, approverID),
		RequiresApproval:  cmd.RequiresApproval,
		IsEmergency:       cmd.IsEmergency,
		IsRecurring:       cmd.IsRecurring,
		RecurrencePattern: strings.TrimSpace(cmd.RecurrencePattern),
		Metadata:          cmd.Metadata,
		RequestedAt:       now,
		ExpiresAt:         cmd.ExpiresAt.UTC(),
		Version:           1,
	}

	envelope, err := DelegationEnvelope(outboxID, EventDelegationCreated, delegation, cmd.DelegatorID, now)
	if err != nil {
		return application.DelegationView{}, err
	}

	details := fmt.Sprintf("delegation %q requested, expires %s", delegation.Title, delegation.ExpiresAt.Format(time.RFC3339))
	if delegation.IsEmergency {
		details += " (emergency)"
	}

	if err := u.Repository.CreateDelegation(ctx, ports.CreateDelegationInput{
		Delegation: delegation,
		Audit:      auditLog(auditLogID, delegation, cmd.DelegatorID, entities.AuditActionDelegationCreated, details, cmd.Audit, now),
		Envelope:   envelope,
	}); err != nil {
		logger.Error("create delegation write failed",
			"event", "delegation_create_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", cmd.TenantID,
			"delegator_id", cmd.DelegatorID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}

	logger.Info("create delegation completed",
		"event", "delegation_create_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"tenant_id", cmd.TenantID,
		"delegation_id", delegation.DelegationID,
		"status", string(delegation.Status),
	)

	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, delegation, now)
}
