package queries

import (
	"context"
	"log/slog"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// AuditLogView is one audit record with the acting user's identity resolved.
type AuditLogView struct {
	Entry entities.AuditLog
	Actor application.ParticipantView
}

// ListAuditLogsUseCase returns a delegation's audit trail newest-first.
type ListAuditLogsUseCase struct {
	Repository ports.Repository
	Directory  ports.UserDirectory
	Logger     *slog.Logger
}

func (u ListAuditLogsUseCase) Execute(ctx context.Context, tenantID string, delegationID string) ([]AuditLogView, error) {
	logger := application.ResolveLogger(u.Logger)

	// Existence check keeps cross-tenant probing indistinguishable from a
	// missing delegation.
	if _, err := u.Repository.GetDelegation(ctx, tenantID, delegationID); err != nil {
		return nil, err
	}

	entries, err := u.Repository.ListAuditLogs(ctx, tenantID, delegationID)
	if err != nil {
		logger.Error("list audit logs failed",
			"event", "delegation_audit_list_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", tenantID,
			"delegation_id", delegationID,
			"error", err.Error(),
		)
		return nil, err
	}

	resolved := make(map[string]application.ParticipantView)
	items := make([]AuditLogView, 0, len(entries))
	for _, entry := range entries {
		actor, ok := resolved[entry.UserID]
		if !ok {
			actor = application.ParticipantView{UserID: entry.UserID}
			if user, found, err := u.Directory.FindUser(ctx, tenantID, entry.UserID); err != nil {
				return nil, err
			} else if found {
				actor = application.ParticipantView{UserID: user.UserID, Name: user.Name, Email: user.Email}
			}
			resolved[entry.UserID] = actor
		}
		items = append(items, AuditLogView{Entry: entry, Actor: actor})
	}
	return items, nil
}
