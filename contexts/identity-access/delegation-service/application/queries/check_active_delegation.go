package queries

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// CheckActiveDelegationUseCase is the read path consulted by the
// authorization layer on every permission check involving a potential
// delegate. It must stay cheap and side-effect-free: one tenant-scoped index
// read, no writes, no hydration.
type CheckActiveDelegationUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u CheckActiveDelegationUseCase) Execute(ctx context.Context, tenantID string, userID string, permissionIDs []string) (bool, error) {
	logger := application.ResolveLogger(u.Logger)

	if len(permissionIDs) == 0 {
		return false, nil
	}

	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}

	active, err := u.Repository.ListActiveByDelegate(ctx, tenantID, userID, now)
	if err != nil {
		logger.Error("active delegation check failed",
			"event", "delegation_check_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", tenantID,
			"user_id", userID,
			"error", err.Error(),
		)
		return false, err
	}

	for _, delegation := range active {
		if !delegation.IsActive(now) {
			continue
		}
		if delegation.GrantsAny(permissionIDs) {
			return true, nil
		}
	}
	return false, nil
}
