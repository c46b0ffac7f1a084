package queries

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// GetDelegationStatsUseCase aggregates a tenant's delegations: counts per
// status, emergency count, current-calendar-month creations, and the mean
// grant duration in hours across all delegations regardless of status.
type GetDelegationStatsUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u GetDelegationStatsUseCase) Execute(ctx context.Context, tenantID string) (ports.DelegationStats, error) {
	logger := application.ResolveLogger(u.Logger)

	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}

	stats, err := u.Repository.GetDelegationStats(ctx, tenantID, now)
	if err != nil {
		logger.Error("delegation stats failed",
			"event", "delegation_stats_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return ports.DelegationStats{}, err
	}
	return stats, nil
}
