package queries

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// GetDelegationUseCase loads one delegation within the caller's tenant and
// hydrates its projection. The stored status is not rewritten on read; expiry
// is visible through the derived fields.
type GetDelegationUseCase struct {
	Repository ports.Repository
	Directory  ports.UserDirectory
	Catalog    ports.PermissionCatalog
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u GetDelegationUseCase) Execute(ctx context.Context, tenantID string, delegationID string) (application.DelegationView, error) {
	logger := application.ResolveLogger(u.Logger)
	delegation, err := u.Repository.GetDelegation(ctx, tenantID, delegationID)
	if err != nil {
		logger.Debug("get delegation failed",
			"event", "delegation_get_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", tenantID,
			"delegation_id", delegationID,
			"error", err.Error(),
		)
		return application.DelegationView{}, err
	}
	return application.HydrateDelegation(ctx, u.Directory, u.Catalog, delegation, u.now())
}

func (u GetDelegationUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
