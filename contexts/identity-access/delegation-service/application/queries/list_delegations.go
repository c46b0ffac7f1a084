package queries

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// DelegationListResult is one page of hydrated delegations plus page metadata.
type DelegationListResult struct {
	Items      []application.DelegationView
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListDelegationsUseCase runs a filtered, paginated, tenant-scoped listing
// sorted by creation time descending.
type ListDelegationsUseCase struct {
	Repository ports.Repository
	Directory  ports.UserDirectory
	Catalog    ports.PermissionCatalog
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u ListDelegationsUseCase) Execute(ctx context.Context, tenantID string, filter ports.DelegationFilter) (DelegationListResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	page, err := u.Repository.ListDelegations(ctx, tenantID, filter)
	if err != nil {
		logger.Error("list delegations failed",
			"event", "delegation_list_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return DelegationListResult{}, err
	}

	now := u.now()
	items := make([]application.DelegationView, 0, len(page.Items))
	for _, delegation := range page.Items {
		view, err := application.HydrateDelegation(ctx, u.Directory, u.Catalog, delegation, now)
		if err != nil {
			return DelegationListResult{}, err
		}
		items = append(items, view)
	}

	return DelegationListResult{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}, nil
}

func (u ListDelegationsUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
