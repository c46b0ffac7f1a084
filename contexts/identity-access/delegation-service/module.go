package delegation

import (
	"log/slog"

	httpadapter "tenantkit/contexts/identity-access/delegation-service/adapters/http"
	"tenantkit/contexts/identity-access/delegation-service/adapters/memory"
	"tenantkit/contexts/identity-access/delegation-service/application/commands"
	"tenantkit/contexts/identity-access/delegation-service/application/queries"
	"tenantkit/contexts/identity-access/delegation-service/application/workers"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// Module is the delegation-service composition root exposed to runtime wiring.
type Module struct {
	Handler httpadapter.Handler
	Sweeper workers.ExpirationSweeper
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Repository     ports.Repository
	Directory      ports.UserDirectory
	Catalog        ports.PermissionCatalog
	Outbox         ports.OutboxRepository
	Publisher      ports.NotificationPublisher
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	SweepBatchSize int
	RelayBatchSize int
	Logger         *slog.Logger
}

// NewModule wires delegation use-cases, workers and the transport handler
// using explicit ports.
func NewModule(deps Dependencies) Module {
	createDelegation := commands.CreateDelegationUseCase{
		Repository:  deps.Repository,
		Directory:   deps.Directory,
		Catalog:     deps.Catalog,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	approveDelegation := commands.ApproveDelegationUseCase{
		Repository:  deps.Repository,
		Directory:   deps.Directory,
		Catalog:     deps.Catalog,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	rejectDelegation := commands.RejectDelegationUseCase{
		Repository:  deps.Repository,
		Directory:   deps.Directory,
		Catalog:     deps.Catalog,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	activateDelegation := commands.ActivateDelegationUseCase{
		Repository:  deps.Repository,
		Directory:   deps.Directory,
		Catalog:     deps.Catalog,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	revokeDelegation := commands.RevokeDelegationUseCase{
		Repository:  deps.Repository,
		Directory:   deps.Directory,
		Catalog:     deps.Catalog,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}

	getDelegation := queries.GetDelegationUseCase{
		Repository: deps.Repository,
		Directory:  deps.Directory,
		Catalog:    deps.Catalog,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	listDelegations := queries.ListDelegationsUseCase{
		Repository: deps.Repository,
		Directory:  deps.Directory,
		Catalog:    deps.Catalog,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	delegationStats := queries.GetDelegationStatsUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	checkActive := queries.CheckActiveDelegationUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	listAuditLogs := queries.ListAuditLogsUseCase{
		Repository: deps.Repository,
		Directory:  deps.Directory,
		Logger:     deps.Logger,
	}

	handler := httpadapter.Handler{
		CreateDelegation:   createDelegation,
		ApproveDelegation:  approveDelegation,
		RejectDelegation:   rejectDelegation,
		ActivateDelegation: activateDelegation,
		RevokeDelegation:   revokeDelegation,
		GetDelegation:      getDelegation,
		ListDelegations:    listDelegations,
		DelegationStats:    delegationStats,
		CheckActive:        checkActive,
		ListAuditLogs:      listAuditLogs,
		Clock:              deps.Clock,
		Logger:             deps.Logger,
	}

	sweeper := workers.ExpirationSweeper{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		BatchSize:   deps.SweepBatchSize,
		Logger:      deps.Logger,
	}
	relay := workers.OutboxRelay{
		Outbox:    deps.Outbox,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		BatchSize: deps.RelayBatchSize,
		Logger:    deps.Logger,
	}

	return Module{
		Handler: handler,
		Sweeper: sweeper,
		Relay:   relay,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters seeded with the given directory users and catalog permissions.
func NewInMemoryModule(
	users []entities.User,
	permissions []entities.Permission,
	publisher ports.NotificationPublisher,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(users, permissions)
	module := NewModule(Dependencies{
		Repository:  store,
		Directory:   store,
		Catalog:     store,
		Outbox:      store,
		Publisher:   publisher,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
