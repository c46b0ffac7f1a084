package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	delegation "tenantkit/contexts/identity-access/delegation-service"
	"tenantkit/contexts/identity-access/delegation-service/adapters/events"
	postgresadapter "tenantkit/contexts/identity-access/delegation-service/adapters/postgres"
	"tenantkit/internal/platform/config"
	"tenantkit/internal/platform/db"
	"tenantkit/internal/platform/httpserver"
	"tenantkit/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	module        delegation.Module
	sweepInterval time.Duration
	relayInterval time.Duration
	enableSweep   bool
	enableRelay   bool
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	module := buildModule(pg, kafka, cfg, logger)
	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		postgres:      pg,
		module:        buildModule(pg, kafka, cfg, logger),
		sweepInterval: cfg.SweepInterval,
		relayInterval: cfg.RelayInterval,
		enableSweep:   cfg.EnableExpirySweep,
		enableRelay:   cfg.EnableOutboxRelay,
		logger:        logger,
	}, nil
}

func buildModule(pg *db.Postgres, kafka *messaging.Kafka, cfg config.Config, logger *slog.Logger) delegation.Module {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	publisher := events.NewPublisher(kafka, cfg.DelegationTopic, logger)

	return delegation.NewModule(delegation.Dependencies{
		Repository:     repo,
		Directory:      repo,
		Catalog:        repo,
		Outbox:         repo,
		Publisher:      publisher,
		Clock:          postgresadapter.SystemClock{},
		IDGenerator:    postgresadapter.UUIDGenerator{},
		SweepBatchSize: cfg.SweepBatchSize,
		RelayBatchSize: cfg.RelayBatchSize,
		Logger:         logger,
	})
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run drives both schedules: the outbox relay on a short poll and the
// expiry sweep on its own interval, hourly by default. A failed pass is
// logged and retried on the next tick rather than stopping the process.
func (w *WorkerApp) Run(ctx context.Context) error {
	relayTicker := time.NewTicker(w.relayInterval)
	defer relayTicker.Stop()
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"relay_interval", w.relayInterval.String(),
		"sweep_interval", w.sweepInterval.String(),
	)

	if w.enableSweep {
		w.runSweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-relayTicker.C:
			if !w.enableRelay {
				continue
			}
			if err := w.module.Relay.RunOnce(ctx); err != nil {
				w.logger.Error("outbox relay pass failed",
					"event", "bootstrap_relay_pass_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		case <-sweepTicker.C:
			if !w.enableSweep {
				continue
			}
			w.runSweep(ctx)
		}
	}
}

func (w *WorkerApp) runSweep(ctx context.Context) {
	expired, err := w.module.Sweeper.RunOnce(ctx)
	if err != nil {
		w.logger.Error("expiry sweep pass failed",
			"event", "bootstrap_sweep_pass_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}
	if len(expired) > 0 {
		w.logger.Info("expiry sweep pass completed",
			"event", "bootstrap_sweep_pass_completed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"expired_count", len(expired),
		)
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
