package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stvcounting "wrightstv/contexts/elections/stv-counting"
	"wrightstv/contexts/elections/stv-counting/adapters/memory"
	postgresadapter "wrightstv/contexts/elections/stv-counting/adapters/postgres"
	workerapp "wrightstv/contexts/elections/stv-counting/application/workers"
	"wrightstv/contexts/elections/stv-counting/domain/stv"
	"wrightstv/internal/platform/config"
	"wrightstv/internal/platform/db"
	"wrightstv/internal/platform/httpserver"
	"wrightstv/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	// relay is set only for memory storage, where the outbox lives in the
	// API process and no separate worker can reach it.
	relay  *relayLoop
	logger *slog.Logger
}

type WorkerApp struct {
	postgres  *db.Postgres
	relay     *relayLoop
	announcer workerapp.CountAnnouncer
	logger    *slog.Logger
}

type relayLoop struct {
	outboxRelay  workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	return buildAPI(cfg, logger)
}

func buildAPI(cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	tieBreak, err := stv.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore(nil)
		module := stvcounting.NewModule(stvcounting.Dependencies{
			Elections:      store,
			Idempotency:    store,
			Outbox:         store,
			Clock:          store,
			IDGen:          store,
			IdempotencyTTL: cfg.IdempotencyTTL,
			TieBreak:       tieBreak,
			Logger:         logger,
		})
		module.Store = store

		app := &APIApp{
			server: httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
			logger: logger,
		}
		if cfg.EnableOutboxRelay {
			kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
			if err != nil {
				return nil, err
			}
			app.relay = &relayLoop{
				outboxRelay: workerapp.OutboxRelay{
					Outbox:    store,
					Publisher: kafka,
					Clock:     store,
					BatchSize: cfg.OutboxBatchSize,
					Logger:    logger,
				},
				pollInterval: cfg.OutboxPollInterval,
				logger:       logger,
			}
		}
		return app, nil

	case config.StoragePostgres:
		pg, repo, err := connectRepository(cfg, logger)
		if err != nil {
			return nil, err
		}
		module := stvcounting.NewModule(stvcounting.Dependencies{
			Elections:      repo,
			Idempotency:    repo,
			Outbox:         repo,
			Clock:          postgresadapter.SystemClock{},
			IDGen:          postgresadapter.UUIDGenerator{},
			IdempotencyTTL: cfg.IdempotencyTTL,
			TieBreak:       tieBreak,
			Logger:         logger,
		})
		return &APIApp{
			server:   httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
			postgres: pg,
			logger:   logger,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageDriver != config.StoragePostgres {
		return nil, errors.New("worker requires STORAGE_DRIVER=postgres")
	}
	pg, repo, err := connectRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	app := &WorkerApp{
		postgres: pg,
		announcer: workerapp.CountAnnouncer{
			Subscriber: kafka,
			Disabled:   !cfg.EnableOutboxRelay,
			Logger:     logger,
		},
		logger: logger,
	}
	if cfg.EnableOutboxRelay {
		app.relay = &relayLoop{
			outboxRelay: workerapp.OutboxRelay{
				Outbox:    repo,
				Publisher: kafka,
				Clock:     postgresadapter.SystemClock{},
				BatchSize: cfg.OutboxBatchSize,
				Logger:    logger,
			},
			pollInterval: cfg.OutboxPollInterval,
			logger:       logger,
		}
	}
	return app, nil
}

func connectRepository(cfg config.Config, logger *slog.Logger) (*db.Postgres, *postgresadapter.Repository, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Migrate(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, fmt.Errorf("migrate election tables: %w", err)
	}
	return pg, repo, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"in_process_relay", a.relay != nil,
		)
	}
	if a.relay != nil {
		go func() {
			if err := a.relay.run(ctx); err != nil {
				a.logger.Error("in-process outbox relay stopped",
					"event", "bootstrap_api_relay_stopped",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}()
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.announcer.Start(ctx); err != nil {
		return err
	}
	if w.relay == nil {
		w.logger.Info("worker app idle: outbox relay disabled",
			"event", "bootstrap_worker_idle",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		<-ctx.Done()
		return nil
	}
	return w.relay.run(ctx)
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func (l *relayLoop) run(ctx context.Context) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	l.logger.Info("outbox relay loop started",
		"event", "bootstrap_relay_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", l.pollInterval.String(),
	)

	for {
		if err := l.outboxRelay.RunOnce(ctx); err != nil {
			// A failed batch stays pending and is retried on the next tick.
			l.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_relay_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
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
