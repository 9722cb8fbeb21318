package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	marketplaceledger "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger"
	natsadapter "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/adapters/nats"
	postgresadapter "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/adapters/postgres"
	workerapp "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application/workers"
	"github.com/dionatanalves/croakmarket/internal/platform/config"
	"github.com/dionatanalves/croakmarket/internal/platform/db"
	"github.com/dionatanalves/croakmarket/internal/platform/httpserver"
	"github.com/dionatanalves/croakmarket/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	natsConn     *nats.Conn
	relay        workerapp.EventRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var (
		pg     *db.Postgres
		module marketplaceledger.Module
	)
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		module = marketplaceledger.NewModule(marketplaceledger.Dependencies{
			Items:           repo,
			Auctions:        repo,
			Treasury:        repo,
			Events:          repo,
			Clock:           repo,
			IDGenerator:     postgresadapter.IDGenerator{},
			FeePercent:      cfg.FeePercent,
			OperatorAccount: cfg.OperatorAccount,
			Logger:          logger,
		})
	} else {
		// Dev fallback keeps the whole ledger in one process.
		module = marketplaceledger.NewInMemoryModule(cfg.FeePercent, cfg.OperatorAccount, logger)
	}

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
	repo := postgresadapter.NewRepository(pg.DB, logger)

	app := &WorkerApp{
		postgres:     pg,
		pollInterval: time.Duration(cfg.EventRelayInterval) * time.Second,
		logger:       logger,
	}

	relay := workerapp.EventRelay{
		Events:    repo,
		Clock:     repo,
		Subject:   cfg.EventRelaySubject,
		BatchSize: cfg.EventRelayBatch,
		Logger:    logger,
	}
	if strings.TrimSpace(cfg.NatsURL) != "" {
		conn, err := nats.Connect(cfg.NatsURL, nats.Name(cfg.ServiceName+"-worker"))
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		app.natsConn = conn
		relay.Publisher = natsadapter.NewPublisher(conn, logger)
	} else {
		relay.Publisher = messaging.NewBus(logger)
	}
	app.relay = relay
	return app, nil
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

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.relay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.natsConn != nil {
		w.natsConn.Close()
	}
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
