package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/factflow-systems/factflow/common/logging"
	natsclient "github.com/factflow-systems/factflow/common/messaging/nats"
	"github.com/factflow-systems/factflow/ingest/internal/adapter"
	"github.com/factflow-systems/factflow/ingest/internal/agentsync"
	"github.com/factflow-systems/factflow/ingest/internal/config"
	"github.com/factflow-systems/factflow/ingest/internal/dims"
	"github.com/factflow-systems/factflow/ingest/internal/dlq"
	"github.com/factflow-systems/factflow/ingest/internal/handlers"
	"github.com/factflow-systems/factflow/ingest/internal/ledger"
	"github.com/factflow-systems/factflow/ingest/internal/pipeline"
	"github.com/factflow-systems/factflow/ingest/internal/powerbi"
	"github.com/factflow-systems/factflow/ingest/internal/ratelimit"
	"github.com/factflow-systems/factflow/ingest/internal/roster"
	"github.com/factflow-systems/factflow/ingest/internal/server"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingest"))
	logging.SetDefault(logger)

	slog.Info("Starting Ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("ledger_backend", cfg.Ledger.Backend),
		slog.String("sink_backend", cfg.Sink.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readyChecks := map[string]handlers.Check{}

	// Shared Redis client for ledger, dimension memo and rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		readyChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		slog.Info("Redis connected", slog.String("url", cfg.Redis.URL))
	}

	// Idempotency ledger
	ledgerOpts := ledger.Options{TTL: cfg.Ledger.TTL}
	var l ledger.Ledger
	switch cfg.Ledger.Backend {
	case config.LedgerRedis:
		l = ledger.NewRedisLedger(redisClient, cfg.Ledger.KeyPrefix, ledgerOpts)
	case config.LedgerPostgres:
		if err := ledger.Migrate(cfg.Ledger.Postgres.MigrationsPath, cfg.Ledger.Postgres.DSN); err != nil {
			log.Fatalf("Failed to migrate ledger schema: %v", err)
		}
		pg, err := ledger.NewPostgresLedger(ctx, cfg.Ledger.Postgres.DSN, ledgerOpts)
		if err != nil {
			log.Fatalf("Failed to connect ledger database: %v", err)
		}
		defer pg.Close()
		go pg.RunSweeper(ctx, cfg.Ledger.Postgres.SweepInterval, func(n int64, err error) {
			if err != nil {
				logger.Warn("ledger sweep failed", logging.Error(err))
				return
			}
			logger.Debug("swept expired ledger entries", logging.Count(int(n)))
		})
		readyChecks["postgres"] = pg.Ping
		l = pg
	default:
		l = ledger.NewMemoryLedger(ledgerOpts)
		slog.Warn("Using in-memory ledger; duplicates are only suppressed within this process")
	}
	slog.Info("Ledger ready", slog.String("backend", cfg.Ledger.Backend), slog.Duration("ttl", cfg.Ledger.TTL))

	// Analytics table writer
	writer, err := newTableWriter(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize %s sink: %v", cfg.Sink.Backend, err)
	}
	if osw, ok := writer.(*sink.OpenSearchWriter); ok {
		readyChecks["opensearch"] = osw.Ping
	}

	// Dimension memo
	var memo dims.Memo
	if redisClient != nil {
		memo = dims.NewRedisMemo(redisClient, "")
	} else {
		memo = dims.NewMemoryMemo()
	}
	goals, err := cfg.MetricGoals()
	if err != nil {
		log.Fatalf("Invalid metric goals: %v", err)
	}
	dimsService := dims.NewService(writer, memo, goals, logger)

	// Classification rules and adapters
	rules, err := adapter.LoadRules(cfg.Adapter.RulesPath)
	if err != nil {
		log.Fatalf("Failed to load classification rules: %v", err)
	}
	registry := adapter.NewRegistry(
		adapter.NewAloware(rules, logger),
		adapter.NewHubSpot(rules, logger),
	)

	// Roster gate and agent sync share the Aloware client
	aloware := roster.NewAlowareClient(cfg.Aloware.BaseURL, cfg.Aloware.APIToken, cfg.Aloware.Timeout)
	var rosterFilter *roster.Filter
	if groups := cfg.RosterGroups(); len(groups) > 0 {
		rosterFilter = roster.NewFilter(aloware, groups, logger)
		slog.Info("Roster filter enabled", slog.String("ring_group_id", cfg.Aloware.RingGroupID))
	}
	var syncer handlers.AgentSyncer
	if cfg.Aloware.RingGroupID != "" {
		syncer = agentsync.NewService(aloware, writer, memo, cfg.Aloware.RingGroupID, logger)
	}

	orchestrator := pipeline.New(registry, rosterFilter, l, dimsService, sink.NewFactSink(writer, logger), logger)

	// Rate limiting
	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if redisClient != nil && cfg.Ingestion.RateLimitEnabled {
		limiter = ratelimit.NewRedisRateLimiter(redisClient, cfg.Ingestion.RateLimitRequests, cfg.Ingestion.RateLimitWindow)
		slog.Info("Rate limiting enabled",
			slog.Int("requests", cfg.Ingestion.RateLimitRequests),
			slog.Duration("window", cfg.Ingestion.RateLimitWindow),
		)
	} else {
		slog.Info("Rate limiting disabled")
	}

	// Dead letter queue
	dlqWriter, closeDLQ, err := newDLQ(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize DLQ: %v", err)
	}
	defer closeDLQ()

	handler := handlers.New(handlers.Options{
		Ingester:      orchestrator,
		AgentSync:     syncer,
		Limiter:       limiter,
		DLQ:           dlqWriter,
		ReadyChecks:   readyChecks,
		MaxBodyBytes:  cfg.Ingestion.MaxBodyBytes,
		HubSpotSecret: cfg.HubSpot.ClientSecret,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func newTableWriter(ctx context.Context, cfg *config.Config, logger *logging.Logger) (sink.TableWriter, error) {
	switch cfg.Sink.Backend {
	case config.SinkPowerBI:
		pb := cfg.Sink.PowerBI
		return powerbi.NewWriter(ctx, powerbi.Config{
			TenantID:     pb.TenantID,
			ClientID:     pb.ClientID,
			ClientSecret: pb.ClientSecret,
			WorkspaceID:  pb.WorkspaceID,
			DatasetID:    pb.DatasetID,
			BaseURL:      pb.BaseURL,
			AuthorityURL: pb.AuthorityURL,
			Timeout:      pb.Timeout,
		}, logger)
	case config.SinkOpenSearch:
		osc := cfg.Sink.OpenSearch
		return sink.NewOpenSearchWriter(sink.OpenSearchConfig{
			URL:           osc.URL,
			Username:      osc.Username,
			Password:      osc.Password,
			TLSSkipVerify: osc.TLSSkipVerify,
			IndexPrefix:   osc.IndexPrefix,
		}, logger)
	default:
		slog.Warn("Using log sink; rows are logged and not stored")
		return sink.NewLogWriter(logger), nil
	}
}

func newDLQ(ctx context.Context, cfg *config.Config, logger *logging.Logger) (dlq.Writer, func(), error) {
	noop := func() {}
	if !cfg.DLQ.Enabled {
		slog.Info("Dead Letter Queue disabled")
		return nil, noop, nil
	}

	switch cfg.DLQ.Backend {
	case config.DLQJetStream:
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.DLQ.NATSURL
		js, err := natsclient.NewJetStreamClient(natsCfg)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to nats: %w", err)
		}
		q, err := dlq.NewJetStreamQueue(ctx, js, logger)
		if err != nil {
			js.Close()
			return nil, noop, err
		}
		slog.Info("Dead Letter Queue enabled", slog.String("backend", "jetstream"), slog.String("nats", cfg.DLQ.NATSURL))
		return q, func() { js.Close() }, nil
	default:
		q, err := dlq.NewQueue(cfg.DLQ.BasePath, logger)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Dead Letter Queue enabled", slog.String("backend", "file"), slog.String("path", cfg.DLQ.BasePath))
		slog.Warn("File-based DLQ does not support multiple ingest instances")
		return q, noop, nil
	}
}
