package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"github.com/porticohq/portico/pkg/api"
	"github.com/porticohq/portico/pkg/assistant"
	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/config"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/middleware"
	"github.com/porticohq/portico/pkg/notes"
	"github.com/porticohq/portico/pkg/observability"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "portico: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	obsLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Observability.LogLevel == observability.DebugLevel {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Directory database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	if err := directory.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := directory.NewPostgresStore(db)
	if err := directory.SeedModules(ctx, store, directory.DefaultModuleManifest()); err != nil {
		return fmt.Errorf("failed to seed module catalog: %w", err)
	}

	notesStore := notes.NewPostgresStore(db)
	if err := notesStore.EnsureSchema(ctx); err != nil {
		return err
	}
	assistantStore := assistant.NewPostgresStore(db)
	if err := assistantStore.EnsureSchema(ctx); err != nil {
		return err
	}

	// Audit trail
	auditLogger, sweeper, err := buildAuditLogger(cfg, db)
	if err != nil {
		return err
	}
	defer auditLogger.Close()
	if sweeper != nil {
		if err := sweeper.Start(cfg.Audit.RetentionSchedule); err != nil {
			return fmt.Errorf("failed to start audit retention sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	// Redis (optional, rate limiting + health)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, obsLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Core collaborators
	resolver, err := authn.NewResolver(store, cfg.Auth.TokenCacheSize,
		authn.WithCacheTTL(cfg.Auth.TokenCacheTTL))
	if err != nil {
		return err
	}
	engine := authz.NewEngine(store)
	manager := authz.NewManager(store, auditLogger)

	gateOpts := []authz.GateOption{authz.WithAuditLogger(auditLogger)}
	if recorder := buildDecisionRecorder(cfg, metrics, obsLogger); recorder != nil {
		gateOpts = append(gateOpts, authz.WithDecisionRecorder(recorder))
	}
	gate := authz.NewGate(engine, logger, gateOpts...)

	notesService := notes.NewService(notesStore, engine)
	assistantService := assistant.NewService(assistantStore, engine, nil)

	serverOpts := []api.ServerOption{
		api.WithAuditLogger(auditLogger),
		api.WithRateLimiter(buildRateLimiter(cfg, redisClient, metrics)),
	}
	if cfg.Observability.OTelEnabled {
		serverOpts = append(serverOpts, api.WithTracing())
	}
	apiServer := api.NewServer(store, engine, manager, gate, resolver,
		notesService, assistantService, logger, serverOpts...)

	// Outer middleware: request IDs, metrics, panic recovery.
	handler := apiServer.Handler()
	handler = observability.RecoveryMiddleware(obsLogger)(handler)
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	handler = middleware.RequestID(handler)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient, version)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(obsLogger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("health server", healthServer.Shutdown)
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, obsLogger)
		})
	}

	obsLogger.WithFields(map[string]interface{}{
		"addr":        httpServer.Addr,
		"health_addr": healthServer.Addr,
		"version":     version,
	}).Info("starting portico")

	var g errgroup.Group
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)
	return g.Wait()
}

// buildAuditLogger assembles the audit sink per configuration: db, file,
// both (fanout), or none. The retention sweeper is returned only when a db
// sink exists and retention is enabled.
func buildAuditLogger(cfg *config.Config, db *sql.DB) (audit.Logger, *audit.RetentionSweeper, error) {
	var loggers []audit.Logger
	var dbLogger *audit.DBLogger

	switch cfg.Audit.Sink {
	case "none":
		return audit.NoopLogger{}, nil, nil
	case "db", "both":
		l, err := audit.NewDBLogger(db)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create db audit logger: %w", err)
		}
		dbLogger = l
		loggers = append(loggers, l)
	}
	switch cfg.Audit.Sink {
	case "file", "both":
		l, err := audit.NewFileLogger(cfg.Audit.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file audit logger: %w", err)
		}
		loggers = append(loggers, l)
	}

	var sweeper *audit.RetentionSweeper
	if dbLogger != nil && cfg.Audit.RetentionDays > 0 {
		retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
		sweeper = audit.NewRetentionSweeper(dbLogger, retention, nil)
	}

	if len(loggers) == 1 {
		return loggers[0], sweeper, nil
	}
	return audit.NewMultiLogger(loggers...), sweeper, nil
}

// decisionRecorder fans authorization outcomes out to Prometheus and, when
// tracing is on, to the OTLP metric instruments.
type decisionRecorder struct {
	prom *observability.Metrics
	otel *observability.OTelMetrics
}

func (r *decisionRecorder) RecordAuthzDecision(moduleSlug, outcome string) {
	if r.prom != nil {
		r.prom.RecordAuthzDecision(moduleSlug, outcome)
	}
	if r.otel != nil {
		r.otel.RecordAuthzDecision(context.Background(), moduleSlug, outcome)
	}
}

func buildDecisionRecorder(cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger) authz.DecisionRecorder {
	recorder := &decisionRecorder{prom: metrics}
	if cfg.Observability.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Warn("otel metric instruments unavailable, continuing without them")
		} else {
			recorder.otel = otelMetrics
		}
	}
	if recorder.prom == nil && recorder.otel == nil {
		return nil
	}
	return recorder
}

// buildRateLimiter prefers the Redis-backed distributed limiter; without
// Redis it falls back to the in-memory token bucket.
func buildRateLimiter(cfg *config.Config, redisClient *redis.Client, metrics *observability.Metrics) func(http.Handler) http.Handler {
	if redisClient != nil {
		limiter := middleware.NewDistributedRateLimitMiddleware(redisClient)
		if metrics != nil {
			limiter.SetRejectionRecorder(metrics)
		}
		return limiter.Handler
	}
	return middleware.NewRateLimitMiddleware().Handler
}
