package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/missioncontrol/internal/adapter/anthropic"
	cfhttp "github.com/Strob0t/missioncontrol/internal/adapter/http"
	cfmcp "github.com/Strob0t/missioncontrol/internal/adapter/mcp"
	cfnats "github.com/Strob0t/missioncontrol/internal/adapter/nats"
	cfotel "github.com/Strob0t/missioncontrol/internal/adapter/otel"
	"github.com/Strob0t/missioncontrol/internal/adapter/postgres"
	"github.com/Strob0t/missioncontrol/internal/adapter/tokencache"
	"github.com/Strob0t/missioncontrol/internal/adapter/ws"
	"github.com/Strob0t/missioncontrol/internal/config"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/logger"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/resilience"
	"github.com/Strob0t/missioncontrol/internal/service"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"billing", cfg.Billing.AdminAPIKey != "",
		"nats_ingest", cfg.NATS.Ingest,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTEL, err := cfotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	tokenKV := optionalKV(ctx, queue, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	tokens, err := tokencache.New(cfg.Cache.L1MaxSizeMB, tokenKV, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	defer tokens.Close()

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	system := agent.SystemSpec{
		Name:   cfg.Agent.SystemName,
		Role:   cfg.Agent.SystemRole,
		Avatar: cfg.Agent.Avatar,
	}

	authSvc := service.NewAuthService(store, tokens)
	events := service.NewEventProcessor(store, hub, system, cfg.Tenant.DefaultID)
	events.SetMetrics(metrics)
	activities := service.NewActivityService(store)

	handlers := &cfhttp.Handlers{
		Events:     events,
		Dispatch:   service.NewDispatchService(store, queue, hub, system),
		Tasks:      service.NewTaskService(store, hub),
		Agents:     service.NewAgentService(store, system),
		Messages:   service.NewMessageService(store, hub),
		Documents:  service.NewDocumentService(store, hub),
		Activities: activities,
		Usage:      service.NewUsageService(store),
		Auth:       authSvc,
		Settings:   service.NewSettingsService(store),
	}

	if cfg.Billing.AdminAPIKey != "" {
		client := anthropic.NewClient(cfg.Billing.BaseURL, cfg.Billing.AdminAPIKey, cfg.Billing.APIVersion, cfg.Billing.Timeout)
		client.SetBreaker(resilience.NewNamedBreaker("billing", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		handlers.Reconciler = service.NewUsageReconciler(store, client, queue)
		handlers.Reconciler.SetMetrics(metrics)
	} else {
		slog.Warn("billing admin key not set, usage reconciliation disabled")
	}

	// --- Background work ---

	scheduler := service.NewScheduler()
	err = service.RegisterMaintenance(scheduler, service.MaintenanceSchedules{
		Daily:     cfg.Billing.DailySchedule,
		Hourly:    cfg.Billing.HourlySchedule,
		Retention: cfg.Tenant.RetentionSchedule,
	}, handlers.Reconciler, activities)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.NATS.Ingest {
		cancelIngest, err := service.SubscribeRunEvents(ctx, queue, events)
		if err != nil {
			return fmt.Errorf("run event subscriber: %w", err)
		}
		defer cancelIngest()
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	deps := cfhttp.RouteDeps{
		Tokens:    authSvc,
		LiveFeed:  hub.HandleWS,
		RateLimit: limiter.Handler,
	}
	if kv := optionalKV(ctx, queue, cfg.Idempotency.Bucket, cfg.Idempotency.TTL); kv != nil {
		deps.Idempotency = kv
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	cfhttp.MountRoutes(r, handlers, deps)

	if cfg.MCP.Enabled {
		mcpSrv := cfmcp.NewServer(cfmcp.ServerConfig{Addr: cfg.MCP.Addr, Name: "missioncontrol", Version: version}, cfmcp.ServerDeps{
			Tasks:    handlers.Tasks,
			Agents:   handlers.Agents,
			Messages: handlers.Messages,
			Dispatch: handlers.Dispatch,
			Usage:    handlers.Usage,
			Tokens:   authSvc,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(sctx)
		}()
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// optionalKV opens a JetStream KV bucket. A failure is logged and yields nil
// so that the caller runs without the bucket.
func optionalKV(ctx context.Context, q *cfnats.Queue, bucket string, ttl time.Duration) jetstream.KeyValue {
	kv, err := q.KeyValue(ctx, bucket, ttl)
	if err != nil {
		slog.Warn("nats kv unavailable", "bucket", bucket, "error", err)
		return nil
	}
	return kv
}
