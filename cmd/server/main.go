package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/airlift-ota/airlift/internal/configstore"
	"github.com/airlift-ota/airlift/internal/directory"
	"github.com/airlift-ota/airlift/internal/httpx"
	"github.com/airlift-ota/airlift/internal/pkg/cache"
	"github.com/airlift-ota/airlift/internal/pkg/telemetry"
	"github.com/airlift-ota/airlift/internal/provision"
	"github.com/airlift-ota/airlift/internal/saga"
	"github.com/airlift-ota/airlift/internal/store/sqlite"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "airlift-server"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	db, err := sqlite.Open(getEnv("DB_PATH", "./data/airlift.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	outboxRepo := sqlite.NewOutboxRepository(db)
	registryRepo := sqlite.NewRegistryRepository(db)

	dir := directory.NewHTTPClient(directory.Config{
		BaseURL:      getEnv("DIRECTORY_URL", "http://localhost:8180"),
		Realm:        getEnv("DIRECTORY_REALM", "airlift"),
		ClientID:     getEnv("DIRECTORY_CLIENT_ID", "airlift-server"),
		ClientSecret: os.Getenv("DIRECTORY_CLIENT_SECRET"),
	})

	configs := configstore.NewHTTPClient(configstore.Config{
		BaseURL:                  getEnv("CONFIGSTORE_URL", "http://localhost:8280"),
		OrgID:                    getEnv("CONFIGSTORE_ORG_ID", "default"),
		Token:                    os.Getenv("CONFIGSTORE_TOKEN"),
		WorkspaceDeleteSupported: getEnvBool("CONFIGSTORE_WORKSPACE_DELETE", false),
	})

	compensator := saga.NewCompensator(dir, configs)
	writer := saga.NewOutboxWriter(outboxRepo)

	reconciler := saga.NewReconciler(reconcilerConfig(), outboxRepo, compensator)
	reconciler.Start(ctx)

	groups := cache.NewRedisCache(getEnv("REDIS_ADDR", "localhost:6379"), "airlift")
	svc := provision.NewService(dir, configs, registryRepo, compensator, writer, groups)

	router := httpx.NewRouter(httpx.NewHandler(svc))
	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("provisioning API running", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}

func reconcilerConfig() saga.ReconcilerConfig {
	cfg := saga.DefaultReconcilerConfig()
	cfg.TickInterval = getEnvDuration("RECONCILER_TICK_INTERVAL", cfg.TickInterval)
	cfg.MinRetryInterval = getEnvDuration("RECONCILER_MIN_RETRY_INTERVAL", cfg.MinRetryInterval)
	cfg.MaxJobsPerRun = getEnvInt("RECONCILER_MAX_JOBS_PER_RUN", cfg.MaxJobsPerRun)
	cfg.MaxAttempts = getEnvInt("RECONCILER_MAX_ATTEMPTS", cfg.MaxAttempts)
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
