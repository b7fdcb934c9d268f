// Command registry serves the prompt artifact registry: versioned
// content, diffs, benchmark results, quality gates, and history export.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptops-labs/promptops-go/internal/benchmark"
	"github.com/promptops-labs/promptops-go/internal/diffengine"
	"github.com/promptops-labs/promptops-go/internal/export"
	"github.com/promptops-labs/promptops-go/internal/gates"
	"github.com/promptops-labs/promptops-go/internal/platform/env"
	"github.com/promptops-labs/promptops-go/internal/platform/httpserver"
	"github.com/promptops-labs/promptops-go/internal/platform/objectstore"
	"github.com/promptops-labs/promptops-go/internal/platform/postgres"
	repopg "github.com/promptops-labs/promptops-go/internal/repo/postgres"
	"github.com/promptops-labs/promptops-go/internal/rollout"
	"github.com/promptops-labs/promptops-go/internal/versionstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("REGISTRY_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("REGISTRY_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	diffMaxLines, err := env.Int("REGISTRY_DIFF_MAX_LINES", diffengine.DefaultMaxLines)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	diffCacheSize, err := env.Int("REGISTRY_DIFF_CACHE_SIZE", diffengine.DefaultCacheSize)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	gateThreshold, err := env.Float("REGISTRY_GATE_THRESHOLD", benchmark.DefaultGateThreshold)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	gatesSpecPath := env.String("REGISTRY_GATES_SPEC", "gates.yaml")

	gateSpec := gates.DefaultSpec()
	specBytes, err := os.ReadFile(gatesSpecPath)
	switch {
	case err == nil:
		gateSpec, err = gates.ParseSpec(specBytes)
		if err != nil {
			logger.Error("invalid gates spec", "path", gatesSpecPath, "error", err)
			os.Exit(2)
		}
	case os.IsNotExist(err):
		logger.Info("gates spec not found, using built-in defaults", "path", gatesSpecPath)
	default:
		logger.Error("read gates spec", "path", gatesSpecPath, "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	diffCache, err := diffengine.NewCache(diffCacheSize)
	if err != nil {
		logger.Error("diff cache init failed", "error", err)
		os.Exit(2)
	}

	artifacts := repopg.NewArtifactStore(db)
	versions := repopg.NewVersionStore(db)
	results := repopg.NewBenchmarkStore(db)
	audit := repopg.NewAuditStore(db)

	store := versionstore.NewStore(artifacts, versions, diffengine.New(diffMaxLines), diffCache, audit, logger)
	recorder := benchmark.NewRecorder(versions, results)
	rolloutFacade := rollout.NewFacade(gateSpec, versions, results)
	exporter := export.NewExporter(versions, results, storeClient, storeCfg.BucketExports, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("registry"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"registry",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)

	api := newRegistryAPI(logger, store, artifacts, results, recorder, rolloutFacade, exporter)
	api.gateThreshold = gateThreshold
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "registry",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "registry", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
