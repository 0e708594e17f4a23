package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netmap3d/viz-go/internal/collector"
	"netmap3d/viz-go/internal/db"
	"netmap3d/viz-go/internal/httpapi"
	"netmap3d/viz-go/internal/inventory"
	"netmap3d/viz-go/internal/manifest"
	"netmap3d/viz-go/internal/metrics"
	"netmap3d/viz-go/internal/render"
	"netmap3d/viz-go/internal/topology"
)

func main() {
	addr := envOr("HTTP_ADDR", ":8081")
	logLevel := envOr("LOG_LEVEL", "info")
	databaseURL := envOr("DATABASE_URL", "")
	manifestSource := envOr("MODEL_MANIFEST", "")
	repollDelay := envDurationOr("COLLECT_REPOLL_DELAY", 10*time.Second)

	logger := httpapi.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var pool *db.Pool
	var source inventory.Source
	var sink inventory.Sink
	if databaseURL != "" {
		p, err := db.Open(ctx, databaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
		store := inventory.NewStore(p.Pgx())
		source = store
		sink = store
	} else {
		static := inventory.NewStaticSource()
		source = static
		sink = static
	}

	var registry *manifest.Registry
	if manifestSource != "" {
		registry = manifest.NewLoader(logger).Load(ctx, manifestSource)
		m.ObserveManifestLoad(registry.Len())
	}

	builder := topology.NewBuilder(logger)

	dispatcher := render.NewDispatcher()
	renderer := render.New(logger, dispatcher, render.Options{Engine: render.Headless()})
	if err := renderer.Init(); err != nil {
		logger.Error().Err(err).Msg("renderer unavailable, scene endpoints degraded")
	}

	coll := collector.New(logger, source, m, collector.Options{RepollDelay: repollDelay}, func(devices []inventory.DeviceRecord) {
		graph := builder.Build(devices, nil)
		m.IncTopologyBuild()
		if err := renderer.LoadData(render.FromGraph(graph)); err != nil {
			logger.Warn().Err(err).Msg("scene refresh after collection skipped")
			return
		}
		m.IncSceneLoad()
	})

	h := httpapi.NewHandler(logger, httpapi.Deps{
		Pool:      pool,
		Source:    source,
		Sink:      sink,
		Registry:  registry,
		Builder:   builder,
		Renderer:  renderer,
		Collector: coll,
		Metrics:   m,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("viz-go listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
