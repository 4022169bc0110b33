package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/assetcache"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentProxy)
	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg.StateDBPath)
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	worker, err := assetcache.NewWorker(assetcache.Options{
		Origin:          cfg.AssetOrigin,
		CacheName:       cfg.CacheName(),
		Store:           store,
		HotSize:         cfg.HotCacheSize,
		HotTTL:          cfg.HotCacheTTL,
		RevalidateRPS:   float64(cfg.RevalidateRPS),
		UpstreamTimeout: cfg.UpstreamTimeout,
		Metrics:         assetcache.NewCollector(registry),
		Logger:          logger.WithComponent(log.ComponentAssetCache),
	})
	if err != nil {
		logger.Error("Failed to create asset cache worker", log.FieldError, err)
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := worker.Install(startupCtx); err != nil {
		logger.Error("Asset cache install failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := worker.Activate(startupCtx); err != nil {
		logger.Error("Asset cache activation failed", log.FieldError, err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	cacheManager.Register(worker)
	cacheManager.StartCleanup(time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Handle("/*", worker)

	srv := &http.Server{
		Addr:           ":" + cfg.ProxyPort,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		worker.Close()
		cacheManager.Stop()
	})

	logger.Info("Starting asset cache proxy",
		"port", cfg.ProxyPort,
		"origin", cfg.AssetOrigin,
		log.FieldCacheName, cfg.CacheName(),
		log.FieldOperation, log.OpStartup,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.ProxyPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Proxy stopped gracefully")
}
