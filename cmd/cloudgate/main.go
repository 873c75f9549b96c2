// Package main provides the entry point for the cloudgate server.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openvis/cloudgate/internal/admin"
	"github.com/openvis/cloudgate/internal/config"
	"github.com/openvis/cloudgate/internal/metrics"
	"github.com/openvis/cloudgate/internal/service"
	"github.com/openvis/cloudgate/internal/storage"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(parseLogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Init(registry); err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	serviceRegistry := service.NewRegistry(map[string]service.Descriptor{
		service.AzureType: service.NewAzureDescriptor(service.AzureConfig{
			LoginURL:      cfg.AzureLoginURL,
			ManagementURL: cfg.AzureManagementURL,
		}),
	})

	store, err := storage.New(cfg.DatabasePath, cfg.EncryptionKey, serviceRegistry)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close() //nolint:errcheck
	}()

	handler := admin.NewHandler(store, serviceRegistry, cfg.BootstrapToken, logLevel, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsListenAddr)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	done := make(chan bool)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("shutting down")
		_ = httpServer.Close()    //nolint:errcheck
		_ = metricsServer.Close() //nolint:errcheck
		close(done)
	}()

	logger.Info("cloudgate starting", "version", version, "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("cloudgate stopped")
}

// parseLogLevel maps the configured level name to a slog level, defaulting
// to info for unknown values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
