package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/config"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/logger"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/memvfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/metrics"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/server"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/telemetry"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

var readOnly bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the NFSv3/MOUNT/PORTMAP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&readOnly, "read-only", false, "export the backend read-only")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopProfiling, err := telemetry.StartProfiling(cfg.Profiling, Version)
	if err != nil {
		return fmt.Errorf("start profiling: %w", err)
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("profiler stop failed", logger.KeyError, err.Error())
		}
	}()

	capability := vfs.ReadWrite
	if readOnly {
		capability = vfs.ReadOnly
	}
	fs := memvfs.New(capability)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	srv := server.New(fs, server.Config{
		Addr:                     cfg.Server.Addr,
		MaxConnections:           cfg.Server.MaxConnections,
		MaxRequestsPerConnection: cfg.Server.MaxRequestsPerConnection,
		MaxMessageSize:           cfg.Server.MaxMessageSize,
		ReadTimeout:              cfg.Server.ReadTimeout,
		WriteTimeout:             cfg.Server.WriteTimeout,
		IdleTimeout:              cfg.Server.IdleTimeout,
		ShutdownTimeout:          cfg.Server.ShutdownTimeout,
		DRCTTL:                   cfg.DRC.TTL,
		DRCMaxEntries:            cfg.DRC.MaxEntries,
	}, server.WithMetrics(m))

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.KeyError, err.Error())
			}
		}()
		logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	var result error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		srv.Stop()
		select {
		case result = <-serveErr:
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Warn("timed out waiting for connections to drain")
		}
	case result = <-serveErr:
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	if result != nil {
		return fmt.Errorf("serve: %w", result)
	}
	return nil
}
