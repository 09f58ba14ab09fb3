package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autolink/autolink/internal/cache"
	"github.com/autolink/autolink/internal/config"
	"github.com/autolink/autolink/internal/logging"
	"github.com/autolink/autolink/internal/observability"
	"github.com/autolink/autolink/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const limiterPruneInterval = time.Minute

func newServeCmd() *cobra.Command {
	var configPath string
	var listenOverride string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errors.New("config path is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listenOverride != "" {
				cfg.Server.Listen = listenOverride
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			watchPath := configPath
			if noWatch {
				watchPath = ""
			}
			return runService(cmd.Context(), cfg, watchPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&listenOverride, "listen", "", "Override server.listen")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file when it changes")

	return cmd
}

func runService(ctx context.Context, cfg *config.Config, watchPath string) error {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := service.New(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Logging.ScanLog != "" {
		scanLog, closer, err := logging.OpenScanLog(cfg.ResolvePath(cfg.Logging.ScanLog))
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()
		svc.SetScanLogger(scanLog)
	}

	if cfg.Cache.Enabled {
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			URL:       cfg.Cache.RedisURL,
			TTL:       cfg.Cache.TTL,
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, logger.WithComponent("cache").Logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		svc.SetCache(store)
	}

	metricsSrv, err := startMetricsServer(cfg, svc, logger)
	if err != nil {
		return err
	}
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(context.Background())
		}
	}()

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchPath != "" {
		err := config.Watch(signalCtx, watchPath,
			func(next *config.Config) {
				if err := svc.Reload(next); err != nil {
					logger.Warn("Config reload rejected", zap.Error(err))
				}
			},
			func(err error) {
				logger.Warn("Config reload failed", zap.Error(err))
			},
		)
		if err != nil {
			return err
		}
	}

	go svc.PruneLimiter(signalCtx, limiterPruneInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           svc,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if cfg.Server.TLS.Enabled {
			serverErr <- srv.ListenAndServeTLS(cfg.ResolvePath(cfg.Server.TLS.CertFile), cfg.ResolvePath(cfg.Server.TLS.KeyFile))
			return
		}
		serverErr <- srv.ListenAndServe()
	}()

	logger.Info("Scan service started",
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("tls", cfg.Server.TLS.Enabled),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	select {
	case <-signalCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	logger.Info("Shutting down scan service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startMetricsServer(cfg *config.Config, svc *service.Service, logger *logging.Logger) (*http.Server, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	svc.SetMetrics(metrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return srv, nil
}
