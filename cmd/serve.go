package cmd

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

	"github.com/spf13/cobra"

	"github.com/teemow/propertyinbox/internal/config"
	"github.com/teemow/propertyinbox/internal/logging"
	"github.com/teemow/propertyinbox/internal/organizer"
	"github.com/teemow/propertyinbox/internal/scheduler"
	"github.com/teemow/propertyinbox/internal/server"
)

// serveOverrides are serve flags that take precedence over the config file
// when set explicitly.
type serveOverrides struct {
	httpAddr    string
	metricsAddr string
	noSchedule  bool
	noMetrics   bool
}

func newServeCmd() *cobra.Command {
	var overrides serveOverrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger and the hourly schedule",
		Long: `Start the organizer service.

Endpoints:
  POST /process        run the organizer once and return the run summary
  GET  /health         liveness for the hosting platform
  GET  /healthz        liveness probe
  GET  /readyz         readiness probe
  GET  /metrics        Prometheus metrics (on --metrics-addr)

The scheduler triggers a run on scheduler.spec (hourly by default). Runs
started while another is in progress are not queued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			overrides.apply(cmd, cfg)
			return runServe(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&overrides.httpAddr, "http-addr", ":8080", "HTTP trigger address. Overrides server.addr.")
	cmd.Flags().StringVar(&overrides.metricsAddr, "metrics-addr", ":9090", "Metrics server address. Overrides metrics.addr.")
	cmd.Flags().BoolVar(&overrides.noSchedule, "no-schedule", false, "Disable the scheduler; runs are only triggered over HTTP")
	cmd.Flags().BoolVar(&overrides.noMetrics, "no-metrics", false, "Disable the metrics server")

	return cmd
}

// apply copies explicitly set flags into cfg.
func (o serveOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("http-addr") {
		cfg.Server.Addr = o.httpAddr
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if o.noSchedule {
		cfg.Scheduler.Enabled = false
	}
	if o.noMetrics {
		cfg.Metrics.Enabled = false
	}
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(context.Background(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		a.close(flushCtx)
	}()

	// Runs outlive the signal until shutdown cancels them after the grace period
	sc := server.NewServerContext(context.Background(), a)
	defer sc.Shutdown()

	httpServer := server.NewHTTPServer(sc, server.HTTPServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
		Metrics:      a.provider.Metrics(),
	})

	serverErr := make(chan error, 2)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && a.provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: a.provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, func(ctx context.Context) error {
			_, err := sc.Run(ctx, organizer.TriggerSchedule)
			return err
		},
			scheduler.WithLogger(logger),
			scheduler.WithTimeout(cfg.Scheduler.Timeout),
			scheduler.WithLocation(a.location),
		)
		if err != nil {
			return err
		}
		sched.Start(sc.Context())
	} else {
		logger.Info("scheduler disabled")
	}

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		logger.Error("server stopped", logging.Err(runErr))
	}

	return errors.Join(runErr, shutdown(cfg.Server.ShutdownTimeout, logger, httpServer, metricsServer, sched, sc))
}

// shutdown stops accepting triggers, lets a scheduled run finish within
// timeout and then cancels whatever is still running.
func shutdown(timeout time.Duration, logger *slog.Logger, httpServer *server.HTTPServer, metricsServer *server.MetricsServer, sched *scheduler.Scheduler, sc *server.ServerContext) error {
	if timeout <= 0 {
		timeout = server.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-ctx.Done():
			logger.Warn("scheduled run did not finish before shutdown timeout")
		}
	}
	sc.Shutdown()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}

	logger.Info("server gracefully stopped")
	return errors.Join(errs...)
}
