package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-thermal/internal/api"
	"github.com/miradorstack/mirador-thermal/internal/hub"
	"github.com/miradorstack/mirador-thermal/internal/metrics"
	"github.com/miradorstack/mirador-thermal/internal/scheduler"
	"github.com/miradorstack/mirador-thermal/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP, websocket and gRPC",
	Long: `Serve polls the configured AIDA64 log on two independent cadences,
publishes snapshots to websocket and gRPC subscribers and answers the
latest-log and composed temperature endpoints.

Examples:
  thermal-dash serve
  thermal-dash serve --config configs/config.example.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("starting thermal-dash", slog.String("address", cfg.Server.Address), slog.String("log", cfg.Source.LogPath))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pageHub := hub.New("page", logger)
	tableHub := hub.New("table", logger)
	defer pageHub.Close()
	defer tableHub.Close()
	for _, h := range []*hub.Hub{pageHub, tableHub} {
		h.OnDrop(metrics.ObserveDropped)
	}

	pagePoller := scheduler.NewPoller("page", cfg.Polling.PageInterval, a.service.Snapshot, pageHub, logger)
	tablePoller := scheduler.NewPoller("table", cfg.Polling.TableInterval, a.service.TableSnapshot, tableHub, logger)
	pagePoller.OnSnapshot(metrics.ObserveSnapshot)
	tablePoller.OnSnapshot(metrics.ObserveSnapshot)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	for _, p := range []*scheduler.Poller{pagePoller, tablePoller} {
		run(func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("poller exited", slog.Any("error", err))
				stop()
			}
		})
	}

	if cfg.Source.Watch {
		w, err := watcher.New(cfg.Source.LogPath, cfg.Source.Debounce, func(path string) {
			logger.Debug("log changed", slog.String("path", path))
			a.service.Invalidate(ctx)
			pagePoller.Trigger()
			tablePoller.Trigger()
		}, logger)
		if err != nil {
			logger.Warn("log watcher unavailable, relying on polling", slog.Any("error", err))
		} else {
			run(func() { w.Run(ctx) })
		}
	}

	httpServer := api.NewHTTPServer(cfg.Server.Address, a.service, pageHub, tableHub, logger)
	run(func() {
		if err := httpServer.Start(); err != nil {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	})

	var grpcServer *api.GRPCServer
	if cfg.Server.GRPCAddress != "" {
		grpcServer, err = api.NewGRPCServer(cfg.Server, api.NewDashboardGRPC(a.service, pageHub, tableHub, logger))
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
		run(func() {
			logger.Info("grpc server listening", slog.String("address", grpcServer.Address()))
			if err := grpcServer.Start(); err != nil {
				logger.Error("gRPC server exited", slog.Any("error", err))
				stop()
			}
		})
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		run(func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		})
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}

	wg.Wait()
	logger.Info("thermal-dash stopped", slog.Duration("p95", a.service.LatencyP95()))
	return nil
}
