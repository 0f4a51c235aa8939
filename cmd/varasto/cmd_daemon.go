package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yairfalse/varasto/cache"
	"github.com/yairfalse/varasto/telemetry"
)

var (
	daemonInterval     time.Duration
	daemonMetricsAddr  string
	daemonOTELEndpoint string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep the snapshot fresh on an interval",
	Long: `Run Varasto as a long-lived process. The daemon rebuilds the snapshot
whenever it crosses the staleness window, checks on a fixed interval,
and serves Prometheus metrics over HTTP.

An in-flight rebuild is never doubled: a tick that lands during a
rebuild is skipped. SIGINT/SIGTERM shut the daemon down gracefully.`,
	Example: `  varasto daemon                           # Defaults from config
  varasto daemon --interval 5m             # Check every 5 minutes
  varasto daemon --metrics :9090           # Custom metrics address
  varasto daemon --otel localhost:4317     # Also export OTLP`,
	RunE: runDaemonCmd,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Override the rebuild check interval")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics", "", "Override the metrics server address")
	daemonCmd.Flags().StringVar(&daemonOTELEndpoint, "otel", "", "OTLP endpoint for traces and metrics")
}

func runDaemonCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "varasto",
		ServiceVersion: version,
		OTELEndpoint:   daemonOTELEndpoint,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	manager, cfg, cleanup, err := setupManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	interval := cfg.Daemon.Interval
	if daemonInterval > 0 {
		interval = daemonInterval
	}
	metricsAddr := cfg.Daemon.MetricsAddr
	if daemonMetricsAddr != "" {
		metricsAddr = daemonMetricsAddr
	}

	fmt.Printf("Starting varasto daemon for %s@%s\n", cfg.Profile, cfg.Region)
	fmt.Printf("   Interval: %s\n", interval)
	fmt.Printf("   Metrics:  http://localhost%s/metrics\n", metricsAddr)

	var g run.Group

	// Signal handler
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	// Rebuild loop
	loopCtx, loopCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return rebuildLoop(loopCtx, manager, interval)
	}, func(error) {
		loopCancel()
	})

	// Metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", handleHealth)
	server := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Add(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		fmt.Printf("\nReceived %s, daemon stopped\n", sigErr.Signal)
		return nil
	}
	return err
}

// rebuildLoop rebuilds immediately when the snapshot is stale, then checks
// again every interval. A tick during a running rebuild is skipped.
func rebuildLoop(ctx context.Context, manager *cache.Manager, interval time.Duration) error {
	rebuildIfStale(ctx, manager)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rebuildIfStale(ctx, manager)
		case <-ctx.Done():
			return nil
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func rebuildIfStale(ctx context.Context, manager *cache.Manager) {
	if !manager.IsStale() {
		return
	}
	if _, err := manager.Rebuild(ctx); err != nil {
		if errors.Is(err, cache.ErrRebuildInProgress) {
			return
		}
		fmt.Printf("rebuild failed: %v\n", err)
	}
}
