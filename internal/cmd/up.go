//go:build linux

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/gateway"
	"github.com/ankitkpandey1/aetherless/internal/metrics"
	"github.com/ankitkpandey1/aetherless/internal/pool"
	"github.com/ankitkpandey1/aetherless/internal/registry"
	"github.com/ankitkpandey1/aetherless/internal/stats"
	"github.com/ankitkpandey1/aetherless/internal/storage"
)

var (
	upConfigFlag  string
	upPortFlag    int
	upNoWarmPool  bool
	upMetricsPort int
)

func newUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up CONFIG",
		Short: "Start the orchestrator and serve registered functions",
		Long: `Start the orchestrator: load the configuration file, register every
function it declares, and serve the HTTP gateway until interrupted.

Examples:
  aetherless up functions.yaml
  aetherless up functions.yaml --port 8080
  aetherless up functions.yaml --no-warm-pool`,
		Args: cobra.ExactArgs(1),
		RunE: runUp,
	}

	flags := cmd.Flags()
	flags.IntVar(&upPortFlag, "port", 8000, "Gateway listen port")
	flags.IntVar(&upMetricsPort, "metrics-port", 9090, "Prometheus metrics listen port")
	flags.BoolVar(&upNoWarmPool, "no-warm-pool", false, "Disable CRIU-backed warm-pool support")

	return cmd
}

func runUp(cmd *cobra.Command, args []string) error {
	upConfigFlag = args[0]

	cfg, err := config.LoadFile(upConfigFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logrus.StandardLogger()
	reg := registry.New()
	for _, fn := range cfg.Functions {
		if err := reg.Register(fn); err != nil {
			return fmt.Errorf("registering function %s: %w", fn.ID.String(), err)
		}
		logger.WithField("function_id", fn.ID.String()).Info("registered function")
	}

	var controller *pool.Controller
	if upNoWarmPool {
		controller = pool.Disabled(reg, logger)
		logger.Warn("warm pool disabled: functions will always cold-start")
	} else {
		controller, err = pool.New(pool.Config{
			Registry:         reg,
			SnapshotDir:      cfg.Orchestrator.SnapshotDir,
			RestoreTimeoutMs: cfg.Orchestrator.RestoreTimeoutMs,
			SocketDir:        filepath.Join(config.Home(), "sockets"),
			Logger:           logger,
		})
		if err != nil {
			logger.WithError(err).Warn("warm pool unavailable, continuing with cold starts only")
			controller = pool.Disabled(reg, logger)
		}
	}

	store := storage.New()
	gw := gateway.New(controller, store, logger)

	promReg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(promReg)
	controller.SetMetrics(metricsReg)

	os.MkdirAll(config.Home(), 0o755)
	pidPath := filepath.Join(config.Home(), "aetherless.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		logger.WithError(err).Warn("failed to write pid file")
	}
	defer os.Remove(pidPath)

	statsPath := filepath.Join(config.Home(), "stats.json")
	publisher := stats.NewPublisher(statsPath, func() stats.Snapshot {
		return buildStatsSnapshot(controller)
	})

	stopStats := make(chan struct{})
	go publisher.Run(stopStats, stats.DefaultCadence)

	gatewaySrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", upPortFlag),
		Handler: gw.Handler(),
	}
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", upMetricsPort),
		Handler: metrics.Handler(promReg),
	}

	errCh := make(chan error, 2)
	go func() { errCh <- gatewaySrv.ListenAndServe() }()
	go func() { errCh <- metricsSrv.ListenAndServe() }()

	logger.WithFields(logrus.Fields{
		"gateway_port": upPortFlag,
		"metrics_port": upMetricsPort,
		"functions":    reg.Len(),
	}).Info("aetherless is up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server error")
		}
	}

	close(stopStats)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gatewaySrv.Shutdown(ctx)
	metricsSrv.Shutdown(ctx)

	return nil
}

func buildStatsSnapshot(controller *pool.Controller) stats.Snapshot {
	snap := stats.Snapshot{Functions: make(map[string]stats.FunctionStatus)}
	for id, state := range controller.ListEntries() {
		cfg, err := controller.GetConfig(id)
		if err != nil {
			continue
		}
		snap.Functions[id.String()] = stats.FunctionStatus{
			ID:       id.String(),
			State:    state.String(),
			Port:     cfg.TriggerPort.Value(),
			MemoryMB: cfg.MemoryLimit.Megabytes(),
		}
	}
	cStats := controller.Stats()
	snap.ActiveInstances = cStats.ActiveInstances
	snap.WarmPoolActive = cStats.WarmPoolActive
	return snap
}
