package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/javi11/gribfetch/internal/attemptlog"
	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/metrics"
	"github.com/javi11/gribfetch/internal/slogutil"
	"github.com/javi11/gribfetch/internal/syncer"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	watchImmediate bool
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Fetch new files on a schedule",
		Long: `Run fetch on the cron schedule from sync.schedule. The config file is
re-read before every run so field lists and log level can change without a
restart. When metrics are enabled, /metrics and /live are served on
metrics.listen.`,
		RunE: runWatch,
	}

	watchCmd.Flags().BoolVar(&watchImmediate, "now", true, "run once immediately before waiting for the schedule")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	configManager := config.NewManager(cfg, configFile)
	configManager.OnConfigChange(slogutil.ApplyLevel)
	configManager.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		if oldConfig.Sync.Schedule != newConfig.Sync.Schedule {
			logger.Info("Schedule changed (restart required)",
				"old", oldConfig.GetSchedule(),
				"new", newConfig.GetSchedule())
		}
		if oldConfig.GetAttemptLogPath() != newConfig.GetAttemptLogPath() {
			logger.Info("Attempt log path changed (restart required)",
				"old", oldConfig.GetAttemptLogPath(),
				"new", newConfig.GetAttemptLogPath())
		}
		if oldConfig.Metrics != newConfig.Metrics {
			logger.Info("Metrics settings changed (restart required)")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := metrics.New()

	attempts, err := attemptlog.Open(cfg.GetAttemptLogPath())
	if err != nil {
		logger.Error("failed to open attempt log", "error", err)
		return err
	}
	defer func() {
		if err := attempts.Close(); err != nil {
			logger.Warn("Failed to close attempt log", "error", err)
		}
	}()

	var server *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		mux.HandleFunc("/live", handleSimpleHealth)

		server = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
				cancel()
			}
		}()
		logger.Info("Metrics server started", "listen", cfg.Metrics.Listen)
	}

	var mu sync.Mutex
	job := func() {
		// Overlapping runs would race on the same temp files.
		if !mu.TryLock() {
			logger.Warn("Previous run still in progress, skipping this tick")
			return
		}
		defer mu.Unlock()

		if err := configManager.ReloadConfig(); err != nil {
			logger.Warn("Failed to reload config, keeping previous one", "error", err)
		}

		summary, err := runOnce(ctx, configManager.GetConfig(), logger, syncer.Options{}, rec, attempts)
		if err != nil {
			if errors.Is(err, syncer.ErrNoTargets) {
				logger.Info("Nothing to download yet")
				return
			}
			logger.Error("Run failed", "error", err)
			return
		}

		logger.Info("Run finished",
			"run_id", summary.RunID,
			"downloaded", summary.Downloaded,
			"skipped", summary.Skipped,
			"failed", summary.Failed)
	}

	scheduler := cron.New(cron.WithLogger(cronLogger{logger: logger}))
	if _, err := scheduler.AddFunc(cfg.GetSchedule(), job); err != nil {
		logger.Error("invalid schedule", "schedule", cfg.GetSchedule(), "error", err)
		return err
	}

	logger.Info("Starting watcher",
		"schedule", cfg.GetSchedule(),
		"source", cfg.Source.URL,
		"grib_dir", cfg.GribDir,
		"fields", len(cfg.Fields))

	scheduler.Start()
	var immediate sync.WaitGroup
	if watchImmediate {
		immediate.Add(1)
		go func() {
			defer immediate.Done()
			job()
		}()
	}

	signalHandler(ctx)

	// Abort the running pass, then wait for it to unwind.
	cancel()
	<-scheduler.Stop().Done()
	immediate.Wait()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to stop metrics server", "error", err)
		}
	}

	logger.Info("Watcher shutting down gracefully")
	return nil
}

// handleSimpleHealth provides a lightweight liveness check endpoint
func handleSimpleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// shutdownSignals stop the watcher gracefully.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func signalHandler(ctx context.Context) {
	c := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C) or SIGTERM
	signal.Notify(c, shutdownSignals...)
	defer signal.Stop(c)

	// Block until we receive our signal.
	select {
	case <-ctx.Done():
	case <-c:
	}
}

// cronLogger routes scheduler messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
