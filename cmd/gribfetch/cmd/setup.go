package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/javi11/gribfetch/internal/attemptlog"
	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/database"
	"github.com/javi11/gribfetch/internal/discovery"
	"github.com/javi11/gribfetch/internal/download"
	"github.com/javi11/gribfetch/internal/httpclient"
	"github.com/javi11/gribfetch/internal/metrics"
	"github.com/javi11/gribfetch/internal/pathutil"
	"github.com/javi11/gribfetch/internal/publish"
	"github.com/javi11/gribfetch/internal/slogutil"
	"github.com/javi11/gribfetch/internal/syncer"
	"github.com/spf13/afero"
)

// app holds everything one run needs. Close releases the attempt log,
// database and bucket.
type app struct {
	runner   *syncer.Runner
	attempts *attemptlog.Writer
	db       *database.DB
	pub      *publish.Publisher
}

// loadConfigAndLogger loads the config file and installs the configured logger
func loadConfigAndLogger() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "error", err)
		return nil, nil, err
	}

	logger := slogutil.SetupLogRotation(cfg.Log)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// initializeDatabase opens the history database, or returns nil when history is disabled
func initializeDatabase(fs afero.Fs, cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}

	if err := pathutil.CheckFileDirectoryWritable(fs, cfg.Database.Path, "database"); err != nil {
		return nil, err
	}

	db, err := database.NewDB(database.Config{
		DatabasePath: cfg.Database.Path,
	})
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return nil, err
	}

	return db, nil
}

// initializeApp wires the run pipeline from cfg. rec and attempts may be
// shared across runs; a nil attempts is opened here and closed by Close.
func initializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts syncer.Options, rec *metrics.Recorder, attempts *attemptlog.Writer) (*app, error) {
	fs := afero.NewOsFs()
	a := &app{}

	client := httpclient.New(
		httpclient.WithConnectTimeout(cfg.Download.Timeout),
		httpclient.WithFollowRedirects(cfg.Download.FollowRedirects),
	)

	crawler, err := discovery.NewCrawler(cfg, client, logger)
	if err != nil {
		return nil, err
	}

	deps := syncer.Dependencies{
		Discoverer: crawler,
		Client:     client,
		FS:         fs,
		Metrics:    rec,
	}

	if !opts.DryRun {
		if attempts == nil {
			a.attempts, err = attemptlog.Open(cfg.GetAttemptLogPath())
			if err != nil {
				return nil, err
			}
			attempts = a.attempts
		}

		deps.Downloader = download.New(download.Options{
			Timeout:             cfg.Download.Timeout,
			Retries:             cfg.Download.Retries,
			SleepBetweenRetries: cfg.Download.SleepBetweenRetries,
			FollowRedirects:     cfg.Download.FollowRedirects,
		}, attempts, fs, logger, download.WithAttemptObserver(rec.ObserveAttempt))

		a.db, err = initializeDatabase(fs, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if a.db != nil {
			deps.History = a.db.History
		}

		if cfg.Publish.BucketURL != "" {
			a.pub, err = publish.Open(ctx, cfg.Publish.BucketURL, fs)
			if err != nil {
				a.Close()
				return nil, err
			}
			deps.Publisher = a.pub
		}
	}

	a.runner, err = syncer.New(cfg, deps, opts, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases the resources opened by initializeApp
func (a *app) Close() error {
	var errs []error

	if a.pub != nil {
		errs = append(errs, a.pub.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.attempts != nil {
		errs = append(errs, a.attempts.Close())
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}

// runOnce builds the pipeline, runs it and tears it down
func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts syncer.Options, rec *metrics.Recorder, attempts *attemptlog.Writer) (syncer.Summary, error) {
	a, err := initializeApp(ctx, cfg, logger, opts, rec, attempts)
	if err != nil {
		return syncer.Summary{}, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to release resources", "error", err)
		}
	}()

	return a.runner.Run(ctx)
}
