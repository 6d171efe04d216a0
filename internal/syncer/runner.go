// Package syncer drives one pass over the archive: discover files, fetch
// and match their inventories, download the selected messages.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/database"
	"github.com/javi11/gribfetch/internal/discovery"
	"github.com/javi11/gribfetch/internal/download"
	apperrors "github.com/javi11/gribfetch/internal/errors"
	"github.com/javi11/gribfetch/internal/httpclient"
	"github.com/javi11/gribfetch/internal/matcher"
	"github.com/javi11/gribfetch/internal/metrics"
	"github.com/javi11/gribfetch/internal/pathutil"
	"github.com/javi11/gribfetch/internal/publish"
	"github.com/javi11/gribfetch/internal/slogutil"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// ErrNoTargets is returned when discovery finds nothing to process.
var ErrNoTargets = errors.New("no files found on server")

// Per-file outcomes used in metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeExists  = "exists"
	OutcomePlanned = "planned"
)

// Discoverer lists the files to process.
type Discoverer interface {
	Discover(ctx context.Context) ([]discovery.Target, error)
}

// Downloader assembles the selected ranges of one file.
type Downloader interface {
	Download(ctx context.Context, req download.Request) (download.Result, error)
}

// HistoryRecorder persists per-file outcomes.
type HistoryRecorder interface {
	Record(ctx context.Context, rec *database.DownloadRecord) error
}

// Publisher copies finished files elsewhere.
type Publisher interface {
	Publish(ctx context.Context, localPath, key string) error
}

// Dependencies are the collaborators of a Runner. History, Metrics and
// Publisher are optional.
type Dependencies struct {
	Discoverer Discoverer
	Downloader Downloader
	Client     *http.Client
	FS         afero.Fs
	History    HistoryRecorder
	Metrics    *metrics.Recorder
	Publisher  Publisher
}

// Options tune a single run.
type Options struct {
	DryRun  bool
	Workers int
}

// Summary counts what happened to the discovered files.
type Summary struct {
	RunID      string
	Discovered int
	Downloaded int
	Planned    int
	Skipped    int
	Failed     int
}

// Runner executes runs. It is safe to call Run repeatedly, not concurrently.
type Runner struct {
	cfg     *config.Config
	deps    Dependencies
	opts    Options
	matcher *matcher.Matcher
	logger  *slog.Logger
}

// New validates the dependencies and compiles the field patterns.
func New(cfg *config.Config, deps Dependencies, opts Options, logger *slog.Logger) (*Runner, error) {
	if deps.Discoverer == nil {
		return nil, fmt.Errorf("syncer: discoverer is required")
	}
	if deps.Downloader == nil && !opts.DryRun {
		return nil, fmt.Errorf("syncer: downloader is required")
	}
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	if deps.Client == nil {
		deps.Client = httpclient.NewDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.GetWorkers()
	}

	m, err := matcher.New(cfg.Fields, matcher.Options{
		Strict:         cfg.FieldsStrict,
		ValidateTiming: cfg.GetValidateTiming(),
	})
	if err != nil {
		return nil, fmt.Errorf("syncer: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		deps:    deps,
		opts:    opts,
		matcher: m,
		logger:  logger,
	}, nil
}

// Run processes every discovered file once. Per-file failures are logged,
// recorded and counted; only discovery, output directory and cancellation
// errors are returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	summary := Summary{RunID: runID}

	targets, err := r.deps.Discoverer.Discover(ctx)
	if err != nil {
		return summary, fmt.Errorf("discover files: %w", err)
	}
	summary.Discovered = len(targets)

	if len(targets) == 0 {
		return summary, ErrNoTargets
	}

	if !r.opts.DryRun {
		if err := pathutil.CheckDirectoryWritable(r.deps.FS, r.cfg.GribDir); err != nil {
			return summary, fmt.Errorf("output directory: %w", err)
		}
	}

	r.logger.InfoContext(ctx, "Starting run",
		"run_id", runID,
		"files", len(targets),
		"workers", r.opts.Workers,
		"dry_run", r.opts.DryRun)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(r.opts.Workers)

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}

		p.Go(func() {
			outcome := r.processTarget(ctx, runID, t)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeSuccess:
				summary.Downloaded++
			case OutcomePlanned:
				summary.Planned++
			case OutcomeFailed:
				summary.Failed++
			default:
				summary.Skipped++
			}
		})
	}
	p.Wait()

	r.logger.InfoContext(ctx, "Run finished",
		"run_id", runID,
		"discovered", summary.Discovered,
		"downloaded", summary.Downloaded,
		"planned", summary.Planned,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	return summary, nil
}

// processTarget handles one file and returns its outcome.
func (r *Runner) processTarget(ctx context.Context, runID string, t discovery.Target) string {
	ctx = slogutil.With(ctx, "file", t.File)

	if ctx.Err() != nil {
		return OutcomeSkipped
	}

	exists, err := afero.Exists(r.deps.FS, t.LocalPath)
	if err != nil {
		r.logger.WarnContext(ctx, "Cannot check local file", "path", t.LocalPath, "error", err)
	}
	if exists {
		r.logger.DebugContext(ctx, "File exists on disk, skipping", "path", t.LocalPath)
		r.deps.Metrics.ObserveFile(OutcomeExists, 0)
		return OutcomeExists
	}

	rec := &database.DownloadRecord{
		RunID:     runID,
		FileURL:   t.FileURL,
		LocalPath: t.LocalPath,
	}

	plan, err := r.resolve(ctx, t)
	if plan != nil && len(plan.Missing) > 0 {
		rec.MissingFields = strPtr(strings.Join(plan.Missing, ","))
		r.deps.Metrics.ObserveMissing(plan.Missing)
		r.logger.InfoContext(ctx, "Fields not found in inventory", "fields", plan.Missing)
	}
	if err != nil {
		return r.finishWithError(ctx, rec, err)
	}

	if plan.Empty() {
		r.logger.InfoContext(ctx, "Could not find any required fields, skipping")
		return r.finish(ctx, rec, OutcomeSkipped, database.DownloadStatusSkipped)
	}

	rec.Ranges = strPtr(strings.Join(plan.Strings(), ","))

	if r.opts.DryRun {
		r.logger.InfoContext(ctx, "Planned download",
			"url", t.FileURL,
			"fields", plan.Fields,
			"ranges", plan.Strings())
		return OutcomePlanned
	}

	res, err := r.deps.Downloader.Download(ctx, download.Request{
		URL:       t.FileURL,
		LocalPath: t.LocalPath,
		Ranges:    plan.Ranges,
	})
	rec.Attempts = res.Attempts
	rec.Bytes = res.Bytes
	rec.ElapsedMs = res.Elapsed.Milliseconds()

	defer r.sleepBetweenFiles(ctx)

	if err != nil {
		return r.finishWithError(ctx, rec, apperrors.Failed(err))
	}

	r.logger.InfoContext(ctx, "Downloaded file",
		"path", t.LocalPath,
		"fields", len(plan.Ranges),
		"bytes", res.Bytes,
		"attempts", res.Attempts,
		"elapsed", res.Elapsed)

	r.publish(ctx, t.LocalPath)

	return r.finish(ctx, rec, OutcomeSuccess, database.DownloadStatusSuccess)
}

// resolve fetches the inventory and matches the configured fields.
func (r *Runner) resolve(ctx context.Context, t discovery.Target) (*matcher.Plan, error) {
	inv, err := FetchInventory(ctx, r.deps.Client, r.deps.FS, t.IndexURL)
	if err != nil {
		return nil, apperrors.Skip(fmt.Errorf("index file: %w", err))
	}

	plan, err := r.matcher.Resolve(inv)
	if err != nil {
		return plan, apperrors.HardStop(err)
	}

	return plan, nil
}

func (r *Runner) finishWithError(ctx context.Context, rec *database.DownloadRecord, err error) string {
	rec.ErrorMessage = strPtr(err.Error())

	switch apperrors.Classify(err) {
	case apperrors.KindSkip:
		r.logger.WarnContext(ctx, "Not able to use the index file, skipping", "error", err)
		return r.finish(ctx, rec, OutcomeSkipped, database.DownloadStatusSkipped)
	case apperrors.KindHardStop:
		r.logger.ErrorContext(ctx, "Download plan cannot be trusted, skipping file", "error", err)
	default:
		r.logger.ErrorContext(ctx, "Download failed", "error", err)
	}

	return r.finish(ctx, rec, OutcomeFailed, database.DownloadStatusFailed)
}

func (r *Runner) finish(ctx context.Context, rec *database.DownloadRecord, outcome string, status database.DownloadStatus) string {
	r.deps.Metrics.ObserveFile(outcome, rec.Bytes)

	if r.deps.History == nil || r.opts.DryRun {
		return outcome
	}

	rec.Status = status
	// The record outlives a canceled run.
	if err := r.deps.History.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.WarnContext(ctx, "Failed to record download history", "error", err)
	}

	return outcome
}

func (r *Runner) publish(ctx context.Context, localPath string) {
	if r.deps.Publisher == nil {
		return
	}

	key, err := publish.KeyFor(r.cfg.GribDir, localPath)
	if err != nil {
		r.logger.WarnContext(ctx, "Cannot publish file", "path", localPath, "error", err)
		return
	}

	if err := r.deps.Publisher.Publish(ctx, localPath, key); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish file", "key", key, "error", err)
		return
	}

	r.logger.DebugContext(ctx, "Published file", "key", key)
}

func (r *Runner) sleepBetweenFiles(ctx context.Context) {
	d := r.cfg.GetSleepBetweenFiles()
	if d <= 0 {
		return
	}

	r.logger.DebugContext(ctx, "Sleeping between files", "duration", d)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func strPtr(s string) *string {
	return &s
}
