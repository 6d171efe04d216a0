// Package download fetches an ordered list of byte ranges of one remote file
// into one local file. Ranges are written in request order to "<path>.tmp",
// which is renamed over the final path only once every range has been
// written. Every attempt is recorded in the attempt log.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/javi11/gribfetch/internal/attemptlog"
	apperrors "github.com/javi11/gribfetch/internal/errors"
	"github.com/javi11/gribfetch/internal/httpclient"
	"github.com/javi11/gribfetch/internal/inventory"
	"github.com/spf13/afero"
)

// TempSuffix is appended to the local path while a download is in progress.
const TempSuffix = ".tmp"

// Options are applied to every attempt of every download.
type Options struct {
	Timeout             time.Duration // connect timeout, 0 = none
	Retries             int
	SleepBetweenRetries time.Duration
	FollowRedirects     bool
}

// Request describes one file to assemble.
type Request struct {
	URL       string
	LocalPath string
	Ranges    []inventory.ByteRange
}

// Result is the outcome of one Download call.
type Result struct {
	Success  bool
	Attempts int
	Elapsed  time.Duration
	Bytes    int64
	Category string
	Err      error
}

// AttemptObserver is told about every finished attempt.
type AttemptObserver func(outcome string, elapsed time.Duration)

// Downloader executes download requests. It is safe for concurrent use as
// long as requests target different local paths.
type Downloader struct {
	client   *http.Client
	opts     Options
	log      *attemptlog.Writer
	fs       afero.Fs
	logger   *slog.Logger
	observer AttemptObserver
	now      func() time.Time
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the client built from Options.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.client = c
	}
}

// WithAttemptObserver registers a callback run after every attempt.
func WithAttemptObserver(o AttemptObserver) Option {
	return func(d *Downloader) {
		d.observer = o
	}
}

// New creates a Downloader. log may be nil to disable the attempt log.
func New(opts Options, log *attemptlog.Writer, fs afero.Fs, logger *slog.Logger, options ...Option) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	d := &Downloader{
		opts:   opts,
		log:    log,
		fs:     fs,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range options {
		o(d)
	}

	if d.client == nil {
		d.client = httpclient.New(
			httpclient.WithTimeout(httpclient.NoTimeout),
			httpclient.WithConnectTimeout(opts.Timeout),
			httpclient.WithFollowRedirects(opts.FollowRedirects),
		)
	}

	return d
}

// Download fetches req.Ranges into req.LocalPath. It does not check whether
// the local file already exists; a successful download replaces it.
// On failure the temporary file is removed and any previous local file is
// left untouched.
func (d *Downloader) Download(ctx context.Context, req Request) (Result, error) {
	start := d.now()
	res := Result{}

	fail := func(err error) (Result, error) {
		res.Elapsed = d.now().Sub(start)
		res.Category = categorize(err)
		res.Err = fmt.Errorf("download %s: %w", req.URL, err)
		return res, res.Err
	}

	if len(req.Ranges) == 0 {
		return fail(ErrEmptyPlan)
	}

	if err := d.fs.MkdirAll(filepath.Dir(req.LocalPath), 0755); err != nil {
		return fail(fmt.Errorf("%w: create directory: %w", errLocal, err))
	}

	tmpPath := req.LocalPath + TempSuffix

	err := retry.Do(
		func() error {
			res.Attempts++
			attemptStart := d.now()

			n, err := d.attempt(ctx, req, tmpPath)
			elapsed := d.now().Sub(attemptStart)

			outcome := attemptlog.OutcomeSuccess
			if err != nil {
				outcome = attemptlog.OutcomeFailed
			} else {
				res.Bytes = n
			}
			d.record(outcome, elapsed, req.LocalPath)

			return err
		},
		retry.Attempts(uint(d.opts.Retries)+1),
		retry.Delay(d.opts.SleepBetweenRetries),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !apperrors.IsNonRetryable(err) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			d.logger.WarnContext(ctx, "Range download failed, retrying",
				"url", req.URL,
				"attempt", n+1,
				"retries", d.opts.Retries,
				"error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		if rmErr := d.fs.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			d.logger.WarnContext(ctx, "Failed to remove temporary file",
				"path", tmpPath,
				"error", rmErr)
		}
		return fail(err)
	}

	res.Success = true
	res.Elapsed = d.now().Sub(start)

	return res, nil
}

// attempt writes every range to a fresh temporary file and renames it into place.
func (d *Downloader) attempt(ctx context.Context, req Request, tmpPath string) (int64, error) {
	f, err := d.fs.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, apperrors.NewNonRetryableError("open temporary file", fmt.Errorf("%w: %w", errLocal, err))
	}

	var written int64
	for _, r := range req.Ranges {
		n, err := d.fetchRange(ctx, req.URL, r, f)
		written += n
		if err != nil {
			_ = f.Close()
			return written, err
		}
	}

	if err := f.Close(); err != nil {
		return written, apperrors.NewNonRetryableError("close temporary file", fmt.Errorf("%w: %w", errLocal, err))
	}

	if err := d.fs.Rename(tmpPath, req.LocalPath); err != nil {
		return written, apperrors.NewNonRetryableError("rename temporary file", fmt.Errorf("%w: %w", errLocal, err))
	}

	return written, nil
}

func (d *Downloader) fetchRange(ctx context.Context, url string, r inventory.ByteRange, w io.Writer) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, apperrors.NewNonRetryableError("build request", err)
	}
	httpReq.Header.Set("Range", r.Header())

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusOK && r.Start == 0 && r.Open:
		// the whole file was asked for
	case resp.StatusCode == http.StatusOK && resp.Header.Get("Content-Range") == "":
		return 0, apperrors.NewNonRetryableError(r.String(), ErrRangeNotSupported)
	default:
		return 0, &StatusError{StatusCode: resp.StatusCode, Range: r.String()}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read range %s: %w", r, err)
	}

	if want := r.Length(); want >= 0 && n != want {
		return n, fmt.Errorf("%w: range %s returned %d of %d bytes", ErrShortRange, r, n, want)
	}

	return n, nil
}

func (d *Downloader) record(outcome string, elapsed time.Duration, localPath string) {
	if d.observer != nil {
		d.observer(outcome, elapsed)
	}

	if err := d.log.Record(attemptlog.Entry{
		Time:      d.now(),
		Elapsed:   elapsed,
		Outcome:   outcome,
		LocalPath: localPath,
	}); err != nil {
		d.logger.Error("Failed to write attempt log", "error", err)
	}
}
