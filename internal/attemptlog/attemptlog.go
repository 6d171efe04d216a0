// Package attemptlog writes the append-only diagnostics log of download
// attempts. Each attempt, successful or not, produces one line:
//
//	 2020-06-01 01:02:03;      4; success         ; /data/grib/hrrr.20200601/conus/hrrr.t00z.wrfsfcf03.grib2
package attemptlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcomes written to the log.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one attempt.
type Entry struct {
	Time      time.Time
	Elapsed   time.Duration
	Outcome   string
	LocalPath string
}

// Format renders the entry as a log line including the trailing newline.
// Elapsed time is written in whole seconds.
func (e Entry) Format() string {
	return fmt.Sprintf(" %s; %6d; %-16s; %s\n",
		e.Time.Format(timeLayout), int64(e.Elapsed/time.Second), e.Outcome, e.LocalPath)
}

// Writer appends entries to the log. It is safe for concurrent use so that
// parallel workers can share one log.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// Open opens path for appending, creating it and its directory if needed.
// Existing content is never truncated.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create attempt log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}

	return &Writer{w: f, closer: f}, nil
}

// New returns a Writer appending to w. Close does not close w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Record appends one entry. A zero Time is replaced by the current time.
func (l *Writer) Record(e Entry) error {
	if l == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.w, e.Format()); err != nil {
		return fmt.Errorf("write attempt log: %w", err)
	}
	return nil
}

// Close releases the underlying file, if any.
func (l *Writer) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.closer.Close()
	l.closer = nil
	return err
}
