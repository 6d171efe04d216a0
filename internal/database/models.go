package database

import (
	"time"
)

// DownloadStatus is the final state of one file in a run
type DownloadStatus string

const (
	DownloadStatusSuccess DownloadStatus = "success"
	DownloadStatusFailed  DownloadStatus = "failed"
	DownloadStatusSkipped DownloadStatus = "skipped"
)

// DownloadRecord is one processed file
type DownloadRecord struct {
	ID            int64          `db:"id"`
	RunID         string         `db:"run_id"`
	FileURL       string         `db:"file_url"`
	LocalPath     string         `db:"local_path"`
	Status        DownloadStatus `db:"status"`
	Ranges        *string        `db:"ranges"`         // comma separated byte ranges
	MissingFields *string        `db:"missing_fields"` // comma separated field names
	Attempts      int            `db:"attempts"`
	Bytes         int64          `db:"bytes"`
	ElapsedMs     int64          `db:"elapsed_ms"`
	ErrorMessage  *string        `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
}
