package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryRepository stores the outcome of every processed file
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record inserts a download record and sets its ID and creation time
func (r *HistoryRepository) Record(ctx context.Context, rec *DownloadRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO download_history (
			run_id, file_url, local_path, status, ranges, missing_fields,
			attempts, bytes, elapsed_ms, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.RunID, rec.FileURL, rec.LocalPath, rec.Status, rec.Ranges, rec.MissingFields,
		rec.Attempts, rec.Bytes, rec.ElapsedMs, rec.ErrorMessage, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get download record id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListRecent returns the newest records first
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]*DownloadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, file_url, local_path, status, ranges, missing_fields,
		       attempts, bytes, elapsed_ms, error_message, created_at
		FROM download_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list download history: %w", err)
	}
	defer rows.Close()

	var records []*DownloadRecord
	for rows.Next() {
		var rec DownloadRecord
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.FileURL, &rec.LocalPath, &rec.Status, &rec.Ranges, &rec.MissingFields,
			&rec.Attempts, &rec.Bytes, &rec.ElapsedMs, &rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan download record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate download history: %w", err)
	}

	return records, nil
}

// CountByStatus returns the number of records per status
func (r *HistoryRepository) CountByStatus(ctx context.Context) (map[DownloadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM download_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count download history: %w", err)
	}
	defer rows.Close()

	counts := make(map[DownloadStatus]int)
	for rows.Next() {
		var status DownloadStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// HasSucceeded reports whether localPath was ever downloaded successfully
func (r *HistoryRepository) HasSucceeded(ctx context.Context, localPath string) (bool, error) {
	query := `SELECT 1 FROM download_history WHERE local_path = ? AND status = 'success' LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, query, localPath).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check download history: %w", err)
	}

	return true, nil
}
