package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "gribfetch.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestNewDB_RunsMigrations(t *testing.T) {
	db := newTestDB(t)

	var name string
	err := db.Connection().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='download_history'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "download_history", name)
}

func TestHistoryRepository_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	records := []*DownloadRecord{
		{
			RunID: "run-1", FileURL: "http://x/a.grib2", LocalPath: "/grib/a.grib2",
			Status: DownloadStatusSuccess, Ranges: strPtr("0-149"), Attempts: 1, Bytes: 150,
			ElapsedMs: 40, CreatedAt: base,
		},
		{
			RunID: "run-1", FileURL: "http://x/b.grib2", LocalPath: "/grib/b.grib2",
			Status: DownloadStatusFailed, Attempts: 3, ErrorMessage: strPtr("status 500"),
			CreatedAt: base.Add(time.Minute),
		},
		{
			RunID: "run-1", FileURL: "http://x/c.grib2", LocalPath: "/grib/c.grib2",
			Status: DownloadStatusSkipped, MissingFields: strPtr("TMP2m"), CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, rec := range records {
		require.NoError(t, db.History.Record(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	recent, err := db.History.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "/grib/c.grib2", recent[0].LocalPath)
	assert.Equal(t, DownloadStatusSkipped, recent[0].Status)
	require.NotNil(t, recent[0].MissingFields)
	assert.Equal(t, "TMP2m", *recent[0].MissingFields)
	assert.Equal(t, "/grib/b.grib2", recent[1].LocalPath)
	require.NotNil(t, recent[1].ErrorMessage)
	assert.Nil(t, recent[1].Ranges)
	assert.True(t, recent[1].CreatedAt.Equal(base.Add(time.Minute)))

	counts, err := db.History.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[DownloadStatus]int{
		DownloadStatusSuccess: 1,
		DownloadStatusFailed:  1,
		DownloadStatusSkipped: 1,
	}, counts)

	ok, err := db.History.HasSucceeded(ctx, "/grib/a.grib2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.History.HasSucceeded(ctx, "/grib/b.grib2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryRepository_RejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)

	err := db.History.Record(context.Background(), &DownloadRecord{
		RunID: "run", FileURL: "u", LocalPath: "p", Status: DownloadStatus("pending"),
	})
	assert.Error(t, err)
}
