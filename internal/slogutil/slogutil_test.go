package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/javi11/gribfetch/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestHandler_AttachesContextData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewTextHandler(&buf, nil)))

	ctx := With(context.Background(), "file", "hrrr.t00z.wrfsfcf01.grib2")
	logger.InfoContext(ctx, "downloading")

	assert.Contains(t, buf.String(), "file=hrrr.t00z.wrfsfcf01.grib2")
	assert.Contains(t, buf.String(), "msg=downloading")
}

func TestWith_DoesNotLeakIntoParent(t *testing.T) {
	parent := With(context.Background(), "run", "a")
	child := With(parent, "file", "b")

	assert.Len(t, Attrs(parent), 1)
	assert.Len(t, Attrs(child), 2)
	assert.Nil(t, Attrs(context.Background()))
}

func TestApplyLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "info"})
	t.Cleanup(func() { level.SetLevel(slog.LevelInfo) })

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	ApplyLevel(&config.Config{Log: config.LogConfig{Level: "info"}}, &config.Config{Log: config.LogConfig{Level: "debug"}})
	assert.Equal(t, slog.LevelDebug, CurrentLevel())

	logger.Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
