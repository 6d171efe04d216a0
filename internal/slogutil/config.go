package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/javi11/gribfetch/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// level is shared by every logger built with SetupLogRotation so a config
// reload can change verbosity without rebuilding handlers.
var level = NewDynamicLeveler(defaultLevel())

func defaultLevel() slog.Level {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return ParseLevel(v)
	}

	return slog.LevelInfo
}

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogRotation configures slog with log rotation using lumberjack
// If logConfig.File is empty, it logs to console only
// If logConfig.File is configured, it logs to both console and file
// Returns the configured logger
func SetupLogRotation(logConfig config.LogConfig) *slog.Logger {
	return newLogger(os.Stdout, logConfig)
}

func newLogger(console io.Writer, logConfig config.LogConfig) *slog.Logger {
	writer := console

	if logConfig.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSize,    // MB
			MaxBackups: logConfig.MaxBackups, // number of old files
			MaxAge:     logConfig.MaxAge,     // days
			Compress:   logConfig.Compress,   // compress old files
		}
		writer = io.MultiWriter(console, fileWriter)
	}

	if logConfig.Level != "" {
		level.SetLevel(ParseLevel(logConfig.Level))
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(WrapHandler(handler))
}

// ApplyLevel changes the level of every logger created by SetupLogRotation.
// It is registered as a config change callback by long running commands.
func ApplyLevel(oldConfig, newConfig *config.Config) {
	if newConfig == nil {
		return
	}
	if oldConfig != nil && strings.EqualFold(oldConfig.Log.Level, newConfig.Log.Level) {
		return
	}

	level.SetLevel(ParseLevel(newConfig.Log.Level))
}

// CurrentLevel returns the level shared by configured loggers.
func CurrentLevel() slog.Level {
	return level.Level()
}
