package config

import (
	"path/filepath"
	"time"
)

// Accessor methods with default fallbacks, for values that may be left
// unset in a hand written config file.

// GetValidateTiming returns whether selected entries must have a parseable
// step descriptor. Defaults to true.
func (c *Config) GetValidateTiming() bool {
	if c.ValidateTiming == nil {
		return true
	}
	return *c.ValidateTiming
}

// GetWorkers returns the number of files fetched in parallel with a default fallback.
func (c *Config) GetWorkers() int {
	if c.Sync.Workers <= 0 {
		return 1 // Default: sequential
	}
	return c.Sync.Workers
}

// GetSchedule returns the watch cron schedule with a default fallback.
func (c *Config) GetSchedule() string {
	if c.Sync.Schedule == "" {
		return "@hourly"
	}
	return c.Sync.Schedule
}

// GetSleepBetweenFiles returns the pause between two downloaded files.
func (c *Config) GetSleepBetweenFiles() time.Duration {
	if c.Download.SleepBetweenFiles < 0 {
		return 0
	}
	return c.Download.SleepBetweenFiles
}

// GetAttemptLogPath returns the diagnostics log path. Relative paths are
// resolved against grib_dir.
func (c *Config) GetAttemptLogPath() string {
	name := c.Download.AttemptLog
	if name == "" {
		name = "_curl.log"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GribDir, name)
}

// GetSteps returns the parsed forecast steps. Validate guarantees the
// expression parses.
func (c *Config) GetSteps() []int {
	steps, _ := ParseIntSet(c.Steps)
	return steps
}

// GetRunHours returns the parsed run hours.
func (c *Config) GetRunHours() []int {
	hours, _ := ParseIntSet(c.RunHours)
	return hours
}

// GetFieldNames returns the configured field names in order.
func (c *Config) GetFieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}
