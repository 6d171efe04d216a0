package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Fields = []FieldPattern{
		{Name: "TMP2m", Pattern: "TMP:2 m above ground:.*"},
		{Name: "UGRD10m", Pattern: "UGRD:10 m above ground:.*"},
	}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:   "defaults with fields - valid",
			mutate: func(c *Config) {},
		},
		{
			name:        "no fields",
			mutate:      func(c *Config) { c.Fields = nil },
			wantErr:     true,
			errContains: "no fields to download",
		},
		{
			name: "pattern without level and step",
			mutate: func(c *Config) {
				c.Fields = []FieldPattern{{Name: "TMP", Pattern: "TMP"}}
			},
			wantErr:     true,
			errContains: "must look like <param>:<level>:<step>",
		},
		{
			name: "pattern that does not compile",
			mutate: func(c *Config) {
				c.Fields = []FieldPattern{{Name: "TMP", Pattern: "TMP:(:x"}}
			},
			wantErr:     true,
			errContains: "invalid pattern",
		},
		{
			name: "duplicate field name",
			mutate: func(c *Config) {
				c.Fields = append(c.Fields, FieldPattern{Name: "TMP2m", Pattern: "TMP:surface:.*"})
			},
			wantErr:     true,
			errContains: "defined more than once",
		},
		{
			name:        "bad steps",
			mutate:      func(c *Config) { c.Steps = "0/to/18" },
			wantErr:     true,
			errContains: "misspecified option steps",
		},
		{
			name:        "bad runhours",
			mutate:      func(c *Config) { c.RunHours = "a,b" },
			wantErr:     true,
			errContains: "misspecified option runhours",
		},
		{
			name:        "file pattern without groups",
			mutate:      func(c *Config) { c.Source.FilePattern = `^hrrr.*\.grib2$` },
			wantErr:     true,
			errContains: "3 groups",
		},
		{
			name:        "empty source url",
			mutate:      func(c *Config) { c.Source.URL = "" },
			wantErr:     true,
			errContains: "source url cannot be empty",
		},
		{
			name:        "negative retries",
			mutate:      func(c *Config) { c.Download.Retries = -1 },
			wantErr:     true,
			errContains: "retries must be non-negative",
		},
		{
			name: "metrics enabled without listen",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = ""
			},
			wantErr:     true,
			errContains: "metrics listen address",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.Log.Level = "trace" },
			wantErr:     true,
			errContains: "log.level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseIntSet(t *testing.T) {
	tests := []struct {
		expr    string
		want    []int
		wantErr bool
	}{
		{expr: "6", want: []int{6}},
		{expr: "6,0,3,3", want: []int{0, 3, 6}},
		{expr: " 1, 2 ", want: []int{1, 2}},
		{expr: "0/to/18/by/6", want: []int{0, 6, 12, 18}},
		{expr: "0/to/5/by/2", want: []int{0, 2, 4}},
		{expr: "0/TO/2/BY/1", want: []int{0, 1, 2}},
		{expr: "", wantErr: true},
		{expr: "0/to/18", wantErr: true},
		{expr: "0/to/18/by/0", wantErr: true},
		{expr: "18/to/0/by/1", wantErr: true},
		{expr: "-1", wantErr: true},
		{expr: "1,,2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseIntSet(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_DeepCopy(t *testing.T) {
	cfg := validConfig()
	cp := cfg.DeepCopy()

	cp.Fields[0].Pattern = "changed"
	*cp.ValidateTiming = false

	assert.Equal(t, "TMP:2 m above ground:.*", cfg.Fields[0].Pattern)
	assert.True(t, cfg.GetValidateTiming())
	assert.False(t, cp.GetValidateTiming())

	var nilCfg *Config
	assert.Nil(t, nilCfg.DeepCopy())
}

func TestAccessors(t *testing.T) {
	cfg := &Config{GribDir: "/data/grib"}

	assert.True(t, cfg.GetValidateTiming())
	assert.Equal(t, 1, cfg.GetWorkers())
	assert.Equal(t, "@hourly", cfg.GetSchedule())
	assert.Equal(t, "/data/grib/_curl.log", cfg.GetAttemptLogPath())

	cfg.Download.AttemptLog = "/var/log/gribfetch.log"
	assert.Equal(t, "/var/log/gribfetch.log", cfg.GetAttemptLogPath())

	cfg.Steps = "0/to/2/by/1"
	assert.Equal(t, []int{0, 1, 2}, cfg.GetSteps())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
source:
  url: https://example.com/hrrr/prod
  domain: alaska
steps: "0,1"
runhours: "0/to/12/by/6"
grib_dir: ` + dir + `
fields:
  - name: TMP2m
    pattern: "TMP:2 m above ground:.*"
  - name: APCP
    pattern: "APCP:surface:0-1 hour acc"
validate_timing: false
download:
  retries: 3
  sleep_between_retries: 1s
  timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "alaska", cfg.Source.Domain)
	// untouched values keep their defaults
	assert.Equal(t, `^hrrr\.[0-9]{8}$`, cfg.Source.RunPattern)
	assert.Equal(t, 2*time.Second, cfg.Download.SleepBetweenFiles)

	assert.Equal(t, []string{"TMP2m", "APCP"}, cfg.GetFieldNames())
	assert.False(t, cfg.GetValidateTiming())
	assert.Equal(t, 3, cfg.Download.Retries)
	assert.Equal(t, time.Second, cfg.Download.SleepBetweenRetries)
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout)
	assert.Equal(t, []int{0, 6, 12}, cfg.GetRunHours())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grib_dir: /tmp\n"), 0644))

	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()

	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Fields, loaded.Fields)
	assert.Equal(t, cfg.Download, loaded.Download)
}

func TestManager_Callbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	require.NoError(t, SaveToFile(cfg, path))

	m := NewManager(cfg, path)

	var gotOld, gotNew *Config
	m.OnConfigChange(func(oldConfig, newConfig *Config) {
		gotOld, gotNew = oldConfig, newConfig
	})

	updated := cfg.DeepCopy()
	updated.Log.Level = "debug"
	require.NoError(t, SaveToFile(updated, path))
	require.NoError(t, m.ReloadConfig())

	require.NotNil(t, gotOld)
	require.NotNil(t, gotNew)
	assert.Equal(t, "info", gotOld.Log.Level)
	assert.Equal(t, "debug", gotNew.Log.Level)
	assert.Same(t, gotNew, m.GetConfig())
	assert.Same(t, m.GetConfig(), m.GetConfigGetter()())
}
