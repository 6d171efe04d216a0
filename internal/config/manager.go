package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Source         SourceConfig   `yaml:"source" mapstructure:"source"`
	Steps          string         `yaml:"steps" mapstructure:"steps"`
	RunHours       string         `yaml:"runhours" mapstructure:"runhours"`
	GribDir        string         `yaml:"grib_dir" mapstructure:"grib_dir"`
	Fields         []FieldPattern `yaml:"fields" mapstructure:"fields"`
	FieldsStrict   bool           `yaml:"fields_strict" mapstructure:"fields_strict"`
	ValidateTiming *bool          `yaml:"validate_timing" mapstructure:"validate_timing"`
	Download       DownloadConfig `yaml:"download" mapstructure:"download"`
	Sync           SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Database       DatabaseConfig `yaml:"database" mapstructure:"database"`
	Metrics        MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Publish        PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Log            LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig describes where forecast files are listed on the remote archive
type SourceConfig struct {
	URL         string   `yaml:"url" mapstructure:"url"`
	Domain      string   `yaml:"domain" mapstructure:"domain"`
	RunPattern  string   `yaml:"run_pattern" mapstructure:"run_pattern"`
	FilePattern string   `yaml:"file_pattern" mapstructure:"file_pattern"`
	Types       []string `yaml:"types" mapstructure:"types"`
}

// FieldPattern maps a user-facing field name to a regular expression matched
// against inventory keys ("field:level:step").
type FieldPattern struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
}

// DownloadConfig represents range download behaviour
type DownloadConfig struct {
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"` // Connection timeout, 0 = none
	Retries             int           `yaml:"retries" mapstructure:"retries"`
	SleepBetweenRetries time.Duration `yaml:"sleep_between_retries" mapstructure:"sleep_between_retries"`
	FollowRedirects     bool          `yaml:"follow_redirects" mapstructure:"follow_redirects"`
	SleepBetweenFiles   time.Duration `yaml:"sleep_between_files" mapstructure:"sleep_between_files"`
	AttemptLog          string        `yaml:"attempt_log" mapstructure:"attempt_log"`
}

// SyncConfig represents orchestration configuration
type SyncConfig struct {
	Workers  int    `yaml:"workers" mapstructure:"workers"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"` // cron spec used by watch
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty disables download history
}

// MetricsConfig represents prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// PublishConfig represents the optional bucket finished files are copied to
type PublishConfig struct {
	BucketURL string `yaml:"bucket_url" mapstructure:"bucket_url"`
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

// fieldPatternShape is the minimal "a:b:c" shape a field pattern must have.
var fieldPatternShape = regexp.MustCompile(`.*?:.*?:.*?`)

// DeepCopy returns a deep copy of the configuration
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	copyCfg := &Config{}
	if err := copier.CopyWithOption(copyCfg, c, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched types, which cannot happen here
		panic(fmt.Sprintf("config: deep copy failed: %v", err))
	}

	return copyCfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source url cannot be empty")
	}

	if c.Source.Domain == "" {
		return fmt.Errorf("source domain cannot be empty")
	}

	if _, err := regexp.Compile(c.Source.RunPattern); err != nil {
		return fmt.Errorf("source run_pattern is not a valid expression: %w", err)
	}

	filePattern, err := regexp.Compile(c.Source.FilePattern)
	if err != nil {
		return fmt.Errorf("source file_pattern is not a valid expression: %w", err)
	}
	if filePattern.NumSubexp() != 3 {
		return fmt.Errorf("source file_pattern must capture runhour, type and step (3 groups), got %d", filePattern.NumSubexp())
	}

	if c.GribDir == "" {
		return fmt.Errorf("grib_dir cannot be empty")
	}

	if _, err := ParseIntSet(c.Steps); err != nil {
		return fmt.Errorf("misspecified option steps: %w", err)
	}

	if _, err := ParseIntSet(c.RunHours); err != nil {
		return fmt.Errorf("misspecified option runhours: %w", err)
	}

	if len(c.Fields) == 0 {
		return fmt.Errorf("no fields to download, check the fields section")
	}

	seen := make(map[string]bool, len(c.Fields))
	for i, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name cannot be empty", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %s: defined more than once", f.Name)
		}
		seen[f.Name] = true

		if !fieldPatternShape.MatchString(f.Pattern) {
			return fmt.Errorf("field %s: pattern %q must look like <param>:<level>:<step>", f.Name, f.Pattern)
		}
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("field %s: invalid pattern: %w", f.Name, err)
		}
	}

	if c.Download.Timeout < 0 {
		return fmt.Errorf("download timeout must be non-negative")
	}

	if c.Download.Retries < 0 {
		return fmt.Errorf("download retries must be non-negative")
	}

	if c.Download.SleepBetweenRetries < 0 {
		return fmt.Errorf("download sleep_between_retries must be non-negative")
	}

	if c.Download.SleepBetweenFiles < 0 {
		return fmt.Errorf("download sleep_between_files must be non-negative")
	}

	if c.Sync.Workers < 0 {
		return fmt.Errorf("sync workers must be non-negative")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics listen address cannot be empty when metrics are enabled")
	}

	if c.Log.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		isValid := false
		for _, level := range validLevels {
			if strings.EqualFold(c.Log.Level, level) {
				isValid = true
				break
			}
		}
		if !isValid {
			return fmt.Errorf("log.level must be one of: debug, info, warn, error")
		}
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}

	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	return nil
}

// ChangeCallback represents a function called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// ConfigGetter represents a function that returns the current configuration
type ConfigGetter func() *Config

// Manager manages configuration state and persistence
type Manager struct {
	current    *Config
	configFile string
	mutex      sync.RWMutex
	callbacks  []ChangeCallback
}

// NewManager creates a new configuration manager
func NewManager(config *Config, configFile string) *Manager {
	return &Manager{
		current:    config,
		configFile: configFile,
	}
}

// GetConfig returns the current configuration (thread-safe)
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// GetConfigGetter returns a function that provides the current configuration
func (m *Manager) GetConfigGetter() ConfigGetter {
	return m.GetConfig
}

// UpdateConfig replaces the current configuration and notifies callbacks
func (m *Manager) UpdateConfig(config *Config) {
	m.mutex.Lock()
	// Take a deep copy of the old config so callbacks get an immutable snapshot
	var oldConfig *Config
	if m.current != nil {
		oldConfig = m.current.DeepCopy()
	}
	m.current = config
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mutex.Unlock()

	// Notify callbacks after releasing the lock
	for _, callback := range callbacks {
		callback(oldConfig, config)
	}
}

// OnConfigChange registers a callback to be called when configuration changes
func (m *Manager) OnConfigChange(callback ChangeCallback) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ReloadConfig reloads configuration from file. The current configuration is
// kept when the file no longer validates.
func (m *Manager) ReloadConfig() error {
	config, err := LoadConfig(m.configFile)
	if err != nil {
		return err
	}

	m.UpdateConfig(config)
	return nil
}

// SaveConfig saves the current configuration to file
func (m *Manager) SaveConfig() error {
	config := m.GetConfig()
	if config == nil {
		return fmt.Errorf("no configuration to save")
	}

	return SaveToFile(config, m.configFile)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	validateTiming := true

	return &Config{
		Source: SourceConfig{
			URL:         "https://nomads.ncep.noaa.gov/pub/data/nccf/com/hrrr/prod",
			Domain:      "conus",
			RunPattern:  `^hrrr\.[0-9]{8}$`,
			FilePattern: `^hrrr\.t([0-9]+)z\.([a-z]+)([0-9]+)\.grib2$`,
		},
		Steps:          "0/to/18/by/1",
		RunHours:       "0/to/23/by/1",
		GribDir:        "./grib",
		ValidateTiming: &validateTiming,
		Download: DownloadConfig{
			Timeout:             10 * time.Second,
			Retries:             0,
			SleepBetweenRetries: 5 * time.Second,
			FollowRedirects:     false,
			SleepBetweenFiles:   2 * time.Second,
			AttemptLog:          "_curl.log",
		},
		Sync: SyncConfig{
			Workers:  1,
			Schedule: "@hourly",
		},
		Database: DatabaseConfig{
			Path: "gribfetch.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			MaxSize:    100,    // 100MB max size
			MaxAge:     30,     // Keep for 30 days
			MaxBackups: 10,     // Keep 10 old files
			Compress:   true,   // Compress old files
		},
	}
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and merges with defaults
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config file in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Read the configuration file
	if err := v.ReadInConfig(); err != nil {
		if configFile != "" {
			// If a specific config file was provided but couldn't be read, return error
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		// No config file found - return helpful error
		return nil, fmt.Errorf("no configuration file found. Please create config.yaml or use --config flag")
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}
