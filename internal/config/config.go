// Package config loads repwatch settings from YAML, environment variables
// and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/repwatch/internal/repetition"
)

// Defaults not owned by the detector.
const (
	DefaultSource          = "stdin"
	DefaultHTTPAddr        = ":8080"
	DefaultHookTimeoutMs   = 5000
	DefaultMaxSourceErrors = 10
	DefaultRedisChannel    = "repwatch:events"
	DefaultLogLevel        = "info"
	dataDirName            = ".repwatch"
	dbFileName             = "repwatch.db"
	hooksDirName           = "hooks"
)

// SourceConfig selects and tunes the landmark source.
type SourceConfig struct {
	// Spec is "stdin", "file:<path>", "exec:<command line>", "pose-service"
	// or a ws:// or wss:// URL. See pose.Open.
	Spec          string  `yaml:"spec"`
	MinVisibility float64 `yaml:"min_visibility"`
	// MaxErrors is the number of consecutive source errors tolerated.
	MaxErrors int `yaml:"max_errors"`
}

// HTTPConfig configures the optional HTTP server.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// HookConfig configures external hook executables.
type HookConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// RedisConfig enables the Redis sink when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the complete repwatch configuration.
type Config struct {
	Detector   repetition.Config `yaml:"detector"`
	Source     SourceConfig      `yaml:"source"`
	MaxSamples int               `yaml:"max_samples"`
	DataDir    string            `yaml:"data_dir"`
	HTTP       HTTPConfig        `yaml:"http"`
	Hooks      HookConfig        `yaml:"hooks"`
	Redis      RedisConfig       `yaml:"redis"`
	Log        LogConfig         `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := dataDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, dataDirName)
	}

	return Config{
		Detector: repetition.DefaultConfig(),
		Source: SourceConfig{
			Spec:      DefaultSource,
			MaxErrors: DefaultMaxSourceErrors,
		},
		DataDir: dataDir,
		HTTP: HTTPConfig{
			Addr: DefaultHTTPAddr,
		},
		Hooks: HookConfig{
			Dir:       filepath.Join(dataDir, hooksDirName),
			TimeoutMs: DefaultHookTimeoutMs,
		},
		Redis: RedisConfig{
			Channel: DefaultRedisChannel,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from REPWATCH_* variables found by lookup
// (normally os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	integer("REPWATCH_WINDOW_SIZE", &c.Detector.WindowSize)
	float("REPWATCH_THRESHOLD", &c.Detector.Threshold)
	if v, ok := lookup("REPWATCH_MODE"); ok && v != "" {
		c.Detector.Mode = repetition.CountMode(v)
	}
	str("REPWATCH_SOURCE", &c.Source.Spec)
	float("REPWATCH_MIN_VISIBILITY", &c.Source.MinVisibility)
	integer("REPWATCH_MAX_SAMPLES", &c.MaxSamples)
	str("REPWATCH_DATA_DIR", &c.DataDir)
	str("REPWATCH_HTTP_ADDR", &c.HTTP.Addr)
	str("REPWATCH_HOOK_DIR", &c.Hooks.Dir)
	str("REPWATCH_REDIS_ADDR", &c.Redis.Addr)
	str("REPWATCH_REDIS_PASSWORD", &c.Redis.Password)
	integer("REPWATCH_REDIS_DB", &c.Redis.DB)
	str("REPWATCH_LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.Source.Spec == "" {
		return errors.New("source spec is required")
	}
	if c.Source.MinVisibility < 0 || c.Source.MinVisibility > 1 {
		return fmt.Errorf("min_visibility %v must be in [0,1]", c.Source.MinVisibility)
	}
	if c.Source.MaxErrors < 1 {
		return fmt.Errorf("max_errors %d must be positive", c.Source.MaxErrors)
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("max_samples %d must not be negative", c.MaxSamples)
	}
	if c.Hooks.TimeoutMs <= 0 {
		return fmt.Errorf("hook timeout_ms %d must be positive", c.Hooks.TimeoutMs)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	return nil
}

// DBPath returns the SQLite database path inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// DefaultHooksDir returns the hooks directory inside the data directory.
func (c Config) DefaultHooksDir() string {
	return filepath.Join(c.DataDir, hooksDirName)
}
