// Package config loads agentkit settings from TOML or YAML files, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/seobando/agentkit/logging"
)

const (
	defaultAppName         = "agentkit"
	defaultUserID          = "user"
	defaultProvider        = "mock"
	defaultMaxTokens       = 4096
	defaultMaxCalls        = 100
	defaultSQLitePath      = "agentkit.db"
	defaultServerAddr      = ":8080"
	defaultReadTimeout     = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

var ErrInvalidConfig = errors.New("invalid config")

// Providers lists the accepted model.provider values.
var Providers = []string{"openai", "anthropic", "gemini", "mock"}

type Config struct {
	App       AppConfig       `toml:"app" yaml:"app"`
	Model     ModelConfig     `toml:"model" yaml:"model"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
}

type AppConfig struct {
	Name   string `toml:"name" yaml:"name"`
	UserID string `toml:"user_id" yaml:"user_id"`
}

type ModelConfig struct {
	Provider    string  `toml:"provider" yaml:"provider"`
	Name        string  `toml:"name" yaml:"name"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens"`
	// RateLimit is in calls per second; zero disables limiting.
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"`
	Burst     int     `toml:"burst" yaml:"burst"`
	MaxCalls  int     `toml:"max_calls" yaml:"max_calls"`
}

type StorageConfig struct {
	SessionBackend  string `toml:"session_backend" yaml:"session_backend"`
	SQLitePath      string `toml:"sqlite_path" yaml:"sqlite_path"`
	ArtifactBackend string `toml:"artifact_backend" yaml:"artifact_backend"`
	S3Bucket        string `toml:"s3_bucket" yaml:"s3_bucket"`
	S3Prefix        string `toml:"s3_prefix" yaml:"s3_prefix"`
	MemoryBackend   string `toml:"memory_backend" yaml:"memory_backend"`
	BadgerDir       string `toml:"badger_dir" yaml:"badger_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Redact bool   `toml:"redact" yaml:"redact"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr" yaml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout" yaml:"read_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type TelemetryConfig struct {
	Tracing bool `toml:"tracing" yaml:"tracing"`
	Metrics bool `toml:"metrics" yaml:"metrics"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

type LoadOptions struct {
	// ConfigPath points at a .toml, .yaml or .yml file. Empty skips the file.
	ConfigPath string
	// Env replaces the process environment for lookups when non-nil.
	Env   map[string]string
	Flags FlagOverrides
}

// FlagOverrides carry command line values. Nil fields leave the loaded value
// untouched.
type FlagOverrides struct {
	Provider *string
	Model    *string
	LogLevel *string
}

func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:   defaultAppName,
			UserID: defaultUserID,
		},
		Model: ModelConfig{
			Provider:    defaultProvider,
			Temperature: 0.7,
			MaxTokens:   defaultMaxTokens,
			Burst:       1,
			MaxCalls:    defaultMaxCalls,
		},
		Storage: StorageConfig{
			SessionBackend:  "memory",
			SQLitePath:      defaultSQLitePath,
			ArtifactBackend: "memory",
			MemoryBackend:   "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Redact: true,
		},
		Server: ServerConfig{
			Addr:            defaultServerAddr,
			ReadTimeout:     Duration(defaultReadTimeout),
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	if err := loadFile(opts.ConfigPath, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Keys absent from the file keep their
// current values.
func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parse YAML file %q: %v", ErrInvalidConfig, path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "AGENTKIT_MODEL_PROVIDER"); ok {
		cfg.Model.Provider = value
	}
	if value, ok := lookupEnv(opts, "AGENTKIT_MODEL_NAME"); ok {
		cfg.Model.Name = value
	}
	if value, ok := lookupEnv(opts, "AGENTKIT_RATE_LIMIT"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: parse AGENTKIT_RATE_LIMIT: %v", ErrInvalidConfig, err)
		}
		cfg.Model.RateLimit = parsed
	}

	if value, ok := lookupEnv(opts, "AGENTKIT_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "AGENTKIT_LOG_FORMAT"); ok {
		cfg.Logging.Format = value
	}

	if value, ok := lookupEnv(opts, "AGENTKIT_SERVER_ADDR"); ok {
		cfg.Server.Addr = value
	}

	if value, ok := lookupEnv(opts, "AGENTKIT_SESSION_BACKEND"); ok {
		cfg.Storage.SessionBackend = value
	}
	if value, ok := lookupEnv(opts, "AGENTKIT_SQLITE_PATH"); ok {
		cfg.Storage.SQLitePath = value
	}
	if value, ok := lookupEnv(opts, "AGENTKIT_S3_BUCKET"); ok {
		cfg.Storage.S3Bucket = value
		if cfg.Storage.ArtifactBackend == "memory" {
			cfg.Storage.ArtifactBackend = "s3"
		}
	}

	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.Provider != nil && *flags.Provider != "" {
		cfg.Model.Provider = *flags.Provider
	}
	if flags.Model != nil && *flags.Model != "" {
		cfg.Model.Name = *flags.Model
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.Logging.Level = *flags.LogLevel
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("%w: app.name must not be empty", ErrInvalidConfig)
	}
	if !oneOf(c.Model.Provider, Providers...) {
		return fmt.Errorf("%w: model.provider must be one of %s", ErrInvalidConfig, strings.Join(Providers, ", "))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: model.temperature must be within [0, 2]", ErrInvalidConfig)
	}
	if c.Model.MaxTokens < 0 || c.Model.MaxCalls < 0 {
		return fmt.Errorf("%w: model.max_tokens and model.max_calls must be >= 0", ErrInvalidConfig)
	}
	if c.Model.RateLimit < 0 {
		return fmt.Errorf("%w: model.rate_limit must be >= 0", ErrInvalidConfig)
	}
	if c.Model.RateLimit > 0 && c.Model.Burst < 1 {
		return fmt.Errorf("%w: model.burst must be >= 1 when rate_limit is set", ErrInvalidConfig)
	}

	switch c.Storage.SessionBackend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.session_backend must be memory or sqlite", ErrInvalidConfig)
	}
	switch c.Storage.ArtifactBackend {
	case "memory":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("%w: storage.s3_bucket is required for the s3 backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.artifact_backend must be memory or s3", ErrInvalidConfig)
	}
	switch c.Storage.MemoryBackend {
	case "memory":
	case "badger":
		if c.Storage.BadgerDir == "" {
			return fmt.Errorf("%w: storage.badger_dir is required for the badger backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.memory_backend must be memory or badger", ErrInvalidConfig)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	if !oneOf(c.Logging.Format, "text", "json") {
		return fmt.Errorf("%w: logging.format must be text or json", ErrInvalidConfig)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server timeouts must be > 0", ErrInvalidConfig)
	}
	return nil
}

// LoggerConfig converts the logging section for logging.New. Level has
// already been validated.
func (c Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = lvl
	}
	lc.Format = c.Logging.Format
	lc.Redact = c.Logging.Redact
	return lc
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		value, ok := opts.Env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}
