package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Std())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "agentkit.toml", `
[app]
name = "travel"

[model]
provider = "openai"
name = "gpt-4o-mini"
rate_limit = 2.5
burst = 3

[storage]
session_backend = "sqlite"
sqlite_path = "/tmp/sessions.db"

[server]
read_timeout = "45s"
`)
	cfg, err := Load(LoadOptions{ConfigPath: path, Env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "travel", cfg.App.Name)
	assert.Equal(t, "user", cfg.App.UserID)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.InDelta(t, 2.5, cfg.Model.RateLimit, 0.0001)
	assert.Equal(t, 3, cfg.Model.Burst)
	assert.Equal(t, "sqlite", cfg.Storage.SessionBackend)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Std())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "agentkit.yaml", `
model:
  provider: anthropic
  max_calls: 5
logging:
  level: debug
  format: json
server:
  shutdown_timeout: 2s
`)
	cfg, err := Load(LoadOptions{ConfigPath: path, Env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, 5, cfg.Model.MaxCalls)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout.Std())

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "agentkit.toml", `
[model]
provider = "openai"
name = "from-file"

[logging]
level = "warn"
`)
	flagModel := "from-flag"
	cfg, err := Load(LoadOptions{
		ConfigPath: path,
		Env: map[string]string{
			"AGENTKIT_MODEL_PROVIDER": "gemini",
			"AGENTKIT_MODEL_NAME":     "from-env",
			"AGENTKIT_RATE_LIMIT":     "1",
			"AGENTKIT_S3_BUCKET":      "artifacts",
		},
		Flags: FlagOverrides{Model: &flagModel},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "from-flag", cfg.Model.Name)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.InDelta(t, 1.0, cfg.Model.RateLimit, 0.0001)
	assert.Equal(t, "s3", cfg.Storage.ArtifactBackend)
	assert.Equal(t, "artifacts", cfg.Storage.S3Bucket)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts LoadOptions
	}{
		{"unknown provider", LoadOptions{Env: map[string]string{"AGENTKIT_MODEL_PROVIDER": "llama"}}},
		{"bad rate limit", LoadOptions{Env: map[string]string{"AGENTKIT_RATE_LIMIT": "fast"}}},
		{"bad log level", LoadOptions{Env: map[string]string{"AGENTKIT_LOG_LEVEL": "loud"}}},
		{"bad backend", LoadOptions{Env: map[string]string{"AGENTKIT_SESSION_BACKEND": "postgres"}}},
		{"empty sqlite path", LoadOptions{Env: map[string]string{"AGENTKIT_SESSION_BACKEND": "sqlite", "AGENTKIT_SQLITE_PATH": ""}}},
		{"bad duration", LoadOptions{ConfigPath: writeFile(t, "c.toml", "[server]\nread_timeout = \"soon\"\n"), Env: map[string]string{}}},
		{"bad extension", LoadOptions{ConfigPath: writeFile(t, "c.ini", "x=1"), Env: map[string]string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), err.Error())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.toml"), Env: map[string]string{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
