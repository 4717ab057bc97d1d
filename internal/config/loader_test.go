package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/touristsafety/internal/config"
)

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing-but-explicit.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9090
model:
  n_estimators: 50
providers:
  weather:
    api_key: file-key
`), 0o600))

	t.Setenv("TOURIST_SAFETY_LOG_LEVEL", "debug")
	t.Setenv("TOURIST_SAFETY_MODEL_MAX_DEPTH", "8")

	cfg, err := config.LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Model.NEstimators)
	assert.Equal(t, 8, cfg.Model.MaxDepth)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file-key", cfg.Providers.Weather.APIKey)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.CrimeTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.WeatherTTL)
	assert.Equal(t, 168*time.Hour, cfg.Trips.DefaultDuration)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.RateLimit.CleanupInterval)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Server:   config.ServerConfig{Port: 8080},
			Database: config.DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Model: config.ModelConfig{
				ModelPath:    "m.json",
				ScalerPath:   "s.json",
				NEstimators:  10,
				TestFraction: 0.2,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }},
		{"same artifact paths", func(c *config.Config) { c.Model.ScalerPath = c.Model.ModelPath }},
		{"bad test fraction", func(c *config.Config) { c.Model.TestFraction = 1 }},
		{"kafka without brokers", func(c *config.Config) { c.Kafka.Enabled = true }},
		{"chain without rpc", func(c *config.Config) { c.Chain.Enabled = true }},
		{"rate limit without rate", func(c *config.Config) { c.RateLimit = config.RateLimitConfig{Enabled: true} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
