package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/bootstrap"
	"github.com/turtacn/touristsafety/internal/config"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "test.db") + "\n" +
		"model:\n  model_path: " + filepath.Join(dir, "model.json") + "\n  scaler_path: " + filepath.Join(dir, "scaler.json") + "\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	cfg, err := config.LoadConfig(file)
	require.NoError(t, err)
	return cfg
}

func TestBuild_UnsupportedDriverReturnsError(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Database.Driver = "bogus"

	var (
		comps *bootstrap.Components
		err   error
	)
	require.NotPanics(t, func() {
		comps, err = bootstrap.Build(context.Background(), cfg, nil, bootstrap.Options{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database")
	assert.Nil(t, comps)
}

func TestBuild_RedisFailureReturnsError(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	var err error
	require.NotPanics(t, func() {
		_, err = bootstrap.Build(context.Background(), cfg, nil, bootstrap.Options{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}

func TestBuild_LocalComponents(t *testing.T) {
	cfg := loadConfig(t)
	reg := prometheus.NewRegistry()

	comps, err := bootstrap.Build(context.Background(), cfg, nil, bootstrap.Options{Registerer: reg})
	require.NoError(t, err)
	t.Cleanup(comps.Close)

	assert.Nil(t, comps.Redis)
	assert.Nil(t, comps.Tokens, "no jwt secret configured")
	require.NotNil(t, comps.Limiter)
	assert.False(t, comps.ModelAvailable())

	count, err := testutil.GatherAndCount(reg, "touristsafety_tracked_entries")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "crime report cache and rate limit buckets")

	removed, err := comps.PurgeReportCaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"crime": 0}, removed)
}
