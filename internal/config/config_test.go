package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "crimengo.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://data.cityofchicago.org/resource/ijzp-q8t2.json", cfg.Feed.BaseURL)
	assert.Equal(t, 1000, cfg.Feed.Limit)
	assert.Equal(t, 5*time.Minute, cfg.Feed.RefreshInterval())
	assert.InDelta(t, 2.0, cfg.Feed.RateLimit, 0.001)
	assert.Equal(t, 30, cfg.Hotspot.Threshold)
	assert.Equal(t, 2, cfg.Hotspot.BinSize)
	assert.Equal(t, "zones.yaml", cfg.Zones.SeedFile)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Generator falls back to the built-in tables.
	assert.NotEmpty(t, cfg.Generator.Categories)
	assert.Contains(t, cfg.Generator.Categories, "ROBO")
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/crimengo
feed:
  limit: 250
  refresh_interval_secs: 60
hotspot:
  threshold: 10
generator:
  categories:
    vandalismo:
      - "Pintas en muro"
server:
  port: 9090
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/crimengo", cfg.Store.DatabaseURL)
	assert.Equal(t, 250, cfg.Feed.Limit)
	assert.Equal(t, time.Minute, cfg.Feed.RefreshInterval())
	assert.Equal(t, 10, cfg.Hotspot.Threshold)
	assert.Equal(t, 2, cfg.Hotspot.BinSize) // default survives partial file
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	// File-defined generator tables replace the built-ins entirely. Viper
	// lowercases map keys, so category names are matched case-insensitively
	// by keeping config keys lowercase.
	require.Len(t, cfg.Generator.Categories, 1)
	assert.Equal(t, []string{"Pintas en muro"}, cfg.Generator.Categories["vandalismo"])
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CRIMENGO_STORE_DRIVER", "postgres")
	t.Setenv("CRIMENGO_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
}
