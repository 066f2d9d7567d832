package config

import (
	"os"
	"path/filepath"
	"testing"

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

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Geocode.Provider)
	assert.InDelta(t, 10.0, cfg.Geocode.RateLimit, 0.001)
	assert.Equal(t, 60, cfg.Geocode.CacheTTL)
	assert.Equal(t, 512, cfg.Geocode.CacheSize)
	assert.Equal(t, "/api/geocode", cfg.Geocode.RoutePath)
	assert.Equal(t, "address", cfg.Geocode.AddressKey)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "geofield.db", cfg.Store.SQLitePath)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/geofield/assets", cfg.Field.AssetBase)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Field.Overrides())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)
	yaml := `
field:
  api_key: browser-key
  default_options:
    show_search_box: false
    map:
      zoom: 9
      mapTypeId: SATELLITE
      streetViewControl: true
    default_field_values:
      Latitude: -41.28
      Longitude: 174.77
geocode:
  provider: google
  api_key: server-key
store:
  driver: postgres
  database_url: postgres://localhost/geofield
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Geocode.Provider)
	assert.Equal(t, "server-key", cfg.Geocode.APIKey)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/geofield", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)

	overrides := cfg.Field.Overrides()
	assert.Equal(t, "browser-key", overrides["api_key"])
	assert.Equal(t, false, overrides["show_search_box"])
	assert.Equal(t, map[string]any{"zoom": 9, "mapTypeId": "SATELLITE", "streetViewControl": true}, overrides["map"])
	assert.Equal(t, map[string]any{"Latitude": -41.28, "Longitude": 174.77}, overrides["default_field_values"])
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geofield.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEOFIELD_GEOCODE_PROVIDER", "table")
	t.Setenv("GEOFIELD_STORE_SQLITE_PATH", "/tmp/media.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Geocode.Provider)
	assert.Equal(t, "/tmp/media.db", cfg.Store.SQLitePath)
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	require.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
