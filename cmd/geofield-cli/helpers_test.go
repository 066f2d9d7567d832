package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Field: config.FieldConfig{AssetBase: "/geofield/assets"},
		Geocode: config.GeocodeConfig{
			Provider:   "none",
			RateLimit:  10,
			RoutePath:  "/api/geocode",
			AddressKey: "address",
		},
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "geofield.db"),
		},
		Server: config.ServerConfig{
			Addr:           ":0",
			BasePath:       "/",
			AllowedOrigins: []string{"*"},
			ShutdownSecs:   1,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

func testStore(t *testing.T, c *config.Config) store.Store {
	t.Helper()
	st, err := openStore(context.Background(), c.Store)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}
