package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/pkg/geocode"
	"github.com/goliatone/go-geofield/pkg/geodata"
)

const placesYAML = `
- address: Wellington
  aliases: [Te Whanganui-a-Tara]
  lat: -41.2866
  lng: 174.7756
- address: Auckland
  lat: -36.8485
  lng: 174.7633
`

func writePlaces(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.yaml")
	require.NoError(t, os.WriteFile(path, []byte(placesYAML), 0o644))
	return path
}

func TestNewGeocoder_None(t *testing.T) {
	for _, provider := range []string{"", "none", "NONE"} {
		g, err := newGeocoder(config.GeocodeConfig{Provider: provider})
		require.NoError(t, err)
		assert.Nil(t, g)
	}
}

func TestNewGeocoder_Errors(t *testing.T) {
	cases := map[string]config.GeocodeConfig{
		"unknown provider":   {Provider: "bing"},
		"table without path": {Provider: "table"},
		"google without key": {Provider: "google"},
		"missing table file": {Provider: "table", TablePath: filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newGeocoder(c)
			assert.Error(t, err)
		})
	}
}

func TestNewGeocoder_TableWithCache(t *testing.T) {
	g, err := newGeocoder(config.GeocodeConfig{Provider: "table", TablePath: writePlaces(t), CacheTTL: 5})
	require.NoError(t, err)

	cache, ok := g.(*geocode.Cache)
	require.True(t, ok, "expected cached geocoder, got %T", g)

	results, status, err := g.Geocode(context.Background(), "wellington")
	require.NoError(t, err)
	assert.Equal(t, geodata.StatusOK, status)
	require.NotEmpty(t, results)
	assert.InDelta(t, -41.2866, results[0].Geometry.Location.Lat, 1e-9)
	assert.Equal(t, 1, cache.Len())
}

func TestNewGeocoder_TableWithoutCache(t *testing.T) {
	g, err := newGeocoder(config.GeocodeConfig{Provider: "table", TablePath: writePlaces(t)})
	require.NoError(t, err)
	_, ok := g.(*geocode.Table)
	assert.True(t, ok, "expected table geocoder, got %T", g)
}

func TestNewGeocoder_GoogleChainsTable(t *testing.T) {
	g, err := newGeocoder(config.GeocodeConfig{Provider: "google", APIKey: "k", TablePath: writePlaces(t), RateLimit: 5})
	require.NoError(t, err)
	chain, ok := g.(geocode.Chain)
	require.True(t, ok, "expected chain, got %T", g)
	assert.Len(t, chain, 2)
}

func TestOpenStore(t *testing.T) {
	c := testConfig(t)
	st := testStore(t, c)
	m, err := st.Create(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	_, err = openStore(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
	_, err = openStore(context.Background(), config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestLayerOverrides(t *testing.T) {
	base := map[string]any{
		"api_key": "site",
		"map":     map[string]any{"zoom": 12, "mapTypeId": "ROADMAP"},
	}
	got := layerOverrides(base, map[string]any{
		"map":             map[string]any{"zoom": 9},
		"show_search_box": false,
	})

	assert.Equal(t, map[string]any{
		"api_key":         "site",
		"map":             map[string]any{"zoom": 9, "mapTypeId": "ROADMAP"},
		"show_search_box": false,
	}, got)
	assert.Equal(t, 12, base["map"].(map[string]any)["zoom"], "base must not be mutated")
}
