package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/pkg/geocode"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/options"
	"github.com/goliatone/go-geofield/pkg/store"
)

// newGeocoder builds the server-side geocoder. A table and a Google key may
// both be configured; the table is tried first. Returns nil for "none".
func newGeocoder(c config.GeocodeConfig) (geodata.Geocoder, error) {
	var chain geocode.Chain

	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	switch provider {
	case "", "none":
		return nil, nil
	case "table", "google":
	default:
		return nil, eris.Errorf("geocode: unknown provider %q", c.Provider)
	}

	if c.TablePath != "" {
		table, err := geocode.LoadTable(c.TablePath)
		if err != nil {
			return nil, err
		}
		chain = append(chain, table)
	} else if provider == "table" {
		return nil, eris.New("geocode: table provider needs geocode.table_path")
	}

	if provider == "google" {
		if c.APIKey == "" {
			return nil, eris.New("geocode: google provider needs geocode.api_key")
		}
		chain = append(chain, geocode.NewGoogle(
			geocode.WithAPIKey(c.APIKey),
			geocode.WithRateLimit(c.RateLimit),
			geocode.WithLanguage(c.Language),
			geocode.WithLogger(zap.L()),
		))
	}

	var geocoder geodata.Geocoder = chain
	if len(chain) == 1 {
		geocoder = chain[0]
	}
	if c.CacheTTL > 0 {
		geocoder = geocode.NewCache(geocoder, c.CacheSize, time.Duration(c.CacheTTL)*time.Minute)
	}
	return geocoder, nil
}

// openStore opens and migrates the configured media store.
func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", "sqlite":
		st, err = store.NewSQLite(c.SQLitePath)
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver needs store.database_url")
		}
		st, err = store.NewPostgres(ctx, c.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", c.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newComponent builds the geocode proxy component from configuration.
func newComponent(c config.GeocodeConfig, geocoder geodata.Geocoder) *geofield.Component {
	return geofield.New(
		geofield.WithRoutePath(c.RoutePath),
		geofield.WithAddressParam(c.AddressKey),
		geofield.WithGeocoder(geocoder),
		geofield.WithHandlerLogger(zap.L()),
	)
}

// fieldOptions returns the site-wide field options. extra overrides are
// layered over the configured ones, mapping values merged one level deep.
func fieldOptions(c config.FieldConfig, extra map[string]any) []geofield.FieldOption {
	return []geofield.FieldOption{
		geofield.WithOverrides(layerOverrides(c.Overrides(), extra)),
		geofield.WithAssetBase(c.AssetBase),
		geofield.WithLogger(zap.L()),
	}
}

func layerOverrides(base, top map[string]any) map[string]any {
	out := options.New(base).Map()
	for key, value := range top {
		inner, innerOK := value.(map[string]any)
		current, currentOK := out[key].(map[string]any)
		if innerOK && currentOK {
			for k, v := range inner {
				current[k] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}
