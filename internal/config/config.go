// Package config loads the geofield CLI configuration from file and
// environment and initialises the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. GEOFIELD_GEOCODE_API_KEY.
const EnvPrefix = "GEOFIELD"

// Config holds the full application configuration.
type Config struct {
	Field   FieldConfig   `yaml:"field" mapstructure:"field"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// FieldConfig carries the site-wide field option overrides.
type FieldConfig struct {
	// APIKey is the browser key for the maps script. It overrides
	// default_options.api_key when set.
	APIKey         string         `yaml:"api_key" mapstructure:"api_key"`
	DefaultOptions map[string]any `yaml:"default_options" mapstructure:"default_options"`
	AssetBase      string         `yaml:"asset_base" mapstructure:"asset_base"`
}

// Overrides returns the option overrides handed to every field.
func (c FieldConfig) Overrides() map[string]any {
	out := make(map[string]any, len(c.DefaultOptions)+1)
	for key, value := range c.DefaultOptions {
		out[key] = value
	}
	if c.APIKey != "" {
		out["api_key"] = c.APIKey
	}
	return out
}

// GeocodeConfig selects the server-side geocoder.
type GeocodeConfig struct {
	// Provider is "google", "table" or "none".
	Provider   string  `yaml:"provider" mapstructure:"provider"`
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Language   string  `yaml:"language" mapstructure:"language"`
	TablePath  string  `yaml:"table_path" mapstructure:"table_path"`
	CacheTTL   int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	CacheSize  int     `yaml:"cache_size" mapstructure:"cache_size"`
	RoutePath  string  `yaml:"route_path" mapstructure:"route_path"`
	AddressKey string  `yaml:"address_param" mapstructure:"address_param"`
}

// StoreConfig selects the media store.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	BasePath       string   `yaml:"base_path" mapstructure:"base_path"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownSecs   int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from path, or config.yaml in the working
// directory when path is empty, then applies GEOFIELD_* environment
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("field.api_key", "")
	v.SetDefault("field.asset_base", "/geofield/assets")
	v.SetDefault("geocode.provider", "none")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.cache_ttl_minutes", 60)
	v.SetDefault("geocode.cache_size", 512)
	v.SetDefault("geocode.route_path", "/api/geocode")
	v.SetDefault("geocode.address_param", "address")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "geofield.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Field.DefaultOptions = restoreOptionKeys(cfg.Field.DefaultOptions)
	return &cfg, nil
}

// optionKeys lists the mixed-case option names viper lowercases on read.
var optionKeys = map[string]string{
	"maptypeid":         "mapTypeId",
	"showsearchbox":     "showSearchBox",
	"streetviewcontrol": "streetViewControl",
}

// fieldValueKeys restores the property names under default_field_values.
var fieldValueKeys = map[string]string{
	"latitude":  "Latitude",
	"longitude": "Longitude",
	"zoom":      "Zoom",
}

func restoreOptionKeys(values map[string]any) map[string]any {
	return restoreKeys(values, optionKeys)
}

func restoreKeys(values map[string]any, names map[string]string) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		name := key
		if restored, ok := names[key]; ok {
			name = restored
		}
		if inner, ok := value.(map[string]any); ok {
			if key == "default_field_values" {
				value = restoreKeys(inner, fieldValueKeys)
			} else {
				value = restoreKeys(inner, optionKeys)
			}
		}
		out[name] = value
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
