// Package geocode provides geodata.Geocoder implementations: the Google
// Geocoding API, an offline address table, a fallback chain and an in-memory
// cache.
package geocode

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures a Google geocoder.
type Option func(*Google)

// WithAPIKey sets the Geocoding API key.
func WithAPIKey(key string) Option {
	return func(g *Google) {
		g.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Google) {
		if hc != nil {
			g.httpClient = hc
		}
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *Google) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithEndpoint overrides the Geocoding API URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Google) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// WithLanguage sets the result language.
func WithLanguage(lang string) Option {
	return func(g *Google) {
		g.language = lang
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(g *Google) {
		g.logger = logger
	}
}

// NewGoogle returns a Google Geocoding API client.
func NewGoogle(opts ...Option) *Google {
	g := &Google{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		endpoint:   GoogleGeocodeURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.logger == nil {
		g.logger = zap.L()
	}
	return g
}
