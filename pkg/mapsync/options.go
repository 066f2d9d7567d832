package mapsync

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// SearchOutcome reports how a search submission ended.
type SearchOutcome struct {
	FieldID string
	Query   string
	Status  geodata.GeocodeStatus
	Err     error
	// Applied is true when the marker moved to the first result.
	Applied  bool
	Position geodata.LatLng
}

// SearchHook observes completed searches.
type SearchHook func(SearchOutcome)

type config struct {
	logger     *zap.Logger
	dispatcher Dispatcher
	runner     Runner
	pins       PinSource
	geocoder   geodata.Geocoder
	onSearch   SearchHook
}

// Option configures a Controller or Binder.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{
		dispatcher: Inline{},
		runner:     SyncRunner,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.L()
	}
	if cfg.dispatcher == nil {
		cfg.dispatcher = Inline{}
	}
	if cfg.runner == nil {
		cfg.runner = SyncRunner
	}
	// Inline has no queue to post completions back to, so lookups stay on
	// the handler goroutine.
	switch cfg.dispatcher.(type) {
	case Inline, *Inline:
		cfg.runner = SyncRunner
	}
	return cfg
}

// WithLogger sets the diagnostics logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithDispatcher sets the event loop handlers run on. Defaults to Inline.
func WithDispatcher(d Dispatcher) Option {
	return func(c *config) {
		c.dispatcher = d
	}
}

// WithRunner sets how geocode lookups are started. Defaults to SyncRunner.
// Asynchronous runners need a queueing dispatcher such as EventLoop; with
// Inline the runner is always SyncRunner.
func WithRunner(r Runner) Option {
	return func(c *config) {
		c.runner = r
	}
}

// WithPinSource subscribes the controller to pin-move notifications.
func WithPinSource(src PinSource) Option {
	return func(c *config) {
		c.pins = src
	}
}

// WithGeocoder replaces the provider's geocoder, e.g. with a server proxy.
func WithGeocoder(g geodata.Geocoder) Option {
	return func(c *config) {
		c.geocoder = g
	}
}

// WithSearchHook observes every completed search.
func WithSearchHook(hook SearchHook) Option {
	return func(c *config) {
		c.onSearch = hook
	}
}
