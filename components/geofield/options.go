package geofield

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// GuardFunc authorizes a geocode proxy request. A returned HTTPError selects
// the response status; any other error yields 403.
type GuardFunc func(r *http.Request) error

// Options configure the geocode proxy handler.
type Options struct {
	RoutePath    string
	AddressParam string
	Guard        GuardFunc
	Geocoder     geodata.Geocoder
	Logger       *zap.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:    "/api/geocode",
		AddressParam: "address",
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/geocode"
	}
	if opts.AddressParam == "" {
		opts.AddressParam = "address"
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithAddressParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.AddressParam = name
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithGeocoder(geocoder geodata.Geocoder) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Geocoder = geocoder
	}
}

func WithHandlerLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}
