package geofield

import "net/http"

// Component bundles the geocode proxy handler, its configuration and the
// routing helpers, and builds fields that point at the proxy.
type Component struct {
	opts Options
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Handler returns the geocode proxy handler.
func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler()
	}
	return HandlerWithOptions(c.opts)
}

// RegisterRoutes registers the proxy handler under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if c == nil {
		return RegisterRoutes(mux, basePath)
	}
	return RegisterRoutesWithOptions(mux, basePath, c.opts)
}

// NewField builds a field whose settings payload carries the proxy URL under
// "geocode_url", so clients without a provider key can search through the
// server.
func (c *Component) NewField(basePath, name, title string, opts ...FieldOption) (*Field, error) {
	endpoint := MountPath(basePath, func(o *Options) { *o = c.Options() })
	all := append([]FieldOption{WithPayloadExtra(GeocodeURLKey, endpoint)}, opts...)
	return NewField(name, title, all...)
}

// GeocodeURLKey is the settings payload key holding the proxy URL.
const GeocodeURLKey = "geocode_url"
