package mapsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// Lifecycle is the state of a Controller.
type Lifecycle int

const (
	StateUninitialized Lifecycle = iota
	StateActive
	StateClosed
)

func (s Lifecycle) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNoHost is returned by NewController without a host.
	ErrNoHost = errors.New("mapsync: host is required")
	// ErrNoProvider is returned by NewController without a provider.
	ErrNoProvider = errors.New("mapsync: provider is required")
)

// MarkerTitle is the tooltip of the position marker.
const MarkerTitle = "Position"

// Controller synchronises one field's map, marker, mirrored values and search
// box. Handlers must run on the configured Dispatcher.
type Controller struct {
	host     Host
	provider Provider
	cfg      config

	inited atomic.Bool
	closed atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	status Lifecycle
	m      Map
	marker Marker
	state  geodata.CoordinateState
	subs   []Subscription
}

// NewController binds a controller to host. Init must be called before the
// controller reacts to events.
func NewController(host Host, provider Provider, opts ...Option) (*Controller, error) {
	if host == nil {
		return nil, ErrNoHost
	}
	if provider == nil {
		return nil, ErrNoProvider
	}
	cfg := newConfig(opts)
	if cfg.geocoder == nil {
		cfg.geocoder = provider
	}
	cfg.logger = cfg.logger.With(zap.String("field", host.ID()))
	return &Controller{host: host, provider: provider, cfg: cfg, ctx: context.Background()}, nil
}

// Init parses the host settings, builds the map and marker, writes the
// initial mirrored values without marking the form changed and subscribes to
// every event source. Only the first call does any work; the flag is set
// before anything else, so a failed Init is not retried.
func (c *Controller) Init(ctx context.Context) error {
	if !c.inited.CompareAndSwap(false, true) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.init(ctx); err != nil {
		c.cfg.logger.Error("geofield map init failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) init(ctx context.Context) error {
	settings, err := geodata.ParseSettings([]byte(c.host.Settings()))
	if err != nil {
		return eris.Wrapf(err, "mapsync: field %q", c.host.ID())
	}

	m, err := c.provider.NewMap(c.host.MapContainer(), MapOptions{
		Center:            settings.Center(),
		Zoom:              settings.Map.Zoom,
		MapTypeID:         settings.Map.MapTypeID,
		StreetViewControl: false,
		Options:           settings.Map.Options,
	})
	if err != nil {
		return eris.Wrapf(err, "mapsync: create map for %q", c.host.ID())
	}
	marker, err := c.provider.NewMarker(MarkerOptions{
		Position:  m.Center(),
		Map:       m,
		Draggable: true,
		Title:     MarkerTitle,
	})
	if err != nil {
		return eris.Wrapf(err, "mapsync: create marker for %q", c.host.ID())
	}

	c.mu.Lock()
	c.ctx = ctx
	c.m = m
	c.marker = marker
	c.status = StateActive
	c.state.Zoom = settings.Map.Zoom
	c.mu.Unlock()

	c.host.Mirror().Set(geodata.Zoom, geodata.FormatZoom(settings.Map.Zoom))
	c.updateField(m.Center(), true)

	c.subscribe(c.provider.AddListener(marker, EventDragEnd, func(Event) {
		c.dispatch(c.centreOnMarker)
	}))
	c.subscribe(c.provider.AddListener(m, EventClick, func(ev Event) {
		if ev.LatLng == nil {
			return
		}
		pos := *ev.LatLng
		c.dispatch(func() { c.mapClicked(pos) })
	}))
	c.subscribe(c.provider.AddListener(m, EventZoomChanged, func(Event) {
		c.dispatch(c.updateZoom)
	}))

	if search := c.host.SearchBox(); search != nil {
		c.subscribe(search.OnSubmit(func(ev UIEvent) {
			c.searchReady(ev)
		}))
		c.subscribe(search.OnKeyDown(func(ev UIEvent) {
			if ev != nil && ev.KeyCode() == KeyEnter {
				c.searchReady(ev)
			}
		}))
	}
	if c.cfg.pins != nil {
		c.subscribe(c.cfg.pins.SubscribePin(func(move PinMove) {
			c.dispatch(func() { c.movePin(move.Position()) })
		}))
	}

	c.cfg.logger.Debug("geofield map initialised",
		zap.Float64("lat", settings.Coords.Lat),
		zap.Float64("lng", settings.Coords.Lng),
		zap.Int("zoom", settings.Map.Zoom),
	)
	return nil
}

// State returns the displayed coordinate state.
func (c *Controller) State() geodata.CoordinateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the lifecycle state.
func (c *Controller) Status() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscriptions reports the number of active event subscriptions.
func (c *Controller) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Map returns the map built by Init, nil before.
func (c *Controller) Map() Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m
}

// Marker returns the marker built by Init, nil before.
func (c *Controller) Marker() Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marker
}

// Close removes every subscription. Events already queued are ignored.
func (c *Controller) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.status = StateClosed
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Remove()
	}
}

func (c *Controller) subscribe(sub Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

func (c *Controller) dispatch(fn func()) {
	c.cfg.dispatcher.Do(func() {
		if c.closed.Load() {
			return
		}
		fn()
	})
}

// updateField is the only writer of the latitude and longitude mirrors.
func (c *Controller) updateField(pos geodata.LatLng, init bool) {
	c.mu.Lock()
	c.state.Latitude = pos.Lat
	c.state.Longitude = pos.Lng
	c.mu.Unlock()

	mirror := c.host.Mirror()
	mirror.Set(geodata.Latitude, geodata.FormatCoordinate(pos.Lat))
	mirror.Set(geodata.Longitude, geodata.FormatCoordinate(pos.Lng))
	if !init {
		if form := c.host.Form(); form != nil {
			form.MarkChanged()
		}
	}
}

// updateZoom is the only writer of the zoom mirror. Zoom changes never mark
// the form changed.
func (c *Controller) updateZoom() {
	zoom := c.Map().Zoom()
	c.mu.Lock()
	c.state.Zoom = zoom
	c.mu.Unlock()
	c.host.Mirror().Set(geodata.Zoom, geodata.FormatZoom(zoom))
}

func (c *Controller) centreOnMarker() {
	pos := c.Marker().Position()
	c.Map().PanTo(pos)
	c.updateField(pos, false)
}

func (c *Controller) mapClicked(pos geodata.LatLng) {
	c.Marker().SetPosition(pos)
	c.updateField(pos, false)
}

func (c *Controller) movePin(pos geodata.LatLng) {
	c.Marker().SetPosition(pos)
	m := c.Map()
	m.PanTo(pos)
	m.SetZoom(geodata.PinMoveZoom)
	c.updateZoom()
	c.updateField(pos, false)
}

// searchReady suppresses the default form submission synchronously, then
// starts a lookup for the trimmed search text.
func (c *Controller) searchReady(ev UIEvent) {
	if ev != nil {
		ev.PreventDefault()
		ev.StopPropagation()
	}
	if c.closed.Load() {
		return
	}
	search := c.host.SearchBox()
	if search == nil {
		return
	}
	query := strings.TrimSpace(search.Text())
	if query == "" {
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	c.cfg.runner(func() {
		results, status, err := c.cfg.geocoder.Geocode(ctx, query)
		c.dispatch(func() { c.searchComplete(query, results, status, err) })
	})
}

func (c *Controller) searchComplete(query string, results []geodata.GeocodeResult, status geodata.GeocodeStatus, err error) {
	outcome := SearchOutcome{FieldID: c.host.ID(), Query: query, Status: status, Err: err}
	if err != nil || status != geodata.StatusOK || len(results) == 0 {
		c.cfg.logger.Warn("geocoding search failed",
			zap.String("query", query),
			zap.String("status", string(status)),
			zap.Int("results", len(results)),
			zap.Error(err),
		)
		c.report(outcome)
		return
	}

	pos := results[0].Geometry.Location
	c.Marker().SetPosition(pos)
	c.centreOnMarker()

	outcome.Applied = true
	outcome.Position = pos
	c.report(outcome)
}

func (c *Controller) report(outcome SearchOutcome) {
	if c.cfg.onSearch != nil {
		c.cfg.onSearch(outcome)
	}
}
