// Package headless implements the mapsync capabilities in memory: a map
// provider with simulated user gestures and a field host holding the
// mirrored values. It backs the terminal picker and the controller tests.
package headless

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/mapsync"
)

// MaxZoom is the deepest zoom level the headless map accepts.
const MaxZoom = 21

// Provider is an in-memory mapsync.Provider. Geocoding is delegated to the
// configured geodata.Geocoder.
type Provider struct {
	geocoder geodata.Geocoder

	mu        sync.Mutex
	maps      []*Map
	listeners *listeners
}

var _ mapsync.Provider = (*Provider)(nil)

// NewProvider returns a provider geocoding through geocoder. A nil geocoder
// answers every lookup with ZERO_RESULTS.
func NewProvider(geocoder geodata.Geocoder) *Provider {
	return &Provider{geocoder: geocoder, listeners: newListeners()}
}

// Geocode implements geodata.Geocoder.
func (p *Provider) Geocode(ctx context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
	if p.geocoder == nil {
		return nil, geodata.StatusZeroResults, nil
	}
	return p.geocoder.Geocode(ctx, address)
}

// NewMap implements mapsync.Provider.
func (p *Provider) NewMap(container any, opts mapsync.MapOptions) (mapsync.Map, error) {
	if !opts.MapTypeID.Valid() {
		return nil, eris.Wrapf(geodata.ErrUnknownMapType, "headless: map type %q", string(opts.MapTypeID))
	}
	m := &Map{
		provider:  p,
		container: container,
		center:    opts.Center,
		zoom:      clampZoom(opts.Zoom),
		mapType:   opts.MapTypeID,
	}
	p.mu.Lock()
	p.maps = append(p.maps, m)
	p.mu.Unlock()
	return m, nil
}

// NewMarker implements mapsync.Provider.
func (p *Provider) NewMarker(opts mapsync.MarkerOptions) (mapsync.Marker, error) {
	m, ok := opts.Map.(*Map)
	if !ok || m == nil {
		return nil, eris.New("headless: marker needs a headless map")
	}
	marker := &Marker{
		provider:  p,
		position:  opts.Position,
		draggable: opts.Draggable,
		title:     opts.Title,
	}
	m.mu.Lock()
	m.markers = append(m.markers, marker)
	m.mu.Unlock()
	return marker, nil
}

// AddListener implements mapsync.Provider. Unknown targets get a no-op
// subscription.
func (p *Provider) AddListener(target any, event string, handler mapsync.Handler) mapsync.Subscription {
	switch target.(type) {
	case *Map, *Marker:
		return p.listeners.add(target, event, handler)
	default:
		return mapsync.SubscriptionFunc(nil)
	}
}

// Listeners reports the number of registered provider listeners.
func (p *Provider) Listeners() int {
	return p.listeners.count()
}

// Maps returns the maps created so far.
func (p *Provider) Maps() []*Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Map(nil), p.maps...)
}

// Map is an in-memory map.
type Map struct {
	provider  *Provider
	container any

	mu      sync.Mutex
	center  geodata.LatLng
	zoom    int
	mapType geodata.MapType
	markers []*Marker
}

// Center implements mapsync.Map.
func (m *Map) Center() geodata.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// PanTo implements mapsync.Map.
func (m *Map) PanTo(pos geodata.LatLng) {
	m.mu.Lock()
	m.center = pos
	m.mu.Unlock()
}

// Zoom implements mapsync.Map.
func (m *Map) Zoom() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoom
}

// SetZoom implements mapsync.Map. zoom_changed fires when the level changes.
func (m *Map) SetZoom(zoom int) {
	zoom = clampZoom(zoom)
	m.mu.Lock()
	changed := m.zoom != zoom
	m.zoom = zoom
	m.mu.Unlock()
	if changed {
		m.provider.listeners.fire(m, mapsync.Event{Name: mapsync.EventZoomChanged})
	}
}

// MapType returns the displayed map type.
func (m *Map) MapType() geodata.MapType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapType
}

// Container returns the container the map was created in.
func (m *Map) Container() any { return m.container }

// Click simulates a user click at pos.
func (m *Map) Click(pos geodata.LatLng) {
	m.provider.listeners.fire(m, mapsync.Event{Name: mapsync.EventClick, LatLng: &pos})
}

// Marker is an in-memory marker.
type Marker struct {
	provider  *Provider
	draggable bool
	title     string

	mu       sync.Mutex
	position geodata.LatLng
}

// Position implements mapsync.Marker.
func (m *Marker) Position() geodata.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetPosition implements mapsync.Marker.
func (m *Marker) SetPosition(pos geodata.LatLng) {
	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()
}

// Title returns the marker tooltip.
func (m *Marker) Title() string { return m.title }

// Draggable reports whether the marker accepts drags.
func (m *Marker) Draggable() bool { return m.draggable }

// Drag simulates a user dragging the marker to pos. Non-draggable markers
// ignore it.
func (m *Marker) Drag(pos geodata.LatLng) {
	if !m.draggable {
		return
	}
	m.SetPosition(pos)
	m.provider.listeners.fire(m, mapsync.Event{Name: mapsync.EventDragEnd})
}

func clampZoom(zoom int) int {
	if zoom < 0 {
		return 0
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

type listener struct {
	id      int
	target  any
	event   string
	handler mapsync.Handler
}

type listeners struct {
	mu     sync.Mutex
	nextID int
	items  []listener
}

func newListeners() *listeners {
	return &listeners{}
}

func (l *listeners) add(target any, event string, handler mapsync.Handler) mapsync.Subscription {
	if handler == nil {
		return mapsync.SubscriptionFunc(nil)
	}
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.items = append(l.items, listener{id: id, target: target, event: event, handler: handler})
	l.mu.Unlock()

	var once sync.Once
	return mapsync.SubscriptionFunc(func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, item := range l.items {
				if item.id == id {
					l.items = append(l.items[:i], l.items[i+1:]...)
					return
				}
			}
		})
	})
}

func (l *listeners) fire(target any, ev mapsync.Event) {
	l.mu.Lock()
	var handlers []mapsync.Handler
	for _, item := range l.items {
		if item.target == target && item.event == ev.Name {
			handlers = append(handlers, item.handler)
		}
	}
	l.mu.Unlock()
	for _, handler := range handlers {
		handler(ev)
	}
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
