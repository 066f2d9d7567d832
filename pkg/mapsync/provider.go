package mapsync

import (
	"github.com/goliatone/go-geofield/pkg/geodata"
)

// Provider event names.
const (
	EventDragEnd     = "dragend"
	EventClick       = "click"
	EventZoomChanged = "zoom_changed"
)

// KeyEnter is the key code that submits the search box.
const KeyEnter = 13

// MapOptions configure a new map.
type MapOptions struct {
	Center            geodata.LatLng
	Zoom              int
	MapTypeID         geodata.MapType
	StreetViewControl bool
	// Options carries any extra map settings from the payload.
	Options map[string]any
}

// MarkerOptions configure a new marker.
type MarkerOptions struct {
	Position  geodata.LatLng
	Map       Map
	Draggable bool
	Title     string
}

// Map is a displayed map.
type Map interface {
	Center() geodata.LatLng
	PanTo(position geodata.LatLng)
	Zoom() int
	SetZoom(zoom int)
}

// Marker is a pin placed on a map.
type Marker interface {
	Position() geodata.LatLng
	SetPosition(position geodata.LatLng)
}

// Event is delivered to provider listeners. Click events carry the clicked
// position.
type Event struct {
	Name   string
	LatLng *geodata.LatLng
}

// Handler receives provider events.
type Handler func(Event)

// Subscription removes a registered listener.
type Subscription interface {
	Remove()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Remove implements Subscription.
func (fn SubscriptionFunc) Remove() {
	if fn != nil {
		fn()
	}
}

// Provider is the mapping capability: map and marker construction, event
// subscription and geocoding.
type Provider interface {
	geodata.Geocoder
	NewMap(container any, opts MapOptions) (Map, error)
	NewMarker(opts MarkerOptions) (Marker, error)
	AddListener(target any, event string, handler Handler) Subscription
}

// Mirror holds the plain form values kept equal to the coordinate state,
// addressed by geodata.Latitude, geodata.Longitude and geodata.Zoom.
type Mirror interface {
	Set(key, value string)
	Value(key string) string
}

// Form is the enclosing form.
type Form interface {
	MarkChanged()
}

// UIEvent is a search box input event.
type UIEvent interface {
	KeyCode() int
	PreventDefault()
	StopPropagation()
}

// SearchBox is the optional geocoding text input.
type SearchBox interface {
	Text() string
	OnSubmit(fn func(UIEvent)) Subscription
	OnKeyDown(fn func(UIEvent)) Subscription
}

// Host is the rendered field a controller binds to.
type Host interface {
	ID() string
	// Settings returns the raw data-settings payload.
	Settings() string
	MapContainer() any
	Mirror() Mirror
	Form() Form
	// SearchBox returns nil when the field has no search input.
	SearchBox() SearchBox
}

// PinMove asks a field to move its pin.
type PinMove struct {
	Latitude  float64
	Longitude float64
}

// Position returns the move target.
func (p PinMove) Position() geodata.LatLng {
	return geodata.LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// PinSource delivers pin-move notifications from other widgets.
type PinSource interface {
	SubscribePin(fn func(PinMove)) Subscription
}

// ContainerObserver notifies when a field container becomes visible or
// active.
type ContainerObserver interface {
	OnActivate(fn func(Host)) Subscription
}
