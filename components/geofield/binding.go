package geofield

import (
	"strings"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// Binding names the record properties the three mirrored values are written
// to.
type Binding struct {
	Latitude  string
	Longitude string
	Zoom      string
}

// DefaultBinding maps onto Latitude, Longitude and Zoom.
func DefaultBinding() Binding {
	return Binding{
		Latitude:  geodata.Latitude,
		Longitude: geodata.Longitude,
		Zoom:      geodata.Zoom,
	}
}

func (b Binding) normalize() Binding {
	defaults := DefaultBinding()
	if b.Latitude = strings.TrimSpace(b.Latitude); b.Latitude == "" {
		b.Latitude = defaults.Latitude
	}
	if b.Longitude = strings.TrimSpace(b.Longitude); b.Longitude == "" {
		b.Longitude = defaults.Longitude
	}
	if b.Zoom = strings.TrimSpace(b.Zoom); b.Zoom == "" {
		b.Zoom = defaults.Zoom
	}
	return b
}

// property returns the record property bound to a child key.
func (b Binding) property(key string) string {
	switch key {
	case geodata.Latitude:
		return b.Latitude
	case geodata.Longitude:
		return b.Longitude
	case geodata.Zoom:
		return b.Zoom
	default:
		return ""
	}
}

// Record receives the mirrored values when a form is accepted. Implementations
// convert the submitted string into the property type.
type Record interface {
	SetCastedField(name string, value any) error
}

// Source exposes stored record values used to populate a field before the
// first render.
type Source interface {
	FieldValue(name string) (any, bool)
}

// MapRecord is a Record and Source backed by a plain map.
type MapRecord map[string]any

// SetCastedField stores value under name.
func (m MapRecord) SetCastedField(name string, value any) error {
	m[name] = value
	return nil
}

// FieldValue implements Source.
func (m MapRecord) FieldValue(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}
