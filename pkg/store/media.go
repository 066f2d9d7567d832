// Package store persists geotagged media records: the record a geofield
// writes its latitude, longitude and zoom back into.
package store

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRID is the spatial reference of stored locations (WGS 84).
const SRID = 4326

// Record property names.
const (
	PropLatitude  = "Latitude"
	PropLongitude = "Longitude"
	PropZoom      = "Zoom"
	PropFilename  = "Filename"
)

// ErrUnknownProperty is returned by SetCastedField for names Media does not
// have.
var ErrUnknownProperty = errors.New("store: unknown media property")

// Media is an uploaded file with the position it was taken at. A record is
// unplaced until a latitude or longitude is assigned.
type Media struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Zoom      int       `json:"zoom"`
	Placed    bool      `json:"placed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Place sets the position and marks the record placed.
func (m *Media) Place(lat, lng float64, zoom int) {
	m.Latitude, m.Longitude, m.Zoom = lat, lng, zoom
	m.Placed = true
}

// SetCastedField assigns a property from a loosely typed value, typically a
// submitted form string. Blank strings set the zero value. A non-blank
// latitude or longitude marks the record placed.
func (m *Media) SetCastedField(name string, value any) error {
	if text, ok := value.(string); ok {
		value = strings.TrimSpace(text)
		if value == "" {
			value = nil
		}
	}
	switch name {
	case PropLatitude:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return eris.Wrapf(err, "store: cast %s", name)
		}
		m.Latitude = v
		m.Placed = m.Placed || value != nil
	case PropLongitude:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return eris.Wrapf(err, "store: cast %s", name)
		}
		m.Longitude = v
		m.Placed = m.Placed || value != nil
	case PropZoom:
		v, err := cast.ToIntE(value)
		if err != nil {
			return eris.Wrapf(err, "store: cast %s", name)
		}
		m.Zoom = v
	case PropFilename:
		m.Filename = cast.ToString(value)
	default:
		return eris.Wrapf(ErrUnknownProperty, "store: %q", name)
	}
	return nil
}

// FieldValue returns a property by name. The position properties are
// missing while the record is unplaced.
func (m *Media) FieldValue(name string) (any, bool) {
	switch name {
	case PropLatitude, PropLongitude, PropZoom:
		if !m.Placed {
			return nil, false
		}
	}
	switch name {
	case PropLatitude:
		return m.Latitude, true
	case PropLongitude:
		return m.Longitude, true
	case PropZoom:
		return m.Zoom, true
	case PropFilename:
		return m.Filename, true
	default:
		return nil, false
	}
}

// Point returns the location as a WGS 84 point (x = longitude).
func (m *Media) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{m.Longitude, m.Latitude}).SetSRID(SRID)
}

// EWKB encodes the location for a PostGIS geometry column.
func (m *Media) EWKB() ([]byte, error) {
	data, err := ewkb.Marshal(m.Point(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode location")
	}
	return data, nil
}

// Feature returns the record as a GeoJSON feature.
func (m *Media) Feature() *geojson.Feature {
	return &geojson.Feature{
		ID:       m.ID,
		Geometry: m.Point(),
		Properties: map[string]any{
			"filename":   m.Filename,
			"zoom":       m.Zoom,
			"updated_at": m.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// FeatureCollection encodes the placed records as a GeoJSON feature
// collection.
func FeatureCollection(items []Media) ([]byte, error) {
	collection := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(items))}
	for i := range items {
		if !items[i].Placed {
			continue
		}
		collection.Features = append(collection.Features, items[i].Feature())
	}
	data, err := json.Marshal(&collection)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode feature collection")
	}
	return data, nil
}
