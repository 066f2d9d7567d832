// Package geodata holds the value types shared by the server-side geofield
// component and the client-side map synchronisation controller: coordinates,
// map settings, the serialized field settings payload and the geocoding
// capability.
package geodata

import (
	"context"
	"strconv"
	"strings"
)

// Property names used for the mirrored child fields and the default record
// binding.
const (
	Latitude  = "Latitude"
	Longitude = "Longitude"
	Zoom      = "Zoom"
)

// PinMoveZoom is the zoom level forced when another widget moves the pin, so
// the editor can verify the placement close up.
const PinMoveZoom = 10

// LatLng is a geographic position in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CoordinateState is the position currently displayed by a controller.
type CoordinateState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

// Position returns the state as a LatLng.
func (s CoordinateState) Position() LatLng {
	return LatLng{Lat: s.Latitude, Lng: s.Longitude}
}

// MapType enumerates the base map styles a provider can display.
type MapType string

const (
	MapTypeRoadmap   MapType = "ROADMAP"
	MapTypeSatellite MapType = "SATELLITE"
	MapTypeHybrid    MapType = "HYBRID"
	MapTypeTerrain   MapType = "TERRAIN"
)

// Valid reports whether t is a known map type.
func (t MapType) Valid() bool {
	switch t {
	case MapTypeRoadmap, MapTypeSatellite, MapTypeHybrid, MapTypeTerrain:
		return true
	default:
		return false
	}
}

// ParseMapType normalises raw into a MapType. Unknown values are returned
// as-is so callers can report them.
func ParseMapType(raw string) MapType {
	return MapType(strings.ToUpper(strings.TrimSpace(raw)))
}

// FormatCoordinate renders a coordinate the way it is written to a mirrored
// form value: shortest representation, no exponent.
func FormatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// FormatZoom renders a zoom level for a mirrored form value.
func FormatZoom(zoom int) string {
	return strconv.Itoa(zoom)
}

// GeocodeStatus mirrors the status codes returned by geocoding providers.
type GeocodeStatus string

const (
	StatusOK             GeocodeStatus = "OK"
	StatusZeroResults    GeocodeStatus = "ZERO_RESULTS"
	StatusOverQueryLimit GeocodeStatus = "OVER_QUERY_LIMIT"
	StatusOverDailyLimit GeocodeStatus = "OVER_DAILY_LIMIT"
	StatusRequestDenied  GeocodeStatus = "REQUEST_DENIED"
	StatusInvalidRequest GeocodeStatus = "INVALID_REQUEST"
	StatusUnknownError   GeocodeStatus = "UNKNOWN_ERROR"
	// StatusError marks failures that never reached the provider (transport,
	// decoding).
	StatusError GeocodeStatus = "ERROR"
)

// Geometry wraps the resolved location of a geocoding result.
type Geometry struct {
	Location     LatLng `json:"location"`
	LocationType string `json:"location_type,omitempty"`
}

// GeocodeResult is a single candidate returned by a geocoder.
type GeocodeResult struct {
	Geometry         Geometry `json:"geometry"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
}

// Geocoder resolves free text into candidate positions. Implementations
// return StatusOK with at least one result on success. A non-nil error is
// paired with StatusError.
type Geocoder interface {
	Geocode(ctx context.Context, address string) ([]GeocodeResult, GeocodeStatus, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, address string) ([]GeocodeResult, GeocodeStatus, error)

// Geocode implements Geocoder.
func (fn GeocoderFunc) Geocode(ctx context.Context, address string) ([]GeocodeResult, GeocodeStatus, error) {
	return fn(ctx, address)
}
