package geodata

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
)

// Option keys understood by the field settings payload.
const (
	KeyCoords             = "coords"
	KeyMap                = "map"
	KeyZoom               = "zoom"
	KeyMapTypeID          = "mapTypeId"
	KeyShowSearchBox      = "showSearchBox"
	KeyAPIKey             = "api_key"
	KeyShowSearchBoxOpt   = "show_search_box"
	KeyDefaultFieldValues = "default_field_values"
)

var (
	// ErrInvalidSettings wraps every settings payload parse failure.
	ErrInvalidSettings = errors.New("geodata: invalid settings payload")
	// ErrMissingMapType is reported when the payload has no map type.
	ErrMissingMapType = errors.New("geodata: settings payload has no map type")
	// ErrUnknownMapType is reported for map types a provider cannot display.
	ErrUnknownMapType = errors.New("geodata: unknown map type")
)

// MapSettings configures the initial map view.
type MapSettings struct {
	Zoom      int
	MapTypeID MapType
	// Options carries any additional map keys found in the merged options.
	Options map[string]any
}

// FieldSettings is the payload a rendered field hands to its client
// controller. It is built once per render and treated as immutable after
// serialization.
type FieldSettings struct {
	Coords             LatLng
	Map                MapSettings
	ShowSearchBox      bool
	APIKey             string
	DefaultFieldValues map[string]any
	// Extra holds the remaining merged options, serialized next to the
	// well-known keys.
	Extra map[string]any
}

// Center returns the initial map centre.
func (s FieldSettings) Center() LatLng {
	return s.Coords
}

// MarshalJSON encodes the payload as
// {"coords":[lat,lng],"map":{"zoom":n,"mapTypeId":"..."},"showSearchBox":b,...}.
func (s FieldSettings) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(s.Extra)+6)
	for key, value := range s.Extra {
		payload[key] = value
	}

	mapPayload := make(map[string]any, len(s.Map.Options)+2)
	for key, value := range s.Map.Options {
		mapPayload[key] = value
	}
	mapPayload[KeyZoom] = s.Map.Zoom
	mapPayload[KeyMapTypeID] = string(s.Map.MapTypeID)

	defaults := s.DefaultFieldValues
	if defaults == nil {
		defaults = map[string]any{}
	}

	payload[KeyCoords] = [2]float64{s.Coords.Lat, s.Coords.Lng}
	payload[KeyMap] = mapPayload
	payload[KeyShowSearchBox] = s.ShowSearchBox
	payload[KeyShowSearchBoxOpt] = s.ShowSearchBox
	payload[KeyAPIKey] = s.APIKey
	payload[KeyDefaultFieldValues] = defaults
	return json.Marshal(payload)
}

// UnmarshalJSON decodes a payload using ParseSettings rules.
func (s *FieldSettings) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSettings(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSettings decodes a serialized settings payload. It fails fast when the
// payload cannot drive a map: malformed JSON, missing or malformed coords,
// missing map block, missing or unknown map type, or a negative zoom. Unknown
// keys are kept in Extra and otherwise ignored.
func ParseSettings(data []byte) (FieldSettings, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return FieldSettings{}, eris.Wrap(errors.Join(ErrInvalidSettings, err), "geodata: decode settings")
	}
	if raw == nil {
		return FieldSettings{}, eris.Wrap(ErrInvalidSettings, "geodata: settings payload is empty")
	}

	coords, err := parseCoords(raw[KeyCoords])
	if err != nil {
		return FieldSettings{}, err
	}

	mapBlock, ok := raw[KeyMap].(map[string]any)
	if !ok {
		return FieldSettings{}, eris.Wrap(ErrInvalidSettings, "geodata: settings payload has no map block")
	}
	mapSettings, err := parseMapSettings(mapBlock)
	if err != nil {
		return FieldSettings{}, err
	}

	settings := FieldSettings{
		Coords: coords,
		Map:    mapSettings,
		Extra:  make(map[string]any),
	}

	if value, ok := raw[KeyShowSearchBox]; ok {
		settings.ShowSearchBox = cast.ToBool(value)
	} else if value, ok := raw[KeyShowSearchBoxOpt]; ok {
		settings.ShowSearchBox = cast.ToBool(value)
	}
	if value, ok := raw[KeyAPIKey]; ok && value != nil {
		settings.APIKey = cast.ToString(value)
	}
	if value, ok := raw[KeyDefaultFieldValues].(map[string]any); ok {
		settings.DefaultFieldValues = value
	}

	for key, value := range raw {
		switch key {
		case KeyCoords, KeyMap, KeyShowSearchBox, KeyShowSearchBoxOpt, KeyAPIKey, KeyDefaultFieldValues:
			continue
		}
		settings.Extra[key] = value
	}
	return settings, nil
}

func parseCoords(value any) (LatLng, error) {
	items, ok := value.([]any)
	if !ok || len(items) != 2 {
		return LatLng{}, eris.Wrap(ErrInvalidSettings, "geodata: coords must be a [lat, lng] pair")
	}
	lat, err := cast.ToFloat64E(items[0])
	if err != nil || items[0] == nil {
		return LatLng{}, eris.Wrapf(ErrInvalidSettings, "geodata: invalid latitude %v", items[0])
	}
	lng, err := cast.ToFloat64E(items[1])
	if err != nil || items[1] == nil {
		return LatLng{}, eris.Wrapf(ErrInvalidSettings, "geodata: invalid longitude %v", items[1])
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

func parseMapSettings(block map[string]any) (MapSettings, error) {
	rawZoom, ok := block[KeyZoom]
	if !ok || rawZoom == nil {
		return MapSettings{}, eris.Wrap(ErrInvalidSettings, "geodata: map block has no zoom")
	}
	zoom, err := cast.ToIntE(rawZoom)
	if err != nil {
		return MapSettings{}, eris.Wrapf(ErrInvalidSettings, "geodata: invalid zoom %v", rawZoom)
	}
	if zoom < 0 {
		return MapSettings{}, eris.Wrapf(ErrInvalidSettings, "geodata: negative zoom %d", zoom)
	}

	rawType, ok := block[KeyMapTypeID].(string)
	if !ok || rawType == "" {
		return MapSettings{}, eris.Wrap(ErrMissingMapType, "geodata: parse map block")
	}
	mapType := ParseMapType(rawType)
	if !mapType.Valid() {
		return MapSettings{}, eris.Wrap(fmt.Errorf("%w: %q", ErrUnknownMapType, rawType), "geodata: parse map block")
	}

	settings := MapSettings{Zoom: zoom, MapTypeID: mapType}
	for key, value := range block {
		if key == KeyZoom || key == KeyMapTypeID {
			continue
		}
		if settings.Options == nil {
			settings.Options = make(map[string]any)
		}
		settings.Options[key] = value
	}
	return settings, nil
}
