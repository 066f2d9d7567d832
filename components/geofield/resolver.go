package geofield

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/options"
)

// Resolver holds the merged options of one field and answers dotted-path
// lookups against them. Build one with NewResolver.
type Resolver struct {
	opts *options.Options
}

// NewResolver merges overrides over defaults one level deep. A nil defaults
// map selects DefaultFieldOptions().
func NewResolver(defaults, overrides map[string]any) *Resolver {
	if defaults == nil {
		defaults = DefaultFieldOptions()
	}
	return &Resolver{opts: options.Merge(defaults, overrides)}
}

// Options exposes the merged options.
func (r *Resolver) Options() *options.Options {
	if r == nil {
		return nil
	}
	return r.opts
}

// Get returns the option stored at path or options.Absent.
func (r *Resolver) Get(path string) any {
	return r.Options().Get(path)
}

// Lookup returns the option stored at path and whether it exists.
func (r *Resolver) Lookup(path string) (any, bool) {
	return r.Options().Lookup(path)
}

// Set assigns an option, creating intermediate mappings.
func (r *Resolver) Set(path string, value any) *Resolver {
	if r.opts == nil {
		r.opts = &options.Options{}
	}
	r.opts.Set(path, value)
	return r
}

// DefaultValue returns default_field_values[name] or options.Absent.
func (r *Resolver) DefaultValue(name string) any {
	return r.Get(geodata.KeyDefaultFieldValues + "." + name)
}

// ShowSearchBox reports whether the search input is rendered.
func (r *Resolver) ShowSearchBox() bool {
	value, ok := r.Lookup(geodata.KeyShowSearchBoxOpt)
	if !ok {
		return false
	}
	return cast.ToBool(value)
}

// APIKey returns the maps API key, empty when unset.
func (r *Resolver) APIKey() string {
	value, ok := r.Lookup(geodata.KeyAPIKey)
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(value))
}

// Current carries the values already held by a field, usually the mirrored
// child inputs. Nil, options.Absent, empty strings and unparseable values
// count as unset.
type Current struct {
	Latitude  any
	Longitude any
	Zoom      any
}

// BuildSettingsPayload computes the client settings. Each value resolves as
// current value, then default_field_values, then the global default
// (map.zoom for zoom, 0 for coordinates). A current zoom of 0 is kept; a zero
// zoom in default_field_values or map.zoom is treated as unset. The payload
// is recomputed on every call.
func (r *Resolver) BuildSettingsPayload(current Current) (geodata.FieldSettings, error) {
	lat, _ := firstFloat(current.Latitude, r.DefaultValue(geodata.Latitude))
	lng, _ := firstFloat(current.Longitude, r.DefaultValue(geodata.Longitude))

	zoom, ok := firstInt(0, current.Zoom)
	if !ok {
		zoom, ok = firstInt(1, r.DefaultValue(geodata.Zoom), r.Get(geodata.KeyMap+"."+geodata.KeyZoom))
	}
	if !ok {
		zoom = DefaultZoom
	}

	mapType := geodata.MapTypeRoadmap
	if raw, ok := r.Lookup(geodata.KeyMap + "." + geodata.KeyMapTypeID); ok && raw != nil {
		if text := strings.TrimSpace(cast.ToString(raw)); text != "" {
			mapType = geodata.ParseMapType(text)
		}
	}
	if !mapType.Valid() {
		return geodata.FieldSettings{}, eris.Wrapf(geodata.ErrUnknownMapType, "geofield: map.mapTypeId %q", string(mapType))
	}

	settings := geodata.FieldSettings{
		Coords:        geodata.LatLng{Lat: lat, Lng: lng},
		Map:           geodata.MapSettings{Zoom: zoom, MapTypeID: mapType},
		ShowSearchBox: r.ShowSearchBox(),
		APIKey:        r.APIKey(),
	}

	merged := r.Options().Map()
	if inner, err := cast.ToStringMapE(merged[geodata.KeyMap]); err == nil {
		for key, value := range inner {
			if key == geodata.KeyZoom || key == geodata.KeyMapTypeID {
				continue
			}
			if settings.Map.Options == nil {
				settings.Map.Options = make(map[string]any)
			}
			settings.Map.Options[key] = value
		}
	}
	if values, err := cast.ToStringMapE(merged[geodata.KeyDefaultFieldValues]); err == nil {
		settings.DefaultFieldValues = values
	}
	for key, value := range merged {
		switch key {
		case geodata.KeyMap, geodata.KeyAPIKey, geodata.KeyShowSearchBoxOpt, geodata.KeyDefaultFieldValues:
			continue
		}
		if settings.Extra == nil {
			settings.Extra = make(map[string]any)
		}
		settings.Extra[key] = value
	}
	return settings, nil
}

func unset(value any) bool {
	if value == nil || options.IsAbsent(value) {
		return true
	}
	if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
		return true
	}
	return false
}

func firstFloat(values ...any) (float64, bool) {
	for _, value := range values {
		if unset(value) {
			continue
		}
		if text, ok := value.(string); ok {
			value = strings.TrimSpace(text)
		}
		parsed, err := cast.ToFloat64E(value)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return 0, false
}

// firstInt returns the first value that parses to an integer of at least floor.
func firstInt(floor int, values ...any) (int, bool) {
	for _, value := range values {
		if unset(value) {
			continue
		}
		if text, ok := value.(string); ok {
			value = strings.TrimSpace(text)
		}
		parsed, err := cast.ToFloat64E(value)
		if err != nil || parsed < float64(floor) {
			continue
		}
		return int(parsed), true
	}
	return 0, false
}
