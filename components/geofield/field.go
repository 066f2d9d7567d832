package geofield

import (
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/options"
	"github.com/goliatone/go-geofield/pkg/render"
	"github.com/goliatone/go-geofield/pkg/render/template"
)

// SearchKey is the child key of the optional search input.
const SearchKey = "Search"

// CSS classes of the child inputs. The client controller locates the
// mirrored values through them.
const (
	ClassLatitude  = "geofield-latfield"
	ClassLongitude = "geofield-lngfield"
	ClassZoom      = "geofield-zoomfield"
	ClassSearch    = "geofield-searchfield"
)

var (
	// ErrMissingName is returned by NewField for an empty field name.
	ErrMissingName = errors.New("geofield: field name is required")
	// ErrNilRecord is returned by SaveInto when no record is given.
	ErrNilRecord = errors.New("geofield: record is nil")
)

var mirroredKeys = []string{geodata.Latitude, geodata.Longitude, geodata.Zoom}

// Child is one input rendered inside the field: the three hidden mirrors and
// the optional search box.
type Child struct {
	Key         string
	Name        string
	Title       string
	Type        string
	Class       string
	Placeholder string
	Value       string
}

// FieldOption configures a Field at construction.
type FieldOption func(*Field)

// WithOverrides sets the option overrides merged over the defaults.
func WithOverrides(overrides map[string]any) FieldOption {
	return func(f *Field) {
		if f == nil {
			return
		}
		f.overrides = options.New(overrides).Map()
	}
}

// WithDefaults replaces the embedded default options, typically with the
// geofield.default_options configuration block.
func WithDefaults(defaults map[string]any) FieldOption {
	return func(f *Field) {
		if f == nil || defaults == nil {
			return
		}
		f.defaults = options.New(defaults).Map()
	}
}

// WithBinding sets the record property names. Empty names keep the default.
func WithBinding(binding Binding) FieldOption {
	return func(f *Field) {
		if f == nil {
			return
		}
		f.binding = binding.normalize()
	}
}

// WithRenderer replaces the bundled template engine.
func WithRenderer(renderer template.Renderer) FieldOption {
	return func(f *Field) {
		if f == nil {
			return
		}
		f.renderer = renderer
	}
}

// WithTheme applies a go-theme renderer configuration: partial overrides,
// CSS variables and asset URL resolution.
func WithTheme(cfg *theme.RendererConfig) FieldOption {
	return func(f *Field) {
		if f == nil {
			return
		}
		f.theme = cfg
	}
}

// WithAssetBase sets the URL prefix of the bundled stylesheet and script.
func WithAssetBase(base string) FieldOption {
	return func(f *Field) {
		if f == nil {
			return
		}
		f.assetBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithPayloadExtra adds a key to the serialized settings payload. Unlike
// overrides it is not filtered by the defaults schema.
func WithPayloadExtra(key string, value any) FieldOption {
	return func(f *Field) {
		if f == nil || strings.TrimSpace(key) == "" {
			return
		}
		if f.extra == nil {
			f.extra = make(map[string]any)
		}
		f.extra[strings.TrimSpace(key)] = value
	}
}

// WithLogger sets the field logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) FieldOption {
	return func(f *Field) {
		if f == nil || logger == nil {
			return
		}
		f.logger = logger
	}
}

// Field is the server side of a geolocation upload field. Construction runs
// ResolveConfig followed by BuildChildFieldSet; both can be called again to
// rebuild the field.
type Field struct {
	name  string
	title string
	value any

	defaults  map[string]any
	overrides map[string]any
	binding   Binding
	resolver  *Resolver
	children  []Child

	renderer  template.Renderer
	theme     *theme.RendererConfig
	assetBase string
	extra     map[string]any
	logger    *zap.Logger
}

// NewField builds a field named name. The hidden mirrors are named
// name[Latitude], name[Longitude] and name[Zoom].
func NewField(name, title string, opts ...FieldOption) (*Field, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}
	f := &Field{
		name:      name,
		title:     title,
		binding:   DefaultBinding(),
		assetBase: DefaultAssetBase,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.logger == nil {
		f.logger = zap.L()
	}
	f.ResolveConfig(f.overrides)
	f.BuildChildFieldSet()
	return f, nil
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Title returns the raw field title.
func (f *Field) Title() string { return f.title }

// Binding returns the record property names.
func (f *Field) Binding() Binding { return f.binding }

// Resolver returns the resolver built by the last ResolveConfig call.
func (f *Field) Resolver() *Resolver { return f.resolver }

// Value returns the upload value set through SetValue.
func (f *Field) Value() any { return f.value }

// ResolveConfig merges overrides over the field defaults and stores the
// result. Call BuildChildFieldSet afterwards to refresh the children.
func (f *Field) ResolveConfig(overrides map[string]any) *Resolver {
	f.overrides = overrides
	f.resolver = NewResolver(f.defaults, overrides)
	return f.resolver
}

// BuildChildFieldSet creates the hidden mirrors, seeded from
// default_field_values, and the search input when show_search_box is set.
func (f *Field) BuildChildFieldSet() []Child {
	if f.resolver == nil {
		f.ResolveConfig(f.overrides)
	}
	titles := map[string]string{
		geodata.Latitude:  "Lat",
		geodata.Longitude: "Lng",
		geodata.Zoom:      "Zoom",
	}
	classes := map[string]string{
		geodata.Latitude:  ClassLatitude,
		geodata.Longitude: ClassLongitude,
		geodata.Zoom:      ClassZoom,
	}

	children := make([]Child, 0, len(mirroredKeys)+1)
	for _, key := range mirroredKeys {
		value := f.resolver.DefaultValue(key)
		if key == geodata.Zoom {
			// a zero default zoom falls through to map.zoom
			if _, ok := firstInt(1, value); !ok {
				value = nil
			}
		}
		children = append(children, Child{
			Key:   key,
			Name:  render.ChildName(f.name, key),
			Title: titles[key],
			Type:  "hidden",
			Class: classes[key],
			Value: stringValue(value),
		})
	}
	if f.resolver.ShowSearchBox() {
		children = append(children, Child{
			Key:         SearchKey,
			Name:        render.ChildName(f.name, SearchKey),
			Title:       SearchKey,
			Type:        "text",
			Class:       ClassSearch,
			Placeholder: "Search for a location",
		})
	}
	f.children = children
	return f.Children()
}

// Children returns a copy of the child inputs.
func (f *Field) Children() []Child {
	return append([]Child(nil), f.children...)
}

// Child returns the child input for key.
func (f *Field) Child(key string) (Child, bool) {
	for _, child := range f.children {
		if child.Key == key {
			return child, true
		}
	}
	return Child{}, false
}

// ChildValue returns the current value of a child input, empty when missing.
func (f *Field) ChildValue(key string) string {
	child, _ := f.Child(key)
	return child.Value
}

func (f *Field) setChildValue(key string, value any) bool {
	for i := range f.children {
		if f.children[i].Key == key {
			f.children[i].Value = stringValue(value)
			return true
		}
	}
	return false
}

// SetValue stores the upload value. When data holds a mapping under the field
// name (a submitted form) the mirrored children take the submitted values.
func (f *Field) SetValue(value any, data map[string]any) *Field {
	f.value = value
	submitted, ok := data[f.name]
	if !ok || submitted == nil {
		return f
	}
	values, ok := submittedMap(submitted)
	if !ok {
		return f
	}
	for _, key := range mirroredKeys {
		if v, present := values[key]; present {
			f.setChildValue(key, v)
		}
	}
	return f
}

// LoadForm copies name[Latitude], name[Longitude] and name[Zoom] from a
// submitted form. It reports whether any of them was present.
func (f *Field) LoadForm(values url.Values) bool {
	found := false
	for name := range values {
		parent, key, ok := render.SplitChildName(name)
		if !ok || parent != f.name || !slices.Contains(mirroredKeys, key) {
			continue
		}
		f.setChildValue(key, strings.TrimSpace(values.Get(name)))
		found = true
	}
	return found
}

// LoadRecord seeds the mirrors from stored record values, read through the
// binding names. Missing or nil values keep the current child value.
func (f *Field) LoadRecord(src Source) {
	if src == nil {
		return
	}
	for _, key := range mirroredKeys {
		value, ok := src.FieldValue(f.binding.property(key))
		if !ok || value == nil {
			continue
		}
		f.setChildValue(key, value)
	}
}

// SaveInto writes the three mirrored values to record through the binding.
func (f *Field) SaveInto(record Record) error {
	if record == nil {
		return ErrNilRecord
	}
	for _, key := range mirroredKeys {
		property := f.binding.property(key)
		if err := record.SetCastedField(property, f.ChildValue(key)); err != nil {
			return eris.Wrapf(err, "geofield: save %s into %q", key, property)
		}
	}
	return nil
}

// Settings builds the client settings payload from the current child values.
func (f *Field) Settings() (geodata.FieldSettings, error) {
	if f.resolver == nil {
		f.ResolveConfig(f.overrides)
	}
	settings, err := f.resolver.BuildSettingsPayload(Current{
		Latitude:  f.ChildValue(geodata.Latitude),
		Longitude: f.ChildValue(geodata.Longitude),
		Zoom:      f.ChildValue(geodata.Zoom),
	})
	if err != nil {
		return geodata.FieldSettings{}, eris.Wrapf(err, "geofield: settings for %q", f.name)
	}
	for key, value := range f.extra {
		if settings.Extra == nil {
			settings.Extra = make(map[string]any)
		}
		settings.Extra[key] = value
	}
	return settings, nil
}

// SettingsJSON returns Settings serialized for the data-settings attribute.
func (f *Field) SettingsJSON() (string, error) {
	settings, err := f.Settings()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", eris.Wrapf(err, "geofield: encode settings for %q", f.name)
	}
	return string(raw), nil
}

// HiddenFields returns the mirrored inputs as render hidden fields.
func (f *Field) HiddenFields() []render.HiddenField {
	out := make([]render.HiddenField, 0, len(mirroredKeys))
	for _, child := range f.children {
		if child.Type != "hidden" {
			continue
		}
		field := render.Hidden(child.Name, child.Value)
		field.Class = child.Class
		out = append(out, field)
	}
	return out
}

// ErrorPaths lists the dotted paths accepted by render.MapErrorPayload for
// this field.
func (f *Field) ErrorPaths() []string {
	paths := []string{f.name}
	for _, key := range mirroredKeys {
		paths = append(paths, f.name+"."+key)
	}
	return paths
}

func submittedMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, true
	case url.Values:
		out := make(map[string]any, len(typed))
		for k := range typed {
			out[k] = typed.Get(k)
		}
		return out, true
	default:
		out, err := cast.ToStringMapE(value)
		if err != nil {
			return nil, false
		}
		return out, true
	}
}

func stringValue(value any) string {
	if value == nil || options.IsAbsent(value) {
		return ""
	}
	switch typed := value.(type) {
	case float64:
		return geodata.FormatCoordinate(typed)
	case float32:
		return geodata.FormatCoordinate(float64(typed))
	}
	return strings.TrimSpace(cast.ToString(value))
}
