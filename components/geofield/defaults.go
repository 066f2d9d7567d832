package geofield

import (
	"embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-geofield/pkg/options"
)

//go:embed config/defaults.yml
var defaultsFS embed.FS

// DefaultZoom is used when neither the record, the field defaults nor the
// map options provide a zoom level.
const DefaultZoom = 12

var (
	defaultsOnce sync.Once
	defaultsMap  map[string]any
	defaultsErr  error
)

// DefaultFieldOptions returns a fresh copy of the embedded default options.
func DefaultFieldOptions() map[string]any {
	defaultsOnce.Do(func() {
		raw, err := defaultsFS.ReadFile("config/defaults.yml")
		if err != nil {
			defaultsErr = eris.Wrap(err, "geofield: read embedded defaults")
			return
		}
		defaultsMap, defaultsErr = ParseDefaults(raw)
	})
	if defaultsErr != nil {
		panic(defaultsErr)
	}
	return options.New(defaultsMap).Map()
}

// ParseDefaults decodes a YAML options document. Nested mappings are
// normalised to map[string]any.
func ParseDefaults(raw []byte) (map[string]any, error) {
	var decoded map[string]any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, eris.Wrap(err, "geofield: decode default options")
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return options.New(decoded).Map(), nil
}
