package geocode

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// Place is one entry of an address table.
type Place struct {
	Address          string   `yaml:"address" json:"address"`
	Aliases          []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Lat              float64  `yaml:"lat" json:"lat"`
	Lng              float64  `yaml:"lng" json:"lng"`
	FormattedAddress string   `yaml:"formatted_address,omitempty" json:"formatted_address,omitempty"`
}

func (p Place) result() geodata.GeocodeResult {
	formatted := p.FormattedAddress
	if formatted == "" {
		formatted = p.Address
	}
	return geodata.GeocodeResult{
		Geometry: geodata.Geometry{
			Location:     geodata.LatLng{Lat: p.Lat, Lng: p.Lng},
			LocationType: "APPROXIMATE",
		},
		FormattedAddress: formatted,
	}
}

// Table geocodes against a fixed list of places. Matching ignores case and
// repeated whitespace; exact matches win over prefix matches.
type Table struct {
	mu     sync.RWMutex
	places []Place
	index  map[string]int
}

var _ geodata.Geocoder = (*Table)(nil)

// NewTable returns a table over places.
func NewTable(places ...Place) *Table {
	t := &Table{}
	for _, p := range places {
		t.Add(p)
	}
	return t
}

// ParseTable decodes a YAML list of places.
func ParseTable(raw []byte) (*Table, error) {
	var places []Place
	if err := yaml.Unmarshal(raw, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse table")
	}
	for i, p := range places {
		if strings.TrimSpace(p.Address) == "" {
			return nil, eris.Errorf("geocode: table entry %d has no address", i)
		}
	}
	return NewTable(places...), nil
}

// LoadTable reads a YAML table file.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: read table %s", path)
	}
	return ParseTable(raw)
}

// Add registers a place under its address and aliases.
func (t *Table) Add(p Place) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.places = append(t.places, p)
	pos := len(t.places) - 1
	for _, name := range append([]string{p.Address}, p.Aliases...) {
		if key := normalize(name); key != "" {
			t.index[key] = pos
		}
	}
	return t
}

// Len reports the number of places.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.places)
}

// Geocode implements geodata.Geocoder.
func (t *Table) Geocode(_ context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
	key := normalize(address)
	if key == "" {
		return nil, geodata.StatusInvalidRequest, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if pos, ok := t.index[key]; ok {
		return []geodata.GeocodeResult{t.places[pos].result()}, geodata.StatusOK, nil
	}

	var names []string
	for name := range t.index {
		if strings.HasPrefix(name, key) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []geodata.GeocodeResult{}, geodata.StatusZeroResults, nil
	}
	sort.Strings(names)

	seen := make(map[int]bool, len(names))
	results := make([]geodata.GeocodeResult, 0, len(names))
	for _, name := range names {
		pos := t.index[name]
		if seen[pos] {
			continue
		}
		seen[pos] = true
		results = append(results, t.places[pos].result())
	}
	return results, geodata.StatusOK, nil
}

func normalize(address string) string {
	return strings.Join(strings.Fields(cases.Fold().String(address)), " ")
}
