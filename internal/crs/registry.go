package crs

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed epsg.yaml
var seedTable []byte

// seedEntry is one row of the embedded EPSG table.
type seedEntry struct {
	Code    int      `yaml:"code"`
	Name    string   `yaml:"name"`
	Kind    Kind     `yaml:"kind"`
	Aliases []string `yaml:"aliases"`
}

// Registry resolves identifiers to spatial references.
//
// A Registry is safe for concurrent use. References returned by Lookup are
// copies; changing them does not affect the registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]SpatialReference // keyed by canonical code
	index   map[string]string           // normalized identifier -> canonical code
}

// NewRegistry returns a registry pre-seeded with the embedded EPSG table.
func NewRegistry() (*Registry, error) {
	r := NewEmptyRegistry()
	if err := r.LoadYAML(seedTable); err != nil {
		return nil, fmt.Errorf("loading embedded EPSG table: %w", err)
	}
	return r, nil
}

// NewEmptyRegistry returns a registry with no entries.
func NewEmptyRegistry() *Registry {
	return &Registry{
		entries: make(map[string]SpatialReference),
		index:   make(map[string]string),
	}
}

// LoadYAML adds the entries of a YAML table in the embedded table's format.
func (r *Registry) LoadYAML(data []byte) error {
	var rows []seedEntry
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Code <= 0 {
			return fmt.Errorf("entry %q has no code", row.Name)
		}
		kind := row.Kind
		if kind == "" {
			kind = KindUnknown
		}
		ref := SpatialReference{
			Code:    "EPSG:" + strconv.Itoa(row.Code),
			Name:    row.Name,
			Kind:    kind,
			Aliases: row.Aliases,
		}
		if err := r.Register(ref); err != nil {
			return err
		}
	}
	return nil
}

// Register adds ref under its code and aliases.
func (r *Registry) Register(ref SpatialReference) error {
	if ref.Code == "" {
		return fmt.Errorf("cannot register %q without a code", ref.Name)
	}
	code := normalize(ref.Code)
	ref.Code = code

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.entries[code]; dup {
		return fmt.Errorf("%s registered twice", code)
	}
	for _, a := range ref.Aliases {
		if owner, taken := r.index[normalize(a)]; taken {
			return fmt.Errorf("alias %s of %s already names %s", a, code, owner)
		}
	}

	r.entries[code] = ref.clone()
	r.index[code] = code
	for _, a := range ref.Aliases {
		r.index[normalize(a)] = code
	}
	return nil
}

// Lookup resolves an identifier. Besides "EPSG:n" it accepts lower case
// codes, OGC URNs ("urn:ogc:def:crs:EPSG::n"), OGC HTTP URIs and the GML
// "http://www.opengis.net/gml/srs/epsg.xml#n" form. Unknown identifiers
// return an error wrapping ErrUnknownCRS.
func (r *Registry) Lookup(id string) (SpatialReference, error) {
	key := normalize(id)

	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.index[key]
	if !ok {
		return SpatialReference{}, fmt.Errorf("%w: %s", ErrUnknownCRS, id)
	}
	return r.entries[code].clone(), nil
}

// Codes returns the canonical codes of all entries, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.entries))
	for c := range r.entries {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// normalize maps the supported spellings of an EPSG identifier onto
// "EPSG:n". Other identifiers are upper-cased and trimmed.
func normalize(id string) string {
	s := strings.ToUpper(strings.TrimSpace(id))

	var num string
	switch {
	case strings.HasPrefix(s, "EPSG:"):
		num = strings.TrimLeft(s[len("EPSG:"):], ":")
	case strings.HasPrefix(s, "URN:OGC:DEF:CRS:EPSG:"), strings.HasPrefix(s, "URN:X-OGC:DEF:CRS:EPSG:"):
		// The segment before the code is an optional version.
		num = s[strings.LastIndex(s, ":")+1:]
	case strings.Contains(s, "/EPSG.XML#"):
		num = s[strings.LastIndex(s, "#")+1:]
	case strings.Contains(s, "/DEF/CRS/EPSG/"):
		num = s[strings.LastIndex(s, "/")+1:]
	default:
		return s
	}

	if n, err := strconv.Atoi(num); err == nil && n > 0 {
		return "EPSG:" + strconv.Itoa(n)
	}
	return s
}
