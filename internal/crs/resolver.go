package crs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// DefaultCode is the coordinate system used when nothing else resolves.
const DefaultCode = "EPSG:25832"

// userDefined is the GeoTIFF code for "user-defined"; it names no system.
const userDefined = 32767

// Source records which step of the resolution chain produced a CRS.
type Source string

const (
	SourceOverride   Source = "override"
	SourceProjection Source = "projection"
	SourceGeoKeys    Source = "geokeys"
	SourceDefault    Source = "default"
)

// Diagnostic codes.
const (
	DiagMetadataUnavailable  = "metadata-unavailable"
	DiagUnknownCRS           = "unknown-crs"
	DiagUnsupportedModelType = "unsupported-model-type"
	DiagUnparsableProjection = "unparsable-projection"
	DiagDefaultCRS           = "default-crs"
)

// Diagnostic is a non-fatal problem met while resolving a CRS.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Code + ": " + d.Message
}

// Metadata is what a backend could tell about the first page of a file.
type Metadata struct {
	// GeoKeys may be nil when the page carries none.
	GeoKeys *raster.GeoKeys

	// GeoKeysErr is the error returned while reading GeoKeys, if any.
	GeoKeysErr error

	// Projection is native projection text (WKT); empty when unavailable.
	Projection string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	CRS         SpatialReference `json:"crs"`
	Source      Source           `json:"source"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
}

// ResolverOptions configures NewResolver.
type ResolverOptions struct {
	// DefaultCRS replaces DefaultCode when set.
	DefaultCRS string

	Logger *slog.Logger
}

// Resolver turns backend metadata into a SpatialReference.
//
// Resolution runs a fixed chain: the GeoKey model type selects a projected
// or geographic EPSG code which is looked up in the registry; native
// projection text, when present and parsable, overrides that guess; if
// neither produced a system the default is used. Every failure along the
// way is recorded as a Diagnostic and never aborts resolution.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	reg    *Registry
	def    SpatialReference
	logger *slog.Logger
}

// NewResolver returns a resolver backed by reg. The default CRS must be
// known to reg.
func NewResolver(reg *Registry, opts ResolverOptions) (*Resolver, error) {
	if reg == nil {
		return nil, errors.New("crs: nil registry")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := opts.DefaultCRS
	if id == "" {
		id = DefaultCode
	}
	def, err := reg.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("default CRS: %w", err)
	}
	return &Resolver{reg: reg, def: def, logger: logger}, nil
}

// Default returns the system used when nothing else resolves.
func (r *Resolver) Default() SpatialReference {
	return r.def.clone()
}

// Override resolves an explicitly configured identifier. Unlike Resolve it
// fails when the identifier is unknown.
func (r *Resolver) Override(id string) (Resolution, error) {
	ref, err := r.reg.Lookup(id)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{CRS: ref, Source: SourceOverride}, nil
}

// Resolve runs the resolution chain over md. The same metadata always
// yields the same resolution.
func (r *Resolver) Resolve(md Metadata) Resolution {
	var res Resolution
	note := func(code, format string, args ...any) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if md.GeoKeysErr != nil {
		r.logger.Debug("couldn't read crs information", "error", md.GeoKeysErr)
		note(DiagMetadataUnavailable, "%v", md.GeoKeysErr)
	} else if ref, ok := r.fromGeoKeys(md.GeoKeys, note); ok {
		res.CRS = ref
		res.Source = SourceGeoKeys
	}

	if md.Projection != "" {
		ref, err := ParseWKT(md.Projection)
		if err != nil {
			r.logger.Warn("ignoring unparsable native projection", "error", err)
			note(DiagUnparsableProjection, "%v", err)
		} else {
			res.CRS = r.canonical(ref)
			res.Source = SourceProjection
		}
	}

	if res.CRS.IsZero() {
		res.CRS = r.def.clone()
		res.Source = SourceDefault
		note(DiagDefaultCRS, "no coordinate system found, using %s", r.def.Alias())
	}
	return res
}

func (r *Resolver) fromGeoKeys(keys *raster.GeoKeys, note func(string, string, ...any)) (SpatialReference, bool) {
	if keys.Len() == 0 {
		return SpatialReference{}, false
	}
	model, ok := keys.Int(raster.GTModelTypeGeoKey)
	if !ok {
		note(DiagUnsupportedModelType, "GeoKeys carry no model type")
		return SpatialReference{}, false
	}

	var key raster.GeoKey
	switch model {
	case raster.ModelTypeProjected:
		key = raster.ProjectedCSTypeGeoKey
	case raster.ModelTypeGeographic:
		key = raster.GeographicTypeGeoKey
	default:
		note(DiagUnsupportedModelType, "model type %d is neither projected nor geographic", model)
		return SpatialReference{}, false
	}

	code, ok := keys.Get(key)
	if !ok || code == "" || code == strconv.Itoa(userDefined) {
		return SpatialReference{}, false
	}
	id := "EPSG:" + code
	ref, err := r.reg.Lookup(id)
	if err != nil {
		r.logger.Warn("no coordinate system found", "crs", id)
		note(DiagUnknownCRS, "no coordinate system found for %s", id)
		return SpatialReference{}, false
	}
	return ref, true
}

// canonical replaces a parsed reference with the registry entry for its
// code, keeping the text it was parsed from.
func (r *Resolver) canonical(parsed SpatialReference) SpatialReference {
	if parsed.Code == "" {
		return parsed
	}
	known, err := r.reg.Lookup(parsed.Code)
	if err != nil {
		return parsed
	}
	known.WKT = parsed.WKT
	if parsed.Name != "" && parsed.Name != known.Name && !slices.Contains(known.Aliases, parsed.Name) {
		known.Aliases = append(known.Aliases, parsed.Name)
	}
	return known
}
