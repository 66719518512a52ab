package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sort"
	"strconv"
)

var (
	// ErrDecode is wrapped by backends when a page cannot be decoded.
	ErrDecode = errors.New("raster decode failed")

	// ErrMetadataUnavailable is wrapped by backends that cannot expose the
	// geo-keys of a page. It is never fatal to pyramid construction.
	ErrMetadataUnavailable = errors.New("geo metadata unavailable")
)

// DefaultFormat is the decode format used for pyramid pages.
const DefaultFormat = "tif"

// DecodeOptions selects and tags a single page to decode.
type DecodeOptions struct {
	// Format is the raster format hint, e.g. "tif".
	Format string `json:"format"`

	// ImageIndex is the 0-based page to decode.
	ImageIndex int `json:"image_index"`

	// CRSAlias is the coordinate system identifier the page is tagged with.
	CRSAlias string `json:"crs"`
}

// Raster is a decoded page. It owns its pixel data until Close is called.
type Raster interface {
	Bounds() image.Rectangle
	Image() image.Image
	Close() error
}

// Georeferenced is implemented by rasters that carry a GeoTIFF model
// transformation.
type Georeferenced interface {
	// PixelScale returns the model size (x, y, z) of one pixel.
	PixelScale() ([3]float64, bool)

	// TiePoint returns a raster point (i, j, k) and the model point
	// (x, y, z) it maps to.
	TiePoint() ([6]float64, bool)
}

// ModelPoint maps the raster position (x, y) of g to model coordinates.
// Integer positions address the upper-left corner of a pixel. Model y grows
// upwards while raster y grows downwards.
func ModelPoint(g Georeferenced, x, y float64) (mx, my float64, ok bool) {
	scale, hasScale := g.PixelScale()
	tie, hasTie := g.TiePoint()
	if !hasScale || !hasTie {
		return 0, 0, false
	}
	return tie[3] + (x-tie[0])*scale[0], tie[4] - (y-tie[1])*scale[1], true
}

// Probe is an open, read-only view of a raster file used to enumerate its
// pages and read first-page metadata.
type Probe interface {
	io.Closer

	// PageCount returns the number of pages in the file.
	PageCount() int

	// GeoKeys returns the geo-keys of the first page. It returns (nil, nil)
	// when the page carries none, and an error wrapping
	// ErrMetadataUnavailable when they exist but cannot be exposed.
	GeoKeys() (*GeoKeys, error)
}

// ProjectionProbe is implemented by probes that can describe a page's
// projection natively, typically as well-known text.
type ProjectionProbe interface {
	NativeProjection(page int) (string, bool)
}

// Backend reads one raster file format.
type Backend interface {
	// OpenProbe opens path for page enumeration and metadata extraction.
	OpenProbe(path string) (Probe, error)

	// DecodePage decodes the page selected by opts.ImageIndex.
	DecodePage(ctx context.Context, path string, opts DecodeOptions) (Raster, error)
}

// GeoKey identifies an entry of a GeoTIFF key directory.
type GeoKey uint16

// GeoKeys used during CRS inference.
const (
	GTModelTypeGeoKey     GeoKey = 1024
	GTRasterTypeGeoKey    GeoKey = 1025
	GTCitationGeoKey      GeoKey = 1026
	GeographicTypeGeoKey  GeoKey = 2048
	GeogCitationGeoKey    GeoKey = 2049
	ProjectedCSTypeGeoKey GeoKey = 3072
	PCSCitationGeoKey     GeoKey = 3073
)

// Values of GTModelTypeGeoKey.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2
	ModelTypeGeocentric = 3
)

// GeoKeys is an immutable set of geo-key values rendered as strings.
type GeoKeys struct {
	values map[GeoKey]string
}

// NewGeoKeys copies values into a GeoKeys set.
func NewGeoKeys(values map[GeoKey]string) *GeoKeys {
	m := make(map[GeoKey]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &GeoKeys{values: m}
}

// Get returns the value stored for key.
func (g *GeoKeys) Get(key GeoKey) (string, bool) {
	if g == nil {
		return "", false
	}
	v, ok := g.values[key]
	return v, ok
}

// Int returns the value stored for key parsed as an integer.
func (g *GeoKeys) Int(key GeoKey) (int, bool) {
	v, ok := g.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Len returns the number of keys in the set.
func (g *GeoKeys) Len() int {
	if g == nil {
		return 0
	}
	return len(g.values)
}

// Keys returns the stored keys in ascending order.
func (g *GeoKeys) Keys() []GeoKey {
	if g == nil {
		return nil
	}
	keys := make([]GeoKey, 0, len(g.values))
	for k := range g.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (g *GeoKeys) String() string {
	if g == nil {
		return "GeoKeys{}"
	}
	s := "GeoKeys{"
	for i, k := range g.Keys() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d=%q", k, g.values[k])
	}
	return s + "}"
}
