package geotiff

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/tiff"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// Name is the registry name of this backend.
const Name = "geotiff"

// Formats are the format suffixes this backend decodes.
var Formats = []string{"tif", "tiff", "gtiff"}

// Backend decodes classic multi-page GeoTIFF files.
type Backend struct{}

// NewBackend returns a GeoTIFF backend. It matches raster.Factory.
func NewBackend() raster.Backend {
	return &Backend{}
}

// Register adds the GeoTIFF backend to reg under Name and Formats.
func Register(reg *raster.Registry) {
	reg.Register(Name, NewBackend, Formats...)
}

// OpenProbe opens path and reads its page structure. The returned probe
// holds the file open until Close.
func (b *Backend) OpenProbe(path string) (raster.Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s, err := readStructure(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &Probe{path: path, f: f, s: s}, nil
}

// DecodePage decodes a single page of path into a Raster.
//
// The page is located by walking the IFD chain and then handed to
// golang.org/x/image/tiff through a view whose header points at that page.
// Any failure is wrapped with raster.ErrDecode.
func (b *Backend) DecodePage(ctx context.Context, path string, opts raster.DecodeOptions) (raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Format != "" && !supportsFormat(opts.Format) {
		return nil, fmt.Errorf("%w: format %q is not handled by the %s backend", raster.ErrDecode, opts.Format, Name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	s, err := readStructure(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: page %d of %s: %v", raster.ErrDecode, opts.ImageIndex, path, err)
	}
	if opts.ImageIndex < 0 || opts.ImageIndex >= len(s.ifds) {
		return nil, fmt.Errorf("%w: page %d of %s: file has %d pages",
			raster.ErrDecode, opts.ImageIndex, path, len(s.ifds))
	}

	d := s.ifds[opts.ImageIndex]
	img, err := tiff.Decode(newPageView(f, st.Size(), s.order, d.offset))
	if err != nil {
		return nil, fmt.Errorf("%w: page %d of %s: %v", raster.ErrDecode, opts.ImageIndex, path, err)
	}

	r := &Raster{
		index:    opts.ImageIndex,
		crsAlias: opts.CRSAlias,
		img:      img,
		bounds:   img.Bounds(),
	}
	r.scale, r.hasScale = s.pixelScale(d)
	r.tie, r.hasTie = s.tiePoint(d)
	return r, nil
}

func supportsFormat(format string) bool {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Probe is an open GeoTIFF file used for page enumeration.
type Probe struct {
	path string
	f    *os.File
	s    *structure

	closeOnce sync.Once
	closeErr  error
}

// PageCount returns the number of IFDs in the file.
func (p *Probe) PageCount() int {
	return len(p.s.ifds)
}

// GeoKeys returns the GeoKey directory of the first page.
func (p *Probe) GeoKeys() (*raster.GeoKeys, error) {
	if len(p.s.ifds) == 0 {
		return nil, nil
	}
	return p.s.geoKeys(p.s.ifds[0])
}

// PageSize returns the dimensions of page without decoding its pixels.
func (p *Probe) PageSize(page int) (width, height int, err error) {
	if page < 0 || page >= len(p.s.ifds) {
		return 0, 0, fmt.Errorf("page %d out of range [0,%d)", page, len(p.s.ifds))
	}
	d := p.s.ifds[page]
	return int(p.s.firstUint(d, tagImageWidth)), int(p.s.firstUint(d, tagImageLength)), nil
}

// NativeProjection returns the well-known text stored in a ".prj" sidecar
// next to the raster file. A sidecar describes every page of the file.
func (p *Probe) NativeProjection(page int) (string, bool) {
	if page < 0 || page >= len(p.s.ifds) {
		return "", false
	}
	data, err := os.ReadFile(SidecarPath(p.path))
	if err != nil {
		return "", false
	}
	wkt := strings.TrimSpace(string(data))
	return wkt, wkt != ""
}

// Close releases the underlying file. It is safe to call more than once.
func (p *Probe) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.f.Close()
	})
	return p.closeErr
}

// SidecarPath returns the ".prj" path associated with a raster file.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
}

var _ raster.Georeferenced = (*Raster)(nil)

// Raster is a decoded GeoTIFF page.
type Raster struct {
	index    int
	crsAlias string
	bounds   image.Rectangle

	mu  sync.RWMutex
	img image.Image

	scale    [3]float64
	hasScale bool
	tie      [6]float64
	hasTie   bool
}

// Index returns the page this raster was decoded from.
func (r *Raster) Index() int { return r.index }

// CRSAlias returns the coordinate system the page was tagged with.
func (r *Raster) CRSAlias() string { return r.crsAlias }

// Bounds returns the pixel bounds of the page. It stays valid after Close.
func (r *Raster) Bounds() image.Rectangle { return r.bounds }

// Image returns the decoded pixels, or nil once the raster is closed.
func (r *Raster) Image() image.Image {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.img
}

// PixelScale returns the ModelPixelScale (x, y, z) of the page.
func (r *Raster) PixelScale() ([3]float64, bool) { return r.scale, r.hasScale }

// TiePoint returns the first ModelTiepoint (i, j, k, x, y, z) of the page.
func (r *Raster) TiePoint() ([6]float64, bool) { return r.tie, r.hasTie }

// Close drops the decoded pixels.
func (r *Raster) Close() error {
	r.mu.Lock()
	r.img = nil
	r.mu.Unlock()
	return nil
}
