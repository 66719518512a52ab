package pyramid

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// Coverage is a gridded data source with a single coordinate system.
type Coverage interface {
	CoordinateSystem() crs.SpatialReference
}

// MultiResolutionCoverage is a coverage made of ordered resolution levels,
// finest first.
type MultiResolutionCoverage interface {
	Coverage
	Levels() []Level
	Len() int
}

var _ MultiResolutionCoverage = (*Pyramid)(nil)

// Level is one page of a pyramid file.
type Level struct {
	// Index is the page the level was decoded from.
	Index int `json:"index"`

	// Options are the decode options the page was read with.
	Options raster.DecodeOptions `json:"options"`

	// Raster is owned by the pyramid and released by Pyramid.Close.
	Raster raster.Raster `json:"-"`
}

// Bounds returns the pixel bounds of the level.
func (l Level) Bounds() image.Rectangle {
	if l.Raster == nil {
		return image.Rectangle{}
	}
	return l.Raster.Bounds()
}

// Pyramid is an immutable multi-resolution coverage built from the pages of
// one raster file. All accessors are safe for concurrent use without
// locking.
type Pyramid struct {
	file        string
	crs         crs.SpatialReference
	source      crs.Source
	diagnostics []crs.Diagnostic
	levels      []Level

	closeOnce sync.Once
	closeErr  error
}

// Assemble builds a pyramid from levels already read in page order and the
// coordinate system they were tagged with. It takes ownership of the level
// rasters only when it succeeds.
func Assemble(file string, levels []Level, res crs.Resolution) (*Pyramid, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPyramid, file)
	}
	if res.CRS.IsZero() {
		return nil, errors.New("pyramid has no coordinate system")
	}
	alias := res.CRS.Alias()
	for i, l := range levels {
		if l.Index != i {
			return nil, fmt.Errorf("level %d carries page index %d", i, l.Index)
		}
		if l.Options.CRSAlias != alias {
			return nil, fmt.Errorf("level %d is tagged %q, pyramid is %q", i, l.Options.CRSAlias, alias)
		}
		if l.Raster == nil {
			return nil, fmt.Errorf("level %d has no raster", i)
		}
	}

	return &Pyramid{
		file:        file,
		crs:         res.CRS,
		source:      res.Source,
		diagnostics: slices.Clone(res.Diagnostics),
		levels:      slices.Clone(levels),
	}, nil
}

// CoordinateSystem returns the system shared by every level.
func (p *Pyramid) CoordinateSystem() crs.SpatialReference {
	c := p.crs
	c.Aliases = slices.Clone(c.Aliases)
	return c
}

// Levels returns the levels in page order. The slice is a copy.
func (p *Pyramid) Levels() []Level {
	return slices.Clone(p.levels)
}

// Level returns the level at index i.
func (p *Pyramid) Level(i int) (Level, bool) {
	if i < 0 || i >= len(p.levels) {
		return Level{}, false
	}
	return p.levels[i], true
}

// Len returns the number of levels.
func (p *Pyramid) Len() int {
	return len(p.levels)
}

// Source reports how the coordinate system was determined.
func (p *Pyramid) Source() crs.Source {
	return p.source
}

// Diagnostics returns the non-fatal problems met while resolving the
// coordinate system.
func (p *Pyramid) Diagnostics() []crs.Diagnostic {
	return slices.Clone(p.diagnostics)
}

// File returns the raster file the pyramid was read from.
func (p *Pyramid) File() string {
	return p.file
}

// Close releases the level rasters. Only the first call has an effect.
func (p *Pyramid) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = closeLevels(p.levels)
	})
	return p.closeErr
}
