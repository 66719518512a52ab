package imaging

import (
	"errors"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// DefaultMinLevelSize is the smallest side a reduced level may have when
// no limit is given.
const DefaultMinLevelSize = 64

// ReduceOptions controls Reduce.
type ReduceOptions struct {
	// Levels caps the number of levels, the source included. Zero means
	// no cap.
	Levels int

	// MinSize stops reduction before a level's shorter side would drop
	// below it. Defaults to DefaultMinLevelSize.
	MinSize int

	// Filter is the resampling filter. Defaults to imaging.Box, which
	// averages each 2x2 block.
	Filter *imaging.ResampleFilter
}

// Reduce builds a pyramid from img by repeated halving, finest level first.
// The source is always the first level. Gray sources yield gray levels so
// that every level shares one pixel layout.
func Reduce(img image.Image, opts ReduceOptions) ([]image.Image, error) {
	if img.Bounds().Empty() {
		return nil, errors.New("cannot reduce an empty image")
	}
	if opts.Levels < 0 {
		return nil, errors.New("levels must not be negative")
	}
	minSize := opts.MinSize
	if minSize <= 0 {
		minSize = DefaultMinLevelSize
	}
	filter := imaging.Box
	if opts.Filter != nil {
		filter = *opts.Filter
	}
	_, gray := img.(*image.Gray)

	levels := []image.Image{img}
	for opts.Levels == 0 || len(levels) < opts.Levels {
		b := levels[len(levels)-1].Bounds()
		w, h := b.Dx()/2, b.Dy()/2
		if w < minSize || h < minSize {
			break
		}
		next := image.Image(imaging.Resize(levels[len(levels)-1], w, h, filter))
		if gray {
			g := image.NewGray(image.Rect(0, 0, w, h))
			draw.Draw(g, g.Bounds(), next, next.Bounds().Min, draw.Src)
			next = g
		}
		levels = append(levels, next)
	}
	return levels, nil
}
