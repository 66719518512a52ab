package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
)

// Open decodes a source image for Reduce. Grayscale sources, 8 or 16 bit,
// are returned as *image.Gray so that the pyramid built from them stays
// single-band; everything else is returned as *image.NRGBA.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		if g, ok := img.(*image.Gray); ok {
			return g, nil
		}
		b := img.Bounds()
		g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
		return g, nil
	}
	return imaging.Clone(img), nil
}
