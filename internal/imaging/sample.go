package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// PixelValue is the value of one pixel of a level.
type PixelValue struct {
	X int `json:"x"`
	Y int `json:"y"`

	// Hex is "#RRGGBB"; alpha is excluded.
	Hex string `json:"hex"`

	RGBA RGBAColor `json:"rgba"`

	// Gray is the native sample of grayscale levels, at full precision
	// for 16-bit data.
	Gray *uint16 `json:"gray,omitempty"`
}

// SamplePixel extracts the value at a pixel coordinate.
//
// Coordinates are 0-based with origin at the top-left of the level. For
// 16-bit images the RGBA components are scaled down by right-shifting
// 8 bits; Gray keeps the native value.
func SamplePixel(img image.Image, x, y int) (*PixelValue, error) {
	bounds := img.Bounds()
	if !(image.Point{X: x, Y: y}).In(bounds) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside level bounds", x, y)
	}

	c := img.At(x, y)
	r, g, b, a := c.RGBA()
	r8, g8, b8, a8 := uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)

	v := &PixelValue{
		X:    x,
		Y:    y,
		Hex:  fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		RGBA: RGBAColor{R: r8, G: g8, B: b8, A: a8},
	}
	switch gc := c.(type) {
	case color.Gray:
		n := uint16(gc.Y)
		v.Gray = &n
	case color.Gray16:
		n := gc.Y
		v.Gray = &n
	}
	return v, nil
}
