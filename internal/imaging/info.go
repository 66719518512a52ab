package imaging

import (
	"image"
	"image/color"
)

// LevelInfo describes the pixels of one decoded pyramid level.
type LevelInfo struct {
	// Index is the page the level was decoded from.
	Index int `json:"index"`

	// Width is the level width in pixels.
	Width int `json:"width"`

	// Height is the level height in pixels.
	Height int `json:"height"`

	// ColorModel names the pixel layout: "gray", "rgb", "rgba", "cmyk",
	// "paletted", "ycbcr" or "unknown".
	ColorModel string `json:"color_model"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the pixels carry an alpha channel.
	HasAlpha bool `json:"has_alpha"`
}

// Describe returns the LevelInfo of img decoded from page index.
//
// The color model and depth are determined by the Go image type:
//   - *image.Gray, *image.Gray16 -> "gray"
//   - *image.RGBA, *image.NRGBA and their 64-bit forms -> "rgba"
//   - *image.CMYK -> "cmyk"
//   - *image.Paletted -> "paletted"
//   - *image.YCbCr -> "ycbcr"
//
// The 16-bit types report "16-bit", everything else "8-bit". RGBA images
// whose alpha is opaque everywhere are reported as "rgb" without alpha.
func Describe(index int, img image.Image) LevelInfo {
	b := img.Bounds()
	info := LevelInfo{
		Index:      index,
		Width:      b.Dx(),
		Height:     b.Dy(),
		ColorModel: "unknown",
		ColorDepth: "8-bit",
	}

	switch m := img.(type) {
	case *image.Gray:
		info.ColorModel = "gray"
	case *image.Gray16:
		info.ColorModel = "gray"
		info.ColorDepth = "16-bit"
	case *image.RGBA, *image.NRGBA:
		info.ColorModel = "rgba"
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.ColorModel = "rgba"
		info.ColorDepth = "16-bit"
		info.HasAlpha = true
	case *image.CMYK:
		info.ColorModel = "cmyk"
	case *image.Paletted:
		info.ColorModel = "paletted"
		info.HasAlpha = !opaquePalette(m.Palette)
	case *image.YCbCr:
		info.ColorModel = "ycbcr"
	}

	if info.ColorModel == "rgba" && isOpaque(img) {
		info.ColorModel = "rgb"
		info.HasAlpha = false
	}
	return info
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func opaquePalette(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return false
		}
	}
	return true
}
