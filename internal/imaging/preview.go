package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// DefaultPreviewSize bounds the longer side of a preview when no size is
// requested.
const DefaultPreviewSize = 512

// PreviewResult contains the encoded preview image.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Preview renders img, or the part of it inside region when region is not
// nil, as a PNG no larger than maxSize on either side. Images already
// smaller are not enlarged. A maxSize of zero uses DefaultPreviewSize.
func Preview(img image.Image, region *image.Rectangle, maxSize int) (*PreviewResult, error) {
	if maxSize < 0 {
		return nil, fmt.Errorf("invalid preview size %d", maxSize)
	}
	if maxSize == 0 {
		maxSize = DefaultPreviewSize
	}

	src := img
	if region != nil {
		bounds := img.Bounds()
		r := *region
		if r.Empty() {
			return nil, fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
		}
		if !r.In(bounds) {
			return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside level bounds (%d,%d)-(%d,%d)",
				r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		}
		src = imaging.Crop(img, r)
	}

	out := imaging.Fit(src, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
