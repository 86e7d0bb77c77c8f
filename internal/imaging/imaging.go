// Package imaging decodes frame payloads and downscales them to a bounded
// size before detection. The original dimensions are always preserved and
// returned so landmark coordinates can be rescaled to the source image.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Dimensions records the size of the image as submitted by the client.
type Dimensions struct {
	Width  int
	Height int
}

// Decode parses a JPEG or PNG payload.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}
	return img, nil
}

// Downscale resizes img so its short side is at most targetShortSide,
// preserving aspect ratio, and returns the result together with the original
// dimensions. Images already at or below the target are copied without
// scaling. targetShortSide <= 0 disables scaling. The result is always an
// *image.RGBA so callers get a contiguous pixel buffer.
func Downscale(img image.Image, targetShortSide int) (*image.RGBA, Dimensions) {
	bounds := img.Bounds()
	orig := Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}

	short := orig.Width
	if orig.Height < short {
		short = orig.Height
	}

	width, height := orig.Width, orig.Height
	if targetShortSide > 0 && short > targetShortSide {
		scale := float64(targetShortSide) / float64(short)
		width = int(float64(orig.Width)*scale + 0.5)
		height = int(float64(orig.Height)*scale + 0.5)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, orig
}
