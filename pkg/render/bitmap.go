package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// encodeChannel maps a linear [0,1] channel to a byte, clamping out of range
// values.
func encodeChannel(v float64) uint8 {
	return uint8(math.Min(math.Max(v*255, 0), 255))
}

// ToImage converts a texture to a displayable image. Texture row 0 is the
// geometric bottom, so rows are flipped to run top to bottom.
func ToImage(tex Texture) *image.RGBA {
	w, h := tex.Width(), tex.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := tex.Fetch(x, h-y-1)
			img.SetRGBA(x, y, color.RGBA{
				R: encodeChannel(c.X),
				G: encodeChannel(c.Y),
				B: encodeChannel(c.Z),
				A: encodeChannel(c.W),
			})
		}
	}
	return img
}

// EncodeBMP writes tex as a BMP bitmap.
func EncodeBMP(w io.Writer, tex Texture) error {
	if err := bmp.Encode(w, ToImage(tex)); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}

// ScaleImage resamples src to width x height with nearest-neighbor
// filtering, keeping the blocky look of a low resolution surface.
func ScaleImage(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
