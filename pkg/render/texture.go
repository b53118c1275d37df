// Package render implements a CPU-only triangle rendering pipeline: mesh
// assembly, homogeneous clipping, perspective-correct rasterization with
// per-pixel lighting, double-buffered surfaces and frame presentation.
package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	"github.com/taigrr/softrend/pkg/math3d"
)

// Texture is anything that can be sampled by the rasterizer. Fetch returns
// the RGBA color (X=R, Y=G, Z=B, W=A) of an in-bounds texel; row 0 is the
// geometric bottom.
type Texture interface {
	Width() int
	Height() int
	Fetch(x, y int) math3d.Vec4
}

// wrap maps a texel coordinate into [0, size). It also absorbs the huge
// negative values produced by converting NaN or Inf to int.
func wrap(i, size int) int {
	i %= size
	if i < 0 {
		i += size
	}
	return i
}

// SampleNearest samples t at (u, v) with wraparound addressing: coordinates
// are mirrored by absolute value, scaled to texels, rounded and wrapped.
func SampleNearest(t Texture, u, v float64) math3d.Vec4 {
	w, h := t.Width(), t.Height()
	if w <= 0 || h <= 0 {
		return math3d.Vec4{}
	}
	px := int(math.Floor(math.Abs(u)*float64(w) + 0.5))
	py := int(math.Floor(math.Abs(v)*float64(h) + 0.5))
	return t.Fetch(wrap(px, w), wrap(py, h))
}

// SampleBilinear samples t at (u, v) by weighting the four texels around the
// sample point by its fractional offsets. Each corner wraps independently.
func SampleBilinear(t Texture, u, v float64) math3d.Vec4 {
	w, h := t.Width(), t.Height()
	if w <= 0 || h <= 0 {
		return math3d.Vec4{}
	}
	px := math.Abs(u) * float64(w)
	py := math.Abs(v) * float64(h)

	fx, fy := math.Floor(px), math.Floor(py)
	x0, y0 := wrap(int(fx), w), wrap(int(fy), h)
	x1, y1 := wrap(int(math.Ceil(px)), w), wrap(int(math.Ceil(py)), h)
	wx, wy := px-fx, py-fy

	bottomLeft := t.Fetch(x0, y0).Scale((1 - wx) * (1 - wy))
	bottomRight := t.Fetch(x1, y0).Scale(wx * (1 - wy))
	topLeft := t.Fetch(x0, y1).Scale((1 - wx) * wy)
	topRight := t.Fetch(x1, y1).Scale(wx * wy)

	return bottomLeft.Add(bottomRight).Add(topLeft).Add(topRight)
}

// ImageTexture is a texture backed by an RGBA float array, 4 floats per
// texel, row-major with row 0 at the bottom.
type ImageTexture struct {
	width  int
	height int
	pixels []float32
}

// NewImageTexture wraps pixels as a width x height texture.
func NewImageTexture(width, height int, pixels []float32) (*ImageTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("texture %dx%d needs %d floats, got %d", width, height, width*height*4, len(pixels))
	}
	return &ImageTexture{width: width, height: height, pixels: pixels}, nil
}

// NewSolidTexture creates a 1x1 texture of a single color.
func NewSolidTexture(c math3d.Vec4) *ImageTexture {
	return &ImageTexture{
		width:  1,
		height: 1,
		pixels: []float32{float32(c.X), float32(c.Y), float32(c.Z), float32(c.W)},
	}
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 math3d.Vec4) *ImageTexture {
	tex := &ImageTexture{width: width, height: height, pixels: make([]float32, width*height*4)}
	for y := range height {
		for x := range width {
			c := c2
			if (x/checkSize+y/checkSize)%2 == 0 {
				c = c1
			}
			tex.set(x, y, c)
		}
	}
	return tex
}

// LoadTexture decodes a PNG or JPEG file into a texture.
func LoadTexture(path string) (*ImageTexture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage converts a decoded image. Image rows run top to bottom,
// so they are flipped to put row 0 at the bottom.
func TextureFromImage(img image.Image) *ImageTexture {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	tex := &ImageTexture{width: width, height: height, pixels: make([]float32, width*height*4)}

	for y := range height {
		for x := range width {
			// RGBA returns 16-bit premultiplied values.
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Max.Y-1-y).RGBA()
			c := math3d.V4(float64(r), float64(g), float64(b), float64(a)).Scale(1.0 / 0xffff)
			if a != 0 && a != 0xffff {
				inv := 0xffff / float64(a)
				c.X, c.Y, c.Z = c.X*inv, c.Y*inv, c.Z*inv
			}
			tex.set(x, y, c)
		}
	}

	return tex
}

func (t *ImageTexture) set(x, y int, c math3d.Vec4) {
	i := (y*t.width + x) * 4
	t.pixels[i] = float32(c.X)
	t.pixels[i+1] = float32(c.Y)
	t.pixels[i+2] = float32(c.Z)
	t.pixels[i+3] = float32(c.W)
}

// Width returns the texture width in texels.
func (t *ImageTexture) Width() int { return t.width }

// Height returns the texture height in texels.
func (t *ImageTexture) Height() int { return t.height }

// Fetch returns the texel at (x, y).
func (t *ImageTexture) Fetch(x, y int) math3d.Vec4 {
	i := (y*t.width + x) * 4
	p := t.pixels[i : i+4 : i+4]
	return math3d.V4(float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3]))
}
