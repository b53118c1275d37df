package render

import (
	"github.com/taigrr/softrend/pkg/math3d"
)

// Default surface dimensions.
const (
	DefaultWidth  = 200
	DefaultHeight = 150
)

// Surface owns a color buffer (RGB, 3 floats per pixel) and a depth buffer
// (1 float per pixel). Row 0 is the geometric bottom of the image.
//
// A Surface is not safe for concurrent use, except that distinct rows may be
// read and written from different goroutines through the row accessors.
type Surface struct {
	width  int
	height int
	color  []float32 // Row-major, 3 floats per pixel
	depth  []float32 // Row-major, 1 float per pixel
}

// NewSurface allocates a surface with zeroed color and depth buffers.
// Negative dimensions are treated as zero.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.height
}

// Resize reallocates both buffers. Prior contents are lost.
func (s *Surface) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	s.width = width
	s.height = height
	s.color = make([]float32, width*height*3)
	s.depth = make([]float32, width*height)
}

func (s *Surface) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// ClearColor fills the color buffer with a solid color.
func (s *Surface) ClearColor(r, g, b float32) {
	n := len(s.color)
	if n == 0 {
		return
	}
	s.color[0], s.color[1], s.color[2] = r, g, b
	for i := 3; i < n; i *= 2 {
		copy(s.color[i:], s.color[:i])
	}
}

// ClearDepth fills the depth buffer with d.
func (s *Surface) ClearDepth(d float32) {
	n := len(s.depth)
	if n == 0 {
		return
	}
	s.depth[0] = d
	for i := 1; i < n; i *= 2 {
		copy(s.depth[i:], s.depth[:i])
	}
}

// Color returns the RGB color at (x, y), or black when out of bounds.
func (s *Surface) Color(x, y int) math3d.Vec3 {
	if !s.inBounds(x, y) {
		return math3d.Vec3{}
	}
	i := (y*s.width + x) * 3
	return math3d.V3(float64(s.color[i]), float64(s.color[i+1]), float64(s.color[i+2]))
}

// SetColor sets the RGB color at (x, y). Out of bounds writes are ignored.
func (s *Surface) SetColor(x, y int, c math3d.Vec3) {
	if !s.inBounds(x, y) {
		return
	}
	i := (y*s.width + x) * 3
	s.color[i], s.color[i+1], s.color[i+2] = float32(c.X), float32(c.Y), float32(c.Z)
}

// Depth returns the depth at (x, y), or 1 (far) when out of bounds.
func (s *Surface) Depth(x, y int) float32 {
	if !s.inBounds(x, y) {
		return 1
	}
	return s.depth[y*s.width+x]
}

// SetDepth sets the depth at (x, y). Out of bounds writes are ignored.
func (s *Surface) SetDepth(x, y int, d float32) {
	if !s.inBounds(x, y) {
		return
	}
	s.depth[y*s.width+x] = d
}

// ColorRow copies the colors of pixels [x0, x1) of row y into dst, reusing
// its capacity, and returns it. The span must lie inside the surface.
func (s *Surface) ColorRow(y, x0, x1 int, dst []float32) []float32 {
	start := (y*s.width + x0) * 3
	end := (y*s.width + x1) * 3
	return append(dst[:0], s.color[start:end]...)
}

// SetColorRow writes src (3 floats per pixel) into row y starting at x0.
func (s *Surface) SetColorRow(y, x0 int, src []float32) {
	copy(s.color[(y*s.width+x0)*3:], src)
}

// DepthRow copies the depths of pixels [x0, x1) of row y into dst, reusing
// its capacity, and returns it.
func (s *Surface) DepthRow(y, x0, x1 int, dst []float32) []float32 {
	return append(dst[:0], s.depth[y*s.width+x0:y*s.width+x1]...)
}

// SetDepthRow writes src into row y starting at x0.
func (s *Surface) SetDepthRow(y, x0 int, src []float32) {
	copy(s.depth[y*s.width+x0:], src)
}

// ColorTexture exposes the color buffer as a Texture with alpha 1.
// It tracks the surface across resizes.
func (s *Surface) ColorTexture() Texture {
	return colorTexture{s}
}

// DepthTexture exposes the depth buffer as a gray Texture with alpha 1.
func (s *Surface) DepthTexture() Texture {
	return depthTexture{s}
}

type colorTexture struct{ s *Surface }

func (t colorTexture) Width() int  { return t.s.width }
func (t colorTexture) Height() int { return t.s.height }

func (t colorTexture) Fetch(x, y int) math3d.Vec4 {
	return math3d.V4FromV3(t.s.Color(x, y), 1)
}

type depthTexture struct{ s *Surface }

func (t depthTexture) Width() int  { return t.s.width }
func (t depthTexture) Height() int { return t.s.height }

func (t depthTexture) Fetch(x, y int) math3d.Vec4 {
	d := float64(t.s.Depth(x, y))
	return math3d.V4(d, d, d, 1)
}
