package render

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/softrend/pkg/math3d"
)

// ParallelThreshold is the bounding box width, in pixels, from which a
// triangle's rows are rasterized concurrently.
const ParallelThreshold = 32

// Rasterizer fills processed triangles into a Surface with a depth test,
// texturing, lighting and alpha blending.
//
// Triangles are drawn in order. When Multithread is set, the rows of a wide
// triangle are split across goroutines and all of them finish before the
// next triangle starts.
type Rasterizer struct {
	Surface *Surface
	Texture Texture // Optional
	Sun     Sun
	Tint    math3d.Vec4
	Lights  []Light

	DepthOnly   bool // Write depth only, skip shading
	Bilinear    bool // Bilinear instead of nearest texture sampling
	Multithread bool
	Lighting    bool
}

// NewRasterizer creates a rasterizer targeting s with the default sun, a
// white tint, lighting on and multithreading on.
func NewRasterizer(s *Surface) *Rasterizer {
	return &Rasterizer{
		Surface:     s,
		Sun:         DefaultSun(),
		Tint:        White,
		Multithread: true,
		Lighting:    true,
	}
}

// screenVertex is a processed vertex mapped to pixels. Attributes are
// premultiplied by invW so they interpolate linearly in screen space.
type screenVertex struct {
	X, Y, Z float64 // Pixel position, depth in [0,1]
	invW    float64

	world  math3d.Vec3
	uv     math3d.Vec2
	normal math3d.Vec3
	color  math3d.Vec4
}

func toScreen(v ProcessedVertex, width, height int) screenVertex {
	invW := 1 / v.Clip.W
	return screenVertex{
		X:      (v.Clip.X*invW + 1) * 0.5 * float64(width),
		Y:      (v.Clip.Y*invW + 1) * 0.5 * float64(height),
		Z:      (v.Clip.Z*invW + 1) * 0.5,
		invW:   invW,
		world:  v.World.Scale(invW),
		uv:     v.UV.Scale(invW),
		normal: v.Normal.Scale(invW),
		color:  v.Color.Scale(invW),
	}
}

// triangle holds the per-triangle setup shared by its rows.
type triangle struct {
	v0, v1, v2 screenVertex
	invArea    float64 // Reciprocal of twice the signed area
}

// weights returns the barycentric weights of (x, y). Each is an edge
// function evaluated relative to v2 and normalized by the area.
func (t *triangle) weights(x, y float64) (w0, w1, w2 float64) {
	v0, v1, v2 := &t.v0, &t.v1, &t.v2
	w0 = ((v1.Y-v2.Y)*(x-v2.X) + (v2.X-v1.X)*(y-v2.Y)) * t.invArea
	w1 = ((v2.Y-v0.Y)*(x-v2.X) + (v0.X-v2.X)*(y-v2.Y)) * t.invArea
	w2 = 1 - w0 - w1
	return w0, w1, w2
}

// roundClamp rounds half up and clamps to [lo, hi]. NaN maps to lo.
func roundClamp(v float64, lo, hi int) int {
	v = math.Floor(v + 0.5)
	if !(v >= float64(lo)) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}

// Render rasterizes vertices, taken three at a time, into the surface.
func (r *Rasterizer) Render(vertices []ProcessedVertex) {
	width, height := r.Surface.Width(), r.Surface.Height()
	if width == 0 || height == 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)

	for i := 0; i+3 <= len(vertices); i += 3 {
		t := triangle{
			v0: toScreen(vertices[i], width, height),
			v1: toScreen(vertices[i+1], width, height),
			v2: toScreen(vertices[i+2], width, height),
		}
		v0, v1, v2 := &t.v0, &t.v1, &t.v2
		t.invArea = 1 / ((v1.Y-v2.Y)*(v0.X-v2.X) + (v2.X-v1.X)*(v0.Y-v2.Y))

		minX := roundClamp(min(v0.X, v1.X, v2.X), 0, width-1)
		maxX := roundClamp(max(v0.X, v1.X, v2.X), 0, width)
		minY := roundClamp(min(v0.Y, v1.Y, v2.Y), 0, height-1)
		maxY := roundClamp(max(v0.Y, v1.Y, v2.Y), 0, height)
		if minX >= maxX || minY >= maxY {
			continue
		}

		if !r.Multithread || maxX-minX < ParallelThreshold {
			for y := minY; y < maxY; y++ {
				r.renderRow(&t, y, minX, maxX)
			}
			continue
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for y := minY; y < maxY; y++ {
			g.Go(func() error {
				r.renderRow(&t, y, minX, maxX)
				return nil
			})
		}
		_ = g.Wait() // rows never fail
	}
}

// renderRow shades pixels [minX, maxX) of row y. The row's depth and color
// spans are copied out, updated locally and written back in one batch, so
// concurrent rows never touch shared memory.
func (r *Rasterizer) renderRow(t *triangle, y, minX, maxX int) {
	s := r.Surface
	depths := s.DepthRow(y, minX, maxX, nil)
	colors := s.ColorRow(y, minX, maxX, nil)
	v0, v1, v2 := &t.v0, &t.v1, &t.v2

	py := float64(y) + 0.5
	for x := minX; x < maxX; x++ {
		i := x - minX
		w0, w1, w2 := t.weights(float64(x)+0.5, py)
		if w0 < 0 || w1 < 0 || w2 < 0 {
			continue
		}

		depth := float32(w0*v0.Z + w1*v1.Z + w2*v2.Z)
		if depth > depths[i] {
			continue
		}
		depths[i] = depth
		if r.DepthOnly {
			continue
		}

		// Undo the 1/w premultiplication.
		pw := 1 / (w0*v0.invW + w1*v1.invW + w2*v2.invW)

		uv := v0.uv.Scale(w0).Add(v1.uv.Scale(w1)).Add(v2.uv.Scale(w2)).Scale(pw)
		vc := v0.color.Scale(w0).Add(v1.color.Scale(w1)).Add(v2.color.Scale(w2)).Scale(pw)
		c := r.Tint.Mul(vc)

		if r.Texture != nil {
			if r.Bilinear {
				c = c.Mul(SampleBilinear(r.Texture, uv.X, uv.Y))
			} else {
				c = c.Mul(SampleNearest(r.Texture, uv.X, uv.Y))
			}
		}

		rgb := c.Vec3()
		if r.Lighting {
			world := v0.world.Scale(w0).Add(v1.world.Scale(w1)).Add(v2.world.Scale(w2)).Scale(pw)
			normal := v0.normal.Scale(w0).Add(v1.normal.Scale(w1)).Add(v2.normal.Scale(w2)).Scale(pw)
			rgb = r.shade(rgb, world, normal.Normalize())
		}

		// Straight alpha blend over what is already there.
		a := c.W
		o := colors[i*3 : i*3+3 : i*3+3]
		o[0] = float32(rgb.X*a + float64(o[0])*(1-a))
		o[1] = float32(rgb.Y*a + float64(o[1])*(1-a))
		o[2] = float32(rgb.Z*a + float64(o[2])*(1-a))
	}

	s.SetDepthRow(y, minX, depths)
	s.SetColorRow(y, minX, colors)
}

// shade applies the sun and every dynamic light to base.
func (r *Rasterizer) shade(base, world, normal math3d.Vec3) math3d.Vec3 {
	sun := r.Sun
	out := sun.Ambient.Mul(base)

	diffuse := math.Max(normal.Dot(sun.Direction.Negate()), 0)
	out = out.Add(sun.Diffuse.Mul(base).Scale(diffuse))

	for _, l := range r.Lights {
		if isNilLight(l) {
			continue
		}
		df, af := l.Calculate(world, normal)
		dc, ac := l.Colors()
		out = out.Add(dc.Mul(base).Scale(df))
		out = out.Add(ac.Mul(base).Scale(af))
	}
	return out
}

// isNilLight reports whether l is nil or wraps a nil light pointer.
func isNilLight(l Light) bool {
	switch l := l.(type) {
	case nil:
		return true
	case *PointLight:
		return l == nil
	case *SpotLight:
		return l == nil
	}
	return false
}
