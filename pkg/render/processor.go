package render

import (
	"github.com/taigrr/softrend/pkg/math3d"
)

// ProcessedVertexSize is the number of scalars carried per processed vertex:
// clip position (4), world position (3), UV (2), normal (3) and color (4).
const ProcessedVertexSize = 4 + 3 + 2 + 3 + 4

// ProcessedVertex is a vertex after transformation, ready for rasterization.
type ProcessedVertex struct {
	Clip   math3d.Vec4 // Clip-space position, before the perspective divide
	World  math3d.Vec3
	UV     math3d.Vec2
	Normal math3d.Vec3 // World-space, unit length
	Color  math3d.Vec4
}

// lerp returns a*(1-t) + b*t for every attribute. Interpolating in clip
// space before the divide keeps attributes perspective-correct.
func (a ProcessedVertex) lerp(b ProcessedVertex, t float64) ProcessedVertex {
	return ProcessedVertex{
		Clip:   a.Clip.Lerp(b.Clip, t),
		World:  a.World.Lerp(b.World, t),
		UV:     a.UV.Lerp(b.UV, t),
		Normal: a.Normal.Lerp(b.Normal, t),
		Color:  a.Color.Lerp(b.Color, t),
	}
}

// clipPlanes are the six half-spaces of the canonical view volume, as
// (a,b,c,d) with a point inside when a*x + b*y + c*z + d*w >= 0.
var clipPlanes = [6]math3d.Vec4{
	{X: -1, W: 1}, // x <= w
	{X: 1, W: 1},  // -x <= w
	{Y: -1, W: 1}, // y <= w
	{Y: 1, W: 1},  // -y <= w
	{Z: -1, W: 1}, // z <= w
	{Z: 1, W: 1},  // -z <= w
}

// Processor transforms triangles from local to clip space, clips them
// against the view volume and culls back faces.
type Processor struct {
	Projection math3d.Mat4
	View       math3d.Mat4
	Model      math3d.Mat4

	// Billboard replaces the model rotation with the inverse view rotation
	// so geometry always faces the camera.
	Billboard bool
}

// NewProcessor creates a processor with identity transforms.
func NewProcessor() *Processor {
	return &Processor{
		Projection: math3d.Identity(),
		View:       math3d.Identity(),
		Model:      math3d.Identity(),
	}
}

// Process transforms, clips and culls the triangles of vertices. Trailing
// vertices that do not form a whole triangle are dropped with a warning;
// Renderer.SetMesh rejects such streams up front. The result always holds
// whole triangles.
func (p *Processor) Process(vertices []LocalVertex) []ProcessedVertex {
	if extra := len(vertices) % 3; extra != 0 {
		Logger().Warn("dropping trailing vertices", "vertices", len(vertices), "dropped", extra)
	}

	model := p.Model
	if p.Billboard {
		model = math3d.Billboard(model, p.View)
	}
	clip := p.Projection.Mul(p.View).Mul(model)
	normals := math3d.NormalMatrix(model)

	out := make([]ProcessedVertex, 0, len(vertices))
	var tri [3]ProcessedVertex

	for i := 0; i+3 <= len(vertices); i += 3 {
		inside := true
		for j, lv := range vertices[i : i+3] {
			local := math3d.V4FromV3(lv.Position, 1)
			tri[j] = ProcessedVertex{
				Clip:   clip.MulVec4(local),
				World:  model.MulVec4(local).Vec3(),
				UV:     lv.UV,
				Normal: normals.MulVec3(lv.Normal).Normalize(),
				Color:  lv.Color,
			}
			inside = inside && inVolume(tri[j].Clip)
		}

		if inside {
			if frontFacing(tri[0], tri[1], tri[2]) {
				out = append(out, tri[0], tri[1], tri[2])
			}
			continue
		}

		poly := ClipPolygon(tri[:])
		for j := 2; j < len(poly); j++ {
			if frontFacing(poly[0], poly[j-1], poly[j]) {
				out = append(out, poly[0], poly[j-1], poly[j])
			}
		}
	}

	return out
}

// inVolume reports whether the NDC position of c lies in [-1,1]³. A w of 0
// produces NaN or Inf, which fails the test and routes the triangle through
// the clipper.
func inVolume(c math3d.Vec4) bool {
	x, y, z := c.X/c.W, c.Y/c.W, c.Z/c.W
	return x >= -1 && x <= 1 && y >= -1 && y <= 1 && z >= -1 && z <= 1
}

// frontFacing reports whether the triangle winds counter-clockwise in NDC.
// Degenerate and NaN areas count as back-facing.
func frontFacing(v0, v1, v2 ProcessedVertex) bool {
	x0, y0 := v0.Clip.X/v0.Clip.W, v0.Clip.Y/v0.Clip.W
	x1, y1 := v1.Clip.X/v1.Clip.W, v1.Clip.Y/v1.Clip.W
	x2, y2 := v2.Clip.X/v2.Clip.W, v2.Clip.Y/v2.Clip.W
	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	return area > 0
}

// ClipPolygon clips a convex polygon in clip space against the six planes of
// the canonical view volume (Sutherland-Hodgman). Vertices on a plane are
// kept. It returns nil if fewer than three vertices survive.
func ClipPolygon(poly []ProcessedVertex) []ProcessedVertex {
	in := append([]ProcessedVertex(nil), poly...)
	out := make([]ProcessedVertex, 0, len(poly)+len(clipPlanes))

	for _, plane := range clipPlanes {
		if len(in) < 3 {
			return nil
		}
		out = out[:0]

		prev := in[0]
		dPrev := plane.Dot(prev.Clip)
		for j := 1; j <= len(in); j++ {
			cur := in[j%len(in)]
			d := plane.Dot(cur.Clip)
			if dPrev >= 0 {
				out = append(out, prev)
			}
			if (dPrev < 0 && d > 0) || (dPrev > 0 && d < 0) {
				out = append(out, prev.lerp(cur, dPrev/(dPrev-d)))
			}
			prev, dPrev = cur, d
		}

		in, out = out, in
	}

	if len(in) < 3 {
		return nil
	}
	return in
}
