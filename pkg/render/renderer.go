package render

import (
	"fmt"

	"github.com/taigrr/softrend/pkg/math3d"
)

// Options toggles pipeline features.
type Options struct {
	DepthOnly   bool // Write depth without shading
	Bilinear    bool // Bilinear texture filtering
	Multithread bool // Row-parallel rasterization of wide triangles
	Billboard   bool // Rotate geometry to face the camera
	Lighting    bool // Sun and dynamic lights
}

// DefaultOptions returns multithreaded, lit rendering with nearest
// filtering.
func DefaultOptions() Options {
	return Options{Multithread: true, Lighting: true}
}

// Renderer holds the state of a draw call and drives the processor and the
// rasterizer. It renders into the front surface while the back surface holds
// the previous frame for presentation.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	Options

	ClearColor math3d.Vec3
	ClearDepth float32

	Sun    Sun
	Lights []Light

	Projection math3d.Mat4
	View       math3d.Mat4
	Model      math3d.Mat4

	Texture Texture     // Optional
	Tint    math3d.Vec4 // Multiplied into every vertex color

	front  *Surface
	back   *Surface
	mesh   []LocalVertex
	bounds AABB
}

// NewRenderer creates a renderer with two width x height surfaces.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		Options:    DefaultOptions(),
		ClearColor: math3d.V3(0.2, 0.4, 0.6),
		ClearDepth: 1,
		Sun:        DefaultSun(),
		Projection: math3d.Identity(),
		View:       math3d.Identity(),
		Model:      math3d.Identity(),
		Tint:       White,
		front:      NewSurface(width, height),
		back:       NewSurface(width, height),
	}
}

// NewDefaultRenderer creates a renderer with 200x150 surfaces.
func NewDefaultRenderer() *Renderer {
	return NewRenderer(DefaultWidth, DefaultHeight)
}

// Surface returns the front surface, the one Render draws into.
func (r *Renderer) Surface() *Surface {
	return r.front
}

// BackSurface returns the surface holding the previous frame.
func (r *Renderer) BackSurface() *Surface {
	return r.back
}

// SetMesh sets the vertex stream drawn by Render. Pass nil to clear it.
func (r *Renderer) SetMesh(vertices []LocalVertex) error {
	if len(vertices)%3 != 0 {
		return fmt.Errorf("mesh of %d vertices: %w", len(vertices), ErrIncompleteTriangle)
	}
	r.mesh = vertices
	r.bounds = Bounds(vertices)
	return nil
}

// Mesh returns the current vertex stream.
func (r *Renderer) Mesh() []LocalVertex {
	return r.mesh
}

// ClearBuffers resets the front surface to the clear color and depth.
func (r *Renderer) ClearBuffers() {
	c := r.ClearColor
	r.front.ClearColor(float32(c.X), float32(c.Y), float32(c.Z))
	r.front.ClearDepth(r.ClearDepth)
}

// Render draws the current mesh into the front surface and returns the
// number of vertices that survived clipping and culling. It returns 0 when
// no mesh is set.
func (r *Renderer) Render() int {
	if len(r.mesh) == 0 {
		return 0
	}

	model := r.Model
	if r.Billboard {
		model = math3d.Billboard(model, r.View)
	}
	// Meshes entirely outside the view volume skip the processor.
	if !NewFrustum(r.Projection.Mul(r.View).Mul(model)).IntersectAABB(r.bounds) {
		return 0
	}

	p := Processor{
		Projection: r.Projection,
		View:       r.View,
		Model:      r.Model,
		Billboard:  r.Billboard,
	}
	processed := p.Process(r.mesh)

	ras := Rasterizer{
		Surface:     r.front,
		Texture:     r.Texture,
		Sun:         r.Sun,
		Tint:        r.Tint,
		Lights:      r.Lights,
		DepthOnly:   r.DepthOnly,
		Bilinear:    r.Bilinear,
		Multithread: r.Multithread,
		Lighting:    r.Lighting,
	}
	ras.Render(processed)

	return len(processed)
}

// FlipSurfaces swaps the front and back surfaces. Call it once per frame,
// after the front surface has been handed to presentation.
func (r *Renderer) FlipSurfaces() {
	r.front, r.back = r.back, r.front
}

// Resize reallocates both surfaces. Their contents are lost. When a
// Presenter may still be reading the back surface, use Presenter.Resize.
func (r *Renderer) Resize(width, height int) {
	Logger().Debug("resize surfaces",
		"from", fmt.Sprintf("%dx%d", r.front.Width(), r.front.Height()),
		"to", fmt.Sprintf("%dx%d", width, height))
	r.front.Resize(width, height)
	r.back.Resize(width, height)
}
