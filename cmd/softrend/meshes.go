package main

import (
	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

// cubeFaces lists each face of the unit cube counter-clockwise as seen from
// outside, with its color.
var cubeFaces = []struct {
	corners [4]math3d.Vec3
	color   math3d.Vec4
}{
	{[4]math3d.Vec3{{X: 1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: 1}}, math3d.V4(0.9, 0.4, 0.4, 1)},
	{[4]math3d.Vec3{{X: -1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: -1}}, math3d.V4(0.4, 0.9, 0.9, 1)},
	{[4]math3d.Vec3{{X: -1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1}}, math3d.V4(0.4, 0.9, 0.4, 1)},
	{[4]math3d.Vec3{{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: -1, Z: 1}}, math3d.V4(0.9, 0.4, 0.9, 1)},
	{[4]math3d.Vec3{{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1}}, math3d.V4(0.4, 0.4, 0.9, 1)},
	{[4]math3d.Vec3{{X: 1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: -1}}, math3d.V4(0.9, 0.9, 0.4, 1)},
}

// quadUVs maps the corners of a face to the whole texture.
var quadUVs = [4]math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// addQuad emits a quad as two triangles with flat normals.
func addQuad(b *render.Builder, corners [4]math3d.Vec3, color math3d.Vec4) error {
	c := b.Color(color.X, color.Y, color.Z, color.W)
	var pos, uv [4]int
	for i := range corners {
		pos[i] = b.Position(corners[i].X, corners[i].Y, corners[i].Z)
		uv[i] = b.UV(quadUVs[i].X, quadUVs[i].Y)
	}
	for _, i := range []int{0, 1, 2, 0, 2, 3} {
		if err := b.Vertex(pos[i], uv[i], 0, c); err != nil {
			return err
		}
	}
	return nil
}

// cubeMesh builds the model shown when none is given: a 2x2x2 cube with a
// color and full texture per face.
func cubeMesh() ([]render.LocalVertex, error) {
	b := render.NewBuilder()
	for _, f := range cubeFaces {
		if err := addQuad(b, f.corners, f.color); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

// iconMesh builds the quad drawn at each light, facing +Z. It is rendered
// billboarded so it always faces the camera.
func iconMesh(size float64) ([]render.LocalVertex, error) {
	s := size / 2
	b := render.NewBuilder()
	corners := [4]math3d.Vec3{{X: -s, Y: -s}, {X: s, Y: -s}, {X: s, Y: s}, {X: -s, Y: s}}
	if err := addQuad(b, corners, render.White); err != nil {
		return nil, err
	}
	return b.Finish()
}

// lightPosition returns where a dynamic light sits, if it has a position.
func lightPosition(l render.Light) (math3d.Vec3, bool) {
	switch l := l.(type) {
	case *render.PointLight:
		return l.Position, true
	case *render.SpotLight:
		return l.Position, true
	}
	return math3d.Vec3{}, false
}

// drawLightIcons renders icon at every light of r, unlit and tinted with
// the light's diffuse color. The renderer's mesh and draw state are
// restored afterwards.
func drawLightIcons(r *render.Renderer, icon []render.LocalVertex) error {
	if len(r.Lights) == 0 {
		return nil
	}

	mesh := r.Mesh()
	opts, tex, tint, model := r.Options, r.Texture, r.Tint, r.Model
	defer func() {
		r.Options, r.Texture, r.Tint, r.Model = opts, tex, tint, model
		_ = r.SetMesh(mesh) // Already validated when first set.
	}()

	if err := r.SetMesh(icon); err != nil {
		return err
	}
	r.Texture = nil
	r.Lighting = false
	r.DepthOnly = false
	r.Billboard = true

	for _, l := range r.Lights {
		pos, ok := lightPosition(l)
		if !ok {
			continue
		}
		diffuse, _ := l.Colors()
		r.Tint = math3d.V4(diffuse.X, diffuse.Y, diffuse.Z, 1)
		r.Model = math3d.Translate(pos)
		r.Render()
	}
	return nil
}

// depthView replaces the colors of s with its depth: nearest written pixels
// white, farthest dark grey, and pixels still at clear black.
func depthView(s *render.Surface, clear float32) {
	depth := s.DepthTexture()
	at := func(x, y int) float64 { return depth.Fetch(x, y).X }
	limit := float64(clear)

	lo, hi := 1.0, 0.0
	for y := range s.Height() {
		for x := range s.Width() {
			if d := at(x, y); d < limit {
				lo, hi = min(lo, d), max(hi, d)
			}
		}
	}

	span := hi - lo
	for y := range s.Height() {
		for x := range s.Width() {
			d := at(x, y)
			if d >= limit {
				s.SetColor(x, y, math3d.Vec3{})
				continue
			}
			v := 1.0
			if span > 0 {
				v = 1 - 0.8*(d-lo)/span
			}
			s.SetColor(x, y, math3d.V3(v, v, v))
		}
	}
}
