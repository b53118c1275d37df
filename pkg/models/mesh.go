// Package models loads OBJ and glTF meshes into render vertex streams.
package models

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

// Mesh is a loaded triangle vertex stream, ready for Renderer.SetMesh.
type Mesh struct {
	Name     string
	Vertices []render.LocalVertex

	// Texture is the first embedded texture of the source file, if any.
	Texture *render.ImageTexture

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// NewMesh wraps a vertex stream and computes its bounds.
func NewMesh(name string, vertices []render.LocalVertex) *Mesh {
	m := &Mesh{Name: name, Vertices: vertices}
	m.CalculateBounds()
	return m
}

// Load picks a loader from the file extension.
func Load(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".glb", ".gltf":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("unsupported format: %s (use .obj, .gltf or .glb)", ext)
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	b := render.Bounds(m.Vertices)
	m.BoundsMin, m.BoundsMax = b.Min, b.Max
}

// Bounds returns the bounding box.
func (m *Mesh) Bounds() render.AABB {
	return render.AABB{Min: m.BoundsMin, Max: m.BoundsMax}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.Bounds().Center()
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.Bounds().Size()
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Vertices) / 3
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals replaces every normal with the area-weighted average
// of the face normals of all triangles sharing its position.
func (m *Mesh) CalculateSmoothNormals() {
	sums := make(map[math3d.Vec3]math3d.Vec3)

	for i := 0; i+3 <= len(m.Vertices); i += 3 {
		v0 := m.Vertices[i].Position
		v1 := m.Vertices[i+1].Position
		v2 := m.Vertices[i+2].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet
		for _, p := range []math3d.Vec3{v0, v1, v2} {
			sums[p] = sums[p].Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = sums[m.Vertices[i].Position].Normalize()
	}
}

// Transform applies a transformation matrix to all vertices. Normals go
// through the normal matrix so non-uniform scales keep them perpendicular.
func (m *Mesh) Transform(mat math3d.Mat4) {
	normals := math3d.NormalMatrix(mat)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulPoint(v.Position)
		v.Normal = normals.MulVec3(v.Normal).Normalize()
	}
	m.CalculateBounds()
}

// Normalize centers the mesh on the origin and scales it uniformly so its
// largest dimension is size.
func (m *Mesh) Normalize(size float64) {
	dims := m.Size()
	maxDim := max(dims.X, dims.Y, dims.Z)
	if maxDim <= 0 {
		return
	}
	scale := size / maxDim
	m.Transform(math3d.Scale(math3d.V3(scale, scale, scale)).Mul(math3d.Translate(m.Center().Negate())))
}

// Clone creates a deep copy of the mesh. The texture is shared.
func (m *Mesh) Clone() *Mesh {
	clone := *m
	clone.Vertices = make([]render.LocalVertex, len(m.Vertices))
	copy(clone.Vertices, m.Vertices)
	return &clone
}
