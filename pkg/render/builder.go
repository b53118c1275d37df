package render

import (
	"errors"
	"fmt"

	"github.com/taigrr/softrend/pkg/math3d"
)

var (
	// ErrIncompleteTriangle is returned by Finish when the vertex count is
	// not a multiple of 3.
	ErrIncompleteTriangle = errors.New("vertex stream ends mid-triangle")

	// ErrBadHandle is returned by Vertex for a handle outside its pool.
	ErrBadHandle = errors.New("attribute handle out of range")
)

// LocalVertex is a pre-transform vertex. Streams of them are always grouped
// in triangles of three.
type LocalVertex struct {
	Position math3d.Vec3
	UV       math3d.Vec2
	Normal   math3d.Vec3
	Color    math3d.Vec4
}

// White is the default vertex color.
var White = math3d.V4(1, 1, 1, 1)

// normalSlot is a normal that may not have been supplied yet.
type normalSlot struct {
	value math3d.Vec3
	set   bool
}

type pendingVertex struct {
	LocalVertex
	normal normalSlot
}

// Builder assembles a triangle vertex stream from deduplicated attribute
// pools. Handles returned by Position, UV, Normal and Color are 1-based; a
// handle of 0 passed to Vertex selects the attribute's default (origin,
// origin, derived face normal, opaque white).
//
// Triangles completed without a normal on every vertex get a flat face
// normal on all three.
type Builder struct {
	positions []math3d.Vec3
	uvs       []math3d.Vec2
	normals   []math3d.Vec3
	colors    []math3d.Vec4

	// Reverse lookups for deduplication.
	positionIndex map[math3d.Vec3]int
	uvIndex       map[math3d.Vec2]int
	normalIndex   map[math3d.Vec3]int
	colorIndex    map[math3d.Vec4]int

	vertices []pendingVertex
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		positionIndex: make(map[math3d.Vec3]int),
		uvIndex:       make(map[math3d.Vec2]int),
		normalIndex:   make(map[math3d.Vec3]int),
		colorIndex:    make(map[math3d.Vec4]int),
	}
}

// intern appends v to pool unless an equal value is already there and
// returns its 1-based handle.
func intern[T comparable](pool *[]T, index map[T]int, v T) int {
	if h, ok := index[v]; ok {
		return h
	}
	*pool = append(*pool, v)
	index[v] = len(*pool)
	return len(*pool)
}

// Position adds a position to the pool and returns its handle.
func (b *Builder) Position(x, y, z float64) int {
	return intern(&b.positions, b.positionIndex, math3d.V3(x, y, z))
}

// UV adds a texture coordinate to the pool and returns its handle.
func (b *Builder) UV(u, v float64) int {
	return intern(&b.uvs, b.uvIndex, math3d.V2(u, v))
}

// Normal adds a normal to the pool and returns its handle.
func (b *Builder) Normal(x, y, z float64) int {
	return intern(&b.normals, b.normalIndex, math3d.V3(x, y, z))
}

// Color adds an RGBA color to the pool and returns its handle.
func (b *Builder) Color(r, g, bl, a float64) int {
	return intern(&b.colors, b.colorIndex, math3d.V4(r, g, bl, a))
}

func lookup[T any](pool []T, handle int, def T, name string) (T, error) {
	switch {
	case handle == 0:
		return def, nil
	case handle < 0 || handle > len(pool):
		return def, fmt.Errorf("%s handle %d (pool size %d): %w", name, handle, len(pool), ErrBadHandle)
	}
	return pool[handle-1], nil
}

// Vertex appends one vertex built from pool handles.
func (b *Builder) Vertex(position, uv, normal, color int) error {
	var (
		v   pendingVertex
		err error
	)
	if v.Position, err = lookup(b.positions, position, math3d.Vec3{}, "position"); err != nil {
		return err
	}
	if v.UV, err = lookup(b.uvs, uv, math3d.Vec2{}, "uv"); err != nil {
		return err
	}
	if v.Color, err = lookup(b.colors, color, White, "color"); err != nil {
		return err
	}
	if normal != 0 {
		if v.normal.value, err = lookup(b.normals, normal, math3d.Vec3{}, "normal"); err != nil {
			return err
		}
		v.normal.set = true
	}

	b.vertices = append(b.vertices, v)
	if len(b.vertices)%3 == 0 {
		b.completeTriangle(b.vertices[len(b.vertices)-3:])
	}
	return nil
}

// completeTriangle resolves the normals of a just-finished triangle.
func (b *Builder) completeTriangle(tri []pendingVertex) {
	if tri[0].normal.set && tri[1].normal.set && tri[2].normal.set {
		for i := range tri {
			tri[i].Normal = tri[i].normal.value
		}
		return
	}

	p0, p1, p2 := tri[0].Position, tri[1].Position, tri[2].Position
	face := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	for i := range tri {
		tri[i].Normal = face
		tri[i].normal = normalSlot{value: face, set: true}
	}
}

// Len returns the number of vertices emitted so far.
func (b *Builder) Len() int {
	return len(b.vertices)
}

// Finish returns the vertex stream and releases the pools. It fails if the
// stream ends in the middle of a triangle.
func (b *Builder) Finish() ([]LocalVertex, error) {
	if n := len(b.vertices); n%3 != 0 {
		return nil, fmt.Errorf("%d vertices (%d left over): %w", n, n%3, ErrIncompleteTriangle)
	}

	out := make([]LocalVertex, len(b.vertices))
	for i, v := range b.vertices {
		out[i] = v.LocalVertex
	}

	*b = *NewBuilder()
	return out, nil
}
