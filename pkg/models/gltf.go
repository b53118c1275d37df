package models

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// SmoothNormals averages face normals when the file carries none.
	// Otherwise missing normals stay flat.
	SmoothNormals bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{SmoothNormals: true}
}

// LoadGLTF loads a .gltf or binary .glb file with the default loader.
func LoadGLTF(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh. The first image the
// file references, embedded or external, becomes Mesh.Texture.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh, err := l.Decode(doc, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	mesh.Texture = firstTexture(doc, filepath.Dir(path))
	return mesh, nil
}

// Decode converts the triangle primitives of every mesh in doc.
// Node transforms are not applied.
func (l *GLTFLoader) Decode(doc *gltf.Document, name string) (*Mesh, error) {
	b := render.NewBuilder()
	hasNormals := false

	for _, m := range doc.Meshes {
		for i, prim := range m.Primitives {
			ok, err := l.addPrimitive(doc, prim, b)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", m.Name, i, err)
			}
			if ok {
				_, n := prim.Attributes[gltf.NORMAL]
				hasNormals = hasNormals || n
			}
		}
	}

	vertices, err := b.Finish()
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}

	mesh := NewMesh(name, vertices)
	if l.SmoothNormals && !hasNormals {
		mesh.CalculateSmoothNormals()
	}

	render.Logger().Debug("loaded gltf", "name", name, "meshes", len(doc.Meshes), "triangles", mesh.TriangleCount())
	return mesh, nil
}

// addPrimitive feeds one primitive to b. It reports false for primitives it
// skips.
func (l *GLTFLoader) addPrimitive(doc *gltf.Document, prim *gltf.Primitive, b *render.Builder) (bool, error) {
	if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
		render.Logger().Warn("skipping non-triangle primitive", "mode", prim.Mode)
		return false, nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		render.Logger().Warn("skipping primitive without positions")
		return false, nil
	}

	positions, err := readVec3Accessor(doc, posIdx)
	if err != nil {
		return false, fmt.Errorf("read positions: %w", err)
	}
	posHandles := make([]int, len(positions))
	for i, p := range positions {
		posHandles[i] = b.Position(p.X, p.Y, p.Z)
	}

	// Handles of 0 select builder defaults when an attribute is absent.
	normalHandles := make([]int, len(positions))
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := readVec3Accessor(doc, normIdx)
		if err != nil {
			return false, fmt.Errorf("read normals: %w", err)
		}
		for i := range min(len(normals), len(positions)) {
			n := normals[i]
			normalHandles[i] = b.Normal(n.X, n.Y, n.Z)
		}
	}

	uvHandles := make([]int, len(positions))
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := readVec2Accessor(doc, uvIdx)
		if err != nil {
			return false, fmt.Errorf("read uvs: %w", err)
		}
		for i := range min(len(uvs), len(positions)) {
			// GLTF uses top-left origin (V=0 at top), flip V for bottom-left origin
			uvHandles[i] = b.UV(uvs[i].X, 1.0-uvs[i].Y)
		}
	}

	color := 0
	if c, ok := baseColor(doc, prim); ok {
		color = b.Color(c[0], c[1], c[2], c[3])
	}

	var indices []int
	if prim.Indices != nil {
		indices, err = readIndices(doc, *prim.Indices)
		if err != nil {
			return false, fmt.Errorf("read indices: %w", err)
		}
	} else {
		// No indices, assume sequential triangles
		indices = make([]int, len(positions))
		for i := range indices {
			indices[i] = i
		}
	}

	// GLTF front faces wind counter-clockwise, as ours do.
	for i := 0; i+3 <= len(indices); i += 3 {
		for _, idx := range indices[i : i+3] {
			if idx < 0 || idx >= len(positions) {
				return false, fmt.Errorf("index %d out of range (%d vertices)", idx, len(positions))
			}
			if err := b.Vertex(posHandles[idx], uvHandles[idx], normalHandles[idx], color); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}

// baseColor returns the base color factor of the primitive's material.
func baseColor(doc *gltf.Document, prim *gltf.Primitive) ([4]float64, bool) {
	if prim.Material == nil || *prim.Material >= len(doc.Materials) {
		return [4]float64{}, false
	}
	pbr := doc.Materials[*prim.Material].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorFactor == nil {
		return [4]float64{}, false
	}
	return *pbr.BaseColorFactor, true
}

// readVec3Accessor reads Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorVec3, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		b := data[i*stride:]
		result[i] = math3d.V3(readFloat32(b), readFloat32(b[4:]), readFloat32(b[8:]))
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a GLTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorVec2, 8)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec2, accessor.Count)
	for i := range result {
		b := data[i*stride:]
		result[i] = math3d.V2(readFloat32(b), readFloat32(b[4:]))
	}
	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}

	var size int
	switch doc.Accessors[accessorIdx].ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", doc.Accessors[accessorIdx].ComponentType)
	}

	accessor, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorScalar, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range result {
		b := data[i*stride:]
		switch size {
		case 1:
			result[i] = int(b[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return result, nil
}

// accessorBytes returns the buffer bytes an accessor reads, starting at its
// first element, and the element stride. elemSize is the tightly packed
// size of one element.
func accessorBytes(doc *gltf.Document, accessorIdx int, typ gltf.AccessorType, elemSize int) (*gltf.Accessor, []byte, int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, nil, 0, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != typ {
		return nil, nil, 0, fmt.Errorf("expected %v, got %v", typ, accessor.Type)
	}
	if typ != gltf.AccessorScalar && accessor.ComponentType != gltf.ComponentFloat {
		return nil, nil, 0, fmt.Errorf("unsupported component type %v", accessor.ComponentType)
	}
	if accessor.BufferView == nil {
		return nil, nil, 0, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	// gltf.Open loads both embedded and external buffers into Data.
	if len(buffer.Data) == 0 {
		return nil, nil, 0, fmt.Errorf("buffer has no data")
	}

	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	end := start
	if accessor.Count > 0 {
		end = start + (accessor.Count-1)*stride + elemSize
	}
	if end > len(buffer.Data) {
		return nil, nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", end, len(buffer.Data))
	}

	return accessor, buffer.Data[start:end], stride, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// firstTexture decodes the first image of doc that can be read, or returns
// nil. External images resolve relative to dir.
func firstTexture(doc *gltf.Document, dir string) *render.ImageTexture {
	for i, img := range doc.Images {
		var data []byte
		switch {
		case img.BufferView != nil:
			bv := doc.BufferViews[*img.BufferView]
			buf := doc.Buffers[bv.Buffer]
			if end := bv.ByteOffset + bv.ByteLength; end <= len(buf.Data) {
				data = buf.Data[bv.ByteOffset:end]
			}
		case img.URI != "":
			var err error
			data, err = os.ReadFile(filepath.Join(dir, img.URI))
			if err != nil {
				render.Logger().Warn("skipping gltf image", "index", i, "err", err)
				continue
			}
		}
		if len(data) == 0 {
			continue
		}

		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			render.Logger().Warn("skipping gltf image", "index", i, "err", err)
			continue
		}
		return render.TextureFromImage(decoded)
	}
	return nil
}
