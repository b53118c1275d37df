package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/softrend/pkg/render"
)

// LoadOBJ loads a Wavefront OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	return ParseOBJ(f, filepath.Base(path))
}

// objParser maps OBJ indices, which count every v/vt/vn statement, to
// builder handles, which are deduplicated.
type objParser struct {
	b         *render.Builder
	positions []int
	uvs       []int
	normals   []int
	skipped   map[string]int
}

// ParseOBJ reads OBJ geometry: v, vt, vn and f statements. Polygons are
// fan-triangulated from their first vertex, and negative indices count back
// from the latest element. Grouping and material statements are ignored.
func ParseOBJ(r io.Reader, name string) (*Mesh, error) {
	p := &objParser{b: render.NewBuilder(), skipped: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := p.statement(fields); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	for keyword, n := range p.skipped {
		render.Logger().Warn("unsupported obj statement", "name", name, "keyword", keyword, "count", n)
	}

	vertices, err := p.b.Finish()
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}
	mesh := NewMesh(name, vertices)
	render.Logger().Debug("loaded obj", "name", name, "positions", len(p.positions), "triangles", mesh.TriangleCount())
	return mesh, nil
}

func (p *objParser) statement(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
		p.positions = append(p.positions, p.b.Position(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return fmt.Errorf("texture coordinate: %w", err)
		}
		p.uvs = append(p.uvs, p.b.UV(v[0], v[1]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return fmt.Errorf("normal: %w", err)
		}
		p.normals = append(p.normals, p.b.Normal(v[0], v[1], v[2]))
	case "f":
		return p.face(fields[1:])
	case "o", "g", "s", "usemtl", "mtllib":
		// Grouping and materials carry no geometry.
	default:
		p.skipped[fields[0]]++
	}
	return nil
}

// face emits a polygon as a triangle fan.
func (p *objParser) face(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(refs))
	}

	corners := make([][3]int, len(refs))
	for i, ref := range refs {
		c, err := p.corner(ref)
		if err != nil {
			return fmt.Errorf("face vertex %q: %w", ref, err)
		}
		corners[i] = c
	}

	for i := 2; i < len(corners); i++ {
		for _, c := range [][3]int{corners[0], corners[i-1], corners[i]} {
			if err := p.b.Vertex(c[0], c[1], c[2], 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// corner resolves a v, v/vt, v//vn or v/vt/vn reference to builder handles.
func (p *objParser) corner(ref string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return out, fmt.Errorf("too many components")
	}

	pools := [3][]int{p.positions, p.uvs, p.normals}
	for i, part := range parts {
		if part == "" {
			if i == 0 {
				return out, fmt.Errorf("missing position index")
			}
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return out, fmt.Errorf("bad index: %w", err)
		}
		h, err := resolveIndex(pools[i], idx)
		if err != nil {
			return out, err
		}
		out[i] = h
	}
	return out, nil
}

// resolveIndex maps a 1-based or negative OBJ index into pool.
func resolveIndex(pool []int, idx int) (int, error) {
	switch {
	case idx > 0 && idx <= len(pool):
		return pool[idx-1], nil
	case idx < 0 && -idx <= len(pool):
		return pool[len(pool)+idx], nil
	}
	return 0, fmt.Errorf("index %d out of range (%d defined): %w", idx, len(pool), render.ErrBadHandle)
}

// parseFloats parses at least n floats from fields. Extra values, such as
// a w coordinate, are ignored.
func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("need %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := range n {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
