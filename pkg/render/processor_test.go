package render

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/taigrr/softrend/pkg/math3d"
)

func localTri(p0, p1, p2 math3d.Vec3) []LocalVertex {
	return []LocalVertex{
		{Position: p0, UV: math3d.V2(0, 0), Normal: math3d.V3(0, 0, 1), Color: White},
		{Position: p1, UV: math3d.V2(1, 0), Normal: math3d.V3(0, 0, 1), Color: White},
		{Position: p2, UV: math3d.V2(0, 1), Normal: math3d.V3(0, 0, 1), Color: White},
	}
}

func TestProcessorProcess(t *testing.T) {
	tests := []struct {
		name     string
		tri      []LocalVertex
		expected int // Vertices out
	}{
		{
			name:     "inside counter-clockwise",
			tri:      localTri(math3d.V3(-0.5, -0.5, 0), math3d.V3(0.5, -0.5, 0), math3d.V3(0, 0.5, 0)),
			expected: 3,
		},
		{
			name:     "inside clockwise",
			tri:      localTri(math3d.V3(-0.5, -0.5, 0), math3d.V3(0, 0.5, 0), math3d.V3(0.5, -0.5, 0)),
			expected: 0,
		},
		{
			name:     "vertex on boundary",
			tri:      localTri(math3d.V3(-1, -1, 0), math3d.V3(1, -1, 0), math3d.V3(0, 1, 1)),
			expected: 3,
		},
		{
			name:     "one vertex outside",
			tri:      localTri(math3d.V3(-0.5, -0.5, 0), math3d.V3(3, -0.5, 0), math3d.V3(-0.5, 0.5, 0)),
			expected: 6,
		},
		{
			name:     "fully outside",
			tri:      localTri(math3d.V3(2, 2, 0), math3d.V3(3, 2, 0), math3d.V3(2, 3, 0)),
			expected: 0,
		},
		{
			name:     "degenerate",
			tri:      localTri(math3d.V3(0, 0, 0), math3d.V3(0.5, 0.5, 0), math3d.V3(0.25, 0.25, 0)),
			expected: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProcessor()
			out := p.Process(tc.tri)
			if len(out) != tc.expected {
				t.Fatalf("got %d vertices, want %d", len(out), tc.expected)
			}
			for i, v := range out {
				c := v.Clip
				if !inVolume(math3d.V4(c.X*(1-1e-9), c.Y*(1-1e-9), c.Z*(1-1e-9), c.W)) {
					t.Errorf("vertex %d at %v is outside the view volume", i, c)
				}
			}
		})
	}
}

func TestProcessorDropsTrailingVertices(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer SetLogger(nil)

	tri := localTri(math3d.V3(-0.5, -0.5, 0), math3d.V3(0.5, -0.5, 0), math3d.V3(0, 0.5, 0))
	if NewProcessor().Process(tri); buf.Len() != 0 {
		t.Errorf("whole triangles logged %q", buf.String())
	}

	tri = append(tri, tri[0])
	if out := NewProcessor().Process(tri); len(out) != 3 {
		t.Errorf("got %d vertices, want 3", len(out))
	}
	if log := buf.String(); !strings.Contains(log, "dropping trailing vertices") || !strings.Contains(log, "dropped=1") {
		t.Errorf("log = %q, want a warning for 1 dropped vertex", log)
	}
}

func TestProcessorTransforms(t *testing.T) {
	p := NewProcessor()
	p.Model = math3d.Translate(math3d.V3(0.25, 0, 0)).Mul(math3d.Scale(math3d.V3(2, 1, 1)))

	tri := localTri(math3d.V3(-0.25, -0.5, 0), math3d.V3(0.25, -0.5, 0), math3d.V3(0, 0.5, 0))
	for i := range tri {
		tri[i].Normal = math3d.V3(1, 1, 0)
	}
	out := p.Process(tri)
	if len(out) != 3 {
		t.Fatalf("got %d vertices, want 3", len(out))
	}

	if w := out[0].World; math.Abs(w.X-(-0.25)) > 1e-9 || math.Abs(w.Y-(-0.5)) > 1e-9 {
		t.Errorf("world = %v, want (-0.25, -0.5, 0)", w)
	}
	if c := out[1].Clip; math.Abs(c.X-0.75) > 1e-9 || c.W != 1 {
		t.Errorf("clip = %v, want x 0.75 w 1", c)
	}

	// Non-uniform scale tilts normals away from the stretched axis.
	n := out[0].Normal
	want := math3d.V3(0.5, 1, 0).Normalize()
	if math.Abs(n.X-want.X) > 1e-9 || math.Abs(n.Y-want.Y) > 1e-9 || math.Abs(n.Len()-1) > 1e-9 {
		t.Errorf("normal = %v, want %v", n, want)
	}
}

func TestClipPolygon(t *testing.T) {
	pv := func(x, y, z, w, u float64) ProcessedVertex {
		return ProcessedVertex{Clip: math3d.V4(x, y, z, w), UV: math3d.V2(u, 0), Color: White}
	}

	t.Run("inside unchanged", func(t *testing.T) {
		in := []ProcessedVertex{pv(0, 0, 0, 1, 0), pv(0.5, 0, 0, 1, 0), pv(0, 0.5, 0, 1, 0)}
		out := ClipPolygon(in)
		if len(out) != 3 {
			t.Fatalf("got %d vertices, want 3", len(out))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("vertex %d = %v, want %v", i, out[i], in[i])
			}
		}
	})

	t.Run("outside", func(t *testing.T) {
		out := ClipPolygon([]ProcessedVertex{pv(2, 0, 0, 1, 0), pv(3, 0, 0, 1, 0), pv(2, 1, 0, 1, 0)})
		if out != nil {
			t.Errorf("got %d vertices, want nil", len(out))
		}
	})

	t.Run("interpolates attributes", func(t *testing.T) {
		out := ClipPolygon([]ProcessedVertex{
			pv(-0.5, -0.5, 0, 1, 0),
			pv(3, -0.5, 0, 1, 1),
			pv(-0.5, 0.5, 0, 1, 0),
		})
		if len(out) != 4 {
			t.Fatalf("got %d vertices, want 4", len(out))
		}

		// The edge crosses x = 1 at t = 1.5/3.5.
		found := false
		for _, v := range out {
			if math.Abs(v.Clip.X-1) < 1e-9 && math.Abs(v.Clip.Y+0.5) < 1e-9 {
				found = true
				if math.Abs(v.UV.X-1.5/3.5) > 1e-9 {
					t.Errorf("uv = %v, want %v", v.UV.X, 1.5/3.5)
				}
			}
		}
		if !found {
			t.Errorf("no intersection vertex on x = 1 in %v", out)
		}
	})

	t.Run("zero w", func(t *testing.T) {
		out := ClipPolygon([]ProcessedVertex{
			pv(-0.5, -0.5, 0, 1, 0),
			pv(0.5, -0.5, 0, 1, 0),
			pv(0.5, 0.5, 0, 0, 0),
		})
		for i, v := range out {
			if !(v.Clip.W > 0) {
				t.Errorf("vertex %d kept w = %v", i, v.Clip.W)
			}
		}
	})
}

func BenchmarkProcessorProcess(b *testing.B) {
	cam := NewCamera()
	p := NewProcessor()
	p.Projection = cam.ProjectionMatrix()
	p.View = cam.ViewMatrix()
	p.Model = math3d.RotateY(0.3)

	mesh := cubeMesh(b)

	for b.Loop() {
		p.Process(mesh)
	}
}
