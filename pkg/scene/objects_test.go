package scene

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

const triangleOBJ = `v 0 0 0
v 4 0 0
v 0 2 0
f 1 2 3
`

// quad returns a square of half-size s in the z=0 plane, facing +Z.
func quad(t *testing.T, s float64, color math3d.Vec4) []render.LocalVertex {
	t.Helper()
	b := render.NewBuilder()
	c := b.Color(color.X, color.Y, color.Z, color.W)
	p := [4]int{b.Position(-s, -s, 0), b.Position(s, -s, 0), b.Position(s, s, 0), b.Position(-s, s, 0)}
	for _, i := range []int{0, 1, 2, 0, 2, 3} {
		if err := b.Vertex(p[i], 0, 0, c); err != nil {
			t.Fatal(err)
		}
	}
	vertices, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return vertices
}

func TestParseObjects(t *testing.T) {
	src := `
objects:
  - model: a.obj
    translate: [1, 0, 0]
  - model: b.glb
    texture: b.png
    rotate: [0, 90, 0]
    scale: [2, 2, 2]
    fit: 1.5
`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(cfg.Objects))
	}
	if o := cfg.Objects[0]; o.Scale != nil || o.Fit != 0 || o.Translate != [3]float64{1, 0, 0} {
		t.Errorf("objects[0] = %+v", o)
	}
	if o := cfg.Objects[1]; o.Texture != "b.png" || *o.Scale != [3]float64{2, 2, 2} || o.Fit != 1.5 {
		t.Errorf("objects[1] = %+v", o)
	}
}

func TestObjectValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no model", "objects:\n  - translate: [1, 0, 0]\n"},
		{"negative fit", "objects:\n  - model: a.obj\n    fit: -1\n"},
		{"flat scale", "objects:\n  - model: a.obj\n    scale: [1, 0, 1]\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.src)); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestObjectMatrix(t *testing.T) {
	scale := [3]float64{2, 2, 2}
	o := Object{Translate: [3]float64{1, 2, 3}, Rotate: [3]float64{0, 90, 0}, Scale: &scale}

	// Scale, then yaw +X onto -Z, then move.
	if got := o.Matrix().MulPoint(math3d.V3(1, 0, 0)); got.Distance(math3d.V3(1, 2, 1)) > 1e-9 {
		t.Errorf("Matrix()*(1,0,0) = %v, want (1, 2, 1)", got)
	}
	if got := (Object{}).Matrix(); got != math3d.Identity() {
		t.Errorf("zero object matrix = %v, want identity", got)
	}
}

func TestLoadObjects(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(triangleOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	src := `
objects:
  - model: tri.obj
  - model: tri.obj
    fit: 1
  - model: tri.obj
    translate: [0, 0, -3]
`
	path := filepath.Join(dir, "objects.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "tri.obj"); cfg.Objects[0].Model != want {
		t.Errorf("model = %q, want %q", cfg.Objects[0].Model, want)
	}

	objs, err := cfg.LoadObjects()
	if err != nil {
		t.Fatalf("LoadObjects: %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("got %d drawables, want 3", len(objs))
	}

	plain, fitted, moved := objs[0], objs[1], objs[2]
	if &plain.Vertices[0] != &moved.Vertices[0] {
		t.Error("unfitted objects of one file do not share vertices")
	}
	if plain.Vertices[1].Position != math3d.V3(4, 0, 0) {
		t.Errorf("shared mesh was modified: %v", plain.Vertices[1].Position)
	}
	if s := render.Bounds(fitted.Vertices).Size(); math.Abs(s.X-1) > 1e-9 {
		t.Errorf("fitted size = %v, want largest dimension 1", s)
	}
	if moved.Model != math3d.Translate(math3d.V3(0, 0, -3)) {
		t.Errorf("model matrix = %v", moved.Model)
	}
	for i, o := range objs {
		if o.Texture != nil {
			t.Errorf("objs[%d] texture = %T, want nil", i, o.Texture)
		}
	}

	cfg.Objects = append(cfg.Objects, Object{Model: filepath.Join(dir, "missing.obj")})
	if _, err := cfg.LoadObjects(); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestDrawOcclusion(t *testing.T) {
	red, blue := math3d.V4(1, 0, 0, 1), math3d.V4(0, 0, 1, 1)
	near := Drawable{Name: "near", Vertices: quad(t, 1, red), Model: math3d.Identity()}
	far := Drawable{Name: "far", Vertices: quad(t, 3, blue), Model: math3d.Translate(math3d.V3(0, 0, -2))}

	orders := []struct {
		name string
		objs []Drawable
	}{
		{"near first", []Drawable{near, far}},
		{"far first", []Drawable{far, near}},
	}

	for _, tc := range orders {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Width, cfg.Height = 32, 24

			r := render.NewDefaultRenderer()
			cfg.Apply(r)
			r.Lighting = false

			r.ClearBuffers()
			n, err := Draw(r, tc.objs, true)
			if err != nil {
				t.Fatalf("Draw: %v", err)
			}
			if n != 12 {
				t.Errorf("Draw = %d vertices, want 12", n)
			}

			s := r.Surface()
			if c := s.Color(16, 12); c.Distance(red.Vec3()) > 1e-6 {
				t.Errorf("centre = %v, want the near quad", c)
			}
			if c := s.Color(9, 12); c.Distance(blue.Vec3()) > 1e-6 {
				t.Errorf("left of centre = %v, want the far quad", c)
			}
			if r.Mesh() != nil || r.Model != math3d.Identity() || r.Texture != nil {
				t.Error("renderer draw state not restored")
			}
		})
	}
}
