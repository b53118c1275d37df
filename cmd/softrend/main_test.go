package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"golang.org/x/image/bmp"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
	"github.com/taigrr/softrend/pkg/scene"
)

func TestCubeMesh(t *testing.T) {
	vertices, err := cubeMesh()
	if err != nil {
		t.Fatalf("cubeMesh: %v", err)
	}
	if len(vertices) != 36 {
		t.Fatalf("got %d vertices, want 36", len(vertices))
	}

	for i := 0; i < len(vertices); i += 3 {
		tri := vertices[i : i+3]
		centroid := tri[0].Position.Add(tri[1].Position).Add(tri[2].Position).Scale(1.0 / 3)
		if n := tri[0].Normal; n.Dot(centroid) <= 0 || math.Abs(n.Len()-1) > 1e-9 {
			t.Errorf("triangle %d normal %v does not point outward", i/3, n)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
		ok   bool
	}{
		{"200x150", 200, 150, true},
		{"1x1", 1, 1, true},
		{"0x10", 0, 0, false},
		{"10x-1", 0, 0, false},
		{"wide", 0, 0, false},
		{"10", 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			w, h, err := parseSize(tc.in)
			if tc.ok != (err == nil) {
				t.Fatalf("parseSize(%q) err = %v", tc.in, err)
			}
			if !tc.ok && !errors.Is(err, errBadSize) {
				t.Errorf("err = %v, want errBadSize", err)
			}
			if w != tc.w || h != tc.h {
				t.Errorf("got %dx%d, want %dx%d", w, h, tc.w, tc.h)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("255,0,51")
	if err != nil {
		t.Fatalf("parseColor: %v", err)
	}
	if c != math3d.V3(1, 0, 0.2) {
		t.Errorf("got %v", c)
	}

	for _, bad := range []string{"red", "1,2", "256,0,0"} {
		if _, err := parseColor(bad); err == nil {
			t.Errorf("parseColor(%q) succeeded", bad)
		}
	}
}

func TestZoom(t *testing.T) {
	z := NewZoom(60, 5)
	z.Step(-100)
	if z.Target() != minZoom {
		t.Errorf("target = %v, want %v", z.Target(), minZoom)
	}
	z.Step(100)
	if z.Target() != maxZoom {
		t.Errorf("target = %v, want %v", z.Target(), maxZoom)
	}

	for range 600 {
		z.Update()
	}
	if math.Abs(z.Distance-maxZoom) > 1e-3 {
		t.Errorf("distance = %v, want settled at %v", z.Distance, maxZoom)
	}

	z.Reset(3)
	z.Update()
	if z.Distance != 3 {
		t.Errorf("distance after reset = %v, want 3", z.Distance)
	}
}

func TestRotationDecay(t *testing.T) {
	r := NewRotationState(60)
	r.ApplyImpulse(0, 0.5, 0)

	for range 600 {
		r.Update()
	}
	if math.Abs(r.Yaw.Velocity) > 1e-3 {
		t.Errorf("yaw velocity = %v, want decayed", r.Yaw.Velocity)
	}
	if r.Yaw.Position <= 0.5 {
		t.Errorf("yaw position = %v, want past the first step", r.Yaw.Position)
	}
	if r.Pitch.Position != 0 || r.Roll.Position != 0 {
		t.Error("impulse leaked into other axes")
	}

	r.Reset()
	if r.Yaw.Position != 0 || r.Yaw.Velocity != 0 {
		t.Error("Reset kept yaw")
	}
}

func TestDrawLightIcons(t *testing.T) {
	r := render.NewRenderer(32, 32)
	render.NewCamera().Apply(r)

	light := render.NewPointLight(math3d.Vec3{})
	light.Diffuse = math3d.V3(1, 0, 0)
	r.Lights = []render.Light{light}

	icon, err := iconMesh(2)
	if err != nil {
		t.Fatal(err)
	}

	r.ClearBuffers()
	if err := drawLightIcons(r, icon); err != nil {
		t.Fatalf("drawLightIcons: %v", err)
	}

	if c := r.Surface().Color(16, 16); c.Distance(math3d.V3(1, 0, 0)) > 1e-6 {
		t.Errorf("icon color = %v, want red", c)
	}
	if c := r.Surface().Color(0, 0); c.Distance(r.ClearColor) > 1e-6 {
		t.Errorf("corner = %v, want clear color", c)
	}

	// Draw state is restored.
	if !r.Lighting || r.Billboard || r.Mesh() != nil || r.Tint != render.White || r.Model != math3d.Identity() {
		t.Errorf("renderer state leaked: %+v", r.Options)
	}
}

func TestDepthView(t *testing.T) {
	s := render.NewSurface(3, 1)
	s.ClearDepth(1)
	s.SetDepth(0, 0, 0.2)
	s.SetDepth(1, 0, 0.6)

	depthView(s, 1)

	want := []float64{1, 0.2, 0}
	for x, w := range want {
		if c := s.Color(x, 0); c.Distance(math3d.V3(w, w, w)) > 1e-6 {
			t.Errorf("pixel %d = %v, want grey %v", x, c, w)
		}
	}
}

func TestExportFrames(t *testing.T) {
	s, err := newSetup("")
	if err != nil {
		t.Fatalf("newSetup: %v", err)
	}
	if s.name != "cube" {
		t.Errorf("name = %q, want cube", s.name)
	}

	dir := filepath.Join(t.TempDir(), "frames")
	if err := exportFrames(s, dir, 3, io.Discard); err != nil {
		t.Fatalf("exportFrames: %v", err)
	}

	for _, name := range []string{"frame_000.bmp", "frame_001.bmp", "frame_002.bmp"} {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		img, err := bmp.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != render.DefaultWidth || b.Dy() != render.DefaultHeight {
			t.Errorf("%s is %v", name, b)
		}
	}
}

func TestStatusLine(t *testing.T) {
	opts := render.DefaultOptions()
	opts.Bilinear = true
	opts.Multithread = false

	got := statusLine(29.6, 1284, opts, true, false)
	want := " 30 FPS  1284 verts  [✓] Texture  [✓] Bilinear  [✓] Lighting  [ ] Multithread  [ ] Depth "
	if got != want {
		t.Errorf("statusLine =\n%q\nwant\n%q", got, want)
	}
}

func TestFPSCounter(t *testing.T) {
	var c fpsCounter
	start := time.Unix(100, 0)

	for i := range 30 {
		if fps := c.tick(start.Add(time.Duration(i) * time.Second / 30)); fps != 0 {
			t.Fatalf("frame %d: fps = %v before a full second", i, fps)
		}
	}
	if fps := c.tick(start.Add(time.Second)); math.Abs(fps-31) > 1e-9 {
		t.Errorf("fps = %v, want 31", fps)
	}
}

func TestDrawStatus(t *testing.T) {
	scr := uv.NewScreenBuffer(12, 3)
	area := uv.Rect(2, 1, 8, 2)

	drawStatus(scr, area, "abc")
	for x, want := range []string{"a", "b", "c", " ", " ", " ", " ", " "} {
		c := scr.CellAt(area.Min.X+x, 1)
		if c == nil || c.Content != want || c.Style.Bg != statusBg {
			t.Errorf("cell %d = %+v, want %q on the status background", x, c, want)
		}
	}
	if c := scr.CellAt(0, 1); c.Style.Bg == statusBg {
		t.Error("status line drawn left of the area")
	}

	drawStatus(scr, area, strings.Repeat("x", 20))
	if c := scr.CellAt(10, 1); c.Content == "x" {
		t.Error("status line overflowed the area")
	}
}

func TestRenderFrameObjects(t *testing.T) {
	s, err := newSetup("")
	if err != nil {
		t.Fatalf("newSetup: %v", err)
	}
	cube, err := s.renderFrame(false, false)
	if err != nil {
		t.Fatalf("renderFrame: %v", err)
	}
	if cube <= 0 {
		t.Fatalf("cube emitted %d vertices", cube)
	}

	s.objects = []scene.Drawable{{Name: "cube", Vertices: s.r.Mesh(), Model: math3d.Translate(math3d.V3(0, 0, -3))}}
	n, err := s.renderFrame(false, false)
	if err != nil {
		t.Fatalf("renderFrame: %v", err)
	}
	if n <= cube {
		t.Errorf("with an object = %d vertices, want more than %d", n, cube)
	}
	if s.r.Model != math3d.Identity() {
		t.Errorf("object model matrix leaked: %v", s.r.Model)
	}
}

func TestLoadModelLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	render.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer render.SetLogger(nil)

	path := filepath.Join(t.TempDir(), "tri.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &setup{r: render.NewRenderer(8, 8)}
	if err := s.loadModel(path); err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	if log := buf.String(); !strings.Contains(log, `level=DEBUG msg="loaded model"`) {
		t.Errorf("log = %q, want the model load at debug level", log)
	}
}
