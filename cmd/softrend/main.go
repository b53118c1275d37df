// softrend - software 3D renderer
// Renders OBJ and GLB models on the CPU into a terminal or into BMP frames.
//
// Controls:
//
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Apply random impulse
//	R           - Reset rotation and zoom
//	T           - Toggle texture
//	B           - Toggle bilinear filtering
//	L           - Toggle lighting
//	M           - Toggle multithreaded rasterization
//	Z           - Toggle depth view
//	?           - Toggle status line
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/models"
	"github.com/taigrr/softrend/pkg/render"
	"github.com/taigrr/softrend/pkg/scene"
)

var (
	scenePath   = flag.String("scene", "", "Path to a YAML scene file")
	texturePath = flag.String("texture", "", "Path to texture image (PNG/JPG)")
	targetFPS   = flag.Int("fps", 30, "Target FPS")
	sizeFlag    = flag.String("size", "", "Surface size WxH (default: scene size, or the terminal size when interactive)")
	bgColor     = flag.String("bg", "", "Background color R,G,B (0-255)")
	outDir      = flag.String("out", "", "Write frames as BMP files into this directory instead of the terminal")
	frameCount  = flag.Int("frames", 1, "Number of turntable frames to write with -out")
	bilinear    = flag.Bool("bilinear", false, "Bilinear texture filtering")
	noLight     = flag.Bool("nolight", false, "Disable lighting")
	single      = flag.Bool("single", false, "Rasterize on a single goroutine")
	verbose     = flag.Bool("v", false, "Log debug output to stderr")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "softrend - software 3D renderer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: softrend [options] [model.obj|model.glb]\n\n")
		fmt.Fprintf(os.Stderr, "Without a model the scene's model and objects, or a cube, are shown.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Q/E         - Roll left/right\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  T/B/L/M     - Toggle texture, bilinear, lighting, multithreading\n")
		fmt.Fprintf(os.Stderr, "  Z           - Toggle depth view\n")
	fmt.Fprintf(os.Stderr, "  ?           - Toggle status line\n")
		fmt.Fprintf(os.Stderr, "  +/-         - Zoom\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
		fmt.Fprintf(os.Stderr, "\nWith -v, redirect stderr to keep the log off the screen.\n")
	}
	flag.Parse()

	if flag.NArg() > 1 || *targetFPS <= 0 || *frameCount <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *verbose {
		render.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup is everything a frame needs besides the terminal.
type setup struct {
	cfg      *scene.Config
	r        *render.Renderer
	texture  render.Texture // nil when the model is untextured
	fallback render.Texture // shown by T when texture is nil
	objects  []scene.Drawable
	icon     []render.LocalVertex
	name     string
	sized    bool // Surface size fixed by -size
}

func run(modelPath string) error {
	s, err := newSetup(modelPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		return exportFrames(s, *outDir, *frameCount, os.Stderr)
	}
	return view(s)
}

func newSetup(modelPath string) (*setup, error) {
	cfg := scene.Default()
	if *scenePath != "" {
		var err error
		if cfg, err = scene.Load(*scenePath); err != nil {
			return nil, err
		}
	}

	s := &setup{cfg: cfg}
	if *sizeFlag != "" {
		w, h, err := parseSize(*sizeFlag)
		if err != nil {
			return nil, err
		}
		cfg.Width, cfg.Height = w, h
		s.sized = true
	}
	if *bgColor != "" {
		c, err := parseColor(*bgColor)
		if err != nil {
			return nil, err
		}
		cfg.ClearColor = [3]float64{c.X, c.Y, c.Z}
	}

	s.r = render.NewRenderer(cfg.Width, cfg.Height)
	cfg.Apply(s.r)
	if *bilinear {
		s.r.Bilinear = true
	}
	if *noLight {
		s.r.Lighting = false
	}
	if *single {
		s.r.Multithread = false
	}

	if modelPath == "" {
		modelPath = cfg.Model
	}
	objects, err := cfg.LoadObjects()
	if err != nil {
		return nil, err
	}
	s.objects = objects
	if err := s.loadModel(modelPath); err != nil {
		return nil, err
	}

	texPath := cfg.Texture
	if *texturePath != "" {
		texPath = *texturePath
	}
	if texPath != "" {
		tex, err := render.LoadTexture(texPath)
		if err != nil {
			return nil, err
		}
		s.texture = tex
	}
	s.fallback = render.NewCheckerTexture(64, 64, 8, math3d.V4(0.8, 0.8, 0.8, 1), math3d.V4(0.4, 0.4, 0.4, 1))
	s.r.Texture = s.texture

	icon, err := iconMesh(0.15)
	if err != nil {
		return nil, err
	}
	s.icon = icon
	return s, nil
}

// loadModel sets the mesh of the renderer, centered and scaled to fit a
// 2-unit box. An empty path selects the built-in cube, unless the scene
// has objects.
func (s *setup) loadModel(path string) error {
	if path == "" {
		if len(s.objects) > 0 {
			s.name = s.objects[0].Name
			return nil
		}
		vertices, err := cubeMesh()
		if err != nil {
			return err
		}
		s.name = "cube"
		return s.r.SetMesh(vertices)
	}

	mesh, err := models.Load(path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	mesh.Normalize(2)
	if mesh.Texture != nil {
		s.texture = mesh.Texture
	}
	s.name = mesh.Name

	render.Logger().Debug("loaded model", "name", mesh.Name,
		"vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount())
	return s.r.SetMesh(mesh.Vertices)
}

// modelMatrix orients the model from the spin angles.
func modelMatrix(pitch, yaw, roll float64) math3d.Mat4 {
	return math3d.RotateX(pitch).
		Mul(math3d.RotateY(yaw)).
		Mul(math3d.RotateZ(roll))
}

// renderFrame clears the front surface and draws the model, the scene
// objects and the light icons into it. It returns the number of vertices
// emitted for the model and objects. Objects are textured when textured is
// set.
func (s *setup) renderFrame(textured, depth bool) (int, error) {
	s.r.ClearBuffers()
	n := s.r.Render()
	drawn, err := scene.Draw(s.r, s.objects, textured)
	if err != nil {
		return n, err
	}
	n += drawn
	if err := drawLightIcons(s.r, s.icon); err != nil {
		return n, err
	}
	if depth {
		depthView(s.r.Surface(), s.r.ClearDepth)
	}
	return n, nil
}

var errBadSize = errors.New("want WxH with positive dimensions")

func parseSize(v string) (width, height int, err error) {
	if _, err := fmt.Sscanf(v, "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", v, errBadSize)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("size %q: %w", v, errBadSize)
	}
	return width, height, nil
}

func parseColor(v string) (math3d.Vec3, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(v, "%d,%d,%d", &r, &g, &b); err != nil {
		return math3d.Vec3{}, fmt.Errorf("color %q: %w", v, err)
	}
	return math3d.V3(float64(r)/255, float64(g)/255, float64(b)/255), nil
}
