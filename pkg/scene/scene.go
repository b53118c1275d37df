// Package scene reads YAML scene files describing a surface, a camera, the
// lights and the models to draw, and applies them to a render.Renderer.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid scene")

// Config is the top-level scene file.
type Config struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	ClearColor [3]float64 `yaml:"clear_color"`
	ClearDepth float64    `yaml:"clear_depth"`
	Tint       [4]float64 `yaml:"tint"`

	Options Options `yaml:"options"`
	Sun     Sun     `yaml:"sun"`
	View    View    `yaml:"camera"`

	PointLights []PointLight `yaml:"point_lights"`
	SpotLights  []SpotLight  `yaml:"spot_lights"`

	// Model and Texture are resolved relative to the scene file by Load.
	Model   string `yaml:"model"`
	Texture string `yaml:"texture"`

	Objects []Object `yaml:"objects"`
}

// Options mirrors render.Options.
type Options struct {
	Multithread *bool `yaml:"multithread"` // nil means enabled
	Lighting    *bool `yaml:"lighting"`    // nil means enabled
	Bilinear    bool  `yaml:"bilinear"`
	DepthOnly   bool  `yaml:"depth_only"`
	Billboard   bool  `yaml:"billboard"`
}

// Sun is the directional light.
type Sun struct {
	Direction [3]float64 `yaml:"direction"`
	Diffuse   [3]float64 `yaml:"diffuse"`
	Ambient   [3]float64 `yaml:"ambient"`
}

// View places the look-at camera. FOV is the vertical field of view in
// degrees.
type View struct {
	Eye    [3]float64 `yaml:"eye"`
	Target [3]float64 `yaml:"target"`
	FOV    float64    `yaml:"fov"`
	Near   float64    `yaml:"near"`
	Far    float64    `yaml:"far"`
}

// PointLight colors default to those of render.NewPointLight when omitted.
type PointLight struct {
	Position [3]float64  `yaml:"position"`
	Diffuse  *[3]float64 `yaml:"diffuse"`
	Ambient  *[3]float64 `yaml:"ambient"`
}

// SpotLight angles are in degrees. Zero angles keep the defaults of
// render.NewSpotLight.
type SpotLight struct {
	PointLight  `yaml:",inline"`
	Direction   *[3]float64 `yaml:"direction"`
	CutOff      float64     `yaml:"cutoff"`
	OuterCutOff float64     `yaml:"outer_cutoff"`
}

// Default returns the scene a Renderer starts with: a 200x150 surface and a
// camera at (0,0,5) looking at the origin.
func Default() *Config {
	sun := render.DefaultSun()
	return &Config{
		Width:      render.DefaultWidth,
		Height:     render.DefaultHeight,
		ClearColor: [3]float64{0.2, 0.4, 0.6},
		ClearDepth: 1,
		Tint:       [4]float64{1, 1, 1, 1},
		Sun: Sun{
			Direction: arr3(sun.Direction),
			Diffuse:   arr3(sun.Diffuse),
			Ambient:   arr3(sun.Ambient),
		},
		View: View{
			Eye:  [3]float64{0, 0, 5},
			FOV:  60,
			Near: 0.1,
			Far:  100,
		},
	}
}

// Load reads and validates a scene file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Model = resolve(dir, cfg.Model)
	cfg.Texture = resolve(dir, cfg.Texture)
	for i := range cfg.Objects {
		o := &cfg.Objects[i]
		o.Model = resolve(dir, o.Model)
		o.Texture = resolve(dir, o.Texture)
	}

	render.Logger().Debug("loaded scene", "path", path, "model", cfg.Model,
		"objects", len(cfg.Objects), "points", len(cfg.PointLights), "spots", len(cfg.SpotLights))
	return cfg, nil
}

// Parse decodes a scene over Default and validates it. Unknown keys are
// errors. Empty input yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting the renderer cannot use.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, c.Width, c.Height)
	case math.IsNaN(c.ClearDepth) || math.IsInf(c.ClearDepth, 0):
		return fmt.Errorf("%w: clear_depth %v", ErrInvalid, c.ClearDepth)
	case c.View.FOV <= 0 || c.View.FOV >= 180:
		return fmt.Errorf("%w: camera fov %v not in (0, 180)", ErrInvalid, c.View.FOV)
	case c.View.Near <= 0 || c.View.Far <= c.View.Near:
		return fmt.Errorf("%w: camera near %v far %v", ErrInvalid, c.View.Near, c.View.Far)
	case c.View.Eye == c.View.Target:
		return fmt.Errorf("%w: camera eye equals target", ErrInvalid)
	case vec3(c.Sun.Direction).Len() == 0:
		return fmt.Errorf("%w: zero sun direction", ErrInvalid)
	}

	for i, s := range c.SpotLights {
		inner, outer := s.angles()
		if inner < 0 || outer <= inner || outer >= 180 {
			return fmt.Errorf("%w: spot light %d cone %v..%v", ErrInvalid, i, inner, outer)
		}
		if s.Direction != nil && vec3(*s.Direction).Len() == 0 {
			return fmt.Errorf("%w: spot light %d has zero direction", ErrInvalid, i)
		}
	}

	for _, o := range c.Objects {
		if err := o.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the scene into r: surface size, clear values, options, sun,
// lights and camera matrices. Surfaces are resized only when the size
// differs; with a Presenter running, resize through it first.
func (c *Config) Apply(r *render.Renderer) {
	if s := r.Surface(); s.Width() != c.Width || s.Height() != c.Height {
		r.Resize(c.Width, c.Height)
	}

	r.ClearColor = vec3(c.ClearColor)
	r.ClearDepth = float32(c.ClearDepth)
	r.Tint = math3d.V4(c.Tint[0], c.Tint[1], c.Tint[2], c.Tint[3])

	r.Multithread = enabled(c.Options.Multithread)
	r.Lighting = enabled(c.Options.Lighting)
	r.Bilinear = c.Options.Bilinear
	r.DepthOnly = c.Options.DepthOnly
	r.Billboard = c.Options.Billboard

	r.Sun = render.Sun{
		Direction: vec3(c.Sun.Direction).Normalize(),
		Diffuse:   vec3(c.Sun.Diffuse),
		Ambient:   vec3(c.Sun.Ambient),
	}
	r.Lights = c.Lights()

	c.Camera().Apply(r)
}

// Lights builds the dynamic lights, point lights first.
func (c *Config) Lights() []render.Light {
	lights := make([]render.Light, 0, len(c.PointLights)+len(c.SpotLights))
	for _, p := range c.PointLights {
		l := render.NewPointLight(vec3(p.Position))
		p.colors(l)
		lights = append(lights, l)
	}
	for _, s := range c.SpotLights {
		l := render.NewSpotLight(vec3(s.Position))
		s.colors(&l.PointLight)
		if s.Direction != nil {
			l.Direction = vec3(*s.Direction).Normalize()
		}
		inner, outer := s.angles()
		l.SetCutOff(inner)
		l.SetOuterCutOff(outer)
		lights = append(lights, l)
	}
	return lights
}

// Camera builds the camera with the aspect ratio of the surface.
func (c *Config) Camera() *render.Camera {
	cam := render.NewCamera()
	cam.SetPosition(vec3(c.View.Eye))
	cam.LookAt(vec3(c.View.Target))
	cam.SetFOV(c.View.FOV * math.Pi / 180)
	cam.SetAspectRatio(float64(c.Width) / float64(c.Height))
	cam.SetClipPlanes(c.View.Near, c.View.Far)
	return cam
}

func (p PointLight) colors(l *render.PointLight) {
	if p.Diffuse != nil {
		l.Diffuse = vec3(*p.Diffuse)
	}
	if p.Ambient != nil {
		l.Ambient = vec3(*p.Ambient)
	}
}

func (s SpotLight) angles() (inner, outer float64) {
	inner, outer = 10, 45
	if s.CutOff != 0 {
		inner = s.CutOff
	}
	if s.OuterCutOff != 0 {
		outer = s.OuterCutOff
	}
	return inner, outer
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func vec3(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}

func arr3(v math3d.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
