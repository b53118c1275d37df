package scene

import (
	"fmt"
	"math"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/models"
	"github.com/taigrr/softrend/pkg/render"
)

// Object places one more model in the scene. Rotate holds pitch, yaw and
// roll in degrees. Model and Texture are resolved relative to the scene
// file by Load.
type Object struct {
	Model     string      `yaml:"model"`
	Texture   string      `yaml:"texture"`
	Translate [3]float64  `yaml:"translate"`
	Rotate    [3]float64  `yaml:"rotate"`
	Scale     *[3]float64 `yaml:"scale"` // nil means 1
	Fit       float64     `yaml:"fit"`   // centers and scales the model to this size when set
}

// Matrix is the model matrix: translate, then rotate X, Y, Z, then scale.
func (o Object) Matrix() math3d.Mat4 {
	scale := math3d.V3(1, 1, 1)
	if o.Scale != nil {
		scale = vec3(*o.Scale)
	}
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	return math3d.Translate(vec3(o.Translate)).
		Mul(math3d.RotateX(rad(o.Rotate[0]))).
		Mul(math3d.RotateY(rad(o.Rotate[1]))).
		Mul(math3d.RotateZ(rad(o.Rotate[2]))).
		Mul(math3d.Scale(scale))
}

func (o Object) validate() error {
	switch {
	case o.Model == "":
		return fmt.Errorf("%w: object has no model", ErrInvalid)
	case o.Fit < 0 || math.IsNaN(o.Fit):
		return fmt.Errorf("%w: object %s fit %v", ErrInvalid, o.Model, o.Fit)
	case o.Scale != nil && (o.Scale[0] == 0 || o.Scale[1] == 0 || o.Scale[2] == 0):
		return fmt.Errorf("%w: object %s has zero scale", ErrInvalid, o.Model)
	}
	return nil
}

// Drawable is a loaded object ready for Draw.
type Drawable struct {
	Name     string
	Vertices []render.LocalVertex
	Model    math3d.Mat4
	Texture  render.Texture // nil when untextured
}

// LoadObjects loads the model and texture of every object. Files shared by
// several objects are read once; objects with Fit get their own normalized
// copy of the mesh.
func (c *Config) LoadObjects() ([]Drawable, error) {
	meshes := make(map[string]*models.Mesh)
	textures := make(map[string]*render.ImageTexture)

	out := make([]Drawable, 0, len(c.Objects))
	for _, o := range c.Objects {
		mesh, ok := meshes[o.Model]
		if !ok {
			var err error
			if mesh, err = models.Load(o.Model); err != nil {
				return nil, fmt.Errorf("load object: %w", err)
			}
			meshes[o.Model] = mesh
		}
		if o.Fit > 0 {
			mesh = mesh.Clone()
			mesh.Normalize(o.Fit)
		}

		d := Drawable{Name: mesh.Name, Vertices: mesh.Vertices, Model: o.Matrix()}
		switch {
		case o.Texture != "":
			tex, ok := textures[o.Texture]
			if !ok {
				var err error
				if tex, err = render.LoadTexture(o.Texture); err != nil {
					return nil, fmt.Errorf("load object: %w", err)
				}
				textures[o.Texture] = tex
			}
			d.Texture = tex
		case mesh.Texture != nil:
			d.Texture = mesh.Texture
		}
		out = append(out, d)
	}

	render.Logger().Debug("loaded objects", "objects", len(out), "meshes", len(meshes), "textures", len(textures))
	return out, nil
}

// Draw renders objs into the front surface of r and returns the number of
// vertices emitted. Textures are used only when textured is set. The mesh,
// model matrix and texture of r are restored afterwards.
func Draw(r *render.Renderer, objs []Drawable, textured bool) (int, error) {
	if len(objs) == 0 {
		return 0, nil
	}

	mesh, model, tex := r.Mesh(), r.Model, r.Texture
	defer func() {
		r.Model, r.Texture = model, tex
		_ = r.SetMesh(mesh) // Already validated when first set.
	}()

	total := 0
	for _, o := range objs {
		if err := r.SetMesh(o.Vertices); err != nil {
			return total, fmt.Errorf("object %s: %w", o.Name, err)
		}
		r.Model = o.Model
		r.Texture = nil
		if textured {
			r.Texture = o.Texture
		}
		total += r.Render()
	}
	return total, nil
}
