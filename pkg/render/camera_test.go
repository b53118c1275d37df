package render

import (
	"math"
	"testing"

	"github.com/taigrr/softrend/pkg/math3d"
)

func TestCameraViewMatrix(t *testing.T) {
	tests := []struct {
		name     string
		position math3d.Vec3
		target   math3d.Vec3
	}{
		{"default", math3d.V3(0, 0, 5), math3d.Vec3{}},
		{"offset", math3d.V3(3, 1, -2), math3d.V3(1, 1, 1)},
		{"straight down", math3d.V3(0, 10, 0), math3d.Vec3{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCamera()
			c.SetPosition(tc.position)
			c.LookAt(tc.target)
			view := c.ViewMatrix()

			// The camera sits at the view origin and the target lies on -Z.
			eye := view.MulPoint(tc.position)
			if eye.Len() > 1e-9 {
				t.Errorf("eye in view space = %v, want origin", eye)
			}
			target := view.MulPoint(tc.target)
			dist := tc.position.Distance(tc.target)
			if math.Abs(target.X) > 1e-9 || math.Abs(target.Y) > 1e-9 || math.Abs(target.Z+dist) > 1e-9 {
				t.Errorf("target in view space = %v, want (0, 0, %v)", target, -dist)
			}
		})
	}
}

func TestCameraCachesUntilDirty(t *testing.T) {
	c := NewCamera()
	p1 := c.ProjectionMatrix()
	if p2 := c.ProjectionMatrix(); p1 != p2 {
		t.Error("projection changed without a parameter change")
	}

	c.SetFOV(math.Pi / 2)
	if c.ProjectionMatrix() == p1 {
		t.Error("projection not rebuilt after SetFOV")
	}

	c.SetClipPlanes(1, 10)
	c.SetAspectRatio(2)
	proj := c.ProjectionMatrix()
	if math.Abs(proj[0]-0.5) > 1e-9 {
		t.Errorf("x scale = %v, want 0.5 for 90° at aspect 2", proj[0])
	}
}

func TestCameraApply(t *testing.T) {
	c := NewCamera()
	r := NewRenderer(4, 4)
	c.Apply(r)

	if r.View != c.ViewMatrix() || r.Projection != c.ProjectionMatrix() {
		t.Error("Apply did not copy the camera matrices")
	}
	if r.Model != math3d.Identity() {
		t.Error("Apply touched the model matrix")
	}
}
