package render

import (
	"math"
	"testing"

	"github.com/taigrr/softrend/pkg/math3d"
)

func TestPointLightCalculate(t *testing.T) {
	l := NewPointLight(math3d.V3(0, 2, 0))
	up := math3d.V3(0, 1, 0)

	tests := []struct {
		name             string
		world, normal    math3d.Vec3
		diffuse, ambient float64
	}{
		{"facing", math3d.V3(0, 0, 0), up, 0.5, 0.5},
		{"facing away", math3d.V3(0, 0, 0), up.Negate(), 0, 0.5},
		{"closer", math3d.V3(0, 1, 0), up, 1, 1},
		{"grazing", math3d.V3(2, 2, 0), up, 0, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, a := l.Calculate(tc.world, tc.normal)
			if math.Abs(d-tc.diffuse) > 1e-9 || math.Abs(a-tc.ambient) > 1e-9 {
				t.Errorf("Calculate = (%v, %v), want (%v, %v)", d, a, tc.diffuse, tc.ambient)
			}
		})
	}
}

func TestSpotLightCone(t *testing.T) {
	// Light at the origin pointing down -Y; receivers face the light.
	l := NewSpotLight(math3d.Vec3{})

	at := func(deg float64) (float64, float64) {
		rad := deg * math.Pi / 180
		world := math3d.V3(math.Sin(rad), -math.Cos(rad), 0)
		return l.Calculate(world, world.Negate())
	}

	if d, _ := at(90); d != 0 {
		t.Errorf("diffuse at 90° = %v, want 0", d)
	}
	if d, _ := at(45); d > 1e-9 {
		t.Errorf("diffuse at outer cut-off = %v, want 0", d)
	}
	if d, _ := at(5); math.Abs(d-1) > 1e-9 {
		t.Errorf("diffuse inside inner cone = %v, want 1", d)
	}

	// Intensity grows monotonically toward the axis.
	prev := -1.0
	for deg := 60.0; deg >= 0; deg -= 5 {
		d, _ := at(deg)
		if d < prev-1e-12 {
			t.Errorf("diffuse at %v° = %v, less than %v further out", deg, d, prev)
		}
		prev = d
	}

	// The ambient cone covers everything short of straight behind.
	if _, a := at(90); math.Abs(a-1) > 1e-9 {
		t.Errorf("ambient at 90° = %v, want 1", a)
	}
	if _, a := at(180); a > 1e-9 {
		t.Errorf("ambient behind = %v, want 0", a)
	}
}

func TestSpotLightCutOffs(t *testing.T) {
	l := NewSpotLight(math3d.Vec3{})
	if l.CutOff() != 10 || l.OuterCutOff() != 45 {
		t.Errorf("defaults = (%v, %v), want (10, 45)", l.CutOff(), l.OuterCutOff())
	}

	l.SetCutOff(20)
	l.SetOuterCutOff(30)
	if l.CutOff() != 20 || l.OuterCutOff() != 30 {
		t.Errorf("cut-offs = (%v, %v), want (20, 30)", l.CutOff(), l.OuterCutOff())
	}
	if math.Abs(l.cutOffCos-math.Cos(20*math.Pi/180)) > 1e-12 {
		t.Errorf("cutOffCos = %v", l.cutOffCos)
	}
}

func TestLightColors(t *testing.T) {
	lights := []Light{NewPointLight(math3d.Vec3{}), NewSpotLight(math3d.Vec3{})}
	for _, l := range lights {
		d, a := l.Colors()
		if d != math3d.V3(0.8, 0.8, 0.8) || a != math3d.V3(0.3, 0.3, 0.3) {
			t.Errorf("%T colors = (%v, %v)", l, d, a)
		}
	}
}
