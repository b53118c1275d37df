package render

import (
	"math"

	"github.com/taigrr/softrend/pkg/math3d"
)

// Light is a dynamic light evaluated per shaded pixel. Calculate returns the
// diffuse and ambient factors at a world position with unit normal; the
// rasterizer scales the light's colors by them. Lights must not be mutated
// while a frame renders. The rasterizer skips nil lights, including nil
// *PointLight and *SpotLight values.
type Light interface {
	Calculate(world, normal math3d.Vec3) (diffuse, ambient float64)
	Colors() (diffuse, ambient math3d.Vec3)
}

// Sun is the directional light. It is not attenuated.
type Sun struct {
	Direction math3d.Vec3 // Unit vector the light travels along
	Diffuse   math3d.Vec3
	Ambient   math3d.Vec3
}

// DefaultSun returns a warm sun shining down diagonally.
func DefaultSun() Sun {
	return Sun{
		Direction: math3d.V3(-1, -1, -1).Normalize(),
		Diffuse:   math3d.V3(0.8, 0.75, 0.70),
		Ambient:   math3d.V3(0.3, 0.3, 0.3),
	}
}

// PointLight radiates from a position. Both factors fall off linearly with
// the inverse of the distance.
type PointLight struct {
	Position math3d.Vec3
	Diffuse  math3d.Vec3
	Ambient  math3d.Vec3
}

// NewPointLight creates a point light with the default colors.
func NewPointLight(position math3d.Vec3) *PointLight {
	return &PointLight{
		Position: position,
		Diffuse:  math3d.V3(0.8, 0.8, 0.8),
		Ambient:  math3d.V3(0.3, 0.3, 0.3),
	}
}

// Colors implements Light.
func (l *PointLight) Colors() (diffuse, ambient math3d.Vec3) {
	return l.Diffuse, l.Ambient
}

// toLight returns the unit direction from world to the light and the
// inverse distance.
func (l *PointLight) toLight(world math3d.Vec3) (math3d.Vec3, float64) {
	d := l.Position.Sub(world)
	invLen := 1 / d.Len()
	return d.Scale(invLen), invLen
}

// Calculate implements Light.
func (l *PointLight) Calculate(world, normal math3d.Vec3) (diffuse, ambient float64) {
	dir, invLen := l.toLight(world)
	return math.Max(dir.Dot(normal), 0) * invLen, invLen
}

// Ambient cone of every spot light, in degrees.
const (
	spotAmbientCutOff      = 160
	spotAmbientOuterCutOff = 180
)

var (
	spotAmbientCutOffCos      = math.Cos(spotAmbientCutOff * math.Pi / 180)
	spotAmbientOuterCutOffCos = math.Cos(spotAmbientOuterCutOff * math.Pi / 180)
)

// SpotLight is a point light restricted to a cone. The diffuse term fades
// out between the cut-off and outer cut-off angles; the ambient term uses a
// fixed cone of nearly the whole sphere.
type SpotLight struct {
	PointLight
	Direction math3d.Vec3 // Unit vector the cone points along

	cutOff         float64
	outerCutOff    float64
	cutOffCos      float64
	outerCutOffCos float64
}

// NewSpotLight creates a spot light pointing down with a 10° inner and 45°
// outer cone.
func NewSpotLight(position math3d.Vec3) *SpotLight {
	l := &SpotLight{
		PointLight: *NewPointLight(position),
		Direction:  math3d.V3(0, -1, 0),
	}
	l.SetCutOff(10)
	l.SetOuterCutOff(45)
	return l
}

// CutOff returns the inner cone angle in degrees.
func (l *SpotLight) CutOff() float64 { return l.cutOff }

// OuterCutOff returns the outer cone angle in degrees.
func (l *SpotLight) OuterCutOff() float64 { return l.outerCutOff }

// SetCutOff sets the inner cone angle in degrees.
func (l *SpotLight) SetCutOff(degrees float64) {
	l.cutOff = degrees
	l.cutOffCos = math.Cos(degrees * math.Pi / 180)
}

// SetOuterCutOff sets the outer cone angle in degrees.
func (l *SpotLight) SetOuterCutOff(degrees float64) {
	l.outerCutOff = degrees
	l.outerCutOffCos = math.Cos(degrees * math.Pi / 180)
}

func coneIntensity(theta, cutOffCos, outerCutOffCos float64) float64 {
	return math.Min(math.Max((theta-outerCutOffCos)/(cutOffCos-outerCutOffCos), 0), 1)
}

// Calculate implements Light.
func (l *SpotLight) Calculate(world, normal math3d.Vec3) (diffuse, ambient float64) {
	dir, invLen := l.toLight(world)
	theta := dir.Dot(l.Direction.Negate())

	diffuse = math.Max(dir.Dot(normal), 0) * invLen * coneIntensity(theta, l.cutOffCos, l.outerCutOffCos)
	ambient = invLen * coneIntensity(theta, spotAmbientCutOffCos, spotAmbientOuterCutOffCos)
	return diffuse, ambient
}
