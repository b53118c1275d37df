package main

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis whose velocity decays without overshoot.
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState is the spin of the model around its own axes.
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	r := &RotationState{fps: fps}
	r.Reset()
	return r
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Zoom is the camera distance from its target. Steps move the target
// distance and the spring follows it.
type Zoom struct {
	Distance float64

	target   float64
	velocity float64
	spring   harmonica.Spring
}

const (
	minZoom = 1.0
	maxZoom = 20.0
)

func NewZoom(fps int, distance float64) *Zoom {
	return &Zoom{
		Distance: distance,
		target:   distance,
		spring:   harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
	}
}

// Step moves the target distance by delta, clamped to [minZoom, maxZoom].
func (z *Zoom) Step(delta float64) {
	z.target = math.Min(maxZoom, math.Max(minZoom, z.target+delta))
}

// Target returns the distance the spring is heading to.
func (z *Zoom) Target() float64 {
	return z.target
}

// Reset jumps to distance without animating.
func (z *Zoom) Reset(distance float64) {
	z.Distance, z.target, z.velocity = distance, distance, 0
}

func (z *Zoom) Update() {
	z.Distance, z.velocity = z.spring.Update(z.Distance, z.velocity, z.target)
}
