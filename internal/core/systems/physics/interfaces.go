// Package physics defines the minimal rigid-body capability a race needs.
// Implementations are constructed explicitly and handed to the race; nothing
// here keeps process-wide state.
package physics

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownBody = errors.New("unknown body")
	ErrNonFinite   = errors.New("non-finite body state")
	ErrInvalidStep = errors.New("step dt must be finite and positive")
	ErrBadShape    = errors.New("invalid shape")
)

// BodyID is an opaque handle into a World.
type BodyID int

// Backend creates worlds. One world per race.
type Backend interface {
	NewWorld(cfg WorldConfig) (World, error)
}

// World owns static colliders and dynamic bodies and integrates them.
type World interface {
	AddStaticSegment(a, b mgl64.Vec2, m Material) (BodyID, error)
	AddCapsule(def CapsuleDef) (BodyID, error)

	// ApplyForce and ApplyTorque accumulate until the next Step.
	ApplyForce(id BodyID, f mgl64.Vec2)
	ApplyTorque(id BodyID, torque float64)
	SetVelocity(id BodyID, v mgl64.Vec2, angular float64)
	// SetEnabled removes a body from integration and contact solving.
	SetEnabled(id BodyID, enabled bool)

	Step(dt float64) error

	Transform(id BodyID) Transform
	Velocity(id BodyID) (linear mgl64.Vec2, angular float64)
	Mass(id BodyID) float64
	Inertia(id BodyID) float64
}

// WorldConfig tunes the contact solver.
type WorldConfig struct {
	Iterations int
	Baumgarte  float64 // fraction of penetration corrected per iteration
	Slop       float64 // penetration tolerated without correction
}

// Material describes contact response.
type Material struct {
	Friction    float64
	Restitution float64
}

// CapsuleDef is a segment of half-length HalfLength along the body's local x
// axis, swept by Radius.
type CapsuleDef struct {
	Position   mgl64.Vec2
	Angle      float64
	HalfLength float64
	Radius     float64
	Mass       float64
	Material   Material
}

// Transform is a body's pose.
type Transform struct {
	Position mgl64.Vec2
	Angle    float64
}
