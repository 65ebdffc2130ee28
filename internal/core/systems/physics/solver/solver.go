// Package solver is a small deterministic 2D impulse solver for capsules and
// static segments. Bodies are integrated and resolved in insertion order, so
// identical inputs produce bit-identical states.
package solver

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

const eps = 1e-12

var _ physics.Backend = Backend{}

// Backend builds solver worlds.
type Backend struct{}

func New() Backend { return Backend{} }

// Provide is the wire provider for the default backend.
func Provide() physics.Backend { return New() }

func (Backend) NewWorld(cfg physics.WorldConfig) (physics.World, error) {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Baumgarte <= 0 || cfg.Baumgarte > 1 {
		cfg.Baumgarte = 0.8
	}
	if cfg.Slop < 0 {
		cfg.Slop = 0
	}
	return &World{cfg: cfg}, nil
}

type body struct {
	static  bool
	enabled bool

	a, b mgl64.Vec2 // static segment endpoints

	pos    mgl64.Vec2
	angle  float64
	vel    mgl64.Vec2
	angVel float64
	force  mgl64.Vec2
	torque float64

	halfLength float64
	radius     float64
	mass       float64
	inertia    float64
	invMass    float64
	invInertia float64
	mat        physics.Material
}

func (b *body) segment() (mgl64.Vec2, mgl64.Vec2) {
	if b.static {
		return b.a, b.b
	}
	axis := physics.Direction(b.angle).Mul(b.halfLength)
	return b.pos.Sub(axis), b.pos.Add(axis)
}

// World implements physics.World.
type World struct {
	cfg     physics.WorldConfig
	bodies  []*body
	dynamic []int
	statics []int
}

var _ physics.World = (*World)(nil)

func (w *World) AddStaticSegment(a, b mgl64.Vec2, m physics.Material) (physics.BodyID, error) {
	if !physics.Finite(a[0], a[1], b[0], b[1]) {
		return 0, fmt.Errorf("%w: segment endpoints must be finite", physics.ErrBadShape)
	}
	id := len(w.bodies)
	w.bodies = append(w.bodies, &body{
		static:  true,
		enabled: true,
		a:       a,
		b:       b,
		pos:     a.Add(b).Mul(0.5),
		angle:   math.Atan2(b[1]-a[1], b[0]-a[0]),
		mat:     m,
	})
	w.statics = append(w.statics, id)
	return physics.BodyID(id), nil
}

func (w *World) AddCapsule(def physics.CapsuleDef) (physics.BodyID, error) {
	if def.Radius <= 0 || def.HalfLength < 0 || def.Mass <= 0 {
		return 0, fmt.Errorf("%w: capsule radius %.3g half-length %.3g mass %.3g",
			physics.ErrBadShape, def.Radius, def.HalfLength, def.Mass)
	}
	inertia := physics.CapsuleInertia(def.Mass, def.HalfLength, def.Radius)
	id := len(w.bodies)
	w.bodies = append(w.bodies, &body{
		enabled:    true,
		pos:        def.Position,
		angle:      def.Angle,
		halfLength: def.HalfLength,
		radius:     def.Radius,
		mass:       def.Mass,
		inertia:    inertia,
		invMass:    1 / def.Mass,
		invInertia: 1 / inertia,
		mat:        def.Material,
	})
	w.dynamic = append(w.dynamic, id)
	return physics.BodyID(id), nil
}

func (w *World) get(id physics.BodyID) *body {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil
	}
	return w.bodies[id]
}

func (w *World) ApplyForce(id physics.BodyID, f mgl64.Vec2) {
	if b := w.get(id); b != nil && !b.static {
		b.force = b.force.Add(f)
	}
}

func (w *World) ApplyTorque(id physics.BodyID, torque float64) {
	if b := w.get(id); b != nil && !b.static {
		b.torque += torque
	}
}

func (w *World) SetVelocity(id physics.BodyID, v mgl64.Vec2, angular float64) {
	if b := w.get(id); b != nil && !b.static {
		b.vel = v
		b.angVel = angular
	}
}

func (w *World) SetEnabled(id physics.BodyID, enabled bool) {
	if b := w.get(id); b != nil {
		b.enabled = enabled
	}
}

func (w *World) Transform(id physics.BodyID) physics.Transform {
	b := w.get(id)
	if b == nil {
		return physics.Transform{}
	}
	return physics.Transform{Position: b.pos, Angle: b.angle}
}

func (w *World) Velocity(id physics.BodyID) (mgl64.Vec2, float64) {
	b := w.get(id)
	if b == nil {
		return mgl64.Vec2{}, 0
	}
	return b.vel, b.angVel
}

func (w *World) Mass(id physics.BodyID) float64 {
	if b := w.get(id); b != nil {
		return b.mass
	}
	return 0
}

func (w *World) Inertia(id physics.BodyID) float64 {
	if b := w.get(id); b != nil {
		return b.inertia
	}
	return 0
}

// Step integrates forces with semi-implicit Euler, then resolves contacts
// for a fixed number of iterations.
func (w *World) Step(dt float64) error {
	if !(dt > 0) || !physics.Finite(dt) {
		return fmt.Errorf("%w: %v", physics.ErrInvalidStep, dt)
	}

	for _, i := range w.dynamic {
		b := w.bodies[i]
		if b.enabled {
			b.vel = b.vel.Add(b.force.Mul(b.invMass * dt))
			b.angVel += b.torque * b.invInertia * dt
			b.pos = b.pos.Add(b.vel.Mul(dt))
			b.angle = physics.NormalizeAngle(b.angle + b.angVel*dt)
		}
		b.force = mgl64.Vec2{}
		b.torque = 0
	}

	for it := 0; it < w.cfg.Iterations; it++ {
		for n, i := range w.dynamic {
			a := w.bodies[i]
			if !a.enabled {
				continue
			}
			for _, s := range w.statics {
				if st := w.bodies[s]; st.enabled {
					w.collide(a, st)
				}
			}
			for _, j := range w.dynamic[n+1:] {
				if other := w.bodies[j]; other.enabled {
					w.collide(a, other)
				}
			}
		}
	}

	for _, i := range w.dynamic {
		b := w.bodies[i]
		if !physics.Finite(b.pos[0], b.pos[1], b.vel[0], b.vel[1], b.angle, b.angVel) {
			return fmt.Errorf("%w: body %d", physics.ErrNonFinite, i)
		}
	}
	return nil
}
