package solver

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

func newWorld(t *testing.T) physics.World {
	t.Helper()
	w, err := New().NewWorld(physics.WorldConfig{Iterations: 4, Baumgarte: 0.8, Slop: 0.001})
	require.NoError(t, err)
	return w
}

func capsule(pos mgl64.Vec2, angle float64, m physics.Material) physics.CapsuleDef {
	return physics.CapsuleDef{Position: pos, Angle: angle, HalfLength: 1, Radius: 1, Mass: 2, Material: m}
}

func TestIntegrationFreeBody(t *testing.T) {
	w := newWorld(t)
	id, err := w.AddCapsule(capsule(mgl64.Vec2{}, 0, physics.Material{}))
	require.NoError(t, err)

	w.ApplyForce(id, mgl64.Vec2{10, 0})
	w.ApplyTorque(id, 1)
	require.NoError(t, w.Step(0.5))

	v, ang := w.Velocity(id)
	assert.InDelta(t, 2.5, v.X(), 1e-12)
	assert.InDelta(t, 1.25, w.Transform(id).Position.X(), 1e-12)
	assert.InDelta(t, 0.5/w.Inertia(id), ang, 1e-12)
	assert.Equal(t, 2.0, w.Mass(id))

	// forces do not carry over between steps
	require.NoError(t, w.Step(0.5))
	v, _ = w.Velocity(id)
	assert.InDelta(t, 2.5, v.X(), 1e-12)
}

func TestWallStopsCapsule(t *testing.T) {
	w := newWorld(t)
	_, err := w.AddStaticSegment(mgl64.Vec2{3, -5}, mgl64.Vec2{3, 5}, physics.Material{})
	require.NoError(t, err)
	id, err := w.AddCapsule(capsule(mgl64.Vec2{}, 0, physics.Material{}))
	require.NoError(t, err)
	w.SetVelocity(id, mgl64.Vec2{10, 0}, 0)

	for i := 0; i < 100; i++ {
		require.NoError(t, w.Step(0.01))
		// tip of the capsule is at x+2
		assert.LessOrEqual(t, w.Transform(id).Position.X()+2, 3.0+0.05)
	}
	v, _ := w.Velocity(id)
	assert.LessOrEqual(t, v.X(), 1e-9)
}

func TestHeadOnCollisionConservesMomentum(t *testing.T) {
	w := newWorld(t)
	elastic := physics.Material{Restitution: 1}
	a, err := w.AddCapsule(capsule(mgl64.Vec2{-3, 0}, 0, elastic))
	require.NoError(t, err)
	b, err := w.AddCapsule(capsule(mgl64.Vec2{3, 0}, 0, elastic))
	require.NoError(t, err)
	w.SetVelocity(a, mgl64.Vec2{5, 0}, 0)
	w.SetVelocity(b, mgl64.Vec2{-5, 0}, 0)

	for i := 0; i < 60; i++ {
		require.NoError(t, w.Step(0.01))
	}

	va, wa := w.Velocity(a)
	vb, wb := w.Velocity(b)
	assert.InDelta(t, 0, va.X()+vb.X(), 1e-9)
	assert.InDelta(t, -5, va.X(), 1e-6)
	assert.InDelta(t, 5, vb.X(), 1e-6)
	assert.InDelta(t, 0, wa, 1e-9)
	assert.InDelta(t, 0, wb, 1e-9)
}

func TestSideBySideContactHasNoSpin(t *testing.T) {
	w := newWorld(t)
	a, _ := w.AddCapsule(capsule(mgl64.Vec2{0, 0}, 0, physics.Material{}))
	b, _ := w.AddCapsule(capsule(mgl64.Vec2{0, 1.5}, 0, physics.Material{}))
	require.NoError(t, w.Step(0.01))

	pa := w.Transform(a).Position
	pb := w.Transform(b).Position
	assert.Greater(t, pb.Y()-pa.Y(), 1.5)
	assert.InDelta(t, 0, w.Transform(a).Angle, 1e-12)
	assert.InDelta(t, 0, w.Transform(b).Angle, 1e-12)
}

func TestDisabledBodyIsFrozen(t *testing.T) {
	w := newWorld(t)
	_, _ = w.AddStaticSegment(mgl64.Vec2{-5, 0.5}, mgl64.Vec2{5, 0.5}, physics.Material{})
	id, _ := w.AddCapsule(capsule(mgl64.Vec2{}, 0, physics.Material{}))
	w.SetEnabled(id, false)
	w.ApplyForce(id, mgl64.Vec2{100, 100})

	require.NoError(t, w.Step(0.1))
	assert.Equal(t, mgl64.Vec2{}, w.Transform(id).Position)

	w.SetEnabled(id, true)
	require.NoError(t, w.Step(0.1))
	// the queued force was discarded while disabled
	v, _ := w.Velocity(id)
	assert.InDelta(t, 0, v.X(), 1e-12)
}

func TestStepErrors(t *testing.T) {
	w := newWorld(t)
	id, _ := w.AddCapsule(capsule(mgl64.Vec2{}, 0, physics.Material{}))

	assert.ErrorIs(t, w.Step(0), physics.ErrInvalidStep)
	assert.ErrorIs(t, w.Step(math.NaN()), physics.ErrInvalidStep)

	w.ApplyForce(id, mgl64.Vec2{math.NaN(), 0})
	assert.ErrorIs(t, w.Step(0.01), physics.ErrNonFinite)
}

func TestShapeValidationAndUnknownIDs(t *testing.T) {
	w := newWorld(t)
	_, err := w.AddCapsule(physics.CapsuleDef{Radius: 0, Mass: 1})
	assert.ErrorIs(t, err, physics.ErrBadShape)
	_, err = w.AddCapsule(physics.CapsuleDef{Radius: 1, Mass: -1})
	assert.ErrorIs(t, err, physics.ErrBadShape)
	_, err = w.AddStaticSegment(mgl64.Vec2{math.Inf(1), 0}, mgl64.Vec2{}, physics.Material{})
	assert.ErrorIs(t, err, physics.ErrBadShape)

	w.ApplyForce(42, mgl64.Vec2{1, 1})
	assert.Equal(t, physics.Transform{}, w.Transform(42))
	assert.Zero(t, w.Mass(-1))
}

func TestClosestPoints(t *testing.T) {
	ca, cb := closestPoints(mgl64.Vec2{-4, 0}, mgl64.Vec2{-2, 0}, mgl64.Vec2{2, 0}, mgl64.Vec2{4, 0})
	assert.Equal(t, mgl64.Vec2{-2, 0}, ca)
	assert.Equal(t, mgl64.Vec2{2, 0}, cb)

	ca, cb = closestPoints(mgl64.Vec2{-1, 0}, mgl64.Vec2{1, 0}, mgl64.Vec2{0, 1}, mgl64.Vec2{0, 3})
	assert.Equal(t, mgl64.Vec2{0, 0}, ca)
	assert.Equal(t, mgl64.Vec2{0, 1}, cb)

	// parallel overlap resolves to the middle of the shared span
	ca, cb = closestPoints(mgl64.Vec2{0, 0}, mgl64.Vec2{4, 0}, mgl64.Vec2{2, 1}, mgl64.Vec2{6, 1})
	assert.InDelta(t, 3, ca.X(), 1e-12)
	assert.InDelta(t, 3, cb.X(), 1e-12)
}
