package control

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

// minAlignSpeed is the speed below which alignment is treated as perfect.
const minAlignSpeed = 1e-6

// Step applies the control law to every racer still on course, advances the
// physics world by dt and assigns places to new arrivals.
func (w *World) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", physics.ErrInvalidStep, dt)
	}

	for _, r := range w.racers {
		if r.Finished() {
			w.phys.SetVelocity(r.Body, mgl64.Vec2{}, 0)
			continue
		}
		w.drive(r, dt)
	}

	if err := w.phys.Step(dt); err != nil {
		return err
	}
	w.time += dt

	finishAt := w.geo.TotalLength() - w.balance.Course.FinishEpsilon
	var arrivals []*RacerState
	for _, r := range w.racers {
		if r.Finished() {
			continue
		}
		w.observe(r)
		if r.Distance >= finishAt {
			arrivals = append(arrivals, r)
		}
	}
	if len(arrivals) == 0 {
		return nil
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivedBefore(arrivals[i], arrivals[j])
	})
	for _, r := range arrivals {
		w.placed++
		r.finish(w.placed, w.time)
		w.phys.SetVelocity(r.Body, mgl64.Vec2{}, 0)
		w.phys.SetEnabled(r.Body, false)
		r.Velocity, r.Speed, r.AngularVelocity = mgl64.Vec2{}, 0, 0
	}
	return nil
}

// arrivedBefore orders racers that crossed the line on the same tick: the one
// further past the line first, then the faster one, then roster order.
func arrivedBefore(a, b *RacerState) bool {
	if a.RawS != b.RawS {
		return a.RawS > b.RawS
	}
	if a.Speed != b.Speed {
		return a.Speed > b.Speed
	}
	return a.Index < b.Index
}

// observe reads the body back from the physics world and projects it onto
// the track near its last known arc-length.
func (w *World) observe(r *RacerState) {
	tf := w.phys.Transform(r.Body)
	v, ang := w.phys.Velocity(r.Body)

	proj := w.geo.ProjectPointNear(tf.Position, r.RawS, w.balance.Course.ProjectionWindow)
	r.RawS = proj.S
	r.Lateral = proj.Lateral
	if proj.S > r.Distance {
		r.Distance = proj.S
	}
	r.Progress = w.geo.Progress(r.Distance)
	r.Zone = w.geo.ZoneForProgress(r.Progress)

	r.Position = tf.Position
	r.Heading = tf.Angle
	r.Velocity = v
	r.Speed = v.Len()
	r.AngularVelocity = ang
}

// drive computes and applies the forward, lateral and steering inputs for one
// tick.
func (w *World) drive(r *RacerState, dt float64) {
	c := w.balance.Control
	p := r.Params

	sample := w.geo.SampleAt(r.RawS)
	t, n := sample.Tangent, sample.Normal
	vf := r.Velocity.Dot(t)
	vl := r.Velocity.Dot(n)

	alignment := 1.0
	if r.Speed > minAlignSpeed {
		alignment = mgl64.Clamp(vf/r.Speed, 0, 1)
	}

	r.advanceBurst(dt)
	in := kinematics.Input{Stats: r.Racer.Stats, Base: r.Base, Balance: w.balance, Alignment: alignment}
	zoneSpeed := kinematics.ZoneSpeed(r.Zone, in, r, dt, w.rng)
	maxSpeed := (c.BaseMaxSpeed + c.SpeedPerUnit*zoneSpeed) *
		kinematics.CurvaturePenalty(sample.Curvature, r.Racer.Stats, w.balance.Curvature)

	var forward float64
	switch {
	case vf < maxSpeed:
		forward = math.Min(p.Thrust, (maxSpeed-vf)/dt)
	case vf > maxSpeed*(1+c.OvershootMargin):
		forward = -math.Min(p.Thrust*c.BrakeFactor, (vf-maxSpeed)/dt)
	}
	forward -= p.Drag * vf

	// centripetal feed-forward keeps the racer on the bend; grip and the lane
	// spring absorb the rest
	lateral := sample.Curvature*vf*vf - p.LateralGrip*vl - c.LaneKeeping*(r.Lateral-r.LaneOffset)

	m := w.phys.Mass(r.Body)
	w.phys.ApplyForce(r.Body, t.Mul(forward*m).Add(n.Mul(lateral*m)))

	headingErr := physics.NormalizeAngle(geometry.Angle(t) - r.Heading)
	torque := w.phys.Inertia(r.Body) * (p.SteerGain*headingErr - p.SteerDamp*r.AngularVelocity)
	w.phys.ApplyTorque(r.Body, torque)
}
