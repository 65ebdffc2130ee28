package control

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

// Racer is the immutable roster entry.
type Racer struct {
	ID    string           `json:"id" yaml:"id" msgpack:"id"`
	Name  string           `json:"name" yaml:"name" msgpack:"name"`
	Tint  string           `json:"tint" yaml:"tint" msgpack:"tint"`
	Stats kinematics.Stats `json:"stats" yaml:"stats" msgpack:"stats"`
}

// RacerState is the live simulation state of one racer. It is owned by a
// World and must not be mutated from outside.
type RacerState struct {
	Racer  Racer
	Index  int // roster position
	Body   physics.BodyID
	Params Params
	Base   kinematics.Base
	Phase  Phase

	// Distance is the furthest projected arc-length reached so far. RawS is
	// the latest projection and seeds the next windowed search.
	Distance float64
	RawS     float64
	Progress float64
	Zone     geometry.ZoneKind

	Position        mgl64.Vec2
	Velocity        mgl64.Vec2
	Speed           float64
	Heading         float64
	AngularVelocity float64

	Lateral    float64 // signed offset from the centerline
	LaneOffset float64 // offset the lane-keeping spring pulls towards
}

var _ kinematics.BurstState = (*RacerState)(nil)

func (r *RacerState) Finished() bool {
	_, ok := r.Phase.(Finished)
	return ok
}

// Bursting reports whether a hyperburst is active.
func (r *RacerState) Bursting() bool {
	_, ok := r.Phase.(Bursting)
	return ok
}

// BurstRemaining is the time left on the active burst, 0 otherwise.
func (r *RacerState) BurstRemaining() float64 {
	if b, ok := r.Phase.(Bursting); ok {
		return b.Remaining
	}
	return 0
}

// Place is the finishing place, 0 while the racer is still on course.
func (r *RacerState) Place() int {
	if f, ok := r.Phase.(Finished); ok {
		return f.Place
	}
	return 0
}

// FinishTime is the simulated time of arrival, 0 while on course.
func (r *RacerState) FinishTime() float64 {
	if f, ok := r.Phase.(Finished); ok {
		return f.Time
	}
	return 0
}

// CheckDue counts the roll cooldown down by dt. Only a racing racer can roll.
func (r *RacerState) CheckDue(dt float64) bool {
	p, ok := r.Phase.(Racing)
	if !ok {
		return false
	}
	p.CheckIn -= dt
	due := p.CheckIn <= 0
	if due {
		p.CheckIn = r.Params.BurstCheckInterval
	}
	r.Phase = p
	return due
}

// StartBurst moves a racing racer into Bursting.
func (r *RacerState) StartBurst(duration float64) {
	if p, ok := r.Phase.(Racing); ok {
		r.Phase = Bursting{Remaining: duration, CheckIn: p.CheckIn}
	}
}

// advanceBurst expires an active burst. The roll cooldown restarts on expiry
// so a new burst cannot begin on the same tick.
func (r *RacerState) advanceBurst(dt float64) {
	b, ok := r.Phase.(Bursting)
	if !ok {
		return
	}
	b.Remaining -= dt
	if b.Remaining > 0 {
		r.Phase = b
		return
	}
	r.Phase = Racing{CheckIn: r.Params.BurstCheckInterval}
}

func (r *RacerState) finish(place int, t float64) {
	if r.Finished() {
		return
	}
	r.Phase = Finished{Place: place, Time: t}
}
