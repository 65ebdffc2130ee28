// Package control owns a race's rigid-body world and drives every racer
// through it: projection onto the track, the per-tick control law, the phase
// machine and arrival order.
package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

var (
	ErrNoRacers  = errors.New("no racers")
	ErrNoBackend = errors.New("physics backend is nil")
)

const minSegment = 1e-9

// World is one race's physical state. It is not safe for concurrent use.
type World struct {
	geo     *geometry.Geometry
	balance *config.Balance
	phys    physics.World
	rng     kinematics.Source

	racers []*RacerState
	walls  []physics.BodyID

	time   float64
	placed int
}

// NewWorld builds the corridor walls and spawns one capsule per racer in
// lanes across the start line.
func NewWorld(geo *geometry.Geometry, racers []Racer, backend physics.Backend, balance *config.Balance, rng kinematics.Source) (*World, error) {
	if len(racers) == 0 {
		return nil, ErrNoRacers
	}
	if backend == nil {
		return nil, ErrNoBackend
	}

	pc := balance.Physics
	phys, err := backend.NewWorld(physics.WorldConfig{
		Iterations: pc.Iterations,
		Baumgarte:  pc.Baumgarte,
		Slop:       pc.Slop,
	})
	if err != nil {
		return nil, fmt.Errorf("create physics world: %w", err)
	}

	w := &World{geo: geo, balance: balance, phys: phys, rng: rng}
	if err = w.buildWalls(); err != nil {
		return nil, err
	}
	if err = w.spawn(racers); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) buildWalls() error {
	wall := physics.Material{
		Friction:    w.balance.Physics.WallFriction,
		Restitution: w.balance.Physics.WallRestitution,
	}
	hw := w.geo.HalfWidth()
	left, right := w.geo.Offset(hw), w.geo.Offset(-hw)

	add := func(a, b mgl64.Vec2) error {
		if a.Sub(b).Len() < minSegment {
			return nil
		}
		id, err := w.phys.AddStaticSegment(a, b, wall)
		if err != nil {
			return fmt.Errorf("add wall: %w", err)
		}
		w.walls = append(w.walls, id)
		return nil
	}

	for _, side := range [][]mgl64.Vec2{left, right} {
		for i := 1; i < len(side); i++ {
			if err := add(side[i-1], side[i]); err != nil {
				return err
			}
		}
	}
	if !w.geo.Closed() {
		return add(right[0], left[0])
	}
	return nil
}

// spawnSlots returns lane offsets and arc-lengths for n racers. Lanes are
// centered across the usable width; when a row is full the next one starts
// ahead of it.
func spawnSlots(n int, width float64, pc config.Physics, cc config.Course) (offsets, s []float64) {
	pitch := 2*pc.RacerRadius + cc.LaneGap
	usable := width - 2*(pc.RacerRadius+cc.LaneMargin)
	perRow := 1
	if usable > 0 && pitch > 0 {
		perRow = int(math.Floor(usable/pitch)) + 1
	}
	rowGap := 2*(pc.RacerHalfLength+pc.RacerRadius) + cc.LaneGap

	offsets = make([]float64, n)
	s = make([]float64, n)
	for i := 0; i < n; i++ {
		row, col := i/perRow, i%perRow
		inRow := perRow
		if rest := n - row*perRow; rest < inRow {
			inRow = rest
		}
		offsets[i] = (float64(col) - float64(inRow-1)/2) * pitch
		s[i] = cc.StartOffset + float64(row)*rowGap
	}
	return offsets, s
}

func (w *World) spawn(racers []Racer) error {
	pc := w.balance.Physics
	mat := physics.Material{Friction: pc.RacerFriction, Restitution: pc.RacerRestitution}
	offsets, starts := spawnSlots(len(racers), w.geo.Width(), pc, w.balance.Course)

	w.racers = make([]*RacerState, len(racers))
	for i, r := range racers {
		sample := w.geo.SampleAt(starts[i])
		pos := sample.Position.Add(sample.Normal.Mul(offsets[i]))
		heading := geometry.Angle(sample.Tangent)

		id, err := w.phys.AddCapsule(physics.CapsuleDef{
			Position:   pos,
			Angle:      heading,
			HalfLength: pc.RacerHalfLength,
			Radius:     pc.RacerRadius,
			Mass:       pc.RacerMass,
			Material:   mat,
		})
		if err != nil {
			return fmt.Errorf("spawn racer %q: %w", r.ID, err)
		}

		params := Derive(r.Stats, w.balance)
		st := &RacerState{
			Racer:      r,
			Index:      i,
			Body:       id,
			Params:     params,
			Base:       kinematics.BaseKinematics(r.Stats),
			Phase:      Racing{},
			RawS:       starts[i],
			LaneOffset: offsets[i],
		}
		w.observe(st)
		w.racers[i] = st
	}
	return nil
}

func (w *World) Geometry() *geometry.Geometry { return w.geo }

// Time is the simulated time advanced by Step.
func (w *World) Time() float64 { return w.time }

// Racers returns the live states in roster order. Callers must treat them as
// read-only.
func (w *World) Racers() []*RacerState { return w.racers }

// Walls returns the static corridor colliders.
func (w *World) Walls() []physics.BodyID { return w.walls }

// Placed is the number of racers that have finished.
func (w *World) Placed() int { return w.placed }

// AllFinished reports whether every racer has a place.
func (w *World) AllFinished() bool { return w.placed == len(w.racers) }
