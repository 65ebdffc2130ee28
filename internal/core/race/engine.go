// Package race is the public face of a simulation: it validates inputs,
// owns the control world and turns every Step into an immutable Frame plus
// the events that happened during it.
package race

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/control"
	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

var (
	ErrTooFewPoints   = geometry.ErrTooFewPoints
	ErrEmptyRoster    = errors.New("racer roster is empty")
	ErrDuplicateRacer = errors.New("duplicate racer id")
	ErrNoBackend      = errors.New("physics backend is required")
	ErrInvalidStep    = errors.New("dt must be finite and positive")
)

// Racer is a roster entry.
type Racer = control.Racer

// Options carries the per-race inputs that are not part of the roster or the
// track.
type Options struct {
	Seed    int64
	Backend physics.Backend
	Logger  log.Log // nil means no logging
}

// Engine runs one race. It is single-threaded: callers must not call Step
// concurrently.
type Engine struct {
	id      string
	seed    int64
	roster  []Racer
	geo     *geometry.Geometry
	world   *control.World
	balance config.Balance
	logger  log.Log

	err error
}

// New validates everything up front and returns a ready engine or an error;
// it never returns a partially built engine.
func New(racers []Racer, track geometry.Track, opts Options, balance config.Balance) (*Engine, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}
	if len(racers) == 0 {
		return nil, ErrEmptyRoster
	}
	seen := make(map[string]struct{}, len(racers))
	for _, r := range racers {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRacer, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	if err := balance.Validate(); err != nil {
		return nil, err
	}

	geo, err := geometry.Build(track, balance.Course.Resolution)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:      uuid.NewString(),
		seed:    opts.Seed,
		geo:     geo,
		balance: balance,
		logger:  opts.Logger,
	}
	if e.logger == nil {
		e.logger = log.NewNop()
	}

	e.roster = append([]Racer(nil), racers...)
	e.world, err = control.NewWorld(geo, e.roster, opts.Backend, &e.balance, kinematics.NewRand(opts.Seed))
	if err != nil {
		return nil, err
	}

	e.logger = e.logger.With(log.String("race_id", e.id))
	e.logger.Debug("race created",
		log.Int("racers", len(e.roster)),
		log.Int64("seed", opts.Seed),
		log.Float64("total_length", geo.TotalLength()),
		log.Bool("closed", geo.Closed()),
	)
	return e, nil
}

func (e *Engine) ID() string                   { return e.id }
func (e *Engine) Geometry() *geometry.Geometry { return e.geo }
func (e *Engine) Track() geometry.Track        { return e.geo.Track() }
func (e *Engine) TotalLength() float64         { return e.geo.TotalLength() }
func (e *Engine) Time() float64                { return e.world.Time() }
func (e *Engine) IsFinished() bool             { return e.world.AllFinished() }
func (e *Engine) Balance() config.Balance      { return e.balance }
func (e *Engine) Seed() int64                  { return e.seed }
func (e *Engine) Roster() []Racer              { return append([]Racer(nil), e.roster...) }

// Err returns the failure that stopped the engine, if any.
func (e *Engine) Err() error { return e.err }

type flags struct {
	zone     geometry.ZoneKind
	bursting bool
	finished bool
}

// Step advances the race by dt and returns the resulting frame. After a
// physics failure every call returns the same error.
func (e *Engine) Step(dt float64) (Frame, error) {
	if e.err != nil {
		return Frame{}, e.err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}

	racers := e.world.Racers()
	before := make([]flags, len(racers))
	for i, r := range racers {
		before[i] = flags{zone: r.Zone, bursting: r.Bursting(), finished: r.Finished()}
	}

	if err := e.world.Step(dt); err != nil {
		e.err = pkgerrors.Wrapf(err, "race %s: step at t=%.4f", e.id, e.world.Time())
		e.logger.Error("physics step failed", log.Error(err), log.Float64("t", e.world.Time()))
		return Frame{}, e.err
	}

	events := e.diff(before)
	return e.frame(events), nil
}

// diff turns flag changes into events, in roster order.
func (e *Engine) diff(before []flags) []Event {
	t := e.world.Time()
	var events []Event
	for i, r := range e.world.Racers() {
		prev := before[i]
		if prev.finished {
			continue
		}
		if r.Zone != prev.zone {
			events = append(events, Event{T: t, RacerID: r.Racer.ID, Kind: EventZoneEnter, Payload: Payload{Zone: r.Zone}})
		}
		bursting := r.Bursting()
		if bursting && !prev.bursting {
			events = append(events, Event{T: t, RacerID: r.Racer.ID, Kind: EventBurstStart, Payload: Payload{Duration: r.BurstRemaining()}})
		}
		if prev.bursting && !bursting {
			events = append(events, Event{T: t, RacerID: r.Racer.ID, Kind: EventBurstEnd})
		}
		if r.Finished() {
			events = append(events, Event{T: t, RacerID: r.Racer.ID, Kind: EventFinish, Payload: Payload{Place: r.Place(), Time: r.FinishTime()}})
			e.logger.Debug("racer finished",
				log.String("racer_id", r.Racer.ID),
				log.Int("place", r.Place()),
				log.Float64("time", r.FinishTime()),
			)
		}
	}
	return events
}

func (e *Engine) frame(events []Event) Frame {
	racers := e.world.Racers()
	lanes := make([]Lane, len(racers))
	for i, r := range racers {
		lanes[i] = Lane{
			RacerID:        r.Racer.ID,
			Name:           r.Racer.Name,
			Tint:           r.Racer.Tint,
			Position:       r.Position,
			Heading:        r.Heading,
			Velocity:       r.Velocity,
			Speed:          r.Speed,
			Distance:       r.Distance,
			Progress:       r.Progress,
			Zone:           r.Zone,
			Phase:          r.Phase.Name(),
			Bursting:       r.Bursting(),
			BurstRemaining: r.BurstRemaining(),
			Finished:       r.Finished(),
			Place:          r.Place(),
			FinishTime:     r.FinishTime(),
		}
	}
	return Frame{
		T:           e.world.Time(),
		TotalLength: e.geo.TotalLength(),
		Lanes:       lanes,
		Events:      events,
		IsFinished:  e.world.AllFinished(),
	}
}

// Snapshot returns the current state as a frame without stepping.
func (e *Engine) Snapshot() Frame {
	return e.frame(nil)
}

// Results returns the finished racers ordered by place.
func (e *Engine) Results() []Result {
	var out []Result
	for _, r := range e.world.Racers() {
		if r.Finished() {
			out = append(out, Result{RacerID: r.Racer.ID, Name: r.Racer.Name, Place: r.Place(), Time: r.FinishTime()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out
}
