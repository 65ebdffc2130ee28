package race

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
	"github.com/zeusync/swimrace/internal/core/systems/physics/solver"
)

const sanitySeed = 133742

func sanityTrack() geometry.Track {
	return geometry.Track{
		Points: []mgl64.Vec2{
			{0, 0}, {250, 0}, {420, 80}, {480, 240}, {400, 400},
			{220, 460}, {80, 560}, {120, 720}, {320, 780}, {520, 760},
		},
		Width: 80,
		Zones: []geometry.Zone{
			{Kind: geometry.ZoneFlow, Start: 0, End: 0.5},
			{Kind: geometry.ZoneViscous, Start: 0.5, End: 1},
		},
	}
}

func gradientTrack() geometry.Track {
	return geometry.Track{
		Points: []mgl64.Vec2{{0, 0}, {700, 60}, {1400, 0}, {2100, 60}},
		Width:  90,
		Zones:  []geometry.Zone{{Kind: geometry.ZoneGradient, Start: 0, End: 1}},
	}
}

func roster() []Racer {
	return []Racer{
		{ID: "r1", Name: "Dart", Tint: "#e4572e", Stats: kinematics.Stats{Motility: 72, Linearity: 55, FlowAffinity: 40, SignalSensitivity: 35}},
		{ID: "r2", Name: "Glide", Tint: "#29335c", Stats: kinematics.Stats{Motility: 58, Linearity: 80, FlowAffinity: 65, SignalSensitivity: 20}},
		{ID: "r3", Name: "Whip", Tint: "#f3a712", Stats: kinematics.Stats{Motility: 85, Linearity: 30, FlowAffinity: 25, SignalSensitivity: 70}},
		{ID: "r4", Name: "Drift", Tint: "#669bbc", Stats: kinematics.Stats{Motility: 45, Linearity: 60, FlowAffinity: 90, SignalSensitivity: 50}},
	}
}

func newEngine(t *testing.T, track geometry.Track, seed int64) *Engine {
	t.Helper()
	e, err := New(roster(), track, Options{Seed: seed, Backend: solver.New()}, config.DefaultBalance())
	require.NoError(t, err)
	return e
}

func TestNewValidation(t *testing.T) {
	opts := Options{Backend: solver.New()}
	balance := config.DefaultBalance()

	_, err := New(roster(), geometry.Track{Points: []mgl64.Vec2{{0, 0}}, Width: 10}, opts, balance)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	repeated := geometry.Track{Points: []mgl64.Vec2{{0, 0}, {0, 0}}, Width: 10}
	_, err = New(roster(), repeated, opts, balance)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	loop := geometry.Track{Points: []mgl64.Vec2{{0, 0}, {500, 0}}, Width: 80, Closed: true}
	_, err = New(roster(), loop, opts, balance)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = New(nil, sanityTrack(), opts, balance)
	assert.ErrorIs(t, err, ErrEmptyRoster)

	dup := append(roster(), Racer{ID: "r1"})
	_, err = New(dup, sanityTrack(), opts, balance)
	assert.ErrorIs(t, err, ErrDuplicateRacer)

	_, err = New(roster(), sanityTrack(), Options{}, balance)
	assert.ErrorIs(t, err, ErrNoBackend)

	bad := config.DefaultBalance()
	bad.Physics.Iterations = 0
	_, err = New(roster(), sanityTrack(), opts, bad)
	assert.ErrorIs(t, err, config.ErrInvalidBalance)
}

func TestEngineAccessors(t *testing.T) {
	e := newEngine(t, sanityTrack(), 1)
	assert.NotEmpty(t, e.ID())
	assert.Greater(t, e.TotalLength(), 1000.0)
	assert.Equal(t, e.Geometry().TotalLength(), e.TotalLength())
	assert.Len(t, e.Track().Points, 10)
	assert.Zero(t, e.Time())
	assert.False(t, e.IsFinished())
	assert.Empty(t, e.Results())

	snap := e.Snapshot()
	require.Len(t, snap.Lanes, 4)
	assert.Equal(t, "r1", snap.Lanes[0].RacerID)
	assert.Equal(t, geometry.ZoneFlow, snap.Lanes[0].Zone)
	assert.Zero(t, snap.Lanes[0].Place)
}

func TestStepRejectsBadDt(t *testing.T) {
	e := newEngine(t, sanityTrack(), 1)
	for _, dt := range []float64{0, -1} {
		_, err := e.Step(dt)
		assert.ErrorIs(t, err, ErrInvalidStep)
	}
	// not sticky
	_, err := e.Step(1.0 / 120)
	assert.NoError(t, err)
}

func TestFinishTimeSanity(t *testing.T) {
	e := newEngine(t, sanityTrack(), sanitySeed)
	const dt = 1.0 / 120

	lastDistance := map[string]float64{}
	frozen := map[string]Lane{}
	finishEvents := map[string]Event{}
	zoneEvents := map[string][]geometry.ZoneKind{}

	var frame Frame
	for step := 0; step < 12000 && !frame.IsFinished; step++ {
		var err error
		frame, err = e.Step(dt)
		require.NoError(t, err)

		for _, l := range frame.Lanes {
			assert.GreaterOrEqual(t, l.Distance, lastDistance[l.RacerID], "distance of %s went backwards", l.RacerID)
			lastDistance[l.RacerID] = l.Distance
			if f, ok := frozen[l.RacerID]; ok {
				assert.Equal(t, f.Distance, l.Distance)
				assert.Equal(t, f.Progress, l.Progress)
				assert.Equal(t, f.Position, l.Position)
			} else if l.Finished {
				frozen[l.RacerID] = l
			}
		}
		for _, ev := range frame.Events {
			switch ev.Kind {
			case EventFinish:
				_, twice := finishEvents[ev.RacerID]
				assert.False(t, twice)
				finishEvents[ev.RacerID] = ev
			case EventZoneEnter:
				zoneEvents[ev.RacerID] = append(zoneEvents[ev.RacerID], ev.Payload.Zone)
			}
		}
	}

	require.True(t, frame.IsFinished, "race did not finish within 12000 steps")
	require.True(t, e.IsFinished())

	places := map[int]bool{}
	for _, l := range frame.Lanes {
		assert.True(t, l.Finished)
		assert.GreaterOrEqual(t, l.FinishTime, 5.0)
		assert.LessOrEqual(t, l.FinishTime, 120.0)
		places[l.Place] = true

		ev := finishEvents[l.RacerID]
		assert.Equal(t, l.Place, ev.Payload.Place)
		assert.Equal(t, l.FinishTime, ev.Payload.Time)
		assert.Equal(t, []geometry.ZoneKind{geometry.ZoneViscous}, zoneEvents[l.RacerID])
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true}, places)

	results := e.Results()
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i+1, r.Place)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Time, results[i-1].Time)
		}
	}

	// further steps leave every finished lane untouched
	after, err := e.Step(dt)
	require.NoError(t, err)
	assert.Empty(t, after.Events)
	for i, l := range after.Lanes {
		assert.Equal(t, frame.Lanes[i].Distance, l.Distance)
		assert.Equal(t, frame.Lanes[i].Place, l.Place)
	}
}

func TestDeterminism(t *testing.T) {
	a := newEngine(t, gradientTrack(), 99)
	b := newEngine(t, gradientTrack(), 99)

	bursts := 0
	for i := 0; i < 1200; i++ {
		fa, err := a.Step(1.0 / 120)
		require.NoError(t, err)
		fb, err := b.Step(1.0 / 120)
		require.NoError(t, err)
		require.Equal(t, fa, fb, "frames diverged at step %d", i)
		for _, ev := range fa.Events {
			if ev.Kind == EventBurstStart {
				bursts++
				assert.Equal(t, config.DefaultBalance().Gradient.Duration, ev.Payload.Duration)
			}
		}
	}
	assert.Greater(t, bursts, 0, "gradient zone should produce hyperbursts")
}

func TestBurstEventsPair(t *testing.T) {
	e := newEngine(t, gradientTrack(), 99)
	const dt = 1.0 / 120
	duration := config.DefaultBalance().Gradient.Duration

	open := map[string]float64{} // racer id -> start of its active burst
	starts, ends := map[string]int{}, map[string]int{}
	for i := 0; i < 30000 && !e.IsFinished(); i++ {
		frame, err := e.Step(dt)
		require.NoError(t, err)
		for _, ev := range frame.Events {
			switch ev.Kind {
			case EventBurstStart:
				_, active := open[ev.RacerID]
				require.False(t, active, "%s started a burst while bursting at t=%.3f", ev.RacerID, ev.T)
				open[ev.RacerID] = ev.T
				starts[ev.RacerID]++
			case EventBurstEnd:
				began, active := open[ev.RacerID]
				require.True(t, active, "%s ended a burst it never started at t=%.3f", ev.RacerID, ev.T)
				delete(open, ev.RacerID)
				ends[ev.RacerID]++

				lane, ok := frame.Lane(ev.RacerID)
				require.True(t, ok)
				if lane.Finished {
					// cut short by the finish line
					assert.LessOrEqual(t, ev.T-began, duration+dt)
				} else {
					assert.InDelta(t, duration, ev.T-began, dt*1.01, "%s burst length", ev.RacerID)
				}
			case EventFinish:
				_, active := open[ev.RacerID]
				assert.False(t, active, "%s finished with a burst still open", ev.RacerID)
			}
		}
	}

	require.True(t, e.IsFinished())
	assert.Empty(t, open)
	assert.Equal(t, starts, ends)
	total := 0
	for _, n := range starts {
		total += n
	}
	assert.Greater(t, total, 0, "gradient zone should produce hyperbursts")
}

func TestRepeatedControlPointsStillFinish(t *testing.T) {
	for name, pts := range map[string][]mgl64.Vec2{
		"start": {{0, 0}, {0, 0}, {300, 0}, {600, 200}},
		"mid":   {{0, 0}, {300, 0}, {300, 0}, {600, 200}},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, geometry.Track{Points: pts, Width: 80}, sanitySeed)
			for i := 0; i < 12000 && !e.IsFinished(); i++ {
				_, err := e.Step(1.0 / 120)
				require.NoError(t, err)
			}
			require.True(t, e.IsFinished(), "racers stuck at t=%.1f", e.Time())
			assert.Len(t, e.Results(), 4)
		})
	}
}

func TestFramesDoNotAlias(t *testing.T) {
	e := newEngine(t, sanityTrack(), 5)
	f1, err := e.Step(1.0 / 120)
	require.NoError(t, err)
	keep := f1.Lanes[0]
	f1.Lanes[0].Distance = -1

	f2, err := e.Step(1.0 / 120)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, f2.Lanes[0].Distance)
	assert.GreaterOrEqual(t, f2.Lanes[0].Distance, keep.Distance)
}

var errBoom = errors.New("boom")

type failingBackend struct {
	inner  physics.Backend
	failAt int
}

type failingWorld struct {
	physics.World
	steps  int
	failAt int
}

func (b failingBackend) NewWorld(cfg physics.WorldConfig) (physics.World, error) {
	w, err := b.inner.NewWorld(cfg)
	if err != nil {
		return nil, err
	}
	return &failingWorld{World: w, failAt: b.failAt}, nil
}

func (w *failingWorld) Step(dt float64) error {
	w.steps++
	if w.steps >= w.failAt {
		return errBoom
	}
	return w.World.Step(dt)
}

func TestPhysicsFailureIsSticky(t *testing.T) {
	e, err := New(roster(), sanityTrack(), Options{Backend: failingBackend{inner: solver.New(), failAt: 3}}, config.DefaultBalance())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = e.Step(1.0 / 120)
		require.NoError(t, err)
	}
	_, err = e.Step(1.0 / 120)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, err, e.Err())

	_, again := e.Step(1.0 / 120)
	assert.Equal(t, err, again)
	assert.InDelta(t, 2.0/120, e.Time(), 1e-12)
}

func TestRunnerAdvance(t *testing.T) {
	e := newEngine(t, sanityTrack(), 1)
	r, err := NewRunner(e, nil, RunnerConfig{Step: 0.25, MaxCatchUp: 2}, nil)
	require.NoError(t, err)

	frames, err := r.Advance(0.625)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Equal(t, 0.5, e.Time())

	frames, err = r.Advance(0.125)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Equal(t, 3, r.Steps())

	frames, err = r.Advance(0.1)
	require.NoError(t, err)
	assert.Empty(t, frames)

	// 1.0 of backlog with a cap of two steps drops the rest
	frames, err = r.Advance(1.0)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Equal(t, 2, r.Dropped())
	assert.Equal(t, frames[1], r.Last())

	_, err = r.Advance(-1)
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = NewRunner(e, nil, RunnerConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestRunnerRunPublishes(t *testing.T) {
	e := newEngine(t, sanityTrack(), sanitySeed)
	b := bus.New()

	frames, finishes := 0, 0
	_, err := b.SubscribeTopic(e.ID(), EventFrame, func(ev bus.Event) error {
		_, ok := ev.Data().(Frame)
		assert.True(t, ok)
		frames++
		return nil
	})
	require.NoError(t, err)
	_, err = b.SubscribeTopic(e.ID(), string(EventFinish), func(ev bus.Event) error {
		finishes++
		return errors.New("spectator failure is not fatal")
	})
	require.NoError(t, err)

	r, err := NewRunner(e, b, DefaultRunnerConfig(), nil)
	require.NoError(t, err)
	last, err := r.Run(context.Background(), 12000)
	require.NoError(t, err)

	assert.True(t, last.IsFinished)
	assert.Equal(t, r.Steps(), frames)
	assert.Equal(t, 4, finishes)
}

func TestRunnerRunLimits(t *testing.T) {
	r, err := NewRunner(newEngine(t, sanityTrack(), 1), nil, DefaultRunnerConfig(), nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), 5)
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, 5, r.Steps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
}
