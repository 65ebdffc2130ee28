// Package sim turns catalog presets into races and runs them, one at a time
// or as parallel trials over consecutive seeds.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/core/race"
	"github.com/zeusync/swimrace/internal/core/replay"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

var ErrNoTrials = errors.New("trial count must be positive")

// RaceSpec selects what to race and how to step it.
type RaceSpec struct {
	Track    string
	Roster   string
	Seed     int64
	Step     float64 // fixed dt; zero means the runner default
	MaxSteps int     // zero means 12000
}

func (s RaceSpec) withDefaults() RaceSpec {
	if s.Step <= 0 {
		s.Step = race.DefaultRunnerConfig().Step
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = 12000
	}
	return s
}

// Outcome is the result of one finished race.
type Outcome struct {
	RaceID  string
	Seed    int64
	Steps   int
	Time    float64
	Results []race.Result
	Replay  replay.Replay
}

// Simulator builds and runs races. Each race gets its own engine and physics
// world, so a Simulator may run many races concurrently.
type Simulator struct {
	catalog *config.Catalog
	balance config.Balance
	backend physics.Backend
	bus     bus.EventBus
	logger  log.Log
}

func New(catalog *config.Catalog, balance config.Balance, backend physics.Backend, b bus.EventBus, logger log.Log) *Simulator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Simulator{catalog: catalog, balance: balance, backend: backend, bus: b, logger: logger}
}

func (s *Simulator) Catalog() *config.Catalog { return s.catalog }
func (s *Simulator) Bus() bus.EventBus        { return s.bus }
func (s *Simulator) Backend() physics.Backend { return s.backend }

// NewRace builds an engine for spec without stepping it.
func (s *Simulator) NewRace(spec RaceSpec) (*race.Engine, error) {
	preset, err := s.catalog.Track(spec.Track)
	if err != nil {
		return nil, err
	}
	roster, err := s.catalog.Roster(spec.Roster)
	if err != nil {
		return nil, err
	}
	track := TrackFromPreset(preset, s.balance.ZoneLengths)
	return race.New(RosterFromPresets(roster), track, race.Options{
		Seed:    spec.Seed,
		Backend: s.backend,
		Logger:  s.logger,
	}, s.balance)
}

// Race builds and runs one race to completion.
func (s *Simulator) Race(ctx context.Context, spec RaceSpec) (Outcome, error) {
	engine, err := s.NewRace(spec)
	if err != nil {
		return Outcome{}, err
	}
	return s.Run(ctx, engine, spec)
}

// Run steps an engine built by NewRace until it finishes. Frames go to the
// simulator's bus when it has one; the recording always happens.
func (s *Simulator) Run(ctx context.Context, engine *race.Engine, spec RaceSpec) (Outcome, error) {
	spec = spec.withDefaults()

	b := s.bus
	if b == nil {
		b = bus.New()
	}
	rec := replay.NewRecorder(engine.Seed(), engine.Track(), engine.Roster(), engine.Balance(), spec.Step, nil)
	sub, err := b.SubscribeTopic(engine.ID(), race.EventFrame, rec.Handler())
	if err != nil {
		return Outcome{}, err
	}
	defer func() { _ = sub.Cancel() }()

	runner, err := race.NewRunner(engine, b, race.RunnerConfig{Step: spec.Step, MaxCatchUp: 1}, s.logger)
	if err != nil {
		return Outcome{}, err
	}
	if _, err = runner.Run(ctx, spec.MaxSteps); err != nil {
		return Outcome{}, fmt.Errorf("race %s seed %d: %w", engine.ID(), engine.Seed(), err)
	}

	return Outcome{
		RaceID:  engine.ID(),
		Seed:    engine.Seed(),
		Steps:   runner.Steps(),
		Time:    engine.Time(),
		Results: engine.Results(),
		Replay:  rec.Replay(),
	}, nil
}

// Trials runs n races with seeds spec.Seed, spec.Seed+1, ... in parallel.
// Outcomes are returned in seed order; the first failure cancels the rest.
func (s *Simulator) Trials(ctx context.Context, spec RaceSpec, n int) ([]Outcome, error) {
	if n <= 0 {
		return nil, ErrNoTrials
	}
	outcomes := make([]Outcome, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		trial := spec
		trial.Seed = spec.Seed + int64(i)
		g.Go(func() error {
			out, err := s.Race(ctx, trial)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("trials finished", log.Int("trials", n), log.String("track", spec.Track))
	return outcomes, nil
}

// Standing aggregates one racer over several outcomes.
type Standing struct {
	RacerID   string
	Name      string
	Wins      int
	MeanPlace float64
	MeanTime  float64
}

// Summarize ranks racers by wins, then mean place, then id.
func Summarize(outcomes []Outcome) []Standing {
	type acc struct {
		name         string
		wins, races  int
		places, time float64
	}
	byID := map[string]*acc{}
	var order []string
	for _, o := range outcomes {
		for _, r := range o.Results {
			a, ok := byID[r.RacerID]
			if !ok {
				a = &acc{name: r.Name}
				byID[r.RacerID] = a
				order = append(order, r.RacerID)
			}
			a.races++
			a.places += float64(r.Place)
			a.time += r.Time
			if r.Place == 1 {
				a.wins++
			}
		}
	}

	out := make([]Standing, 0, len(order))
	for _, id := range order {
		a := byID[id]
		out = append(out, Standing{
			RacerID:   id,
			Name:      a.name,
			Wins:      a.wins,
			MeanPlace: a.places / float64(a.races),
			MeanTime:  a.time / float64(a.races),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].MeanPlace != out[j].MeanPlace {
			return out[i].MeanPlace < out[j].MeanPlace
		}
		return out[i].RacerID < out[j].RacerID
	})
	return out
}
