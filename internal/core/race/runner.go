package race

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/observability/log"
)

// EventFrame is the bus event type carrying a Frame.
const EventFrame = "frame"

var ErrStepLimit = errors.New("step limit reached before every racer finished")

// RunnerConfig tunes the fixed-timestep loop.
type RunnerConfig struct {
	Step       float64 // fixed dt handed to Engine.Step
	MaxCatchUp int     // steps allowed per Advance before backlog is dropped
}

// DefaultRunnerConfig steps at 120 Hz and catches up at most a quarter second.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{Step: 1.0 / 120, MaxCatchUp: 30}
}

// Runner drives an Engine at a fixed dt from variable frame times and
// publishes every frame and event on the bus under the race id topic.
type Runner struct {
	engine *Engine
	bus    bus.EventBus
	logger log.Log
	cfg    RunnerConfig

	acc     float64
	steps   int
	dropped int
	last    Frame
}

func NewRunner(engine *Engine, b bus.EventBus, cfg RunnerConfig, logger log.Log) (*Runner, error) {
	if !(cfg.Step > 0) || math.IsInf(cfg.Step, 0) {
		return nil, fmt.Errorf("%w: runner step %v", ErrInvalidStep, cfg.Step)
	}
	if cfg.MaxCatchUp < 1 {
		cfg.MaxCatchUp = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Runner{
		engine: engine,
		bus:    b,
		logger: logger.With(log.String("race_id", engine.ID())),
		cfg:    cfg,
		last:   engine.Snapshot(),
	}, nil
}

func (r *Runner) Engine() *Engine { return r.engine }
func (r *Runner) Steps() int      { return r.steps }
func (r *Runner) Last() Frame     { return r.last }

// Dropped is the number of fixed steps discarded because a single Advance
// exceeded MaxCatchUp.
func (r *Runner) Dropped() int { return r.dropped }

// Advance accumulates frameTime and runs as many fixed steps as fit, up to
// MaxCatchUp. The remainder carries over to the next call.
func (r *Runner) Advance(frameTime float64) ([]Frame, error) {
	if frameTime < 0 || math.IsNaN(frameTime) || math.IsInf(frameTime, 0) {
		return nil, fmt.Errorf("%w: frame time %v", ErrInvalidStep, frameTime)
	}
	r.acc += frameTime

	var frames []Frame
	for r.acc >= r.cfg.Step {
		if len(frames) == r.cfg.MaxCatchUp {
			backlog := int(r.acc / r.cfg.Step)
			r.dropped += backlog
			r.acc -= float64(backlog) * r.cfg.Step
			r.logger.Warn("dropping simulation backlog", log.Int("steps", backlog))
			break
		}
		frame, err := r.step()
		if err != nil {
			return frames, err
		}
		r.acc -= r.cfg.Step
		frames = append(frames, frame)
	}
	return frames, nil
}

// Run steps until every racer finished, ctx is done or maxSteps steps were
// taken. It returns the last frame produced.
func (r *Runner) Run(ctx context.Context, maxSteps int) (Frame, error) {
	for !r.engine.IsFinished() {
		if err := ctx.Err(); err != nil {
			return r.last, err
		}
		if r.steps >= maxSteps {
			return r.last, fmt.Errorf("%w: %d steps at t=%.3f", ErrStepLimit, r.steps, r.engine.Time())
		}
		if _, err := r.step(); err != nil {
			return r.last, err
		}
	}
	r.logger.Info("race finished",
		log.Int("steps", r.steps),
		log.Float64("t", r.engine.Time()),
	)
	return r.last, nil
}

func (r *Runner) step() (Frame, error) {
	frame, err := r.engine.Step(r.cfg.Step)
	if err != nil {
		return Frame{}, err
	}
	r.steps++
	r.last = frame
	r.publish(frame)
	return frame, nil
}

// publish fans the frame out. Subscriber failures are logged, never fatal.
func (r *Runner) publish(frame Frame) {
	if r.bus == nil {
		return
	}
	id := r.engine.ID()
	events := make([]bus.Event, 0, len(frame.Events)+1)
	events = append(events, bus.NewEvent(EventFrame, id, frame.T, frame))
	for _, ev := range frame.Events {
		events = append(events, bus.NewEvent(string(ev.Kind), id, ev.T, ev))
	}
	if err := r.bus.PublishBatch(id, events...); err != nil {
		r.logger.Warn("subscriber failed", log.Error(err), log.Float64("t", frame.T))
	}
}
