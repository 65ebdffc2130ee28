package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/race"
	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

var (
	ErrDigestMismatch = errors.New("replay diverged")
	ErrBadFrameEvent  = errors.New("bus event does not carry a frame")
)

// Replay is everything needed to rerun a race and check it step by step.
type Replay struct {
	Seed    int64          `msgpack:"seed"`
	Track   geometry.Track `msgpack:"track"`
	Roster  []race.Racer   `msgpack:"roster"`
	Balance config.Balance `msgpack:"balance"`
	Step    float64        `msgpack:"step"`
	Digests []uint64       `msgpack:"digests"`
	Final   uint64         `msgpack:"final"` // running hash over every encoded frame
}

// Recorder collects frame digests while a race runs. It is safe to feed from
// a bus handler.
type Recorder struct {
	mu      sync.Mutex
	replay  Replay
	running *xxhash.Digest
	stream  io.Writer
}

// NewRecorder starts a recording. When stream is non-nil every encoded frame
// is also appended to it.
func NewRecorder(seed int64, track geometry.Track, roster []race.Racer, balance config.Balance, step float64, stream io.Writer) *Recorder {
	return &Recorder{
		replay: Replay{
			Seed:    seed,
			Track:   track,
			Roster:  append([]race.Racer(nil), roster...),
			Balance: balance,
			Step:    step,
		},
		running: xxhash.New(),
		stream:  stream,
	}
}

// Observe records one frame.
func (r *Recorder) Observe(f race.Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replay.Digests = append(r.replay.Digests, xxhash.Sum64(data))
	_, _ = r.running.Write(data)
	if r.stream != nil {
		if _, err = r.stream.Write(data); err != nil {
			return fmt.Errorf("write frame stream: %w", err)
		}
	}
	return nil
}

// Handler adapts Observe to the bus so a Recorder can subscribe to frame
// events.
func (r *Recorder) Handler() bus.EventHandler {
	return func(ev bus.Event) error {
		f, ok := ev.Data().(race.Frame)
		if !ok {
			return fmt.Errorf("%w: %T", ErrBadFrameEvent, ev.Data())
		}
		return r.Observe(f)
	}
}

// Replay returns a copy of the recording so far.
func (r *Recorder) Replay() Replay {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.replay
	out.Digests = append([]uint64(nil), r.replay.Digests...)
	out.Final = r.running.Sum64()
	return out
}

// Write stores a replay in msgpack form.
func Write(w io.Writer, rep Replay) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(&rep)
}

func Read(r io.Reader) (Replay, error) {
	var rep Replay
	if err := msgpack.NewDecoder(r).Decode(&rep); err != nil {
		return Replay{}, fmt.Errorf("read replay: %w", err)
	}
	return rep, nil
}

// Verify reruns the race with backend and compares every frame digest with
// the recording. The first divergence is reported with its step index.
func Verify(ctx context.Context, rep Replay, backend physics.Backend) error {
	engine, err := race.New(rep.Roster, rep.Track, race.Options{Seed: rep.Seed, Backend: backend}, rep.Balance)
	if err != nil {
		return fmt.Errorf("rebuild race: %w", err)
	}

	running := xxhash.New()
	for i, want := range rep.Digests {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		frame, err := engine.Step(rep.Step)
		if err != nil {
			return fmt.Errorf("replay step %d: %w", i, err)
		}
		data, err := Encode(frame)
		if err != nil {
			return err
		}
		if got := xxhash.Sum64(data); got != want {
			return fmt.Errorf("%w at step %d (t=%.4f): %016x != %016x", ErrDigestMismatch, i, frame.T, got, want)
		}
		_, _ = running.Write(data)
	}
	if rep.Final != 0 && running.Sum64() != rep.Final {
		return fmt.Errorf("%w: final hash %016x != %016x", ErrDigestMismatch, running.Sum64(), rep.Final)
	}
	return nil
}
