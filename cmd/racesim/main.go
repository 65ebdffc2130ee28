package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/core/race"
	"github.com/zeusync/swimrace/internal/core/replay"
	"github.com/zeusync/swimrace/internal/injector"
	"github.com/zeusync/swimrace/internal/server"
	"github.com/zeusync/swimrace/internal/sim"
)

func main() {
	var (
		settings   config.Settings
		spec       sim.RaceSpec
		trials     int
		replayOut  string
		verifyPath string
	)
	feedCfg := server.DefaultConfig()

	flag.StringVar(&settings.CatalogPath, "catalog", "", "track and roster catalog (default: built-in presets)")
	flag.StringVar(&settings.BalancePath, "balance", "", "balance YAML file (default: built-in balance)")
	flag.StringVar(&settings.LogLevel, "log-level", "info", "log level (debug, info, warn, error, silent)")
	flag.StringVar(&spec.Track, "track", "sanity", "track preset")
	flag.StringVar(&spec.Roster, "roster", "default", "roster preset")
	flag.Int64Var(&spec.Seed, "seed", 133742, "race seed; trials use seed, seed+1, ...")
	flag.Float64Var(&spec.Step, "dt", race.DefaultRunnerConfig().Step, "fixed simulation step in seconds")
	flag.IntVar(&spec.MaxSteps, "max-steps", 12000, "abort a race after this many steps")
	flag.IntVar(&trials, "trials", 1, "number of races to run in parallel")
	flag.StringVar(&feedCfg.ListenAddr, "listen", "", "serve a live websocket frame feed on this address")
	flag.StringVar(&replayOut, "replay", "", "write the race replay to this file")
	flag.StringVar(&verifyPath, "verify", "", "re-run a replay file and check it, then exit")
	flag.Parse()

	app, err := injector.InitializeApp(settings, feedCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = app.Logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()

	switch {
	case verifyPath != "":
		err = verify(ctx, app, verifyPath)
	case trials > 1:
		err = runTrials(ctx, app, spec, trials)
	case feedCfg.ListenAddr != "":
		err = runLive(ctx, app, spec, replayOut)
	default:
		err = runOnce(ctx, app, spec, replayOut)
	}
	if err != nil {
		app.Logger.Error("racesim failed", log.Error(err))
		_ = app.Logger.Sync()
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, app *injector.App, spec sim.RaceSpec, replayOut string) error {
	out, err := app.Simulator.Race(ctx, spec)
	if err != nil {
		return err
	}
	printResults(out.Results)
	if replayOut != "" {
		return writeReplay(replayOut, out.Replay)
	}
	return nil
}

func runTrials(ctx context.Context, app *injector.App, spec sim.RaceSpec, n int) error {
	outcomes, err := app.Simulator.Trials(ctx, spec, n)
	if err != nil {
		return err
	}
	fmt.Printf("%d trials on %s, seeds %d..%d\n", n, spec.Track, spec.Seed, spec.Seed+int64(n-1))
	for i, s := range sim.Summarize(outcomes) {
		fmt.Printf("%2d. %-10s wins %3d  mean place %.2f  mean time %.2fs\n", i+1, s.Name, s.Wins, s.MeanPlace, s.MeanTime)
	}
	return nil
}

// runLive paces the race against the wall clock so feed clients see it in
// real time.
func runLive(ctx context.Context, app *injector.App, spec sim.RaceSpec, replayOut string) error {
	engine, err := app.Simulator.NewRace(spec)
	if err != nil {
		return err
	}
	if err = app.Feed.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := app.Feed.Stop(stopCtx); err != nil {
			app.Logger.Warn("feed stop", log.Error(err))
		}
	}()
	if err = app.Feed.Watch(engine.ID()); err != nil {
		return err
	}

	if spec.Step <= 0 {
		spec.Step = race.DefaultRunnerConfig().Step
	}
	rec := replay.NewRecorder(engine.Seed(), engine.Track(), engine.Roster(), engine.Balance(), spec.Step, nil)
	sub, err := app.Bus.SubscribeTopic(engine.ID(), race.EventFrame, rec.Handler())
	if err != nil {
		return err
	}
	defer func() { _ = sub.Cancel() }()

	runner, err := race.NewRunner(engine, app.Bus, race.RunnerConfig{Step: spec.Step, MaxCatchUp: 30}, app.Logger)
	if err != nil {
		return err
	}
	app.Logger.Info("race live",
		log.String("race", engine.ID()),
		log.String("url", fmt.Sprintf("ws://%s%s?race=%s", app.Feed.Addr(), app.Feed.Path(), engine.ID())))

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	last := time.Now()
	for !engine.IsFinished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err = runner.Advance(now.Sub(last).Seconds()); err != nil {
				return err
			}
			last = now
		}
	}
	if runner.Dropped() > 0 {
		app.Logger.Warn("live race fell behind", log.Int("dropped_steps", runner.Dropped()))
	}

	printResults(engine.Results())
	if replayOut != "" {
		return writeReplay(replayOut, rec.Replay())
	}
	return nil
}

func verify(ctx context.Context, app *injector.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	rep, err := replay.Read(f)
	if err != nil {
		return err
	}
	if err = replay.Verify(ctx, rep, app.Simulator.Backend()); err != nil {
		return err
	}
	fmt.Printf("replay ok: %d frames, seed %d\n", len(rep.Digests), rep.Seed)
	return nil
}

func writeReplay(path string, rep replay.Replay) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = replay.Write(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printResults(results []race.Result) {
	for _, r := range results {
		fmt.Printf("%d. %-10s %7.2fs\n", r.Place, r.Name, r.Time)
	}
}
