// Command bombkernel wires internal/config, internal/engine, and
// internal/scheduler into a runnable simulation (spec.md §6: "CLI (external
// collaborator, summarized): commands run, replay <file>, tournament
// <spec>; exit codes 0 success, 2 configuration error, 3 runtime error, 4
// determinism check failed"). Grounded on the teacher's cmd/server/main.go
// + internal/app.Run split: main stays a thin dispatcher, all wiring lives
// in this package's run/replay/tournament functions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bombkernel/internal/bot"
	"bombkernel/internal/config"
	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/pathfind"
	"bombkernel/internal/planner"
	"bombkernel/internal/replaystore"
	"bombkernel/internal/scheduler"
	"bombkernel/internal/state"
	"bombkernel/logging"
	"bombkernel/logging/gameplay"
	"bombkernel/logging/sinks"
)

const (
	exitSuccess       = 0
	exitConfigError   = 2
	exitRuntimeError  = 3
	exitDeterminism   = 4
)

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) < 1 {
		usage()
		return exitConfigError
	}
	switch args[0] {
	case "run":
		return cmdRun(args[1:])
	case "replay":
		return cmdReplay(args[1:])
	case "tournament":
		return cmdTournament(args[1:])
	default:
		usage()
		return exitConfigError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bombkernel run [-config path] [-ticks n] [-out replay.bin] [-parquet stats.parquet]")
	fmt.Fprintln(os.Stderr, "       bombkernel replay <file>")
	fmt.Fprintln(os.Stderr, "       bombkernel tournament <spec> [-games n]")
}

func newRouter() (*logging.Router, error) {
	cfg := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, cfg.Console)},
	}
	return logging.NewRouter(logging.ClockFunc(time.Now), cfg, namedSinks)
}

// buildGame constructs a fresh GameState, engine, loop, and scheduler from
// a loaded Config, spawning cfg.NumBots agents at the grid's corners and
// binding one planner-driven Bot to each. afterStep, if non-nil, is wired
// as the loop's AfterStep hook so a caller can mirror each tick into
// analytics export without the scheduler needing to know about it.
func buildGame(cfg config.Config, pub logging.Publisher, afterStep func(engine.LoopStepResult)) (*engine.Loop, *scheduler.Scheduler, error) {
	gs, err := state.NewGameState(int32(cfg.GridSize), cfg.RNGSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("bombkernel: build state: %w", err)
	}
	scatterCrates(gs)

	agentIDs := spawnAgents(gs, cfg)

	engineCfg := engine.Config{
		TickDurationMS:       cfg.TickDurationMS,
		BombDefaultPower:     int32(cfg.Bomb.DefaultPower),
		BombDefaultFuseTicks: int32(cfg.Bomb.DefaultFuseTicks),
		CatchupMaxTicks:      1,
		CommandCapacity:      64,
		DropPolicy:           engine.DropNewest,
	}
	e := engine.New(gs, engineCfg)
	loop := engine.NewLoop(e, engineCfg, engine.Hooks{AfterStep: afterStep}, pub)

	sched := scheduler.New(loop, scheduler.DefaultConfig(), pub)

	weights := planner.Weights(cfg.Planner.Weights)
	replan := planner.ReplanConfig{
		Hysteresis:   cfg.Planner.Hysteresis,
		DangerAlpha:  cfg.Influence.Alpha,
		DangerThresh: 0,
	}
	pfOpts := pathfind.Options{Alpha: cfg.Influence.Alpha}
	infCfg := influence.Config{Decay: cfg.Influence.Decay, MaxInfluence: cfg.Influence.Max}
	budget := bot.BudgetConfig{
		Median: time.Duration(cfg.Bot.DecisionBudgetMS) * time.Millisecond,
		Hard:   time.Duration(cfg.Bot.HardCapMS) * time.Millisecond,
	}
	for _, id := range agentIDs {
		b := bot.New(id, weights, replan, pfOpts, 5, infCfg, budget)
		sched.AddBot(b)
	}

	return loop, sched, nil
}

// scatterCrates lays soft crates over the interior tiles using the state's
// own seeded RNG, so the generated arena is reproducible from RNGSeed and
// is itself captured in the replay's initial_state_blob.
func scatterCrates(gs *state.GameState) {
	size := gs.Grid.Size()
	for y := int32(1); y < size-1; y++ {
		for x := int32(1); x < size-1; x++ {
			if gs.RNG.Intn(3) != 0 {
				continue
			}
			_ = gs.Grid.SetTile(grid.Position{X: x, Y: y}, grid.Tile{Kind: grid.TileSoftCrate})
		}
	}
}

// spawnAgents places one agent per corner of the grid, cycling through the
// four corners if NumBots exceeds four.
func spawnAgents(gs *state.GameState, cfg config.Config) []string {
	size := gs.Grid.Size()
	corners := []grid.Position{
		{X: 0, Y: 0},
		{X: size - 1, Y: 0},
		{X: 0, Y: size - 1},
		{X: size - 1, Y: size - 1},
	}
	ids := make([]string, 0, cfg.NumBots)
	for i := 0; i < int(cfg.NumBots); i++ {
		id := uuid.NewString()
		pos := corners[i%len(corners)]
		_ = gs.Grid.SetTile(pos, grid.Tile{Kind: grid.TileEmpty})
		_ = gs.AddAgent(state.AgentState{
			ID:             id,
			Position:       pos,
			MaxBombs:       1,
			BombsRemaining: 1,
			BlastPower:     int32(cfg.Bomb.DefaultPower),
			Speed:          1,
			Alive:          true,
		})
		ids = append(ids, id)
	}
	return ids
}

// aliveCount reports how many agents in the live state are still alive.
func aliveCount(e *engine.Engine) int {
	n := 0
	for _, a := range e.State().Agents {
		if a.Alive {
			n++
		}
	}
	return n
}

func cmdRun(args []string) int {
	fs := flagSetRun(args)
	configPath := fs.configPath
	maxTicks := fs.maxTicks
	replayOut := fs.replayOut
	parquetOut := fs.parquetOut

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("configuration error: %v", err)
		return exitConfigError
	}

	router, err := newRouter()
	if err != nil {
		log.Printf("failed to start logging router: %v", err)
		return exitRuntimeError
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = router.Close(closeCtx)
	}()

	var exporter *replaystore.Exporter
	if parquetOut != "" {
		exporter = replaystore.NewExporter(uuid.NewString())
	}

	var loopRef *engine.Loop
	afterStep := func(result engine.LoopStepResult) {
		if exporter == nil {
			return
		}
		snap := loopRef.Engine().State().PublishSnapshot()
		exporter.Append(result.StepResult, snap, nil)
	}

	loop, sched, err := buildGame(cfg, router, afterStep)
	if err != nil {
		log.Printf("runtime error: %v", err)
		return exitRuntimeError
	}
	loopRef = loop

	var rec *engine.Recorder
	if replayOut != "" {
		f, err := os.Create(replayOut)
		if err != nil {
			log.Printf("failed to create replay file: %v", err)
			return exitRuntimeError
		}
		defer f.Close()
		rec, err = engine.NewRecorder(f, loop.Engine().State(), true)
		if err != nil {
			log.Printf("failed to start replay recorder: %v", err)
			return exitRuntimeError
		}
		defer rec.Close()
		loop.WithRecorder(rec)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx, cfg.TickDurationMS)
	}()

	ticker := time.NewTicker(time.Duration(cfg.TickDurationMS) * time.Millisecond)
	defer ticker.Stop()

	var tick uint64
monitor:
	for {
		select {
		case sig := <-signals:
			log.Printf("received %s, shutting down", sig)
			break monitor
		case <-ticker.C:
			tick++
			if maxTicks > 0 && tick >= maxTicks {
				log.Printf("reached configured tick limit %d", maxTicks)
				break monitor
			}
			if aliveCount(loop.Engine()) <= 1 {
				log.Printf("game over at tick %d", tick)
				break monitor
			}
		}
	}

	cancel()
	<-done

	gameplay.GameEnded(ctx, router, loop.Engine().State().Tick, gameplay.GameEndedPayload{})

	if exporter != nil {
		if err := exporter.Flush(parquetOut); err != nil {
			log.Printf("failed to flush analytics export: %v", err)
			return exitRuntimeError
		}
	}
	return exitSuccess
}

func cmdReplay(args []string) int {
	if len(args) < 1 {
		usage()
		return exitConfigError
	}
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		log.Printf("runtime error: %v", err)
		return exitRuntimeError
	}
	defer f.Close()

	playback, err := engine.OpenPlayback(f)
	if err != nil {
		log.Printf("runtime error: %v", err)
		return exitRuntimeError
	}

	var n uint64
	for {
		_, err := playback.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if _, ok := err.(*engine.ErrDeterminismMismatch); ok {
				log.Printf("determinism check failed: %v", err)
				return exitDeterminism
			}
			log.Printf("runtime error: %v", err)
			return exitRuntimeError
		}
		n++
	}
	log.Printf("replay verified %d ticks", n)
	return exitSuccess
}

func cmdTournament(args []string) int {
	if len(args) < 1 {
		usage()
		return exitConfigError
	}
	configPath := args[0]
	games := 1
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "-games" {
			fmt.Sscanf(args[i+1], "%d", &games)
		}
	}

	for i := 0; i < games; i++ {
		runArgs := []string{"-config", configPath, "-parquet", fmt.Sprintf("game-%d.parquet", i)}
		if code := cmdRun(runArgs); code != exitSuccess {
			return code
		}
	}
	return exitSuccess
}

type runFlags struct {
	configPath string
	maxTicks   uint64
	replayOut  string
	parquetOut string
}

// flagSetRun hand-parses the run subcommand's flags in the same minimal
// style the teacher uses for its own env/flag overrides — no flag package
// indirection needed for four options.
func flagSetRun(args []string) runFlags {
	var f runFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config":
			if i+1 < len(args) {
				f.configPath = args[i+1]
				i++
			}
		case "-ticks":
			if i+1 < len(args) {
				fmt.Sscanf(args[i+1], "%d", &f.maxTicks)
				i++
			}
		case "-out":
			if i+1 < len(args) {
				f.replayOut = args[i+1]
				i++
			}
		case "-parquet":
			if i+1 < len(args) {
				f.parquetOut = args[i+1]
				i++
			}
		}
	}
	return f
}
