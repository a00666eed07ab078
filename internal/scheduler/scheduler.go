package scheduler

import (
	"context"
	"sync"
	"time"

	botpkg "bombkernel/internal/bot"
	"bombkernel/internal/engine"
	"bombkernel/internal/state"
	"bombkernel/logging"
	"bombkernel/logging/simulation"
)

// Config tunes the scheduler's per-bot queues and fault tracking (spec.md
// §4.9, §7).
type Config struct {
	// BotQueueCapacity bounds each bot's outbound command queue (spec.md
	// §4.9: "capacity 1-4").
	BotQueueCapacity int
	// BotQueuePolicy selects which command is sacrificed when a bot's
	// queue is full.
	BotQueuePolicy engine.DropPolicy
	// FaultLimit is K: a bot is disqualified once it exceeds this many
	// faults within FaultWindowTicks (spec.md §7).
	FaultLimit int
	// FaultWindowTicks is W. Zero disables windowing (faults never expire).
	FaultWindowTicks uint64
	// ShutdownGrace bounds how long Shutdown waits for bot tasks to
	// observe cancellation before returning (spec.md §5: "the engine
	// waits up to a grace period then aborts outstanding tasks").
	ShutdownGrace time.Duration
}

// DefaultConfig returns conservative scheduler defaults.
func DefaultConfig() Config {
	return Config{
		BotQueueCapacity: 2,
		BotQueuePolicy:   engine.DropNewest,
		FaultLimit:       3,
		FaultWindowTicks: 150,
		ShutdownGrace:    200 * time.Millisecond,
	}
}

// botTask is the scheduler's bookkeeping for one bot task (spec.md §4.9:
// "per bot, one task runs the decision cycle").
type botTask struct {
	bot     *botpkg.Bot
	hardCap time.Duration
	queue   *engine.CommandBuffer
	faults  *faultWindow

	mu           sync.Mutex
	disqualified bool
}

func (t *botTask) isDisqualified() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disqualified
}

func (t *botTask) disqualify() {
	t.mu.Lock()
	t.disqualified = true
	t.mu.Unlock()
}

// Scheduler drives one engine task and N bot tasks: the engine task ticks
// the simulation and publishes snapshots to a broadcast slot; bot tasks
// consume the slot, run their decision cycle, and push commands back
// through their own bounded queue into the engine's single intake
// (grounded on the teacher's internal/sim.Loop ticker and
// internal/ai.world_spawner's per-actor goroutine).
type Scheduler struct {
	loop      *engine.Loop
	broadcast *SnapshotBroadcast
	cfg       Config
	pub       logging.Publisher

	mu   sync.Mutex
	bots []*botTask

	wg sync.WaitGroup
}

// New constructs a Scheduler around an already-configured Loop.
func New(loop *engine.Loop, cfg Config, pub logging.Publisher) *Scheduler {
	return &Scheduler{
		loop:      loop,
		broadcast: NewSnapshotBroadcast(),
		cfg:       cfg,
		pub:       pub,
	}
}

// AddBot registers a bot task. Must be called before Run.
func (s *Scheduler) AddBot(b *botpkg.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots = append(s.bots, &botTask{
		bot:     b,
		hardCap: b.HardCap(),
		queue:   engine.NewCommandBuffer(s.cfg.BotQueueCapacity, s.cfg.BotQueuePolicy),
		faults:  newFaultWindow(s.cfg.FaultLimit, s.cfg.FaultWindowTicks),
	})
}

// Run starts every bot task and drives the engine tick loop until ctx is
// cancelled, then waits up to Config.ShutdownGrace for bot tasks to exit
// (spec.md §4.9: "cancellation is cooperative... bots observe
// end-of-stream, flush telemetry, and exit").
func (s *Scheduler) Run(ctx context.Context, tickDurationMS uint16) {
	initial := s.loop.Engine().State().PublishSnapshot()
	s.broadcast.Publish(initial, nil)

	s.mu.Lock()
	bots := append([]*botTask(nil), s.bots...)
	s.mu.Unlock()

	for _, bt := range bots {
		s.wg.Add(1)
		go s.runBotTask(ctx, bt)
	}

	if tickDurationMS == 0 {
		tickDurationMS = engine.DefaultConfig().TickDurationMS
	}
	ticker := time.NewTicker(time.Duration(tickDurationMS) * time.Millisecond)
	defer ticker.Stop()

	var tick uint64
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			tick++
			s.advance(ctx, tick, now)
		}
	}

	s.broadcast.Close()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
	}
}

// advance drains every live bot's queued command into the engine intake
// and executes one tick, then republishes the resulting snapshot.
func (s *Scheduler) advance(ctx context.Context, tick uint64, now time.Time) {
	s.mu.Lock()
	bots := append([]*botTask(nil), s.bots...)
	s.mu.Unlock()

	for _, bt := range bots {
		if bt.isDisqualified() {
			continue
		}
		for _, cmd := range bt.queue.Drain() {
			s.loop.Enqueue(cmd)
		}
	}

	result := s.loop.Advance(ctx, engine.TickContext{Tick: tick, Now: now})
	delta := result.Delta
	snap := s.loop.Engine().State().PublishSnapshot()
	s.broadcast.Publish(snap, &delta)
}

// runBotTask is the per-bot goroutine body: wait for a new snapshot,
// decide (bounded by the bot's hard cap), push the resulting command,
// repeat until the broadcast closes or ctx is cancelled.
func (s *Scheduler) runBotTask(ctx context.Context, bt *botTask) {
	defer s.wg.Done()
	var lastVersion uint64
	for {
		snap, delta, version, ok := s.broadcast.Wait(ctx, lastVersion)
		if !ok {
			return
		}
		lastVersion = version

		if bt.isDisqualified() {
			continue
		}

		cmd, faulted := s.decideWithDeadline(ctx, bt, snap, delta)
		if faulted {
			if bt.faults.record(snap.Tick()) {
				bt.disqualify()
				s.reportDisqualified(ctx, bt, snap.Tick())
				continue
			}
		}
		bt.queue.Push(cmd)
	}
}

// decideWithDeadline runs one decision cycle off-goroutine so a bot that
// blows past its hard cap never stalls the scheduler: if the cycle hasn't
// returned by the hard deadline, the scheduler substitutes Wait for that
// tick and reports a fault (spec.md §7: "decision timeout... -> bot enters
// degraded mode (emits Wait)"). This is distinct from an ordinary overrun
// the bot kernel itself measures and merely reports (spec.md §4.8: "budget
// overruns are not fatal"); the scheduler's deadline is a backstop for the
// case where the decision cycle does not return in time at all, not the
// common path.
func (s *Scheduler) decideWithDeadline(ctx context.Context, bt *botTask, snap state.Snapshot, delta *state.Delta) (engine.Command, bool) {
	type outcome struct {
		cmd    engine.Command
		report botpkg.Report
	}
	ch := make(chan outcome, 1)
	go func() {
		cmd, report := bt.bot.Decide(ctx, snap, delta)
		ch <- outcome{cmd, report}
	}()

	wait := bt.hardCap
	if wait <= 0 {
		wait = botpkg.DefaultBudget().Hard
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case o := <-ch:
		return o.cmd, o.report.Degraded
	case <-timer.C:
		return engine.Command{AgentID: bt.bot.AgentID(), Action: engine.Action{Kind: engine.ActionWait}, OriginTick: snap.Tick()}, true
	case <-ctx.Done():
		return engine.Command{AgentID: bt.bot.AgentID(), Action: engine.Action{Kind: engine.ActionWait}, OriginTick: snap.Tick()}, false
	}
}

func (s *Scheduler) reportDisqualified(ctx context.Context, bt *botTask, tick uint64) {
	if s.pub == nil {
		return
	}
	simulation.BotDisqualified(ctx, s.pub, tick, simulation.BotDisqualifiedPayload{
		Faults:        bt.faults.count(),
		WindowTicks:   s.cfg.FaultWindowTicks,
		LastFaultTick: tick,
	}, map[string]any{"agentId": bt.bot.AgentID()})
}
