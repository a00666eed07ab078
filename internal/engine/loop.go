package engine

import (
	"context"
	"time"

	"bombkernel/logging"
	"bombkernel/logging/simulation"
)

// WatchdogMultiple is how many tick budgets a single Step may consume
// before it is recorded as a slow tick (spec.md §4.7: "e.g., 2x budget").
const WatchdogMultiple = 2

// TickContext carries the scheduling metadata for one firing of the loop.
type TickContext struct {
	Tick uint64
	Now  time.Time
}

// Hooks lets the caller observe loop activity without the loop knowing
// about transport, UI, or telemetry concerns (spec.md §9: "do not leak
// scheduler details into component APIs").
type Hooks struct {
	AfterStep func(LoopStepResult)
}

// LoopStepResult is what Run hands to AfterStep after every tick.
type LoopStepResult struct {
	StepResult
	Duration     time.Duration
	Budget       time.Duration
	SlowTick     bool
	ClampedDelta bool
}

// Loop drives the fixed-timestep simulation with a command intake buffer,
// a watchdog for slow ticks, and optional replay recording. Grounded on the
// teacher's internal/sim.Loop (ticker-driven Run, Advance, command
// buffering, AfterStep hook).
type Loop struct {
	engine  *Engine
	buffer  *CommandBuffer
	hooks   Hooks
	cfg     Config
	pub     logging.Publisher
	rec     *Recorder
	streak  uint64
}

// NewLoop wraps an Engine with a command intake buffer and tick scheduler.
func NewLoop(e *Engine, cfg Config, hooks Hooks, pub logging.Publisher) *Loop {
	return &Loop{
		engine: e,
		buffer: NewCommandBuffer(cfg.CommandCapacity, cfg.DropPolicy),
		hooks:  hooks,
		cfg:    cfg,
		pub:    pub,
	}
}

// WithRecorder attaches a replay Recorder; every subsequent Advance is also
// appended to it.
func (l *Loop) WithRecorder(r *Recorder) *Loop {
	l.rec = r
	return l
}

// Engine returns the wrapped Engine, letting a caller (e.g. the scheduler)
// read the current state for an initial snapshot publication.
func (l *Loop) Engine() *Engine { return l.engine }

// Enqueue stages a command for the next tick it lands in.
func (l *Loop) Enqueue(cmd Command) bool {
	return l.buffer.Push(cmd)
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int { return l.buffer.Len() }

// Advance drains staged commands and executes exactly one tick.
func (l *Loop) Advance(ctx context.Context, tickCtx TickContext) LoopStepResult {
	budget := time.Duration(l.cfg.TickDurationMS) * time.Millisecond
	commands := l.buffer.Drain()

	start := time.Now()
	result := l.engine.Step(commands)
	duration := time.Since(start)

	slow := budget > 0 && duration > budget*WatchdogMultiple
	if slow {
		l.streak++
		l.reportSlowTick(ctx, tickCtx.Tick, duration, budget)
	} else {
		l.streak = 0
	}

	if l.rec != nil {
		l.rec.RecordCommands(commands)
		_ = l.rec.Append(result)
	}

	stepResult := LoopStepResult{
		StepResult: result,
		Duration:   duration,
		Budget:     budget,
		SlowTick:   slow,
	}
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(stepResult)
	}
	return stepResult
}

// Run drives the fixed-timestep loop until ctx is cancelled (spec.md §4.9:
// "cancellation is cooperative"). It never skips a tick even when Advance
// runs long (spec.md §4.7: "it never skips ticks silently") — the next
// tick simply starts immediately after the slow one finishes.
func (l *Loop) Run(ctx context.Context) {
	rate := l.cfg.TickDurationMS
	if rate == 0 {
		rate = DefaultConfig().TickDurationMS
	}
	ticker := time.NewTicker(time.Duration(rate) * time.Millisecond)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick++
			l.Advance(ctx, TickContext{Tick: tick, Now: now})
		}
	}
}

func (l *Loop) reportSlowTick(ctx context.Context, tick uint64, duration, budget time.Duration) {
	if l.pub == nil {
		return
	}
	ratio := float64(duration) / float64(budget)
	if l.streak >= 10 {
		simulation.TickBudgetAlarm(ctx, l.pub, tick, simulation.TickBudgetAlarmPayload{
			DurationMillis:  duration.Milliseconds(),
			BudgetMillis:    budget.Milliseconds(),
			Ratio:           ratio,
			Streak:          l.streak,
			ResyncScheduled: false,
			ThresholdRatio:  float64(WatchdogMultiple),
			ThresholdStreak: 10,
		}, nil)
		return
	}
	simulation.TickBudgetOverrun(ctx, l.pub, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: duration.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         l.streak,
	}, nil)
}
