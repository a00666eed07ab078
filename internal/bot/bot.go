package bot

import (
	"context"
	"time"

	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/pathfind"
	"bombkernel/internal/planner"
	"bombkernel/internal/state"
	"bombkernel/logging"
	"bombkernel/logging/simulation"
)

// Generators is the default pluggable candidate set competing for the
// active goal (spec.md §4.6). FleeToSafe and Idle are the Planner's own
// built-in fallbacks and never need to be listed here.
var Generators = []planner.Generator{planner.NearestCrate, planner.NearestPowerUp, planner.AttackWeakest}

// Report summarizes one Decide call for telemetry and tests.
type Report struct {
	AgentID    string
	Tick       uint64
	GoalKind   planner.Kind
	UsedPolicy bool
	Degraded   bool
	Elapsed    time.Duration
}

// Bot runs one agent's decision cycle (spec.md §4.8, component C8). It never
// mutates shared state — Decide only ever returns the single Command for
// the caller (C9) to enqueue into the engine's command intake. Grounded on
// the teacher's internal/ai.Run per-actor cadence/decision loop, generalized
// from a compiled behavior-tree to this repo's goal/planner model.
type Bot struct {
	agentID string

	budget BudgetConfig
	pub    logging.Publisher
	policy Policy
	now    func() time.Time

	planner    *planner.Planner
	pfOpts     pathfind.Options
	safeWithin uint32

	view *localView
}

// Option configures a Bot at construction time.
type Option func(*Bot)

// WithPolicy installs an external policy hook, replacing goal generation and
// planning with a single policy.Act(observation) call (spec.md §4.8).
func WithPolicy(p Policy) Option { return func(b *Bot) { b.policy = p } }

// WithPublisher attaches a telemetry sink for budget-overrun diagnostics.
func WithPublisher(pub logging.Publisher) Option { return func(b *Bot) { b.pub = pub } }

// WithClock overrides the wall clock; tests use this to produce
// deterministic Degraded reports without a real sleep.
func WithClock(now func() time.Time) Option { return func(b *Bot) { b.now = now } }

// New constructs a Bot for agentID with the given scoring/replan tuning,
// pathfinding options, flee-search horizon (in ticks), influence decay
// config, and wall-clock budget.
func New(agentID string, weights planner.Weights, replan planner.ReplanConfig, pfOpts pathfind.Options, safeWithin uint32, infCfg influence.Config, budget BudgetConfig, opts ...Option) *Bot {
	b := &Bot{
		agentID:    agentID,
		budget:     budget,
		now:        time.Now,
		planner:    planner.New(weights, replan, pfOpts),
		pfOpts:     pfOpts,
		safeWithin: safeWithin,
		view:       newLocalView(infCfg),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AgentID returns the bound agent id.
func (b *Bot) AgentID() string { return b.agentID }

// HardCap returns the configured hard wall-clock cap for one decision
// cycle, letting a caller (e.g. the scheduler) enforce it externally as a
// deadline rather than only measuring it after the fact.
func (b *Bot) HardCap() time.Duration { return b.budget.Hard }

// Decide runs one full decision cycle (spec.md §4.8 steps 1-5): update the
// local view from delta, consult the policy hook or the planner, and emit
// at most one Command. delta is the change set that produced snap; pass nil
// on the bot's first call or after a gap in delivery (the view then falls
// back to a full rebuild from snap alone).
func (b *Bot) Decide(ctx context.Context, snap state.Snapshot, delta *state.Delta) (engine.Command, Report) {
	start := b.now()
	report := Report{AgentID: b.agentID, Tick: snap.Tick()}

	agent, ok := snap.Agent(b.agentID)
	if !ok || !agent.Alive {
		return b.waitCommand(snap.Tick()), b.finish(report, start)
	}

	b.view.sync(snap, delta)

	var action engine.Action
	if b.policy != nil {
		report.UsedPolicy = true
		action = b.actFromPolicy(snap)
	} else {
		action = b.actFromPlanner(snap, agent)
		if goal := b.planner.Active(); goal != nil {
			report.GoalKind = goal.Kind
		}
	}

	return engine.Command{AgentID: b.agentID, Action: action, OriginTick: snap.Tick()}, b.finish(report, start)
}

func (b *Bot) finish(report Report, start time.Time) Report {
	report.Elapsed = b.now().Sub(start)
	report.Degraded = report.Elapsed > b.budget.Hard
	if report.Elapsed > b.budget.Median {
		b.reportOverrun(report)
	}
	return report
}

func (b *Bot) waitCommand(tick uint64) engine.Command {
	return engine.Command{AgentID: b.agentID, Action: engine.Action{Kind: engine.ActionWait}, OriginTick: tick}
}

func (b *Bot) actFromPolicy(snap state.Snapshot) engine.Action {
	danger := func(p grid.Position) float32 { return b.view.inf.Danger.Value(p) }
	opportunity := func(p grid.Position) float32 { return b.view.inf.Opportunity.Value(p) }
	observation := snap.ToObservation(b.agentID, danger, opportunity)
	action := b.policy.Act(observation)
	if !validAction(action, snap, b.agentID) {
		return engine.Action{Kind: engine.ActionWait}
	}
	return action
}

func (b *Bot) actFromPlanner(snap state.Snapshot, agent state.AgentState) engine.Action {
	danger := func(p grid.Position) float32 { return b.view.inf.Danger.Value(p) }
	scheduled := scheduledBlasts(b.view.grid, snap)
	next := b.planner.Decide(b.view.grid, snap, b.agentID, danger, Generators, b.safeWithin, scheduled)

	goal := b.planner.Active()
	arrived := next == agent.Position

	if arrived && goal != nil {
		switch goal.Kind {
		case planner.KindNearestCrate, planner.KindAttackWeakest:
			if agent.BombsRemaining > 0 {
				return engine.Action{Kind: engine.ActionPlaceBomb}
			}
		}
		return engine.Action{Kind: engine.ActionWait}
	}

	dir, ok := directionTo(agent.Position, next)
	if !ok {
		return engine.Action{Kind: engine.ActionWait}
	}
	return engine.Action{Kind: engine.ActionMove, Direction: dir}
}

func (b *Bot) reportOverrun(report Report) {
	if b.pub == nil {
		return
	}
	budget := b.budget.Median
	if report.Degraded {
		budget = b.budget.Hard
	}
	ratio := float64(report.Elapsed) / float64(budget)
	simulation.TickBudgetOverrun(context.Background(), b.pub, report.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: report.Elapsed.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          ratio,
	}, map[string]any{"agentId": b.agentID, "degraded": report.Degraded})
}

func directionTo(from, to grid.Position) (grid.Direction, bool) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	switch {
	case dx == 1 && dy == 0:
		return grid.East, true
	case dx == -1 && dy == 0:
		return grid.West, true
	case dx == 0 && dy == -1:
		return grid.North, true
	case dx == 0 && dy == 1:
		return grid.South, true
	default:
		return 0, false
	}
}

// validAction applies the same sanity checks the engine's command
// validation stage would (spec.md §4.8: "invalid actions map to Wait") —
// without depending on the engine's private apply logic, since the policy
// runs entirely outside the write phase.
func validAction(a engine.Action, snap state.Snapshot, agentID string) bool {
	agent, ok := snap.Agent(agentID)
	if !ok || !agent.Alive {
		return false
	}
	switch a.Kind {
	case engine.ActionWait:
		return true
	case engine.ActionMove:
		switch a.Direction {
		case grid.North, grid.South, grid.East, grid.West:
			return true
		default:
			return false
		}
	case engine.ActionPlaceBomb:
		return agent.BombsRemaining > 0
	case engine.ActionDetonateRemote:
		if a.BombID == "" {
			return false
		}
		bomb, ok := snap.Bomb(a.BombID)
		return ok && bomb.Owner == agentID && bomb.Has(state.BombRemoteDetonable)
	default:
		return false
	}
}
