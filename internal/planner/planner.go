package planner

import (
	"bombkernel/internal/bombs"
	"bombkernel/internal/grid"
	"bombkernel/internal/pathfind"
	"bombkernel/internal/state"
)

// Planner holds at most one active Goal per agent (spec.md §4.6: "maintains
// at most one active goal with its current plan").
type Planner struct {
	weights  Weights
	replan   ReplanConfig
	pfOpts   pathfind.Options
	active   *Goal
}

// New constructs a Planner with the given scoring weights and replan
// configuration.
func New(weights Weights, replan ReplanConfig, pfOpts pathfind.Options) *Planner {
	return &Planner{weights: weights, replan: replan, pfOpts: pfOpts}
}

// Active returns the current goal, if any.
func (p *Planner) Active() *Goal { return p.active }

// Decide runs one decision cycle: it checks whether the active goal must be
// replanned or has completed, and if so selects (and plans) a new one,
// falling back through FleeToSafe then Idle if nothing else is achievable
// (spec.md §4.6). It returns the tile the agent should move toward next, or
// the agent's current position if it should stay (Idle / plan exhausted
// with no step remaining).
func (p *Planner) Decide(g *grid.Grid, snap state.Snapshot, agentID string, danger DangerSampler, generators []Generator, safeWithin uint32, scheduled []bombs.ScheduledBlast) grid.Position {
	agent, ok := snap.Agent(agentID)
	if !ok {
		return grid.Position{}
	}

	if p.active != nil {
		p.checkReplanTriggers(g, snap, agent.Position, danger)
	}

	if p.active == nil || p.active.Status == StatusAborted || p.active.Status == StatusCompleted {
		p.selectGoal(g, snap, agentID, agent.Position, danger, generators, safeWithin, scheduled)
	}

	if p.active == nil {
		return agent.Position
	}

	if p.active.Status == StatusPlanned {
		p.active.Status = StatusExecuting
	}

	if p.active.StepIdx >= len(p.active.Plan) {
		p.active.Status = StatusCompleted
		return agent.Position
	}

	next := p.active.Plan[p.active.StepIdx]
	if next == agent.Position {
		p.active.StepIdx++
		if p.active.StepIdx >= len(p.active.Plan) {
			p.active.Status = StatusCompleted
			return agent.Position
		}
		next = p.active.Plan[p.active.StepIdx]
	}
	return next
}

// checkReplanTriggers aborts the active goal when a tile on the remaining
// plan is no longer walkable or when the summed danger on the remaining
// path reaches DangerThresh, and marks it Completed when the plan is
// exhausted. It does not re-score alternative goals, so a better
// alternative never interrupts an active goal: Decide calls selectGoal only
// once the active goal is aborted or completed, and the hysteresis
// comparison in selectGoal does not come into play from Decide.
func (p *Planner) checkReplanTriggers(g *grid.Grid, snap state.Snapshot, from grid.Position, danger DangerSampler) {
	goal := p.active
	for i := goal.StepIdx; i < len(goal.Plan); i++ {
		if !g.Tile(goal.Plan[i]).Walkable() {
			goal.Status = StatusAborted
			return
		}
	}
	if goal.StepIdx >= len(goal.Plan) {
		goal.Status = StatusCompleted
		return
	}
	var pathDanger float32
	for i := goal.StepIdx; i < len(goal.Plan); i++ {
		pathDanger += danger(goal.Plan[i])
	}
	if p.replan.DangerThresh > 0 && pathDanger >= p.replan.DangerThresh {
		goal.Status = StatusAborted
		return
	}
}

func (p *Planner) selectGoal(g *grid.Grid, snap state.Snapshot, agentID string, from grid.Position, danger DangerSampler, generators []Generator, safeWithin uint32, scheduled []bombs.ScheduledBlast) {
	var candidates []Candidate
	for _, gen := range generators {
		candidates = append(candidates, gen(snap, agentID)...)
	}

	var best Scored
	found := false
	if len(candidates) > 0 {
		best, found = Best(g, from, candidates, danger, p.weights, 0, p.pfOpts)
	}

	if found && best.Candidate.Kind != "" && len(best.Path) > 0 && best.Score > -1e8 {
		if p.active != nil && p.active.Status != StatusAborted && p.active.Status != StatusCompleted {
			if best.Score <= p.active.Score*(1+p.replan.Hysteresis) {
				return // not a big enough improvement to interrupt the active goal
			}
		}
		p.active = &Goal{
			Kind:   best.Candidate.Kind,
			Target: best.Candidate.Target,
			Status: StatusPlanned,
			Plan:   best.Path,
			Score:  best.Score,
		}
		return
	}

	safe := bombs.SafeTiles(g, from, safeWithin, scheduled)
	fleeCandidates := FleeToSafe(safe, from)
	if len(fleeCandidates) > 0 {
		if fleeScored := scoreOne(g, from, fleeCandidates[0], danger, p.weights, p.pfOpts); len(fleeScored.Path) > 0 {
			p.active = &Goal{
				Kind:   KindFleeToSafe,
				Target: fleeScored.Candidate.Target,
				Status: StatusPlanned,
				Plan:   fleeScored.Path,
				Score:  fleeScored.Score,
			}
			return
		}
	}

	p.active = &Goal{
		Kind:   KindIdle,
		Target: from,
		Status: StatusPlanned,
		Plan:   []grid.Position{from},
		Score:  0,
	}
}

func scoreOne(g *grid.Grid, from grid.Position, c Candidate, danger DangerSampler, w Weights, pfOpts pathfind.Options) Scored {
	return Score(g, from, c, danger, w, 0, pfOpts)
}
