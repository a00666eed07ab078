package planner

import (
	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Generator produces zero or more candidate goals for an agent from the
// current snapshot. Pluggable per spec.md §4.6's "pluggable generators".
type Generator func(snap state.Snapshot, agentID string) []Candidate

// NearestCrate proposes the nearest walkable tile adjacent to a soft crate —
// a staging position within blast range, not the crate tile itself, since a
// crate is never Walkable() and the pathfinder rejects a non-walkable goal
// outright (FailureInvalidGoal). Arrival at Target is the bot kernel's cue
// to place a bomb rather than to step any further.
func NearestCrate(snap state.Snapshot, agentID string) []Candidate {
	agent, ok := snap.Agent(agentID)
	if !ok {
		return nil
	}
	size := snap.Size()
	var best *Candidate
	var bestDist int32 = -1
	for y := int32(0); y < size; y++ {
		for x := int32(0); x < size; x++ {
			p := grid.Position{X: x, Y: y}
			if snap.Tile(p).Kind != grid.TileSoftCrate {
				continue
			}
			for _, dir := range grid.Directions {
				dx, dy := dir.Delta()
				adj := p.Add(dx, dy)
				if adj.X < 0 || adj.Y < 0 || adj.X >= size || adj.Y >= size {
					continue
				}
				if !snap.Tile(adj).Walkable() {
					continue
				}
				d := agent.Position.Manhattan(adj)
				if bestDist < 0 || d < bestDist {
					bestDist = d
					c := Candidate{Kind: KindNearestCrate, Target: adj, Reward: 1}
					best = &c
				}
			}
		}
	}
	if best == nil {
		return nil
	}
	return []Candidate{*best}
}

// NearestPowerUp proposes the nearest visible power-up tile.
func NearestPowerUp(snap state.Snapshot, agentID string) []Candidate {
	agent, ok := snap.Agent(agentID)
	if !ok {
		return nil
	}
	var best *Candidate
	var bestDist int32 = -1
	for y := int32(0); y < snap.Size(); y++ {
		for x := int32(0); x < snap.Size(); x++ {
			p := grid.Position{X: x, Y: y}
			if snap.Tile(p).Kind != grid.TilePowerUp {
				continue
			}
			d := agent.Position.Manhattan(p)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				c := Candidate{Kind: KindNearestPowerUp, Target: p, Reward: 3}
				best = &c
			}
		}
	}
	if best == nil {
		return nil
	}
	return []Candidate{*best}
}

// AttackWeakest proposes closing the distance on the living enemy with the
// lowest blast power (a rough proxy for "weakest").
func AttackWeakest(snap state.Snapshot, agentID string) []Candidate {
	agent, ok := snap.Agent(agentID)
	if !ok {
		return nil
	}
	var weakest *state.AgentState
	for _, other := range snap.Agents() {
		other := other
		if other.ID == agentID || !other.Alive {
			continue
		}
		if weakest == nil || other.BlastPower < weakest.BlastPower {
			weakest = &other
		}
	}
	if weakest == nil {
		return nil
	}
	_ = agent
	return []Candidate{{Kind: KindAttackWeakest, Target: weakest.Position, Reward: 2}}
}

// FleeToSafe is the safety fallback: propose the nearest tile reported safe
// by the bomb analyzer's safe_tiles BFS.
func FleeToSafe(safeTiles map[grid.Position]bool, from grid.Position) []Candidate {
	var best *grid.Position
	var bestDist int32 = -1
	for p, ok := range safeTiles {
		if !ok {
			continue
		}
		d := from.Manhattan(p)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			pp := p
			best = &pp
		}
	}
	if best == nil {
		return nil
	}
	return []Candidate{{Kind: KindFleeToSafe, Target: *best, Reward: 0}}
}

// Idle proposes staying in place — the fallback of last resort.
func Idle(at grid.Position) []Candidate {
	return []Candidate{{Kind: KindIdle, Target: at, Reward: 0}}
}
