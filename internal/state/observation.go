package state

import "bombkernel/internal/grid"

// ObservationSchemaVersion tags the fixed feature layout produced by
// ToObservation. Bump this, and only this, whenever the layout changes
// (spec.md §6): the vector shape is part of the external interface and must
// be stable within a version.
const ObservationSchemaVersion uint32 = 1

// ObservationWindow is the edge length of the agent-centered window sampled
// for the tile one-hot, bomb-timer, influence, and enemy-position channels
// (see DESIGN.md's Open Question decision on the observation layout).
const ObservationWindow = 11

const (
	tileClasses   = 5 // Empty, IndestructibleWall, SoftCrate, PowerUp, OutOfBounds
	inventoryLen  = 5 // bombs_remaining, max_bombs, blast_power, speed, abilities
	cellsPerChan  = ObservationWindow * ObservationWindow
)

// ObservationLength is the total length of the flat feature vector returned
// by ToObservation for the current schema version.
const ObservationLength = tileClasses*cellsPerChan + cellsPerChan /* bomb timers */ +
	2*cellsPerChan /* danger + opportunity */ + inventoryLen + cellsPerChan /* enemy one-hot */

// InfluenceSampler lets ToObservation pull danger and opportunity
// influence-layer values without internal/state depending on internal/influence (C1 is
// lower in the dependency order than C3 per spec.md §2's C1→C2→{C3,C5}
// ordering, so the sampling function is injected by the caller instead of
// imported).
type InfluenceSampler func(p grid.Position) float32

// ToObservation flattens a fixed-size feature vector for agentID: one-hot
// tile encoding over an ObservationWindow x ObservationWindow window centered
// on the agent, agent-relative bomb fuse timers, danger/opportunity
// influence samples, power-up inventory, and one-hot enemy positions
// (spec.md §4.1, §6).
func (s Snapshot) ToObservation(agentID string, danger, opportunity InfluenceSampler) []float32 {
	out := make([]float32, ObservationLength)
	agent, ok := s.Agent(agentID)
	if !ok {
		return out
	}

	half := ObservationWindow / 2
	idx := 0

	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			p := grid.Position{X: agent.Position.X + int32(dx), Y: agent.Position.Y + int32(dy)}
			class := tileClass(s, p)
			for c := 0; c < tileClasses; c++ {
				if c == class {
					out[idx+c] = 1
				}
			}
			idx += tileClasses
		}
	}

	timerBase := idx
	for i, b := range s.Bombs() {
		_ = i
		rel := relativeWindowIndex(agent.Position, b.Position, half)
		if rel >= 0 {
			out[timerBase+rel] = float32(b.FuseTicks)
		}
	}
	idx += cellsPerChan

	dangerBase := idx
	oppBase := idx + cellsPerChan
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			p := grid.Position{X: agent.Position.X + int32(dx), Y: agent.Position.Y + int32(dy)}
			rel := (dy + half) * ObservationWindow + (dx + half)
			if danger != nil {
				out[dangerBase+rel] = danger(p)
			}
			if opportunity != nil {
				out[oppBase+rel] = opportunity(p)
			}
		}
	}
	idx += 2 * cellsPerChan

	out[idx+0] = float32(agent.BombsRemaining)
	out[idx+1] = float32(agent.MaxBombs)
	out[idx+2] = float32(agent.BlastPower)
	out[idx+3] = float32(agent.Speed)
	out[idx+4] = float32(agent.Abilities)
	idx += inventoryLen

	enemyBase := idx
	for _, other := range s.Agents() {
		if other.ID == agentID || !other.Alive {
			continue
		}
		rel := relativeWindowIndex(agent.Position, other.Position, half)
		if rel >= 0 {
			out[enemyBase+rel] = 1
		}
	}

	return out
}

func relativeWindowIndex(center, target grid.Position, half int) int {
	dx := int(target.X - center.X)
	dy := int(target.Y - center.Y)
	if dx < -half || dx > half || dy < -half || dy > half {
		return -1
	}
	return (dy+half)*ObservationWindow + (dx + half)
}

func tileClass(s Snapshot, p grid.Position) int {
	if p.X < 0 || p.Y < 0 || p.X >= s.Size() || p.Y >= s.Size() {
		return 4 // out of bounds
	}
	t := s.Tile(p)
	switch t.Kind {
	case grid.TileEmpty:
		return 0
	case grid.TileIndestructibleWall:
		return 1
	case grid.TileSoftCrate:
		return 2
	case grid.TilePowerUp:
		return 3
	default:
		return 4
	}
}
