package bombs

import (
	"sort"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Detonation is one bomb's resolved blast: the cells it hit and, if it was
// reached through the chain closure of another bomb, the id of that
// closure's root (the fuse- or remote-triggered bomb the closure started
// from, not necessarily the bomb whose blast touched it directly).
type Detonation struct {
	BombID      string
	Position    grid.Position
	Silhouette  []grid.Position
	ChainedFrom string
}

// Outcome is the accumulated result of resolving every bomb that detonates
// in one tick: the full ordered detonation sequence plus the union of
// effects, accumulated before any damage is applied (spec.md §4.5: "effects
// are accumulated before applying damage so that order within a tick does
// not alter outcome").
type Outcome struct {
	Detonations    []Detonation
	DestroyedCrate []grid.Position // soft crates hit by any blast, deduplicated
	DamagedAgents  map[string]int32 // agentID -> number of distinct blasts that hit it
}

// Resolve computes the full chain-reaction closure for the bombs whose fuse
// reached zero this tick (naturalTriggers, by id) plus every bomb
// transitively reachable through the chain graph, in deterministic
// (tick, bomb_id) ascending order. All bombs resolve at the same `tick`;
// ordering among them is by bomb_id ascending, per spec.md §4.5.
func Resolve(g *grid.Grid, liveBombs []state.Bomb, naturalTriggers []string) Outcome {
	graph := BuildGraph(g, liveBombs)

	triggeredBy := make(map[string]string) // bombID -> id of the bomb that chained it, "" if natural
	order := make([]string, 0, len(liveBombs))
	seen := make(map[string]bool)

	sortedTriggers := append([]string(nil), naturalTriggers...)
	sort.Strings(sortedTriggers)

	for _, root := range sortedTriggers {
		if seen[root] {
			continue
		}
		closure := graph.Triggered(root)
		for i, id := range closure {
			if seen[id] {
				continue
			}
			seen[id] = true
			order = append(order, id)
			if i == 0 {
				triggeredBy[id] = ""
			} else {
				triggeredBy[id] = root
			}
		}
	}
	sort.Strings(order)

	out := Outcome{
		DamagedAgents: make(map[string]int32),
	}
	crateSet := make(map[grid.Position]bool)

	for _, id := range order {
		bomb := graph.bombs[id]
		cells := graph.Silhouette(id)
		out.Detonations = append(out.Detonations, Detonation{
			BombID:      id,
			Position:    bomb.Position,
			Silhouette:  cells,
			ChainedFrom: triggeredBy[id],
		})
		for _, p := range cells {
			tile := g.Tile(p)
			if tile.Kind == grid.TileSoftCrate {
				crateSet[p] = true
			}
			for _, agentID := range g.AgentsAt(p) {
				out.DamagedAgents[agentID]++
			}
		}
	}

	for p := range crateSet {
		out.DestroyedCrate = append(out.DestroyedCrate, p)
	}
	sort.Slice(out.DestroyedCrate, func(i, j int) bool {
		if out.DestroyedCrate[i].Y != out.DestroyedCrate[j].Y {
			return out.DestroyedCrate[i].Y < out.DestroyedCrate[j].Y
		}
		return out.DestroyedCrate[i].X < out.DestroyedCrate[j].X
	})

	return out
}
