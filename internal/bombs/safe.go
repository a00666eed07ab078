package bombs

import "bombkernel/internal/grid"

// ScheduledBlast is one bomb's projected detonation, used by SafeTiles to
// exclude cells from the safe set regardless of the bomb's own position.
type ScheduledBlast struct {
	DetonatesWithinTicks uint32
	Silhouette           []grid.Position
}

// SafeTiles performs a BFS over tiles reachable from start in at most
// withinTicks 4-connected steps that are not in any scheduled blast
// silhouette whose detonation falls within that same horizon (spec.md
// §4.5).
func SafeTiles(g *grid.Grid, start grid.Position, withinTicks uint32, scheduled []ScheduledBlast) map[grid.Position]bool {
	danger := make(map[grid.Position]bool)
	for _, blast := range scheduled {
		if blast.DetonatesWithinTicks > withinTicks {
			continue
		}
		for _, p := range blast.Silhouette {
			danger[p] = true
		}
	}

	safe := make(map[grid.Position]bool)
	visited := map[grid.Position]bool{start: true}
	type frontierEntry struct {
		pos   grid.Position
		steps uint32
	}
	queue := []frontierEntry{{pos: start, steps: 0}}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if !danger[entry.pos] {
			safe[entry.pos] = true
		}
		if entry.steps >= withinTicks {
			continue
		}
		for _, dir := range grid.Directions {
			dx, dy := dir.Delta()
			next := entry.pos.Add(dx, dy)
			if visited[next] {
				continue
			}
			if !g.InBounds(next) || !g.Tile(next).Walkable() {
				continue
			}
			visited[next] = true
			queue = append(queue, frontierEntry{pos: next, steps: entry.steps + 1})
		}
	}
	return safe
}
