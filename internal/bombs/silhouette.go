// Package bombs resolves the directed bomb chain-reaction graph and the
// cells a detonation affects (spec.md §4.5, component C5). Grounded on
// other_examples/ceyewan-Bombman__danger_field.go's propagate-until-stable
// chain closure, generalized from a per-frame danger recompute into the
// discrete detonation-order resolution the engine applies once per tick.
package bombs

import (
	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Silhouette returns the set of cells a bomb's blast affects: the bomb's own
// tile plus each of the four cardinal arms out to Power tiles, halting each
// arm at the first indestructible wall (exclusive), soft crate (inclusive),
// or agent (inclusive) unless the bomb carries piercing (spec.md §4.5).
func Silhouette(g *grid.Grid, bomb state.Bomb) []grid.Position {
	cells := []grid.Position{bomb.Position}
	piercing := bomb.Has(state.BombPiercing)

	for _, dir := range grid.Directions {
		dx, dy := dir.Delta()
		for dist := int32(1); dist <= bomb.Power; dist++ {
			p := grid.Position{X: bomb.Position.X + dx*dist, Y: bomb.Position.Y + dy*dist}
			if !g.InBounds(p) {
				break
			}
			tile := g.Tile(p)
			if tile.Kind == grid.TileIndestructibleWall {
				break
			}
			cells = append(cells, p)
			if tile.Kind == grid.TileSoftCrate && !piercing {
				break
			}
			if occupants := g.AgentsAt(p); len(occupants) > 0 && !piercing {
				break
			}
		}
	}
	return cells
}

func contains(cells []grid.Position, p grid.Position) bool {
	for _, c := range cells {
		if c == p {
			return true
		}
	}
	return false
}
