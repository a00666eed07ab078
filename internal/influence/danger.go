package influence

import "bombkernel/internal/grid"

// BombSource describes one bomb's contribution to the Danger layer: a
// Manhattan-BFS propagation up to `Power` tiles, walls/soft-crates blocking
// (crates count once), detonating at `DetonateTick` with a danger window of
// `WindowTicks` ticks (spec.md §4.3).
type BombSource struct {
	Position     grid.Position
	Power        int32
	DetonateTick uint64
	WindowTicks  uint32
}

// Blocked reports whether the grid stops propagation at p (indestructible
// walls only; soft crates still receive the blast once and are handled by
// Absorbs, per spec.md §4.5).
func Blocked(g *grid.Grid, p grid.Position) bool {
	t := g.Tile(p)
	return t.Kind == grid.TileIndestructibleWall
}

// Absorbs reports whether p stops propagation *after* receiving influence
// (soft crates: "block but count once", spec.md §4.3).
func Absorbs(g *grid.Grid, p grid.Position) bool {
	return g.Tile(p).Kind == grid.TileSoftCrate
}

// RecomputeRect recomputes the Danger layer within rect from scratch using
// the provided bomb sources and the current grid, following spec.md §4.3's
// propagation formula: influence at distance d from a source of strength s
// with r=power is s*max(0, 1-d/(r+1))*decay^d, clamped to [0, max_influence].
// The +1 keeps the outermost ring (d == r) strictly positive, matching
// spec.md §8 scenario S6's "cells within Manhattan distance <= power have
// danger > 0" requirement.
// Cost is bounded by O(dirty_cells * average_power) since each source's BFS
// only explores within `rect` expanded by its own power.
//
// This is a genuine Manhattan-BFS flood (every cell within Manhattan
// distance <= power is reachable, not just the four cardinal arms): the
// Danger layer models broad threat perception for bot decision-making,
// distinct from blast_silhouette's exact straight-line blast geometry used
// by the authoritative C5 detonation resolution (spec.md §4.3 vs §4.5).
func (l *Layer) RecomputeRect(g *grid.Grid, rect Rect, sources []BombSource) {
	l.clearRect(rect)
	for _, src := range sources {
		l.propagateBombInRect(g, src, rect)
	}
}

func (l *Layer) propagateBombInRect(g *grid.Grid, src BombSource, rect Rect) {
	if src.Power <= 0 {
		return
	}
	floodBFS(g, src.Position, src.Power, func(p grid.Position, dist int32) {
		l.applyBombCell(p, src, dist, rect)
	})
}

// floodBFS walks outward from origin over 4-connected tiles up to maxDist,
// invoking visit(p, dist) for every in-bounds cell reached (including
// origin at dist 0). Indestructible walls are never visited and never
// expanded through; soft crates are visited (the blast still reaches the
// crate, spec.md §4.3: "soft crates block but count once") but are not
// expanded past.
func floodBFS(g *grid.Grid, origin grid.Position, maxDist int32, visit func(p grid.Position, dist int32)) {
	type entry struct {
		pos  grid.Position
		dist int32
	}
	visited := map[grid.Position]bool{origin: true}
	queue := []entry{{pos: origin, dist: 0}}

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		visit(e.pos, e.dist)
		if e.dist >= maxDist {
			continue
		}
		if Absorbs(g, e.pos) && e.dist > 0 {
			continue
		}
		for _, dir := range grid.Directions {
			dx, dy := dir.Delta()
			next := grid.Position{X: e.pos.X + dx, Y: e.pos.Y + dy}
			if visited[next] || !g.InBounds(next) {
				continue
			}
			if Blocked(g, next) {
				continue
			}
			visited[next] = true
			queue = append(queue, entry{pos: next, dist: e.dist + 1})
		}
	}
}

func (l *Layer) applyBombCell(p grid.Position, src BombSource, dist int32, rect Rect) {
	if !rect.contains(p) {
		return
	}
	value := bombInfluence(float32(src.Power), float32(dist), l.cfg.Decay)
	l.accumulate(p, value, src.DetonateTick, src.WindowTicks)
}

func bombInfluence(strength, distance, decay float32) float32 {
	if distance < 0 {
		return 0
	}
	// strength+1 keeps the outermost ring (distance == strength, the edge of
	// the BFS flood) strictly positive instead of falling to exactly zero;
	// distance never exceeds strength since floodBFS bounds its walk to
	// src.Power.
	falloff := float32(1)
	if strength > 0 {
		falloff = 1 - distance/(strength+1)
		if falloff < 0 {
			falloff = 0
		}
	}
	decayFactor := float32(1)
	for i := float32(0); i < distance; i++ {
		decayFactor *= decay
	}
	return strength * falloff * decayFactor
}
