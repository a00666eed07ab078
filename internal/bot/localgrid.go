package bot

import (
	"bombkernel/internal/bombs"
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/state"
)

// buildLocalGrid materializes a bot-local *grid.Grid from a snapshot: tiles
// plus bomb/agent occupancy, neither of which a state.Snapshot exposes
// directly but which pathfind.Find and bombs.Silhouette both require. The
// grid is wholly owned by this Bot (spec.md §5: "Influence layers are
// per-bot-local... the path cache is per-bot"); it is never shared with the
// engine's live grid or with any other bot.
func buildLocalGrid(snap state.Snapshot) (*grid.Grid, error) {
	g, err := grid.New(snap.Size())
	if err != nil {
		return nil, err
	}
	size := snap.Size()
	for y := int32(0); y < size; y++ {
		for x := int32(0); x < size; x++ {
			p := grid.Position{X: x, Y: y}
			if err := g.SetTile(p, snap.Tile(p)); err != nil {
				return nil, err
			}
		}
	}
	for _, b := range snap.Bombs() {
		_ = g.PlaceBomb(b.Position, b.ID)
	}
	for _, a := range snap.Agents() {
		if !a.Alive {
			continue
		}
		g.MoveAgent(a.ID, grid.Position{}, false, a.Position)
	}
	return g, nil
}

// diamondRect returns the axis-aligned bounding box of a Manhattan-power
// diamond centered at p, the same footprint internal/influence propagates a
// bomb source across (spec.md §4.3).
func diamondRect(p grid.Position, power int32) influence.Rect {
	return influence.Rect{MinX: p.X - power, MinY: p.Y - power, MaxX: p.X + power, MaxY: p.Y + power}
}

func cellRect(p grid.Position) influence.Rect {
	return influence.Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

func boundingRect(cells []grid.Position) (influence.Rect, bool) {
	if len(cells) == 0 {
		return influence.Rect{}, false
	}
	r := cellRect(cells[0])
	for _, c := range cells[1:] {
		if c.X < r.MinX {
			r.MinX = c.X
		}
		if c.X > r.MaxX {
			r.MaxX = c.X
		}
		if c.Y < r.MinY {
			r.MinY = c.Y
		}
		if c.Y > r.MaxY {
			r.MaxY = c.Y
		}
	}
	return r, true
}

// scheduledBlasts projects every live bomb's silhouette onto a
// bombs.ScheduledBlast so bombs.SafeTiles can exclude tiles due to detonate
// soon — consumed by the Planner's FleeToSafe fallback (spec.md §4.5, §4.6).
func scheduledBlasts(g *grid.Grid, snap state.Snapshot) []bombs.ScheduledBlast {
	bombList := snap.Bombs()
	out := make([]bombs.ScheduledBlast, 0, len(bombList))
	for _, b := range bombList {
		out = append(out, bombs.ScheduledBlast{
			DetonatesWithinTicks: fuseAsTicks(b.FuseTicks),
			Silhouette:           bombs.Silhouette(g, b),
		})
	}
	return out
}

func fuseAsTicks(fuse int32) uint32 {
	if fuse < 0 {
		return 0
	}
	return uint32(fuse)
}
