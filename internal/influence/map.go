package influence

import (
	"sort"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// FuseTicksToWindow is the number of ticks a detonation's danger remains
// projected forward once the blast lands (spec.md §4.3: "a window of W
// ticks"); kept small since the blast itself clears the tile the following
// tick.
const FuseTicksToWindow uint32 = 2

// Map bundles the Danger and Opportunity layers and synchronizes both from
// a snapshot in one pass, sharing the dirty-rectangle bookkeeping.
type Map struct {
	Danger      *Layer
	Opportunity *Layer
}

// NewMap constructs a Map sized to the grid with the given layer config.
func NewMap(size int32, cfg Config) *Map {
	return &Map{
		Danger:      NewLayer(size, cfg),
		Opportunity: NewLayer(size, cfg),
	}
}

// MarkDirty records a rectangle as needing recomputation on both layers.
func (m *Map) MarkDirty(r Rect) {
	m.Danger.MarkDirty(r)
	m.Opportunity.MarkDirty(r)
}

// Sync recomputes all cells within the accumulated dirty rectangles of the
// Danger layer using effectiveBombDetonationTicks (which resolves chain
// reactions, since a bomb triggered early by a neighboring blast is
// dangerous sooner than its own fuse implies), and recomputes Opportunity
// from every power-up and soft crate in the snapshot (crates are not
// filtered by reachability). When neither layer has a dirty rectangle, Sync
// returns without changing anything; otherwise both dirty sets are cleared
// and both layers' versions are set to snapshot.Version().
func (m *Map) Sync(snap state.Snapshot, g *grid.Grid) {
	dangerDirty := m.Danger.takeDirty()
	oppDirty := m.Opportunity.takeDirty()
	if len(dangerDirty) == 0 && len(oppDirty) == 0 {
		return
	}

	sources := bombSourcesFromSnapshot(snap)
	oppSources := opportunitySourcesFromSnapshot(snap)

	full := Rect{MinX: 0, MinY: 0, MaxX: snap.Size() - 1, MaxY: snap.Size() - 1}
	for _, r := range dangerDirty {
		r = clampRect(r, full)
		m.Danger.RecomputeRect(g, r, sources)
	}
	for _, r := range oppDirty {
		r = clampRect(r, full)
		m.Opportunity.RecomputeRectOpportunity(g, r, oppSources)
	}
	m.Danger.version = snap.Version()
	m.Opportunity.version = snap.Version()
}

func clampRect(r, bounds Rect) Rect {
	return Rect{
		MinX: max32(r.MinX, bounds.MinX),
		MinY: max32(r.MinY, bounds.MinY),
		MaxX: min32(r.MaxX, bounds.MaxX),
		MaxY: min32(r.MaxY, bounds.MaxY),
	}
}

// bombSourcesFromSnapshot builds the propagation sources for the Danger
// layer, resolving chain-reaction closure so a bomb chained by an earlier
// neighbor's blast reports its *effective* detonation tick rather than its
// own fuse (grounded on
// other_examples/ceyewan-Bombman__danger_field.go's "propagate until
// stable" loop; see internal/bombs for the authoritative version of this
// same closure used to actually apply damage).
func bombSourcesFromSnapshot(snap state.Snapshot) []BombSource {
	list := snap.Bombs()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	bombs := make(map[string]state.Bomb, len(list))
	ids := make([]string, 0, len(list))
	for _, b := range list {
		bombs[b.ID] = b
		ids = append(ids, b.ID)
	}

	effective := make(map[string]uint64, len(bombs))
	for _, id := range ids {
		effective[id] = snap.Tick() + uint64(bombs[id].FuseTicks)
	}

	changed := true
	for changed {
		changed = false
		for _, id := range ids {
			b := bombs[id]
			reach := int32(b.Power)
			for _, other := range ids {
				if other == id {
					continue
				}
				ob := bombs[other]
				d := b.Position.Manhattan(ob.Position)
				if d <= reach && effective[id] < effective[other] {
					effective[other] = effective[id]
					changed = true
				}
			}
		}
	}

	out := make([]BombSource, 0, len(bombs))
	for _, id := range ids {
		b := bombs[id]
		out = append(out, BombSource{
			Position:     b.Position,
			Power:        b.Power,
			DetonateTick: effective[id],
			WindowTicks:  FuseTicksToWindow,
		})
	}
	return out
}

func opportunitySourcesFromSnapshot(snap state.Snapshot) []OpportunitySource {
	var out []OpportunitySource
	size := snap.Size()
	for y := int32(0); y < size; y++ {
		for x := int32(0); x < size; x++ {
			p := grid.Position{X: x, Y: y}
			t := snap.Tile(p)
			switch t.Kind {
			case grid.TilePowerUp:
				out = append(out, OpportunitySource{Position: p, Strength: 3})
			case grid.TileSoftCrate:
				out = append(out, OpportunitySource{Position: p, Strength: 1})
			}
		}
	}
	return out
}
