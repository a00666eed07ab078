package influence

import "bombkernel/internal/grid"

// OpportunitySource describes one reward source contributing to the
// Opportunity layer: a power-up or a soft crate, propagated with
// the same decay model as danger but without a time window (opportunities
// don't expire on a fuse).
type OpportunitySource struct {
	Position grid.Position
	Strength float32
}

// RecomputeRectOpportunity recomputes the Opportunity layer within rect from the given
// sources, using the same Manhattan-BFS flood as Danger (spec.md §4.3
// applies its propagation model to "each source" generally; Opportunity
// sources use the same decay/clamp shape for visual and behavioral
// consistency with Danger).
func (l *Layer) RecomputeRectOpportunity(g *grid.Grid, rect Rect, sources []OpportunitySource) {
	l.clearRect(rect)
	for _, src := range sources {
		l.propagateOpportunityInRect(g, src, rect)
	}
}

func (l *Layer) propagateOpportunityInRect(g *grid.Grid, src OpportunitySource, rect Rect) {
	if src.Strength <= 0 {
		return
	}
	radius := int32(src.Strength + 0.5)
	if radius < 1 {
		radius = 1
	}
	floodBFS(g, src.Position, radius, func(p grid.Position, dist int32) {
		l.applyOpportunityCell(p, src.Strength, dist, rect)
	})
}

func (l *Layer) applyOpportunityCell(p grid.Position, strength float32, dist int32, rect Rect) {
	if !rect.contains(p) {
		return
	}
	value := bombInfluence(strength, float32(dist), l.cfg.Decay)
	l.accumulate(p, value, 0, 0)
}
