package influence

import (
	"math"
	"testing"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

func newEmptyGrid(t *testing.T, size int32) *grid.Grid {
	t.Helper()
	g, err := grid.New(size)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

// TestDangerRadiusMatchesPower checks the S6 scenario: a bomb of power 3 at
// the center of an 11x11 grid makes every cell within Manhattan distance <=3
// dangerous (the full diamond, not just the four arms), and leaves cells
// outside that diamond, such as the corners, untouched.
func TestDangerRadiusMatchesPower(t *testing.T) {
	g := newEmptyGrid(t, 11)
	center := grid.Position{X: 5, Y: 5}

	layer := NewLayer(11, Config{Decay: 0.8, MaxInfluence: 10})
	full := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	sources := []BombSource{{Position: center, Power: 3, DetonateTick: 100, WindowTicks: 2}}
	layer.RecomputeRect(g, full, sources)

	withinRadius := []grid.Position{
		{X: 5, Y: 5}, {X: 5, Y: 2}, {X: 5, Y: 8}, {X: 8, Y: 5}, {X: 2, Y: 5},
		{X: 6, Y: 6}, // diagonal-ish, Manhattan distance 2: a true diamond, not just the four arms
		{X: 7, Y: 6}, // Manhattan distance 3
	}
	for _, p := range withinRadius {
		if layer.Value(p) <= 0 {
			t.Fatalf("expected danger at %v, got 0", p)
		}
	}

	// A corner of the window lies outside the Manhattan diamond of radius 3.
	if v := layer.Value(grid.Position{X: 0, Y: 0}); v != 0 {
		t.Fatalf("expected no danger at untouched corner, got %v", v)
	}
	// Beyond the blast radius along an arm, no danger.
	if v := layer.Value(grid.Position{X: 5, Y: 1}); v != 0 {
		t.Fatalf("expected no danger beyond power, got %v", v)
	}
}

// TestDangerBlockedByWall verifies a wall spanning an entire column blocks
// all propagation past it (no route-around exists) and that the wall tiles
// themselves receive no danger (spec.md §4.3, §4.5).
func TestDangerBlockedByWall(t *testing.T) {
	g := newEmptyGrid(t, 7)
	bomb := grid.Position{X: 1, Y: 3}

	// A wall spanning the full column height leaves no detour around it.
	for y := int32(0); y < 7; y++ {
		if err := g.SetTile(grid.Position{X: 4, Y: y}, grid.Tile{Kind: grid.TileIndestructibleWall}); err != nil {
			t.Fatalf("SetTile: %v", err)
		}
	}

	layer := NewLayer(7, Config{Decay: 0.9, MaxInfluence: 10})
	full := Rect{MinX: 0, MinY: 0, MaxX: 6, MaxY: 6}
	sources := []BombSource{{Position: bomb, Power: 5, DetonateTick: 1, WindowTicks: 2}}
	layer.RecomputeRect(g, full, sources)

	if layer.Value(grid.Position{X: 4, Y: 3}) != 0 {
		t.Fatalf("expected no danger on the wall tile itself")
	}
	for y := int32(0); y < 7; y++ {
		if v := layer.Value(grid.Position{X: 5, Y: y}); v != 0 {
			t.Fatalf("expected the wall column to block all propagation past it, got %v at y=%d", v, y)
		}
	}
	if layer.Value(bomb) <= 0 {
		t.Fatalf("expected danger at the bomb's own tile")
	}
}

// TestDangerCrateAbsorbsButCountsOnce verifies a crate column registers
// danger on the crate cells but stops propagation beyond them.
func TestDangerCrateAbsorbsButCountsOnce(t *testing.T) {
	g := newEmptyGrid(t, 7)
	bomb := grid.Position{X: 1, Y: 3}

	for y := int32(0); y < 7; y++ {
		if err := g.SetTile(grid.Position{X: 3, Y: y}, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
			t.Fatalf("SetTile: %v", err)
		}
	}

	layer := NewLayer(7, Config{Decay: 0.9, MaxInfluence: 10})
	full := Rect{MinX: 0, MinY: 0, MaxX: 6, MaxY: 6}
	sources := []BombSource{{Position: bomb, Power: 5, DetonateTick: 1, WindowTicks: 2}}
	layer.RecomputeRect(g, full, sources)

	if layer.Value(grid.Position{X: 3, Y: 3}) <= 0 {
		t.Fatalf("expected danger to reach the crate tile directly in line")
	}
	for y := int32(0); y < 7; y++ {
		if v := layer.Value(grid.Position{X: 4, Y: y}); v != 0 {
			t.Fatalf("expected the crate column to absorb the blast past it, got %v at y=%d", v, y)
		}
	}
}

// TestProjectDangerWindow verifies ProjectDanger answers "is this cell
// dangerous at tick+k" using the stored earliest-tick/window without a
// recompute (spec.md §4.3).
func TestProjectDangerWindow(t *testing.T) {
	g := newEmptyGrid(t, 5)
	center := grid.Position{X: 2, Y: 2}

	layer := NewLayer(5, Config{Decay: 1, MaxInfluence: 10})
	full := Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4}
	sources := []BombSource{{Position: center, Power: 2, DetonateTick: 50, WindowTicks: 3}}
	layer.RecomputeRect(g, full, sources)

	if v := layer.ProjectDanger(center, 48, 1); v != 0 {
		t.Fatalf("expected no projected danger before detonation, got %v", v)
	}
	if v := layer.ProjectDanger(center, 50, 0); v <= 0 {
		t.Fatalf("expected projected danger at detonation tick, got %v", v)
	}
	if v := layer.ProjectDanger(center, 48, 2); v <= 0 {
		t.Fatalf("expected projected danger within the window, got %v", v)
	}
	if v := layer.ProjectDanger(center, 48, 10); v != 0 {
		t.Fatalf("expected no projected danger past the window, got %v", v)
	}
}

// TestIncrementalMatchesFullRecompute exercises the dirty-rectangle path:
// recomputing only the rect touched by a newly placed bomb must produce the
// same values as recomputing the entire grid, within the tolerance the spec
// allows for floating point propagation (1e-4).
func TestIncrementalMatchesFullRecompute(t *testing.T) {
	g := newEmptyGrid(t, 9)
	bombA := grid.Position{X: 2, Y: 2}
	bombB := grid.Position{X: 6, Y: 6}
	sources := []BombSource{
		{Position: bombA, Power: 2, DetonateTick: 10, WindowTicks: 2},
		{Position: bombB, Power: 2, DetonateTick: 10, WindowTicks: 2},
	}
	cfg := Config{Decay: 0.7, MaxInfluence: 10}
	full := Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}

	fullLayer := NewLayer(9, cfg)
	fullLayer.RecomputeRect(g, full, sources)

	incLayer := NewLayer(9, cfg)
	rectA := Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4}
	rectB := Rect{MinX: 4, MinY: 4, MaxX: 8, MaxY: 8}
	incLayer.RecomputeRect(g, rectA, sources)
	incLayer.RecomputeRect(g, rectB, sources)

	const epsilon = 1e-4
	for y := int32(0); y < 9; y++ {
		for x := int32(0); x < 9; x++ {
			p := grid.Position{X: x, Y: y}
			diff := math.Abs(float64(fullLayer.Value(p) - incLayer.Value(p)))
			if diff > epsilon {
				t.Fatalf("mismatch at %v: full=%v incremental=%v", p, fullLayer.Value(p), incLayer.Value(p))
			}
		}
	}
}

// TestMapSyncResolvesChainedDetonation checks that a bomb within another
// bomb's blast radius adopts the earlier effective detonation tick
// (chain-reaction closure), so its own Danger projection reflects being
// triggered early rather than its own fuse.
func TestMapSyncResolvesChainedDetonation(t *testing.T) {
	g := newEmptyGrid(t, 9)
	gs, err := state.NewGameState(9, 1)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	gs.Grid = g

	early := state.Bomb{ID: "bomb-a", Owner: "p1", Position: grid.Position{X: 2, Y: 2}, FuseTicks: 1, Power: 4}
	late := state.Bomb{ID: "bomb-b", Owner: "p1", Position: grid.Position{X: 2, Y: 5}, FuseTicks: 20, Power: 2}
	gs.Bombs[early.ID] = &early
	gs.Bombs[late.ID] = &late

	snap := gs.PublishSnapshot()
	sources := bombSourcesFromSnapshot(snap)

	var earlyEffective, lateEffective uint64
	for _, s := range sources {
		switch s.Position {
		case early.Position:
			earlyEffective = s.DetonateTick
		case late.Position:
			lateEffective = s.DetonateTick
		}
	}
	if lateEffective != earlyEffective {
		t.Fatalf("expected chained bomb to adopt the earlier detonation tick: early=%d late=%d", earlyEffective, lateEffective)
	}
}
