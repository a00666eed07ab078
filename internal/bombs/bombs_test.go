package bombs

import (
	"testing"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

func newGrid(t *testing.T, size int32) *grid.Grid {
	t.Helper()
	g, err := grid.New(size)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

// TestSilhouetteClearsCrateAtTick3 covers the S2 scenario: a 5x5 grid with a
// soft crate at (2,2); a bomb placed at (2,1), power=2, hits the crate along
// its south arm.
func TestSilhouetteClearsCrateAtTick3(t *testing.T) {
	g := newGrid(t, 5)
	crate := grid.Position{X: 2, Y: 2}
	if err := g.SetTile(crate, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}

	bomb := state.Bomb{ID: "bomb-1", Owner: "bot-1", Position: grid.Position{X: 2, Y: 1}, Power: 2}
	cells := Silhouette(g, bomb)

	if !contains(cells, crate) {
		t.Fatalf("expected the crate at %v to be in the blast silhouette", crate)
	}
	if !contains(cells, bomb.Position) {
		t.Fatalf("expected the bomb's own tile to be in its silhouette")
	}
}

// TestSilhouetteHaltsAtIndestructibleWall ensures a wall stops a blast arm
// before it, never including the wall's own cell.
func TestSilhouetteHaltsAtIndestructibleWall(t *testing.T) {
	g := newGrid(t, 5)
	wall := grid.Position{X: 3, Y: 1}
	if err := g.SetTile(wall, grid.Tile{Kind: grid.TileIndestructibleWall}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	bomb := state.Bomb{ID: "bomb-1", Position: grid.Position{X: 1, Y: 1}, Power: 5}
	cells := Silhouette(g, bomb)

	if contains(cells, wall) {
		t.Fatalf("expected the wall tile itself to never be in the silhouette")
	}
	beyond := grid.Position{X: 4, Y: 1}
	if contains(cells, beyond) {
		t.Fatalf("expected the wall to stop the blast arm before %v", beyond)
	}
}

// TestSilhouettePiercingPassesThroughCrate verifies a piercing bomb's blast
// continues past a soft crate instead of halting.
func TestSilhouettePiercingPassesThroughCrate(t *testing.T) {
	g := newGrid(t, 5)
	crate := grid.Position{X: 2, Y: 1}
	if err := g.SetTile(crate, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	bomb := state.Bomb{ID: "bomb-1", Position: grid.Position{X: 1, Y: 1}, Power: 3, Flags: state.BombPiercing}
	cells := Silhouette(g, bomb)

	beyond := grid.Position{X: 3, Y: 1}
	if !contains(cells, crate) {
		t.Fatalf("expected the crate itself to still be hit")
	}
	if !contains(cells, beyond) {
		t.Fatalf("expected a piercing bomb's blast to continue past the crate to %v", beyond)
	}
}

// TestResolveChainedDetonationSameTick covers the S3 scenario: a bomb at
// (1,1) power=3 whose fuse reaches zero chains a bomb at (1,3) that lies
// within its silhouette; both resolve in the same call with deterministic
// bomb_id ascending ordering.
func TestResolveChainedDetonationSameTick(t *testing.T) {
	g := newGrid(t, 5)
	trigger := state.Bomb{ID: "bomb-a", Position: grid.Position{X: 1, Y: 1}, Power: 3}
	chained := state.Bomb{ID: "bomb-b", Position: grid.Position{X: 1, Y: 3}, Power: 3}
	live := []state.Bomb{trigger, chained}

	outcome := Resolve(g, live, []string{"bomb-a"})

	if len(outcome.Detonations) != 2 {
		t.Fatalf("expected both bombs to detonate, got %d", len(outcome.Detonations))
	}
	if outcome.Detonations[0].BombID != "bomb-a" || outcome.Detonations[1].BombID != "bomb-b" {
		t.Fatalf("expected ascending bomb_id order, got %v then %v",
			outcome.Detonations[0].BombID, outcome.Detonations[1].BombID)
	}
	if outcome.Detonations[1].ChainedFrom != "bomb-a" {
		t.Fatalf("expected bomb-b to record bomb-a as its trigger, got %q", outcome.Detonations[1].ChainedFrom)
	}
}

// TestResolveOrderIndependentOfTriggerListOrder verifies the resolution
// order depends only on bomb_id, not on the order naturalTriggers is given
// in (spec.md §4.5's "order within a tick does not alter outcome").
func TestResolveOrderIndependentOfTriggerListOrder(t *testing.T) {
	g := newGrid(t, 7)
	a := state.Bomb{ID: "bomb-a", Position: grid.Position{X: 1, Y: 1}, Power: 1}
	b := state.Bomb{ID: "bomb-b", Position: grid.Position{X: 5, Y: 5}, Power: 1}
	live := []state.Bomb{a, b}

	forward := Resolve(g, live, []string{"bomb-a", "bomb-b"})
	reverse := Resolve(g, live, []string{"bomb-b", "bomb-a"})

	if len(forward.Detonations) != len(reverse.Detonations) {
		t.Fatalf("expected the same detonation count regardless of trigger order")
	}
	for i := range forward.Detonations {
		if forward.Detonations[i].BombID != reverse.Detonations[i].BombID {
			t.Fatalf("order %d: expected %q, got %q", i, forward.Detonations[i].BombID, reverse.Detonations[i].BombID)
		}
	}
}

// TestResolveAccumulatesDamageBeforeApplying verifies an agent caught in
// two overlapping blasts is counted once per blast, letting the caller
// apply a single death rather than double-processing (spec.md §4.5).
func TestResolveAccumulatesDamageBeforeApplying(t *testing.T) {
	g := newGrid(t, 5)
	victim := grid.Position{X: 2, Y: 2}
	g.MoveAgent("victim", grid.Position{}, false, victim)

	a := state.Bomb{ID: "bomb-a", Position: grid.Position{X: 0, Y: 2}, Power: 3}
	b := state.Bomb{ID: "bomb-b", Position: grid.Position{X: 2, Y: 0}, Power: 3}
	live := []state.Bomb{a, b}

	outcome := Resolve(g, live, []string{"bomb-a", "bomb-b"})
	if outcome.DamagedAgents["victim"] != 2 {
		t.Fatalf("expected victim to be counted once per overlapping blast, got %d", outcome.DamagedAgents["victim"])
	}
}

func TestSafeTilesExcludesScheduledBlast(t *testing.T) {
	g := newGrid(t, 5)
	start := grid.Position{X: 0, Y: 0}
	blastCell := grid.Position{X: 1, Y: 0}

	safe := SafeTiles(g, start, 3, []ScheduledBlast{
		{DetonatesWithinTicks: 2, Silhouette: []grid.Position{blastCell}},
	})

	if safe[blastCell] {
		t.Fatalf("expected %v to be excluded as unsafe", blastCell)
	}
	if !safe[start] {
		t.Fatalf("expected the starting tile to be safe")
	}
}

func TestSafeTilesIgnoresBlastBeyondHorizon(t *testing.T) {
	g := newGrid(t, 5)
	start := grid.Position{X: 0, Y: 0}
	farBlast := grid.Position{X: 1, Y: 0}

	safe := SafeTiles(g, start, 3, []ScheduledBlast{
		{DetonatesWithinTicks: 50, Silhouette: []grid.Position{farBlast}},
	})

	if !safe[farBlast] {
		t.Fatalf("expected a blast scheduled beyond the horizon not to exclude %v", farBlast)
	}
}
