package state

import (
	"testing"

	"bombkernel/internal/grid"
	"pgregory.net/rapid"
)

func newTestGameState(t *testing.T, size int32) *GameState {
	t.Helper()
	s, err := NewGameState(size, 7)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return s
}

func TestApplyDeltaBatchEmptyBatchIsNoOp(t *testing.T) {
	s := newTestGameState(t, 4)
	before := s.HashState()
	beforeVersion := s.Version

	if err := s.ApplyDeltaBatch(nil); err != nil {
		t.Fatalf("ApplyDeltaBatch(nil): %v", err)
	}

	if s.Version != beforeVersion {
		t.Fatalf("expected version unchanged by empty batch, got %d -> %d", beforeVersion, s.Version)
	}
	if s.HashState() != before {
		t.Fatalf("expected hash unchanged by empty batch")
	}
}

func TestApplyDeltaBatchIncrementsVersionExactlyOnce(t *testing.T) {
	s := newTestGameState(t, 4)
	if err := s.AddAgent(AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	before := s.Version
	changes := []Change{
		{Kind: ChangeTileChanged, Payload: TileChangedPayload{Position: grid.Position{X: 1, Y: 1}, Tile: grid.Tile{Kind: grid.TileSoftCrate}}},
		{Kind: ChangeAgentMoved, Payload: AgentMovedPayload{AgentID: "a", From: grid.Position{X: 0, Y: 0}, HadFrom: true, To: grid.Position{X: 0, Y: 1}}},
		{Kind: ChangeTickCompleted, Payload: TickCompletedPayload{Tick: 1}},
	}
	if err := s.ApplyDeltaBatch(changes); err != nil {
		t.Fatalf("ApplyDeltaBatch: %v", err)
	}
	if s.Version != before+1 {
		t.Fatalf("expected version to increment exactly once, got %d -> %d", before, s.Version)
	}
}

// Invariant 3 (spec.md §8): apply_delta_batch is associative — splitting one
// batch into two sequential calls yields the same final state as applying it
// whole.
func TestApplyDeltaBatchAssociative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		split := rapid.IntRange(0, 4).Draw(rt, "split")

		build := func() *GameState {
			s, err := NewGameState(6, 42)
			if err != nil {
				rt.Fatalf("NewGameState: %v", err)
			}
			if err := s.AddAgent(AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true, MaxBombs: 2, BombsRemaining: 2}); err != nil {
				rt.Fatalf("AddAgent: %v", err)
			}
			return s
		}

		changes := []Change{
			{Kind: ChangeBombPlaced, Payload: BombPlacedPayload{Bomb: Bomb{ID: "bomb-1", Owner: "a", Position: grid.Position{X: 2, Y: 2}, FuseTicks: 3, Power: 2}}},
			{Kind: ChangeBombFuseSet, Payload: BombFuseSetPayload{BombID: "bomb-1", FuseTicks: 2}},
			{Kind: ChangeAgentMoved, Payload: AgentMovedPayload{AgentID: "a", From: grid.Position{X: 0, Y: 0}, HadFrom: true, To: grid.Position{X: 1, Y: 0}}},
			{Kind: ChangeTickCompleted, Payload: TickCompletedPayload{Tick: 1}},
		}
		if split > len(changes) {
			split = len(changes)
		}

		whole := build()
		if err := whole.ApplyDeltaBatch(changes); err != nil {
			rt.Fatalf("whole ApplyDeltaBatch: %v", err)
		}

		parted := build()
		if err := parted.ApplyDeltaBatch(changes[:split]); err != nil {
			rt.Fatalf("parted ApplyDeltaBatch (first half): %v", err)
		}
		if err := parted.ApplyDeltaBatch(changes[split:]); err != nil {
			rt.Fatalf("parted ApplyDeltaBatch (second half): %v", err)
		}

		if whole.HashState() != parted.HashState() {
			rt.Fatalf("split application diverged: whole=%#x parted=%#x", whole.HashState(), parted.HashState())
		}
		wantVersion := whole.Version
		if split > 0 && split < len(changes) {
			wantVersion++ // each non-empty batch advances the version once
		}
		if parted.Version != wantVersion {
			rt.Fatalf("expected one version increment per non-empty batch, got %d want %d", parted.Version, wantVersion)
		}
	})
}

func TestApplyDeltaBatchRejectsDuplicateBomb(t *testing.T) {
	s := newTestGameState(t, 4)
	bomb := Bomb{ID: "bomb-1", Position: grid.Position{X: 1, Y: 1}, FuseTicks: 3}
	if err := s.ApplyDeltaBatch([]Change{{Kind: ChangeBombPlaced, Payload: BombPlacedPayload{Bomb: bomb}}}); err != nil {
		t.Fatalf("first placement: %v", err)
	}
	err := s.ApplyDeltaBatch([]Change{{Kind: ChangeBombPlaced, Payload: BombPlacedPayload{Bomb: bomb}}})
	if err == nil {
		t.Fatalf("expected duplicate bomb placement to error")
	}
	var applyErr *ApplyError
	if !asApplyError(err, &applyErr) || applyErr.Kind != ErrDuplicateEntity {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
}

func TestApplyDeltaBatchRejectsMissingReferent(t *testing.T) {
	s := newTestGameState(t, 4)
	err := s.ApplyDeltaBatch([]Change{
		{Kind: ChangeAgentMoved, Payload: AgentMovedPayload{AgentID: "ghost", To: grid.Position{X: 1, Y: 1}}},
	})
	if err == nil {
		t.Fatalf("expected moving an unknown agent to error")
	}
	var applyErr *ApplyError
	if !asApplyError(err, &applyErr) || applyErr.Kind != ErrReferentMissing {
		t.Fatalf("expected ErrReferentMissing, got %v", err)
	}
}

func asApplyError(err error, target **ApplyError) bool {
	ae, ok := err.(*ApplyError)
	if !ok {
		return false
	}
	*target = ae
	return true
}

func TestBombPlacedAndExplodedAdjustOwnerCapacity(t *testing.T) {
	s := newTestGameState(t, 4)
	if err := s.AddAgent(AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true, MaxBombs: 1, BombsRemaining: 1}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	bomb := Bomb{ID: "bomb-1", Owner: "a", Position: grid.Position{X: 1, Y: 0}, FuseTicks: 1, Power: 1}
	if err := s.ApplyDeltaBatch([]Change{{Kind: ChangeBombPlaced, Payload: BombPlacedPayload{Bomb: bomb}}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := s.Agents["a"].BombsRemaining; got != 0 {
		t.Fatalf("expected BombsRemaining to drop to 0 after placement, got %d", got)
	}

	if err := s.ApplyDeltaBatch([]Change{{Kind: ChangeBombExploded, Payload: BombExplodedPayload{BombID: "bomb-1", Position: bomb.Position}}}); err != nil {
		t.Fatalf("explode: %v", err)
	}
	if got := s.Agents["a"].BombsRemaining; got != 1 {
		t.Fatalf("expected BombsRemaining restored to 1 after explosion, got %d", got)
	}
	if _, exists := s.Bombs["bomb-1"]; exists {
		t.Fatalf("expected exploded bomb removed from live set")
	}
}

func TestApplyPowerUpGrantsAbility(t *testing.T) {
	s := newTestGameState(t, 4)
	if err := s.AddAgent(AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := s.Grid.SetTile(grid.Position{X: 1, Y: 0}, grid.Tile{Kind: grid.TilePowerUp, PowerUp: grid.PowerUpKick}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	err := s.ApplyDeltaBatch([]Change{
		{Kind: ChangePowerUpCollected, Payload: PowerUpCollectedPayload{AgentID: "a", Kind: grid.PowerUpKick, At: grid.Position{X: 1, Y: 0}}},
	})
	if err != nil {
		t.Fatalf("ApplyDeltaBatch: %v", err)
	}
	if !s.Agents["a"].Has(AbilityKick) {
		t.Fatalf("expected agent to gain AbilityKick")
	}
	if tile := s.Grid.Tile(grid.Position{X: 1, Y: 0}); tile.Kind != grid.TileEmpty {
		t.Fatalf("expected collected power-up tile cleared, got kind %v", tile.Kind)
	}
}

// Invariant 2 (spec.md §8): a dead agent is removed from the grid's agent
// index, and a living agent never occupies an indestructible wall.
func TestAgentDiedRemovesFromGridIndex(t *testing.T) {
	s := newTestGameState(t, 4)
	pos := grid.Position{X: 2, Y: 2}
	if err := s.AddAgent(AgentState{ID: "a", Position: pos, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := s.ApplyDeltaBatch([]Change{{Kind: ChangeAgentDied, Payload: AgentDiedPayload{AgentID: "a"}}}); err != nil {
		t.Fatalf("ApplyDeltaBatch: %v", err)
	}
	if s.Agents["a"].Alive {
		t.Fatalf("expected agent marked dead")
	}
	for _, occupant := range s.Grid.AgentsAt(pos) {
		if occupant == "a" {
			t.Fatalf("expected dead agent removed from grid index at %v", pos)
		}
	}
}

// Round-trip property (spec.md §8): a snapshot taken before a batch is
// applied never observes the batch's effects (no tearing).
func TestSnapshotIsolatedFromSubsequentMutation(t *testing.T) {
	s := newTestGameState(t, 4)
	if err := s.AddAgent(AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	if err := s.ApplyDeltaBatch([]Change{
		{Kind: ChangeAgentMoved, Payload: AgentMovedPayload{AgentID: "a", From: grid.Position{X: 0, Y: 0}, HadFrom: true, To: grid.Position{X: 3, Y: 3}}},
	}); err != nil {
		t.Fatalf("ApplyDeltaBatch: %v", err)
	}

	snapAgent, ok := snap.Agent("a")
	if !ok {
		t.Fatalf("expected snapshot to retain agent a")
	}
	if snapAgent.Position != (grid.Position{X: 0, Y: 0}) {
		t.Fatalf("expected snapshot position frozen at (0,0), got %v", snapAgent.Position)
	}
	if live := s.Agents["a"].Position; live != (grid.Position{X: 3, Y: 3}) {
		t.Fatalf("expected live state to reflect the move, got %v", live)
	}
}
