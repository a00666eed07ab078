package engine

import (
	"bytes"
	"io"
	"testing"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

func newTestState(t *testing.T, size int32) *state.GameState {
	t.Helper()
	s, err := state.NewGameState(size, 0)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return s
}

// S2 (spec.md §8): a bomb placed next to a soft crate detonates on schedule,
// clears the crate, and leaves the owner alive once it has moved away.
func TestStepBombClearsCrateAndSparesDeparted(t *testing.T) {
	s := newTestState(t, 5)
	if err := s.Grid.SetTile(grid.Position{X: 2, Y: 2}, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 2, Y: 1}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	e := New(s, DefaultConfig())

	r1 := e.Step([]Command{{AgentID: "bot", Action: Action{Kind: ActionPlaceBomb}}})
	if !hasOutcomeApplied(r1.Outcomes, "bot") {
		t.Fatalf("expected bomb placement to be applied, outcomes=%+v", r1.Outcomes)
	}
	if len(s.Bombs) != 1 {
		t.Fatalf("expected one live bomb, got %d", len(s.Bombs))
	}

	r2 := e.Step([]Command{{AgentID: "bot", Action: Action{Kind: ActionMove, Direction: grid.West}}})
	if !hasOutcomeApplied(r2.Outcomes, "bot") {
		t.Fatalf("expected move to be applied, outcomes=%+v", r2.Outcomes)
	}

	r3 := e.Step(nil)
	if len(s.Bombs) != 0 {
		t.Fatalf("expected bomb to have detonated by tick 3, bombs=%v", s.Bombs)
	}
	if tile := s.Grid.Tile(grid.Position{X: 2, Y: 2}); tile.Kind != grid.TileEmpty {
		t.Fatalf("expected crate cleared, got tile kind %v", tile.Kind)
	}
	if agent := s.Agents["bot"]; !agent.Alive {
		t.Fatalf("expected departed agent to survive the blast")
	}

	sawExploded := false
	for _, c := range r3.Delta.Changes {
		if c.Kind == state.ChangeBombExploded {
			sawExploded = true
		}
	}
	if !sawExploded {
		t.Fatalf("expected a ChangeBombExploded entry in tick 3's delta")
	}
}

func hasOutcomeApplied(outcomes []CommandOutcome, agentID string) bool {
	for _, o := range outcomes {
		if o.Command.AgentID == agentID && o.Applied {
			return true
		}
	}
	return false
}

// S3 (spec.md §8): two bombs chain-detonate within the same tick, both
// carrying tick=2, ordered by bomb_id.
func TestStepChainDetonationSameTick(t *testing.T) {
	s := newTestState(t, 5)
	bombA := state.Bomb{ID: "a", Owner: "owner", Position: grid.Position{X: 1, Y: 1}, FuseTicks: 2, Power: 3}
	bombB := state.Bomb{ID: "b", Owner: "owner", Position: grid.Position{X: 1, Y: 3}, FuseTicks: 5, Power: 3}
	if err := s.AddAgent(state.AgentState{ID: "owner", Position: grid.Position{X: 0, Y: 0}, Alive: true, MaxBombs: 2}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := s.ApplyDeltaBatch([]state.Change{
		{Kind: state.ChangeBombPlaced, Payload: state.BombPlacedPayload{Bomb: bombA}},
		{Kind: state.ChangeBombPlaced, Payload: state.BombPlacedPayload{Bomb: bombB}},
	}); err != nil {
		t.Fatalf("seed ApplyDeltaBatch: %v", err)
	}

	e := New(s, DefaultConfig())
	e.Step(nil) // tick 1: fuses decrement to 1 and 4

	r := e.Step(nil) // tick 2: a's fuse hits 0, chains into b via the shared column

	if r.Tick != 2 {
		t.Fatalf("expected tick 2, got %d", r.Tick)
	}
	var exploded []state.BombExplodedPayload
	for _, c := range r.Delta.Changes {
		if c.Kind == state.ChangeBombExploded {
			exploded = append(exploded, c.Payload.(state.BombExplodedPayload))
		}
	}
	if len(exploded) != 2 {
		t.Fatalf("expected both bombs to detonate on tick 2, got %d", len(exploded))
	}
	if exploded[0].BombID != "a" || exploded[1].BombID != "b" {
		t.Fatalf("expected detonation order a, b by bomb_id; got %s, %s", exploded[0].BombID, exploded[1].BombID)
	}
	if exploded[1].ChainedFrom != "a" {
		t.Fatalf("expected b to be chained from a, got ChainedFrom=%q", exploded[1].ChainedFrom)
	}
	if len(s.Bombs) != 0 {
		t.Fatalf("expected no live bombs after chain resolution, got %d", len(s.Bombs))
	}
}

// Invariant 4 (spec.md §8): two independently constructed engines given the
// same initial state, seed, and per-tick command batches produce identical
// state_hash sequences.
func TestStepDeterministicAcrossIndependentRuns(t *testing.T) {
	build := func(t *testing.T) *Engine {
		t.Helper()
		s := newTestState(t, 6)
		if err := s.AddAgent(state.AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2}); err != nil {
			t.Fatalf("AddAgent: %v", err)
		}
		if err := s.AddAgent(state.AgentState{ID: "b", Position: grid.Position{X: 5, Y: 5}, Alive: true, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2}); err != nil {
			t.Fatalf("AddAgent: %v", err)
		}
		return New(s, DefaultConfig())
	}

	batches := [][]Command{
		{{AgentID: "a", Action: Action{Kind: ActionMove, Direction: grid.East}}, {AgentID: "b", Action: Action{Kind: ActionMove, Direction: grid.West}}},
		{{AgentID: "a", Action: Action{Kind: ActionPlaceBomb}}},
		nil,
		nil,
		{{AgentID: "b", Action: Action{Kind: ActionMove, Direction: grid.West}}},
	}

	e1 := build(t)
	e2 := build(t)

	for i, cmds := range batches {
		r1 := e1.Step(cmds)
		r2 := e2.Step(cmds)
		if r1.StateHash != r2.StateHash {
			t.Fatalf("tick %d: state hashes diverged: %#x vs %#x", i, r1.StateHash, r2.StateHash)
		}
		if r1.RNGHash != r2.RNGHash {
			t.Fatalf("tick %d: rng hashes diverged: %#x vs %#x", i, r1.RNGHash, r2.RNGHash)
		}
	}
}

// S4 (spec.md §8): a recorded game replays to the same state_hash sequence.
func TestReplayRoundTripMatchesRecordedHashes(t *testing.T) {
	s := newTestState(t, 6)
	if err := s.AddAgent(state.AgentState{ID: "a", Position: grid.Position{X: 0, Y: 0}, Alive: true, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := s.AddAgent(state.AgentState{ID: "b", Position: grid.Position{X: 5, Y: 5}, Alive: true, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	e := New(s, DefaultConfig())

	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, s, false)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	batches := [][]Command{
		{{AgentID: "a", Action: Action{Kind: ActionMove, Direction: grid.East}}},
		{{AgentID: "b", Action: Action{Kind: ActionMove, Direction: grid.West}}},
		{{AgentID: "a", Action: Action{Kind: ActionPlaceBomb}}},
		nil,
		nil,
	}

	var recordedHashes []uint64
	for _, cmds := range batches {
		r := e.Step(cmds)
		rec.RecordCommands(cmds)
		if err := rec.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
		recordedHashes = append(recordedHashes, r.StateHash)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	pb, err := OpenPlayback(&buf)
	if err != nil {
		t.Fatalf("OpenPlayback: %v", err)
	}

	var replayedHashes []uint64
	for {
		tr, err := pb.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		replayedHashes = append(replayedHashes, tr.StateHash)
	}

	if len(replayedHashes) != len(recordedHashes) {
		t.Fatalf("expected %d replayed ticks, got %d", len(recordedHashes), len(replayedHashes))
	}
	for i := range recordedHashes {
		if recordedHashes[i] != replayedHashes[i] {
			t.Fatalf("tick %d: recorded hash %#x, replayed hash %#x", i, recordedHashes[i], replayedHashes[i])
		}
	}
}

func TestCommandBufferDropPolicies(t *testing.T) {
	newest := NewCommandBuffer(2, DropNewest)
	if !newest.Push(Command{AgentID: "1"}) || !newest.Push(Command{AgentID: "2"}) {
		t.Fatalf("expected first two pushes to succeed")
	}
	if newest.Push(Command{AgentID: "3"}) {
		t.Fatalf("expected DropNewest to reject the third push")
	}
	drained := newest.Drain()
	if len(drained) != 2 || drained[0].AgentID != "1" || drained[1].AgentID != "2" {
		t.Fatalf("unexpected drain order under DropNewest: %+v", drained)
	}

	oldest := NewCommandBuffer(2, DropOldest)
	oldest.Push(Command{AgentID: "1"})
	oldest.Push(Command{AgentID: "2"})
	oldest.Push(Command{AgentID: "3"})
	drained = oldest.Drain()
	if len(drained) != 2 || drained[0].AgentID != "2" || drained[1].AgentID != "3" {
		t.Fatalf("unexpected drain order under DropOldest: %+v", drained)
	}
	if oldest.Dropped() != 1 {
		t.Fatalf("expected 1 dropped command, got %d", oldest.Dropped())
	}
}
