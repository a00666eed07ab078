package replaystore

import (
	"path/filepath"
	"testing"

	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

func newTestState(t *testing.T, size int32) *state.GameState {
	t.Helper()
	s, err := state.NewGameState(size, 7)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	if err := s.AddAgent(state.AgentState{
		ID: "a1", Position: grid.Position{X: 0, Y: 0},
		MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Speed: 1, Alive: true,
	}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	return s
}

func TestExporterFlushAndReadRoundTrip(t *testing.T) {
	s := newTestState(t, 5)
	e := engine.New(s, engine.DefaultConfig())

	exp := NewExporter("game-1")
	for tick := uint64(0); tick < 3; tick++ {
		result := e.Step(nil)
		snap := s.PublishSnapshot()
		exp.Append(result, snap, nil)
	}
	if exp.Len() != 3 {
		t.Fatalf("expected 3 accumulated rows, got %d", exp.Len())
	}

	outPath := filepath.Join(t.TempDir(), "game-1.parquet")
	if err := exp.Flush(outPath); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows, err := ReadRows(outPath)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows read back, got %d", len(rows))
	}
	for i, row := range rows {
		if row.GameID != "game-1" {
			t.Fatalf("row %d: expected game_id game-1, got %q", i, row.GameID)
		}
		if row.Tick != int64(i+1) {
			t.Fatalf("row %d: expected tick %d, got %d", i, i+1, row.Tick)
		}
		if len(row.Agents) != 1 || row.Agents[0].ID != "a1" {
			t.Fatalf("row %d: expected single agent a1, got %+v", i, row.Agents)
		}
		if row.AgentsAlive != 1 {
			t.Fatalf("row %d: expected 1 alive agent, got %d", i, row.AgentsAlive)
		}
	}
}

func TestExporterFlushIsAtomic(t *testing.T) {
	s := newTestState(t, 5)
	e := engine.New(s, engine.DefaultConfig())
	exp := NewExporter("game-2")
	result := e.Step(nil)
	exp.Append(result, s.PublishSnapshot(), nil)

	outPath := filepath.Join(t.TempDir(), "nested", "game-2.parquet")
	if err := exp.Flush(outPath); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	rows, err := ReadRows(outPath)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}
