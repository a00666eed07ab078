package state

import (
	"fmt"

	"bombkernel/internal/grid"
)

// GameState is the single process-wide mutable datum (spec.md §9): owned
// exclusively by the engine task, mutated only via ApplyDeltaBatch.
type GameState struct {
	Tick    uint64
	RNG     *RNG
	Grid    *grid.Grid
	Agents  map[string]*AgentState
	Bombs   map[string]*Bomb
	Version uint64
}

// NewGameState constructs an empty state of the given size with a seeded RNG.
func NewGameState(size int32, seed uint64) (*GameState, error) {
	g, err := grid.New(size)
	if err != nil {
		return nil, err
	}
	return &GameState{
		Grid:   g,
		Agents: make(map[string]*AgentState),
		Bombs:  make(map[string]*Bomb),
		RNG:    NewRNG(seed),
	}, nil
}

// ErrKind distinguishes the three fatal apply_delta_batch failure modes
// named in spec.md §4.1; each aborts the tick and is an engine bug.
type ErrKind string

const (
	ErrInvalidPosition ErrKind = "invalid_position"
	ErrDuplicateEntity ErrKind = "duplicate_entity"
	ErrReferentMissing ErrKind = "referent_missing"
)

// ApplyError is returned by ApplyDeltaBatch for any of the three fatal
// failure modes. It is always an engine bug, never a user-facing error.
type ApplyError struct {
	Kind    ErrKind
	Detail  string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("state: %s: %s", e.Kind, e.Detail)
}

func newApplyError(kind ErrKind, format string, args ...any) *ApplyError {
	return &ApplyError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
