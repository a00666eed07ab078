// Package state implements the authoritative game state store (spec.md §4.1,
// component C1): agents, bombs, the grid, versioned delta application, and
// snapshot publication.
package state

import "bombkernel/internal/grid"

// Ability is a bit in an AgentState's ability set.
type Ability uint8

const (
	AbilityKick Ability = 1 << iota
	AbilityRemote
	AbilityPiercing
)

// AgentState is the authoritative record for one bot/player entity.
type AgentState struct {
	ID             string
	Position       grid.Position
	BombsRemaining int32
	MaxBombs       int32
	BlastPower     int32
	Speed          int32
	Alive          bool
	Abilities      Ability
}

// Has reports whether the agent carries the given ability.
func (a AgentState) Has(ability Ability) bool {
	return a.Abilities&ability != 0
}

// Clone returns an independent copy (AgentState has no reference fields
// beyond the value itself, but Clone exists for symmetry with Bomb/Grid and
// to guard against accidental future reference fields).
func (a AgentState) Clone() AgentState {
	return a
}
