package state

import "bombkernel/internal/grid"

// ChangeKind identifies the type of an atomic delta entry. Grounded on the
// teacher's sim.PatchKind shape (internal/sim/patch.go), generalized from
// the RPG's player/NPC/effect entities to agents/bombs/tiles.
type ChangeKind string

const (
	ChangeTileChanged      ChangeKind = "tile_changed"
	ChangeBombPlaced       ChangeKind = "bomb_placed"
	ChangeBombFuseSet      ChangeKind = "bomb_fuse_set"
	ChangeBombExploded     ChangeKind = "bomb_exploded"
	ChangeAgentMoved       ChangeKind = "agent_moved"
	ChangeAgentDamaged     ChangeKind = "agent_damaged"
	ChangeAgentDied        ChangeKind = "agent_died"
	ChangePowerUpCollected ChangeKind = "power_up_collected"
	ChangeTickCompleted    ChangeKind = "tick_completed"
)

// changeOrder fixes the application order required by spec.md §4.1:
// TileChanged first (keeps indices consistent), then entity lifecycle, then
// movement, then damage/death, then the tick marker last.
var changeOrder = map[ChangeKind]int{
	ChangeTileChanged:      0,
	ChangeBombPlaced:       1,
	ChangeBombFuseSet:      1,
	ChangeBombExploded:     1,
	ChangePowerUpCollected: 1,
	ChangeAgentMoved:       2,
	ChangeAgentDamaged:     3,
	ChangeAgentDied:        3,
	ChangeTickCompleted:    4,
}

// TileChangedPayload describes a single-cell tile mutation.
type TileChangedPayload struct {
	Position grid.Position
	Tile     grid.Tile
}

// BombPlacedPayload mirrors a newly armed bomb.
type BombPlacedPayload struct {
	Bomb Bomb
}

// BombFuseSetPayload overwrites a live bomb's remaining fuse, used for the
// per-tick natural decrement and for DetonateRemote forcing a bomb to 0.
type BombFuseSetPayload struct {
	BombID    string
	FuseTicks int32
}

// BombExplodedPayload describes one bomb's detonation and the cells it hit.
type BombExplodedPayload struct {
	BombID      string
	Position    grid.Position
	Silhouette  []grid.Position
	ChainedFrom string // non-empty if this detonation was triggered by another bomb
}

// AgentMovedPayload describes a single agent relocation.
type AgentMovedPayload struct {
	AgentID  string
	From     grid.Position
	HadFrom  bool
	To       grid.Position
}

// AgentDamagedPayload describes damage applied to an agent.
type AgentDamagedPayload struct {
	AgentID string
	Amount  int32
	Source  string // bomb id or "" for environmental
}

// AgentDiedPayload marks an agent's death.
type AgentDiedPayload struct {
	AgentID string
}

// PowerUpCollectedPayload describes a pickup.
type PowerUpCollectedPayload struct {
	AgentID string
	Kind    grid.PowerUpKind
	At      grid.Position
}

// TickCompletedPayload marks the end of a tick's delta batch.
type TickCompletedPayload struct {
	Tick uint64
}

// Change is one atomic, ordered entry in a Delta.
type Change struct {
	Kind    ChangeKind
	Payload any
}

// Delta is the ordered list of atomic changes between two state versions
// (spec.md §3). Deltas compose associatively onto a prior state.
type Delta struct {
	Tick    uint64
	Version uint64
	Changes []Change
}

// sortedByApplicationOrder returns a stable-sorted copy of changes following
// changeOrder, preserving relative order within the same class (stable sort
// keeps emission order, which is already (agent_id asc) for movement and
// (bomb_id asc) for detonations, see bombs.Resolve).
func sortedByApplicationOrder(changes []Change) []Change {
	out := append([]Change(nil), changes...)
	// Insertion sort: change batches per tick are small (bounded by grid
	// size and agent count), and stability matters more than asymptotics.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && changeOrder[out[j-1].Kind] > changeOrder[out[j].Kind]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
