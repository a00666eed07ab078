package engine

import "bombkernel/internal/grid"

// ActionKind enumerates the command intake action set (spec.md §6):
// "{Move(N|S|E|W), PlaceBomb, DetonateRemote, Wait}".
type ActionKind string

const (
	ActionMove           ActionKind = "move"
	ActionPlaceBomb      ActionKind = "place_bomb"
	ActionDetonateRemote ActionKind = "detonate_remote"
	ActionWait           ActionKind = "wait"
)

// Action is the typed payload of a single command (spec.md §6: "{agent_id,
// action}").
type Action struct {
	Kind      ActionKind
	Direction grid.Direction // valid only for ActionMove
	BombID    string         // valid only for ActionDetonateRemote
}

// Command is one agent's intent for the tick it lands in. OriginTick
// records when it was issued, independent of the tick it is actually
// applied in (it may arrive late; spec.md §4.8: "commands arriving late are
// simply applied on the next tick they land in").
type Command struct {
	AgentID    string
	Action     Action
	OriginTick uint64
}

// RejectReason identifies why a command was recorded instead of applied.
// Rejections never abort a tick (spec.md §4.7(b)).
type RejectReason string

const (
	RejectUnknownAgent    RejectReason = "unknown_agent"
	RejectAgentDead       RejectReason = "agent_dead"
	RejectBlockedTile     RejectReason = "blocked_tile"
	RejectNoBombsLeft     RejectReason = "no_bombs_left"
	RejectTileOccupied    RejectReason = "tile_occupied_by_bomb"
	RejectUnknownBomb     RejectReason = "unknown_bomb"
	RejectNotRemoteCapable RejectReason = "not_remote_capable"
)

// CommandOutcome records whether a single command was applied and, if not,
// why — part of the tick's diagnostic record, never a fatal error.
type CommandOutcome struct {
	Command Command
	Applied bool
	Reason  RejectReason
}
