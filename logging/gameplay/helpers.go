// Package gameplay publishes the spec.md §6 GameEvent enumeration (bomb
// lifecycle, agent movement/damage/death, power-up collection, tick and
// game boundaries) through the ambient logging.Router, adapted from the
// teacher's logging/combat and logging/lifecycle helpers.
package gameplay

import (
	"context"

	"bombkernel/logging"
)

const (
	EventBombPlaced         logging.EventType = "gameplay.bomb_placed"
	EventBombExploded       logging.EventType = "gameplay.bomb_exploded"
	EventAgentMoved         logging.EventType = "gameplay.agent_moved"
	EventAgentDamaged       logging.EventType = "gameplay.agent_damaged"
	EventAgentDied          logging.EventType = "gameplay.agent_died"
	EventPowerUpCollected   logging.EventType = "gameplay.power_up_collected"
	EventTickCompleted      logging.EventType = "gameplay.tick_completed"
	EventGameStarted        logging.EventType = "gameplay.game_started"
	EventGameEnded          logging.EventType = "gameplay.game_ended"
)

// BombPlacedPayload describes a newly armed bomb.
type BombPlacedPayload struct {
	Power     int32 `json:"power"`
	FuseTicks int32 `json:"fuseTicks"`
}

// BombExplodedPayload describes the cells a detonation hit.
type BombExplodedPayload struct {
	SilhouetteSize int    `json:"silhouetteSize"`
	ChainedFrom    string `json:"chainedFrom,omitempty"`
}

// AgentMovedPayload describes a single agent relocation.
type AgentMovedPayload struct {
	FromX int32 `json:"fromX"`
	FromY int32 `json:"fromY"`
	ToX   int32 `json:"toX"`
	ToY   int32 `json:"toY"`
}

// AgentDamagedPayload describes damage dealt to an agent.
type AgentDamagedPayload struct {
	Amount int32  `json:"amount"`
	Source string `json:"source,omitempty"`
}

// AgentDiedPayload marks an agent's elimination.
type AgentDiedPayload struct {
	Cause string `json:"cause,omitempty"`
}

// PowerUpCollectedPayload describes a pickup.
type PowerUpCollectedPayload struct {
	Kind string `json:"kind"`
}

// GameEndedPayload reports the finishing state of a match.
type GameEndedPayload struct {
	WinnerID string `json:"winnerId,omitempty"`
	Reason   string `json:"reason"`
}

func BombPlaced(ctx context.Context, pub logging.Publisher, tick uint64, bomb logging.EntityRef, payload BombPlacedPayload) {
	publish(ctx, pub, EventBombPlaced, tick, bomb, nil, logging.SeverityInfo, payload)
}

func BombExploded(ctx context.Context, pub logging.Publisher, tick uint64, bomb logging.EntityRef, payload BombExplodedPayload) {
	publish(ctx, pub, EventBombExploded, tick, bomb, nil, logging.SeverityInfo, payload)
}

func AgentMoved(ctx context.Context, pub logging.Publisher, tick uint64, agent logging.EntityRef, payload AgentMovedPayload) {
	publish(ctx, pub, EventAgentMoved, tick, agent, nil, logging.SeverityDebug, payload)
}

func AgentDamaged(ctx context.Context, pub logging.Publisher, tick uint64, agent logging.EntityRef, source logging.EntityRef, payload AgentDamagedPayload) {
	publish(ctx, pub, EventAgentDamaged, tick, agent, []logging.EntityRef{source}, logging.SeverityInfo, payload)
}

func AgentDied(ctx context.Context, pub logging.Publisher, tick uint64, agent logging.EntityRef, payload AgentDiedPayload) {
	publish(ctx, pub, EventAgentDied, tick, agent, nil, logging.SeverityWarn, payload)
}

func PowerUpCollected(ctx context.Context, pub logging.Publisher, tick uint64, agent logging.EntityRef, payload PowerUpCollectedPayload) {
	publish(ctx, pub, EventPowerUpCollected, tick, agent, nil, logging.SeverityInfo, payload)
}

func TickCompleted(ctx context.Context, pub logging.Publisher, tick uint64) {
	publish(ctx, pub, EventTickCompleted, tick, logging.EntityRef{Kind: logging.EntityKindWorld}, nil, logging.SeverityDebug, nil)
}

func GameStarted(ctx context.Context, pub logging.Publisher, tick uint64) {
	publish(ctx, pub, EventGameStarted, tick, logging.EntityRef{Kind: logging.EntityKindWorld}, nil, logging.SeverityInfo, nil)
}

func GameEnded(ctx context.Context, pub logging.Publisher, tick uint64, payload GameEndedPayload) {
	publish(ctx, pub, EventGameEnded, tick, logging.EntityRef{Kind: logging.EntityKindWorld}, nil, logging.SeverityInfo, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, severity logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
