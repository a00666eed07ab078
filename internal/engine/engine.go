// Package engine implements the fixed-step simulation tick loop (spec.md
// §4.7, component C7): command intake, validated application, bomb fuse
// advancement, chain-reaction resolution, movement and pickups, delta/event
// emission, determinism hashing, and replay recording. Grounded on the
// teacher's internal/sim package (Loop.Run's ticker-driven fixed step,
// Advance, CommandBuffer), generalized from the RPG world to bomb/crate/
// agent deltas.
package engine

import (
	"sort"

	"github.com/google/uuid"

	"bombkernel/internal/bombs"
	"bombkernel/internal/eventbus"
	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Config tunes the tick loop and the default values used when a command
// doesn't carry its own (spec.md §6).
type Config struct {
	TickDurationMS       uint16
	BombDefaultPower     int32
	BombDefaultFuseTicks int32
	CatchupMaxTicks      int
	CommandCapacity      int
	DropPolicy           DropPolicy
}

// DefaultConfig returns the spec.md §6 documented defaults.
func DefaultConfig() Config {
	return Config{
		TickDurationMS:       16,
		BombDefaultPower:     2,
		BombDefaultFuseTicks: 3,
		CatchupMaxTicks:      1,
		CommandCapacity:      64,
		DropPolicy:           DropNewest,
	}
}

// StepResult is everything one tick produces: the committed delta, the
// domain events raised from it, the per-command outcomes, and the
// determinism hashes needed for replay verification.
type StepResult struct {
	Tick      uint64
	Version   uint64
	StateHash uint64
	RNGHash   uint64
	Delta     state.Delta
	Outcomes  []CommandOutcome
	Events    []eventbus.Event
}

// Engine owns the live GameState exclusively (spec.md §9: "the live
// GameState is the sole process-wide mutable datum... exclusively owned by
// the engine task") and advances it one tick at a time.
type Engine struct {
	state *state.GameState
	cfg   Config
}

// New constructs an Engine over an already-initialized GameState.
func New(s *state.GameState, cfg Config) *Engine {
	return &Engine{state: s, cfg: cfg}
}

// State exposes the live GameState for setup (spawning agents, placing
// initial tiles) prior to the first Step. Never call this concurrently
// with Step.
func (e *Engine) State() *state.GameState { return e.state }

// Step applies one tick's worth of commands and advances the simulation by
// exactly one tick, following the fixed order of spec.md §4.7: (a) Step
// sorts the commands by agent_id itself (an unstable sort, so the relative
// order of several commands from one agent is not preserved); (b) validate
// and apply; (c) advance bomb
// fuses; (d) resolve explosions and chains; (e) apply movement and pickups;
// (f) changes are committed in bombkernel/internal/state's fixed
// application order and events are derived from them; (g) version is
// incremented by the single ApplyDeltaBatch call.
func (e *Engine) Step(commands []Command) StepResult {
	s := e.state
	sorted := append([]Command(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgentID < sorted[j].AgentID })

	var changes []state.Change
	var outcomes []CommandOutcome

	// (b) bomb-intent commands: PlaceBomb, DetonateRemote. Bombs placed this
	// tick are tracked alongside the live set so their fuse starts counting
	// down in the same tick they land (spec.md §8 scenario S2: a fuse=3 bomb
	// placed on the tick-1 command batch has detonated by tick 3).
	forcedFuse := make(map[string]int32)
	placed := make(map[string]state.Bomb)
	for _, cmd := range sorted {
		switch cmd.Action.Kind {
		case ActionPlaceBomb:
			outcome := e.applyPlaceBomb(cmd, &changes, placed)
			outcomes = append(outcomes, outcome)
		case ActionDetonateRemote:
			outcome := e.applyDetonateRemote(cmd, forcedFuse)
			outcomes = append(outcomes, outcome)
		}
	}

	// (c) advance bomb fuses (forced-zero overrides from DetonateRemote take
	// precedence over the natural decrement).
	bombIDs := make([]string, 0, len(s.Bombs)+len(placed))
	for id := range s.Bombs {
		bombIDs = append(bombIDs, id)
	}
	for id := range placed {
		bombIDs = append(bombIDs, id)
	}
	sort.Strings(bombIDs)

	proposedFuse := make(map[string]int32, len(bombIDs))
	liveBombs := make([]state.Bomb, 0, len(bombIDs))
	var naturalTriggers []string
	for _, id := range bombIDs {
		var b state.Bomb
		if live, ok := s.Bombs[id]; ok {
			b = *live
		} else {
			b = placed[id]
		}
		next := b.FuseTicks - 1
		if forced, ok := forcedFuse[id]; ok {
			next = forced
		}
		proposedFuse[id] = next
		b.FuseTicks = next
		liveBombs = append(liveBombs, b)
		if next <= 0 {
			naturalTriggers = append(naturalTriggers, id)
		}
	}

	// (d) resolve explosions and chains against the pre-movement grid.
	outcome := bombs.Resolve(s.Grid, liveBombs, naturalTriggers)
	detonated := make(map[string]bool, len(outcome.Detonations))
	for _, d := range outcome.Detonations {
		detonated[d.BombID] = true
		changes = append(changes, state.Change{
			Kind: state.ChangeBombExploded,
			Payload: state.BombExplodedPayload{
				BombID:      d.BombID,
				Position:    d.Position,
				Silhouette:  d.Silhouette,
				ChainedFrom: d.ChainedFrom,
			},
		})
	}
	for _, id := range bombIDs {
		if detonated[id] {
			continue
		}
		changes = append(changes, state.Change{
			Kind:    state.ChangeBombFuseSet,
			Payload: state.BombFuseSetPayload{BombID: id, FuseTicks: proposedFuse[id]},
		})
	}

	agentIDs := make([]string, 0, len(outcome.DamagedAgents))
	for id := range outcome.DamagedAgents {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)
	for _, id := range agentIDs {
		agent, ok := s.Agents[id]
		if !ok || !agent.Alive {
			continue
		}
		changes = append(changes,
			state.Change{Kind: state.ChangeAgentDamaged, Payload: state.AgentDamagedPayload{AgentID: id, Amount: outcome.DamagedAgents[id]}},
			state.Change{Kind: state.ChangeAgentDied, Payload: state.AgentDiedPayload{AgentID: id}},
		)
	}

	// (e) movement and pickups.
	for _, cmd := range sorted {
		switch cmd.Action.Kind {
		case ActionMove:
			o := e.applyMove(cmd, &changes)
			outcomes = append(outcomes, o)
		case ActionWait:
			outcomes = append(outcomes, CommandOutcome{Command: cmd, Applied: true})
		}
	}

	newTick := s.Tick + 1
	changes = append(changes, state.Change{Kind: state.ChangeTickCompleted, Payload: state.TickCompletedPayload{Tick: newTick}})

	if err := s.ApplyDeltaBatch(changes); err != nil {
		// Engine invariants (spec.md §7) abort the current game, not the
		// process; the caller (scheduler) is responsible for surfacing this.
		panic(err)
	}

	delta := state.Delta{Tick: newTick, Version: s.Version, Changes: changes}
	events := eventsFromChanges(newTick, changes)

	var rngHash uint64
	if s.RNG != nil {
		rngHash = s.RNG.State
	}

	return StepResult{
		Tick:      newTick,
		Version:   s.Version,
		StateHash: s.HashState(),
		RNGHash:   rngHash,
		Delta:     delta,
		Outcomes:  outcomes,
		Events:    events,
	}
}

// rngReader adapts the state's seeded RNG to an io.Reader so uuid generation
// draws from the same deterministic stream that HashState already covers,
// rather than the system CSPRNG — two independent runs seeded identically
// must mint identical bomb IDs (spec.md §8 invariant 4), which a plain
// uuid.NewString() call cannot guarantee.
type rngReader struct{ rng *state.RNG }

func (r rngReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); {
		v := r.rng.Next()
		for shift := 0; shift < 8 && i < len(p); shift++ {
			p[i] = byte(v)
			v >>= 8
			i++
		}
	}
	return len(p), nil
}

func (e *Engine) newBombID() string {
	id, err := uuid.NewRandomFromReader(rngReader{rng: e.state.RNG})
	if err != nil {
		panic(err) // rngReader.Read never fails
	}
	return id.String()
}

func (e *Engine) applyPlaceBomb(cmd Command, changes *[]state.Change, placed map[string]state.Bomb) CommandOutcome {
	agent, ok := e.state.Agents[cmd.AgentID]
	if !ok {
		return CommandOutcome{Command: cmd, Reason: RejectUnknownAgent}
	}
	if !agent.Alive {
		return CommandOutcome{Command: cmd, Reason: RejectAgentDead}
	}
	if agent.BombsRemaining <= 0 {
		return CommandOutcome{Command: cmd, Reason: RejectNoBombsLeft}
	}
	if _, occupied := e.state.Grid.BombAt(agent.Position); occupied {
		return CommandOutcome{Command: cmd, Reason: RejectTileOccupied}
	}
	power := agent.BlastPower
	if power <= 0 {
		power = e.cfg.BombDefaultPower
	}
	bomb := state.Bomb{
		ID:        e.newBombID(),
		Owner:     agent.ID,
		Position:  agent.Position,
		FuseTicks: e.cfg.BombDefaultFuseTicks,
		Power:     power,
	}
	*changes = append(*changes, state.Change{Kind: state.ChangeBombPlaced, Payload: state.BombPlacedPayload{Bomb: bomb}})
	placed[bomb.ID] = bomb
	return CommandOutcome{Command: cmd, Applied: true}
}

func (e *Engine) applyDetonateRemote(cmd Command, forcedFuse map[string]int32) CommandOutcome {
	bomb, ok := e.state.Bombs[cmd.Action.BombID]
	if !ok {
		return CommandOutcome{Command: cmd, Reason: RejectUnknownBomb}
	}
	if bomb.Owner != cmd.AgentID || !bomb.Has(state.BombRemoteDetonable) {
		return CommandOutcome{Command: cmd, Reason: RejectNotRemoteCapable}
	}
	forcedFuse[bomb.ID] = 0
	return CommandOutcome{Command: cmd, Applied: true}
}

func (e *Engine) applyMove(cmd Command, changes *[]state.Change) CommandOutcome {
	agent, ok := e.state.Agents[cmd.AgentID]
	if !ok {
		return CommandOutcome{Command: cmd, Reason: RejectUnknownAgent}
	}
	if !agent.Alive {
		return CommandOutcome{Command: cmd, Reason: RejectAgentDead}
	}
	dx, dy := cmd.Action.Direction.Delta()
	to := agent.Position.Add(dx, dy)
	if !e.state.Grid.InBounds(to) || !e.state.Grid.Tile(to).Walkable() {
		return CommandOutcome{Command: cmd, Reason: RejectBlockedTile}
	}
	if _, occupied := e.state.Grid.BombAt(to); occupied {
		return CommandOutcome{Command: cmd, Reason: RejectTileOccupied}
	}
	from := agent.Position
	*changes = append(*changes, state.Change{
		Kind:    state.ChangeAgentMoved,
		Payload: state.AgentMovedPayload{AgentID: agent.ID, From: from, HadFrom: true, To: to},
	})
	if tile := e.state.Grid.Tile(to); tile.Kind == grid.TilePowerUp {
		*changes = append(*changes, state.Change{
			Kind:    state.ChangePowerUpCollected,
			Payload: state.PowerUpCollectedPayload{AgentID: agent.ID, Kind: tile.PowerUp, At: to},
		})
	}
	return CommandOutcome{Command: cmd, Applied: true}
}

func eventsFromChanges(tick uint64, changes []state.Change) []eventbus.Event {
	events := make([]eventbus.Event, 0, len(changes)+1)
	for _, c := range changes {
		switch c.Kind {
		case state.ChangeBombPlaced:
			events = append(events, eventbus.Event{Type: eventbus.TypeBombPlaced, Priority: eventbus.Normal, Tick: tick, Payload: c.Payload})
		case state.ChangeBombExploded:
			events = append(events, eventbus.Event{Type: eventbus.TypeBombExploded, Priority: eventbus.High, Tick: tick, Payload: c.Payload})
		case state.ChangeAgentMoved:
			events = append(events, eventbus.Event{Type: eventbus.TypeAgentMoved, Priority: eventbus.Low, Tick: tick, Payload: c.Payload})
		case state.ChangeAgentDamaged:
			events = append(events, eventbus.Event{Type: eventbus.TypeAgentDamaged, Priority: eventbus.High, Tick: tick, Payload: c.Payload})
		case state.ChangeAgentDied:
			events = append(events, eventbus.Event{Type: eventbus.TypeAgentDied, Priority: eventbus.High, Tick: tick, Payload: c.Payload})
		case state.ChangePowerUpCollected:
			events = append(events, eventbus.Event{Type: eventbus.TypePowerUpCollected, Priority: eventbus.Normal, Tick: tick, Payload: c.Payload})
		case state.ChangeTickCompleted:
			events = append(events, eventbus.Event{Type: eventbus.TypeTickCompleted, Priority: eventbus.Low, Tick: tick, Payload: c.Payload})
		}
	}
	return events
}
