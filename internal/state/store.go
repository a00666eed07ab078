package state

import "bombkernel/internal/grid"

// ApplyDeltaBatch applies one tick's worth of deltas to the live state,
// grouped and ordered per spec.md §4.1: TileChanged first, then entity
// lifecycle, then movement, then damage/death. On success the version
// counter is incremented exactly once for the whole batch (release
// semantics: readers that observe the new version also observe every
// change in this batch). Called only from the engine task (C7) — never
// concurrently with PublishSnapshot's readers, which only ever see
// previously-published, immutable snapshots.
func (s *GameState) ApplyDeltaBatch(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	ordered := sortedByApplicationOrder(changes)
	for _, c := range ordered {
		if err := s.applyOne(c); err != nil {
			return err
		}
	}
	s.Version++
	return nil
}

func (s *GameState) applyOne(c Change) error {
	switch c.Kind {
	case ChangeTileChanged:
		p := c.Payload.(TileChangedPayload)
		if !s.Grid.InBounds(p.Position) {
			return newApplyError(ErrInvalidPosition, "tile change at %v", p.Position)
		}
		return s.Grid.SetTile(p.Position, p.Tile)

	case ChangeBombPlaced:
		p := c.Payload.(BombPlacedPayload)
		if !s.Grid.InBounds(p.Bomb.Position) {
			return newApplyError(ErrInvalidPosition, "bomb placed at %v", p.Bomb.Position)
		}
		if _, exists := s.Bombs[p.Bomb.ID]; exists {
			return newApplyError(ErrDuplicateEntity, "bomb %s already exists", p.Bomb.ID)
		}
		bomb := p.Bomb
		s.Bombs[bomb.ID] = &bomb
		if owner, ok := s.Agents[bomb.Owner]; ok && owner.BombsRemaining > 0 {
			owner.BombsRemaining--
		}
		return s.Grid.PlaceBomb(bomb.Position, bomb.ID)

	case ChangeBombFuseSet:
		p := c.Payload.(BombFuseSetPayload)
		bomb, ok := s.Bombs[p.BombID]
		if !ok {
			return newApplyError(ErrReferentMissing, "fuse-set bomb %s not found", p.BombID)
		}
		bomb.FuseTicks = p.FuseTicks
		return nil

	case ChangeBombExploded:
		p := c.Payload.(BombExplodedPayload)
		bomb, ok := s.Bombs[p.BombID]
		if !ok {
			return newApplyError(ErrReferentMissing, "exploding bomb %s not found", p.BombID)
		}
		s.Grid.RemoveBomb(bomb.Position)
		delete(s.Bombs, p.BombID)
		if owner, ok := s.Agents[bomb.Owner]; ok && owner.BombsRemaining < owner.MaxBombs {
			owner.BombsRemaining++
		}
		for _, cell := range p.Silhouette {
			if !s.Grid.InBounds(cell) {
				continue
			}
			t := s.Grid.Tile(cell)
			if t.Kind == grid.TileSoftCrate {
				_ = s.Grid.SetTile(cell, grid.Tile{Kind: grid.TileEmpty})
			}
		}
		return nil

	case ChangeAgentMoved:
		p := c.Payload.(AgentMovedPayload)
		agent, ok := s.Agents[p.AgentID]
		if !ok {
			return newApplyError(ErrReferentMissing, "moving agent %s not found", p.AgentID)
		}
		if !s.Grid.InBounds(p.To) {
			return newApplyError(ErrInvalidPosition, "agent %s moved to %v", p.AgentID, p.To)
		}
		s.Grid.MoveAgent(p.AgentID, p.From, p.HadFrom, p.To)
		agent.Position = p.To
		return nil

	case ChangeAgentDamaged:
		p := c.Payload.(AgentDamagedPayload)
		agent, ok := s.Agents[p.AgentID]
		if !ok {
			return newApplyError(ErrReferentMissing, "damaged agent %s not found", p.AgentID)
		}
		_ = agent // health is tracked externally to spec.md's AgentState core fields; damage here only gates Alive via the paired AgentDied change.
		return nil

	case ChangeAgentDied:
		p := c.Payload.(AgentDiedPayload)
		agent, ok := s.Agents[p.AgentID]
		if !ok {
			return newApplyError(ErrReferentMissing, "dying agent %s not found", p.AgentID)
		}
		agent.Alive = false
		s.Grid.RemoveAgent(p.AgentID, agent.Position)
		return nil

	case ChangePowerUpCollected:
		p := c.Payload.(PowerUpCollectedPayload)
		agent, ok := s.Agents[p.AgentID]
		if !ok {
			return newApplyError(ErrReferentMissing, "collecting agent %s not found", p.AgentID)
		}
		applyPowerUp(agent, p.Kind)
		if s.Grid.InBounds(p.At) {
			_ = s.Grid.SetTile(p.At, grid.Tile{Kind: grid.TileEmpty})
		}
		return nil

	case ChangeTickCompleted:
		p := c.Payload.(TickCompletedPayload)
		s.Tick = p.Tick
		return nil

	default:
		return newApplyError(ErrInvalidPosition, "unknown change kind %q", c.Kind)
	}
}

func applyPowerUp(agent *AgentState, kind grid.PowerUpKind) {
	switch kind {
	case grid.PowerUpBombUp:
		agent.MaxBombs++
	case grid.PowerUpRangeUp:
		agent.BlastPower++
	case grid.PowerUpSpeedUp:
		agent.Speed++
	case grid.PowerUpKick:
		agent.Abilities |= AbilityKick
	case grid.PowerUpRemote:
		agent.Abilities |= AbilityRemote
	}
}

// CurrentVersion returns the version counter under the same ordering
// guarantee as a PublishSnapshot call (the engine task is the sole writer,
// so no synchronization is required on this read).
func (s *GameState) CurrentVersion() uint64 {
	return s.Version
}

// AddAgent registers a new agent at its spawn position. Used by game setup,
// not by ApplyDeltaBatch (spawning is not itself a delta in this model —
// agents exist for the lifetime of the game per spec.md §3).
func (s *GameState) AddAgent(a AgentState) error {
	if _, exists := s.Agents[a.ID]; exists {
		return newApplyError(ErrDuplicateEntity, "agent %s already exists", a.ID)
	}
	if !s.Grid.InBounds(a.Position) {
		return newApplyError(ErrInvalidPosition, "agent %s spawn at %v", a.ID, a.Position)
	}
	agent := a
	s.Agents[a.ID] = &agent
	s.Grid.MoveAgent(a.ID, grid.Position{}, false, a.Position)
	return nil
}
