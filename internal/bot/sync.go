package bot

import (
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/state"
)

// localView is a bot's private mirror of the live grid, updated either by a
// full rebuild (first observation, or a missed delta) or incrementally from
// the per-tick Delta (spec.md §4.8 step 2: "update local Influence view from
// the delta (incremental; skip if unchanged)"). bombPos/bombPower/agentPos
// are bookkeeping this package needs but the shared grid.Grid/state.Snapshot
// types don't expose (a position-by-id reverse index), kept only so
// BombFuseSet and AgentDied — whose payloads don't carry a position — can
// still invalidate the right cells without a full rebuild.
type localView struct {
	grid      *grid.Grid
	inf       *influence.Map
	infCfg    influence.Config
	size      int32
	synced    bool
	lastTick  uint64
	bombPos   map[string]grid.Position
	bombPower map[string]int32
	agentPos  map[string]grid.Position
}

func newLocalView(cfg influence.Config) *localView {
	return &localView{
		infCfg:    cfg,
		bombPos:   make(map[string]grid.Position),
		bombPower: make(map[string]int32),
		agentPos:  make(map[string]grid.Position),
	}
}

// sync brings the view up to date with snap, applying delta incrementally
// when it is exactly the next tick after the view's last observation, and
// falling back to a full rebuild otherwise (first call, or a gap caused by a
// dropped/late delta delivery).
func (v *localView) sync(snap state.Snapshot, delta *state.Delta) {
	if !v.synced || delta == nil || delta.Tick != v.lastTick+1 {
		v.rebuild(snap)
	} else {
		v.applyDelta(*delta)
	}
	v.inf.Sync(snap, v.grid)
	v.lastTick = snap.Tick()
	v.synced = true
}

func (v *localView) rebuild(snap state.Snapshot) {
	g, err := buildLocalGrid(snap)
	if err != nil {
		return
	}
	v.grid = g
	v.size = snap.Size()
	v.inf = influence.NewMap(v.size, v.infCfg)
	v.inf.MarkDirty(influence.Rect{MinX: 0, MinY: 0, MaxX: v.size - 1, MaxY: v.size - 1})

	v.bombPos = make(map[string]grid.Position, len(snap.Bombs()))
	v.bombPower = make(map[string]int32, len(snap.Bombs()))
	for _, b := range snap.Bombs() {
		v.bombPos[b.ID] = b.Position
		v.bombPower[b.ID] = b.Power
	}
	v.agentPos = make(map[string]grid.Position, len(snap.Agents()))
	for _, a := range snap.Agents() {
		if a.Alive {
			v.agentPos[a.ID] = a.Position
		}
	}
}

func (v *localView) applyDelta(d state.Delta) {
	for _, c := range d.Changes {
		switch c.Kind {
		case state.ChangeTileChanged:
			p := c.Payload.(state.TileChangedPayload)
			_ = v.grid.SetTile(p.Position, p.Tile)
			v.inf.MarkDirty(cellRect(p.Position))

		case state.ChangeBombPlaced:
			p := c.Payload.(state.BombPlacedPayload)
			_ = v.grid.PlaceBomb(p.Bomb.Position, p.Bomb.ID)
			v.bombPos[p.Bomb.ID] = p.Bomb.Position
			v.bombPower[p.Bomb.ID] = p.Bomb.Power
			v.inf.MarkDirty(diamondRect(p.Bomb.Position, p.Bomb.Power))

		case state.ChangeBombFuseSet:
			p := c.Payload.(state.BombFuseSetPayload)
			if pos, ok := v.bombPos[p.BombID]; ok {
				v.inf.MarkDirty(diamondRect(pos, v.bombPower[p.BombID]))
			}

		case state.ChangeBombExploded:
			p := c.Payload.(state.BombExplodedPayload)
			v.grid.RemoveBomb(p.Position)
			delete(v.bombPos, p.BombID)
			delete(v.bombPower, p.BombID)
			if r, ok := boundingRect(p.Silhouette); ok {
				v.inf.MarkDirty(r)
			}

		case state.ChangeAgentMoved:
			p := c.Payload.(state.AgentMovedPayload)
			v.grid.MoveAgent(p.AgentID, p.From, p.HadFrom, p.To)
			v.agentPos[p.AgentID] = p.To

		case state.ChangeAgentDied:
			p := c.Payload.(state.AgentDiedPayload)
			if pos, ok := v.agentPos[p.AgentID]; ok {
				v.grid.RemoveAgent(p.AgentID, pos)
				delete(v.agentPos, p.AgentID)
			}

		case state.ChangePowerUpCollected:
			p := c.Payload.(state.PowerUpCollectedPayload)
			_ = v.grid.SetTile(p.At, grid.Tile{})
			v.inf.MarkDirty(cellRect(p.At))

		case state.ChangeAgentDamaged, state.ChangeTickCompleted:
			// No grid or influence effect.
		}
	}
}
