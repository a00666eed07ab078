package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// encodeGameState writes the initial_state_blob (spec.md §6): enough of the
// live state to seed a fresh GameState that, combined with the tick_record
// deltas that follow, reconstructs every subsequent tick bit-for-bit.
func encodeGameState(w io.Writer, s *state.GameState) error {
	if err := writeU64(w, s.Tick); err != nil {
		return err
	}
	if err := writeU64(w, s.Version); err != nil {
		return err
	}
	var seed uint64
	if s.RNG != nil {
		seed = s.RNG.State
	}
	if err := writeU64(w, seed); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.Grid.Size()); err != nil {
		return err
	}

	var tileErr error
	s.Grid.Each(func(_ grid.Position, t grid.Tile) {
		if tileErr != nil {
			return
		}
		if _, err := w.Write([]byte{byte(t.Kind), byte(t.PowerUp)}); err != nil {
			tileErr = err
		}
	})
	if tileErr != nil {
		return tileErr
	}

	agentIDs := make([]string, 0, len(s.Agents))
	for id := range s.Agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)
	if err := writeU32(w, uint32(len(agentIDs))); err != nil {
		return err
	}
	for _, id := range agentIDs {
		a := s.Agents[id]
		if err := writeString(w, a.ID); err != nil {
			return err
		}
		if err := writePosition(w, a.Position); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.BombsRemaining); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.MaxBombs); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.BlastPower); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.Speed); err != nil {
			return err
		}
		alive := byte(0)
		if a.Alive {
			alive = 1
		}
		if _, err := w.Write([]byte{alive, byte(a.Abilities)}); err != nil {
			return err
		}
	}

	bombIDs := make([]string, 0, len(s.Bombs))
	for id := range s.Bombs {
		bombIDs = append(bombIDs, id)
	}
	sort.Strings(bombIDs)
	if err := writeU32(w, uint32(len(bombIDs))); err != nil {
		return err
	}
	for _, id := range bombIDs {
		b := s.Bombs[id]
		if err := writeString(w, b.ID); err != nil {
			return err
		}
		if err := writeString(w, b.Owner); err != nil {
			return err
		}
		if err := writePosition(w, b.Position); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, b.FuseTicks); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, b.Power); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(b.Flags)}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, b.KickVX); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, b.KickVY); err != nil {
			return err
		}
	}
	return nil
}

func decodeGameState(r io.Reader) (*state.GameState, error) {
	tick, err := readU64(r)
	if err != nil {
		return nil, err
	}
	version, err := readU64(r)
	if err != nil {
		return nil, err
	}
	seed, err := readU64(r)
	if err != nil {
		return nil, err
	}
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	s, err := state.NewGameState(size, seed)
	if err != nil {
		return nil, err
	}
	s.Tick = tick
	s.Version = version

	total := int(size) * int(size)
	for i := 0; i < total; i++ {
		var kindPowerUp [2]byte
		if _, err := io.ReadFull(r, kindPowerUp[:]); err != nil {
			return nil, err
		}
		p := grid.Position{X: int32(i) % size, Y: int32(i) / size}
		if err := s.Grid.SetTile(p, grid.Tile{Kind: grid.TileKind(kindPowerUp[0]), PowerUp: grid.PowerUpKind(kindPowerUp[1])}); err != nil {
			return nil, err
		}
	}

	agentCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < agentCount; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		pos, err := readPosition(r)
		if err != nil {
			return nil, err
		}
		var bombsRemaining, maxBombs, blastPower, speed int32
		if err := binary.Read(r, binary.LittleEndian, &bombsRemaining); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &maxBombs); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &blastPower); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &speed); err != nil {
			return nil, err
		}
		var flags [2]byte
		if _, err := io.ReadFull(r, flags[:]); err != nil {
			return nil, err
		}
		agent := &state.AgentState{
			ID:             id,
			Position:       pos,
			BombsRemaining: bombsRemaining,
			MaxBombs:       maxBombs,
			BlastPower:     blastPower,
			Speed:          speed,
			Alive:          flags[0] == 1,
			Abilities:      state.Ability(flags[1]),
		}
		s.Agents[id] = agent
		s.Grid.MoveAgent(id, grid.Position{}, false, pos)
	}

	bombCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < bombCount; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		owner, err := readString(r)
		if err != nil {
			return nil, err
		}
		pos, err := readPosition(r)
		if err != nil {
			return nil, err
		}
		var fuse, power int32
		if err := binary.Read(r, binary.LittleEndian, &fuse); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &power); err != nil {
			return nil, err
		}
		var flagByte [1]byte
		if _, err := io.ReadFull(r, flagByte[:]); err != nil {
			return nil, err
		}
		var kickVX, kickVY int32
		if err := binary.Read(r, binary.LittleEndian, &kickVX); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &kickVY); err != nil {
			return nil, err
		}
		bomb := &state.Bomb{
			ID:        id,
			Owner:     owner,
			Position:  pos,
			FuseTicks: fuse,
			Power:     power,
			Flags:     state.BombFlags(flagByte[0]),
			KickVX:    kickVX,
			KickVY:    kickVY,
		}
		s.Bombs[id] = bomb
		if err := s.Grid.PlaceBomb(pos, id); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// --- command framing ---

func encodeCommandsToBytes(cmds []Command) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := writeU32(buf, uint32(len(cmds))); err != nil {
		return nil, err
	}
	for _, c := range cmds {
		if err := writeString(buf, c.AgentID); err != nil {
			return nil, err
		}
		if err := writeU64(buf, c.OriginTick); err != nil {
			return nil, err
		}
		if err := writeString(buf, string(c.Action.Kind)); err != nil {
			return nil, err
		}
		if _, err := buf.Write([]byte{byte(c.Action.Direction)}); err != nil {
			return nil, err
		}
		if err := writeString(buf, c.Action.BombID); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeCommandsFromBytes(data []byte) ([]Command, error) {
	r := bytes.NewReader(data)
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]Command, n)
	for i := range out {
		agentID, err := readString(r)
		if err != nil {
			return nil, err
		}
		origin, err := readU64(r)
		if err != nil {
			return nil, err
		}
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		var dirByte [1]byte
		if _, err := io.ReadFull(r, dirByte[:]); err != nil {
			return nil, err
		}
		bombID, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = Command{
			AgentID:    agentID,
			OriginTick: origin,
			Action: Action{
				Kind:      ActionKind(kind),
				Direction: grid.Direction(dirByte[0]),
				BombID:    bombID,
			},
		}
	}
	return out, nil
}

// --- delta framing ---

func encodeDeltaToBytes(d state.Delta) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := writeU64(buf, d.Tick); err != nil {
		return nil, err
	}
	if err := writeU64(buf, d.Version); err != nil {
		return nil, err
	}
	if err := writeU32(buf, uint32(len(d.Changes))); err != nil {
		return nil, err
	}
	for _, c := range d.Changes {
		if err := encodeChange(buf, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeDeltaFromBytes(data []byte) (state.Delta, error) {
	r := bytes.NewReader(data)
	tick, err := readU64(r)
	if err != nil {
		return state.Delta{}, err
	}
	version, err := readU64(r)
	if err != nil {
		return state.Delta{}, err
	}
	n, err := readU32(r)
	if err != nil {
		return state.Delta{}, err
	}
	changes := make([]state.Change, n)
	for i := range changes {
		c, err := decodeChange(r)
		if err != nil {
			return state.Delta{}, err
		}
		changes[i] = c
	}
	return state.Delta{Tick: tick, Version: version, Changes: changes}, nil
}

func encodeChange(w io.Writer, c state.Change) error {
	if err := writeString(w, string(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case state.ChangeTileChanged:
		p := c.Payload.(state.TileChangedPayload)
		if err := writePosition(w, p.Position); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(p.Tile.Kind), byte(p.Tile.PowerUp)})
		return err
	case state.ChangeBombPlaced:
		p := c.Payload.(state.BombPlacedPayload)
		if err := writeString(w, p.Bomb.ID); err != nil {
			return err
		}
		if err := writeString(w, p.Bomb.Owner); err != nil {
			return err
		}
		if err := writePosition(w, p.Bomb.Position); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Bomb.FuseTicks); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Bomb.Power); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(p.Bomb.Flags)})
		return err
	case state.ChangeBombFuseSet:
		p := c.Payload.(state.BombFuseSetPayload)
		if err := writeString(w, p.BombID); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, p.FuseTicks)
	case state.ChangeBombExploded:
		p := c.Payload.(state.BombExplodedPayload)
		if err := writeString(w, p.BombID); err != nil {
			return err
		}
		if err := writePosition(w, p.Position); err != nil {
			return err
		}
		if err := writePositions(w, p.Silhouette); err != nil {
			return err
		}
		return writeString(w, p.ChainedFrom)
	case state.ChangeAgentMoved:
		p := c.Payload.(state.AgentMovedPayload)
		if err := writeString(w, p.AgentID); err != nil {
			return err
		}
		if err := writePosition(w, p.From); err != nil {
			return err
		}
		hadFrom := byte(0)
		if p.HadFrom {
			hadFrom = 1
		}
		if _, err := w.Write([]byte{hadFrom}); err != nil {
			return err
		}
		return writePosition(w, p.To)
	case state.ChangeAgentDamaged:
		p := c.Payload.(state.AgentDamagedPayload)
		if err := writeString(w, p.AgentID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Amount); err != nil {
			return err
		}
		return writeString(w, p.Source)
	case state.ChangeAgentDied:
		p := c.Payload.(state.AgentDiedPayload)
		return writeString(w, p.AgentID)
	case state.ChangePowerUpCollected:
		p := c.Payload.(state.PowerUpCollectedPayload)
		if err := writeString(w, p.AgentID); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(p.Kind)}); err != nil {
			return err
		}
		return writePosition(w, p.At)
	case state.ChangeTickCompleted:
		p := c.Payload.(state.TickCompletedPayload)
		return writeU64(w, p.Tick)
	default:
		return fmt.Errorf("engine: unknown change kind %q in replay stream", c.Kind)
	}
}

func decodeChange(r io.Reader) (state.Change, error) {
	kindStr, err := readString(r)
	if err != nil {
		return state.Change{}, err
	}
	kind := state.ChangeKind(kindStr)
	switch kind {
	case state.ChangeTileChanged:
		pos, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		var kp [2]byte
		if _, err := io.ReadFull(r, kp[:]); err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.TileChangedPayload{
			Position: pos,
			Tile:     grid.Tile{Kind: grid.TileKind(kp[0]), PowerUp: grid.PowerUpKind(kp[1])},
		}}, nil
	case state.ChangeBombPlaced:
		id, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		owner, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		pos, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		var fuse, power int32
		if err := binary.Read(r, binary.LittleEndian, &fuse); err != nil {
			return state.Change{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &power); err != nil {
			return state.Change{}, err
		}
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.BombPlacedPayload{Bomb: state.Bomb{
			ID: id, Owner: owner, Position: pos, FuseTicks: fuse, Power: power, Flags: state.BombFlags(flag[0]),
		}}}, nil
	case state.ChangeBombFuseSet:
		id, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		var fuse int32
		if err := binary.Read(r, binary.LittleEndian, &fuse); err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.BombFuseSetPayload{BombID: id, FuseTicks: fuse}}, nil
	case state.ChangeBombExploded:
		id, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		pos, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		cells, err := readPositions(r)
		if err != nil {
			return state.Change{}, err
		}
		chainedFrom, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.BombExplodedPayload{
			BombID: id, Position: pos, Silhouette: cells, ChainedFrom: chainedFrom,
		}}, nil
	case state.ChangeAgentMoved:
		agentID, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		from, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		var hadFrom [1]byte
		if _, err := io.ReadFull(r, hadFrom[:]); err != nil {
			return state.Change{}, err
		}
		to, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.AgentMovedPayload{
			AgentID: agentID, From: from, HadFrom: hadFrom[0] == 1, To: to,
		}}, nil
	case state.ChangeAgentDamaged:
		agentID, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		var amount int32
		if err := binary.Read(r, binary.LittleEndian, &amount); err != nil {
			return state.Change{}, err
		}
		source, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.AgentDamagedPayload{AgentID: agentID, Amount: amount, Source: source}}, nil
	case state.ChangeAgentDied:
		agentID, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.AgentDiedPayload{AgentID: agentID}}, nil
	case state.ChangePowerUpCollected:
		agentID, err := readString(r)
		if err != nil {
			return state.Change{}, err
		}
		var k [1]byte
		if _, err := io.ReadFull(r, k[:]); err != nil {
			return state.Change{}, err
		}
		at, err := readPosition(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.PowerUpCollectedPayload{AgentID: agentID, Kind: grid.PowerUpKind(k[0]), At: at}}, nil
	case state.ChangeTickCompleted:
		tick, err := readU64(r)
		if err != nil {
			return state.Change{}, err
		}
		return state.Change{Kind: kind, Payload: state.TickCompletedPayload{Tick: tick}}, nil
	default:
		return state.Change{}, fmt.Errorf("engine: unknown change kind %q in replay stream", kindStr)
	}
}
