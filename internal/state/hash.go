package state

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"bombkernel/internal/grid"
)

// HashState returns a deterministic function of every semantic field of the
// state — tick, RNG state, grid, agents, bombs — excluding derived caches
// (influence layers, path caches, goal/plan state live outside GameState
// entirely). Two states with equal semantic fields hash identically
// regardless of process or machine (spec.md §3 invariant iii, §7 invariant
// 4), which is what makes replay verification possible.
func (s *GameState) HashState() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putI32 := func(v int32) { putU64(uint64(uint32(v))) }
	putStr := func(v string) {
		putU64(uint64(len(v)))
		h.Write([]byte(v))
	}

	putU64(s.Tick)

	if s.RNG != nil {
		putU64(s.RNG.State)
	}

	putI32(s.Grid.Size())
	s.Grid.Each(func(_ grid.Position, t grid.Tile) {
		buf[0] = byte(t.Kind)
		buf[1] = byte(t.PowerUp)
		h.Write(buf[:2])
	})

	agentIDs := make([]string, 0, len(s.Agents))
	for id := range s.Agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)
	for _, id := range agentIDs {
		a := s.Agents[id]
		putStr(a.ID)
		putI32(a.Position.X)
		putI32(a.Position.Y)
		putI32(a.BombsRemaining)
		putI32(a.MaxBombs)
		putI32(a.BlastPower)
		putI32(a.Speed)
		if a.Alive {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
		h.Write(buf[:1])
		buf[0] = byte(a.Abilities)
		h.Write(buf[:1])
	}

	bombIDs := make([]string, 0, len(s.Bombs))
	for id := range s.Bombs {
		bombIDs = append(bombIDs, id)
	}
	sort.Strings(bombIDs)
	for _, id := range bombIDs {
		b := s.Bombs[id]
		putStr(b.ID)
		putStr(b.Owner)
		putI32(b.Position.X)
		putI32(b.Position.Y)
		putI32(b.FuseTicks)
		putI32(b.Power)
		buf[0] = byte(b.Flags)
		h.Write(buf[:1])
	}

	return h.Sum64()
}
