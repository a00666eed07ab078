// Package replaystore mirrors a finished game's tick records into a
// columnar Parquet file for offline, out-of-core analytics (SPEC_FULL.md
// §6: "for the ... tournament runner to query aggregate statistics across
// many games"). It is purely additive — the canonical, byte-pinned replay
// format lives in internal/engine and is never touched here.
//
// Grounded on brensch-snek2/scraper/store/parquet.go's WriteArchiveParquet:
// one row per simulated turn, nested repeated structs for the per-entity
// detail, zstd page compression, and an atomic temp-file-then-rename write
// so a reader never observes a partially written file.
package replaystore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"bombkernel/internal/engine"
	"bombkernel/internal/state"
)

// TickRow is one committed tick of one game, flattened for columnar
// storage. Reward/outcome fields a trainer or aggregator would want are
// kept alongside the raw entity snapshot so most queries never need to
// join back against the canonical replay file.
type TickRow struct {
	GameID    string `parquet:"game_id,dict"`
	Tick      int64  `parquet:"tick"`
	Version   int64  `parquet:"version"`
	StateHash uint64 `parquet:"state_hash"`
	RNGHash   uint64 `parquet:"rng_hash"`

	AgentsAlive int32 `parquet:"agents_alive"`
	BombsLive   int32 `parquet:"bombs_live"`

	Agents  []AgentRow  `parquet:"agents"`
	Bombs   []BombRow   `parquet:"bombs"`
	Rejects []int32     `parquet:"reject_count_by_reason"`
}

// AgentRow is one agent's state as of a TickRow's tick.
type AgentRow struct {
	ID             string `parquet:"id,dict"`
	X              int32  `parquet:"x"`
	Y              int32  `parquet:"y"`
	Alive          bool   `parquet:"alive"`
	BombsRemaining int32  `parquet:"bombs_remaining"`
	BlastPower     int32  `parquet:"blast_power"`
	Speed          int32  `parquet:"speed"`
	Abilities      int32  `parquet:"abilities"`
}

// BombRow is one live bomb's state as of a TickRow's tick.
type BombRow struct {
	ID        string `parquet:"id,dict"`
	Owner     string `parquet:"owner,dict"`
	X         int32  `parquet:"x"`
	Y         int32  `parquet:"y"`
	FuseTicks int32  `parquet:"fuse_ticks"`
	Power     int32  `parquet:"power"`
}

// Exporter accumulates TickRows in memory across a single game's run and
// flushes them to a Parquet file once the game ends. It holds no open file
// handle between ticks, matching the teacher's batch-then-write shape
// rather than a streaming writer.
type Exporter struct {
	gameID string
	rows   []TickRow
}

// NewExporter starts accumulating rows for one game.
func NewExporter(gameID string) *Exporter {
	return &Exporter{gameID: gameID}
}

// Append flattens one tick's StepResult and the live snapshot taken right
// after it into a TickRow. rejectsByReason indexes parallel to
// engine.RejectReason's declared order; the caller (the scheduler or a
// tournament runner) is responsible for tallying outcomes into it, since
// the Exporter has no opinion on how outcomes are aggregated across ticks.
func (e *Exporter) Append(result engine.StepResult, snap state.Snapshot, rejectsByReason []int32) {
	agents := snap.Agents()
	rows := make([]AgentRow, 0, len(agents))
	alive := int32(0)
	for _, a := range agents {
		if a.Alive {
			alive++
		}
		rows = append(rows, AgentRow{
			ID:             a.ID,
			X:              a.Position.X,
			Y:              a.Position.Y,
			Alive:          a.Alive,
			BombsRemaining: a.BombsRemaining,
			BlastPower:     a.BlastPower,
			Speed:          a.Speed,
			Abilities:      int32(a.Abilities),
		})
	}

	bombs := snap.Bombs()
	bombRows := make([]BombRow, 0, len(bombs))
	for _, b := range bombs {
		bombRows = append(bombRows, BombRow{
			ID:        b.ID,
			Owner:     b.Owner,
			X:         b.Position.X,
			Y:         b.Position.Y,
			FuseTicks: b.FuseTicks,
			Power:     b.Power,
		})
	}

	e.rows = append(e.rows, TickRow{
		GameID:      e.gameID,
		Tick:        int64(result.Tick),
		Version:     int64(result.Version),
		StateHash:   result.StateHash,
		RNGHash:     result.RNGHash,
		AgentsAlive: alive,
		BombsLive:   int32(len(bombRows)),
		Agents:      rows,
		Bombs:       bombRows,
		Rejects:     append([]int32(nil), rejectsByReason...),
	})
}

// Len reports how many tick rows have been accumulated so far.
func (e *Exporter) Len() int { return len(e.rows) }

// Flush writes every accumulated row to outPath as a single Parquet file,
// via a temp-file-then-rename so a concurrent reader (the tournament
// runner's analytics loader) never observes a half-written file.
func (e *Exporter) Flush(outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("replaystore: create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, e.rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "tick_row_v1"),
		parquet.KeyValueMetadata("game_id", e.gameID),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replaystore: write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replaystore: rename parquet: %w", err)
	}
	return nil
}
