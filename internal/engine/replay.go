package engine

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Magic identifies a bombkernel replay file (spec.md §6: "MAGIC(u32)").
const Magic uint32 = 0x424D4B31 // "BMK1"

// SchemaVersion versions the replay frame layout itself, independent of the
// observation_schema_version used by to_observation (spec.md §6).
const SchemaVersion uint32 = 1

// zstdMagicBytes is zstd's own frame magic; playback sniffs for it immediately
// after the bombkernel header to detect optional compression transparently
// (SPEC_FULL §9: "transparent to playback, which detects the frame magic
// and decompresses before parsing").
var zstdMagicBytes = [4]byte{0x28, 0xb5, 0x2f, 0xfd}

// TickRecord is one committed tick's replay entry (spec.md §6).
type TickRecord struct {
	Tick      uint64
	RNGHash   uint64
	StateHash uint64
	Commands  []Command
	Delta     state.Delta
}

// Recorder appends tick records to an underlying writer as they are
// produced, after NewRecorder has written the magic, schema version, and
// initial state blob.
type Recorder struct {
	w       io.Writer
	closer  io.Closer
	lastCmd []Command // commands applied in the tick just recorded, set by the caller via RecordCommands
}

// NewRecorder writes the replay header (magic, schema version, initial
// state) and returns a Recorder ready to Append tick records. If compress
// is true, the entire stream after the bombkernel magic and schema version
// is wrapped in a zstd frame.
func NewRecorder(w io.Writer, initial *state.GameState, compress bool) (*Recorder, error) {
	bw := bufio.NewWriter(w)
	if err := writeU32(bw, Magic); err != nil {
		return nil, err
	}
	if err := writeU32(bw, SchemaVersion); err != nil {
		return nil, err
	}

	var body io.Writer = bw
	var zw *zstd.Encoder
	if compress {
		enc, err := zstd.NewWriter(bw)
		if err != nil {
			return nil, err
		}
		zw = enc
		body = enc
	}

	if err := encodeGameState(body, initial); err != nil {
		return nil, err
	}

	rec := &Recorder{w: body}
	if zw != nil {
		rec.closer = zw
	}
	if flusher, ok := body.(interface{ Flush() error }); ok {
		_ = flusher
	}
	// bw itself must be flushed on Close so buffered header/body bytes reach
	// the underlying writer.
	rec.closer = flushCloser{flush: bw.Flush, inner: rec.closer}
	return rec, nil
}

type flushCloser struct {
	flush func() error
	inner io.Closer
}

func (f flushCloser) Close() error {
	if f.inner != nil {
		if err := f.inner.Close(); err != nil {
			return err
		}
	}
	return f.flush()
}

// RecordCommands stashes the commands applied in the tick about to be
// Appended; Engine.Step doesn't echo its input back in StepResult, so the
// caller (Loop) supplies them separately.
func (r *Recorder) RecordCommands(cmds []Command) {
	r.lastCmd = cmds
}

// Append writes one tick_record: tick | rng_hash | state_hash |
// commands_len | commands | delta_len | delta (spec.md §6).
func (r *Recorder) Append(result StepResult) error {
	if err := writeU64(r.w, result.Tick); err != nil {
		return err
	}
	if err := writeU64(r.w, result.RNGHash); err != nil {
		return err
	}
	if err := writeU64(r.w, result.StateHash); err != nil {
		return err
	}
	cmdBytes, err := encodeCommandsToBytes(r.lastCmd)
	if err != nil {
		return err
	}
	if err := writeU32(r.w, uint32(len(cmdBytes))); err != nil {
		return err
	}
	if _, err := r.w.Write(cmdBytes); err != nil {
		return err
	}
	deltaBytes, err := encodeDeltaToBytes(result.Delta)
	if err != nil {
		return err
	}
	if err := writeU32(r.w, uint32(len(deltaBytes))); err != nil {
		return err
	}
	if _, err := r.w.Write(deltaBytes); err != nil {
		return err
	}
	return nil
}

// Close flushes any buffering (and the zstd frame footer, if compressed).
func (r *Recorder) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Playback reads a replay file tick by tick, verifying each state_hash
// against a live GameState reconstructed by replaying deltas from the
// initial blob (spec.md §6: "Playback verifies state_hash each tick;
// mismatch is a hard failure").
type Playback struct {
	r     io.Reader
	State *state.GameState
}

// OpenPlayback reads the header and initial state, returning a Playback
// positioned at the first tick record.
func OpenPlayback(r io.Reader) (*Playback, error) {
	br := bufio.NewReader(r)
	magic, err := readU32(br)
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("engine: bad replay magic %#x", magic)
	}
	schema, err := readU32(br)
	if err != nil {
		return nil, err
	}
	if schema != SchemaVersion {
		return nil, fmt.Errorf("engine: unsupported replay schema version %d", schema)
	}

	peeked, err := br.Peek(4)
	var body io.Reader = br
	if err == nil && bytes.Equal(peeked, zstdMagicBytes[:]) {
		dec, derr := zstd.NewReader(br)
		if derr != nil {
			return nil, derr
		}
		body = dec
	}

	gs, err := decodeGameState(body)
	if err != nil {
		return nil, err
	}
	return &Playback{r: body, State: gs}, nil
}

// ErrDeterminismMismatch is returned by Next when a replayed tick's state
// hash disagrees with the recorded one — a fail-fast Determinism error
// (spec.md §7).
type ErrDeterminismMismatch struct {
	Tick     uint64
	Expected uint64
	Actual   uint64
}

func (e *ErrDeterminismMismatch) Error() string {
	return fmt.Sprintf("engine: determinism mismatch at tick %d: expected %#x, got %#x", e.Tick, e.Expected, e.Actual)
}

// Next reads and applies the next tick_record, verifying its state_hash.
// Returns io.EOF when the stream is exhausted.
func (p *Playback) Next() (TickRecord, error) {
	tick, err := readU64(p.r)
	if err != nil {
		return TickRecord{}, err
	}
	rngHash, err := readU64(p.r)
	if err != nil {
		return TickRecord{}, err
	}
	stateHash, err := readU64(p.r)
	if err != nil {
		return TickRecord{}, err
	}
	cmdLen, err := readU32(p.r)
	if err != nil {
		return TickRecord{}, err
	}
	cmdBytes := make([]byte, cmdLen)
	if _, err := io.ReadFull(p.r, cmdBytes); err != nil {
		return TickRecord{}, err
	}
	commands, err := decodeCommandsFromBytes(cmdBytes)
	if err != nil {
		return TickRecord{}, err
	}
	deltaLen, err := readU32(p.r)
	if err != nil {
		return TickRecord{}, err
	}
	deltaBytes := make([]byte, deltaLen)
	if _, err := io.ReadFull(p.r, deltaBytes); err != nil {
		return TickRecord{}, err
	}
	delta, err := decodeDeltaFromBytes(deltaBytes)
	if err != nil {
		return TickRecord{}, err
	}

	if err := p.State.ApplyDeltaBatch(delta.Changes); err != nil {
		return TickRecord{}, err
	}
	// The delta stream does not carry RNG draws (bomb ids are minted from the
	// RNG), so the recorded rng_hash, which is the engine's RNG state after
	// the tick, is restored before the state hash is checked.
	if p.State.RNG != nil {
		p.State.RNG.State = rngHash
	}
	actual := p.State.HashState()
	if actual != stateHash {
		return TickRecord{}, &ErrDeterminismMismatch{Tick: tick, Expected: stateHash, Actual: actual}
	}

	return TickRecord{Tick: tick, RNGHash: rngHash, StateHash: stateHash, Commands: commands, Delta: delta}, nil
}

// --- low-level framing helpers ---

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writePosition(w io.Writer, p grid.Position) error {
	if err := binary.Write(w, binary.LittleEndian, p.X); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, p.Y)
}

func readPosition(r io.Reader) (grid.Position, error) {
	var p grid.Position
	if err := binary.Read(r, binary.LittleEndian, &p.X); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Y); err != nil {
		return p, err
	}
	return p, nil
}

func writePositions(w io.Writer, ps []grid.Position) error {
	if err := writeU32(w, uint32(len(ps))); err != nil {
		return err
	}
	for _, p := range ps {
		if err := writePosition(w, p); err != nil {
			return err
		}
	}
	return nil
}

func readPositions(r io.Reader) ([]grid.Position, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]grid.Position, n)
	for i := range out {
		out[i], err = readPosition(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
