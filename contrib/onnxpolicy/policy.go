//go:build onnx

// Package onnxpolicy implements bot.Policy by running an exported ONNX
// model (SPEC_FULL.md §6: "the core exposes the observation and
// policy-hook interfaces but the model runtime itself is external"). It is
// opt-in via the "onnx" build tag so the rest of the module never links
// against onnxruntime's cgo shared library.
//
// Grounded on brensch-snek2/executor/inference/onnx.go's OnnxClient: one
// ORT session per Policy, requests funneled through a channel into a
// ticker/size-triggered batchLoop, batched Run calls, per-request result
// channels. Adapted from the teacher's (policy, value) dual-head snake
// model to a single policy head over this repo's six-way discrete action
// set; the value head is still read back and exposed via LastValue for a
// caller that wants it (e.g. an MCTS-style search), but bot.Policy itself
// only consumes the policy head.
package onnxpolicy

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// ActionClasses is the fixed policy head width: wait, four cardinal moves,
// place_bomb, in that declared order.
const ActionClasses = 6

// InputSize is the flattened observation length a model exported for
// state.ObservationSchemaVersion must accept. A model trained against a
// different schema version is a deployment error, not something this
// package can validate from the feature vector alone.
const InputSize = state.ObservationLength

var actionOrder = [ActionClasses]engine.Action{
	{Kind: engine.ActionWait},
	{Kind: engine.ActionMove, Direction: grid.North},
	{Kind: engine.ActionMove, Direction: grid.South},
	{Kind: engine.ActionMove, Direction: grid.East},
	{Kind: engine.ActionMove, Direction: grid.West},
	{Kind: engine.ActionPlaceBomb},
}

// Config tunes request batching, mirroring the teacher's OnnxClientConfig.
type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
}

// DefaultConfig matches the teacher's defaults, tuned down for the smaller
// per-decision budget B_bot imposes (spec.md §4.8) relative to the
// teacher's offline self-play batch sizes.
func DefaultConfig() Config {
	return Config{BatchSize: 32, BatchTimeout: 500 * time.Microsecond}
}

type request struct {
	input []float32
	resp  chan response
}

type response struct {
	policy []float32
	value  float32
	err    error
}

// Policy is a bot.Policy backed by one ONNX Runtime session.
type Policy struct {
	session *ort.DynamicAdvancedSession
	cfg     Config
	reqs    chan request

	lastMu    sync.Mutex
	lastValue float32
}

var ortInitOnce sync.Once
var ortInitErr error

// New loads the model at modelPath and starts the session's batch loop.
func New(modelPath string) (*Policy, error) {
	return NewWithConfig(modelPath, DefaultConfig())
}

// NewWithConfig is New with explicit batching parameters.
func NewWithConfig(modelPath string, cfg Config) (*Policy, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultConfig().BatchTimeout
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("onnxpolicy: init ort environment: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxpolicy: session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{"observation"}, []string{"policy", "value"}, options)
	if err != nil {
		return nil, fmt.Errorf("onnxpolicy: create session: %w", err)
	}

	p := &Policy{
		session: session,
		cfg:     cfg,
		reqs:    make(chan request, cfg.BatchSize*2),
	}
	go p.batchLoop()
	return p, nil
}

// Close releases the underlying ORT session.
func (p *Policy) Close() error {
	return p.session.Destroy()
}

// LastValue returns the value head's output from the most recently
// completed Act call, useful for a caller logging bot self-assessed
// position value alongside the chosen action.
func (p *Policy) LastValue() float32 {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	return p.lastValue
}

// Act implements bot.Policy. It blocks until the request's batch has run,
// which — given B_bot's sub-millisecond budget (spec.md §4.8, §6) — means
// BatchTimeout must be tuned well below the bot's hard cap for this policy
// to avoid degrading every decision cycle.
func (p *Policy) Act(observation []float32) engine.Action {
	respChan := make(chan response, 1)
	p.reqs <- request{input: observation, resp: respChan}
	resp := <-respChan
	if resp.err != nil {
		return engine.Action{Kind: engine.ActionWait}
	}

	p.lastMu.Lock()
	p.lastValue = resp.value
	p.lastMu.Unlock()

	return actionOrder[argmax(resp.policy)]
}

func argmax(xs []float32) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

func (p *Policy) batchLoop() {
	batchInput := make([]float32, 0, p.cfg.BatchSize*InputSize)
	pending := make([]request, 0, p.cfg.BatchSize)

	ticker := time.NewTicker(p.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case req := <-p.reqs:
			pending = append(pending, req)
			batchInput = append(batchInput, req.input...)
			if len(pending) >= p.cfg.BatchSize {
				p.runBatch(pending, batchInput)
				pending = pending[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(pending) > 0 {
				p.runBatch(pending, batchInput)
				pending = pending[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (p *Policy) runBatch(pending []request, batchInput []float32) {
	n := int64(len(pending))

	inputTensor, err := ort.NewTensor(ort.NewShape(n, int64(InputSize)), batchInput)
	if err != nil {
		p.failBatch(pending, err)
		return
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, ActionClasses))
	if err != nil {
		p.failBatch(pending, err)
		return
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		p.failBatch(pending, err)
		return
	}
	defer valueTensor.Destroy()

	if err := p.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor}); err != nil {
		p.failBatch(pending, err)
		return
	}

	policyData := policyTensor.GetData()
	valueData := valueTensor.GetData()
	for i, req := range pending {
		policy := make([]float32, ActionClasses)
		copy(policy, policyData[i*ActionClasses:(i+1)*ActionClasses])
		req.resp <- response{policy: policy, value: valueData[i]}
	}
}

func (p *Policy) failBatch(pending []request, err error) {
	for _, req := range pending {
		req.resp <- response{err: err}
	}
}
