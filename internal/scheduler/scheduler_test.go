package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	botpkg "bombkernel/internal/bot"
	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/pathfind"
	"bombkernel/internal/planner"
	"bombkernel/internal/state"
)

func newTestLoop(t *testing.T, size int32) *engine.Loop {
	t.Helper()
	s, err := state.NewGameState(size, 1)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	e := engine.New(s, engine.DefaultConfig())
	return engine.NewLoop(e, engine.DefaultConfig(), engine.Hooks{}, nil)
}

func newTestBot(t *testing.T, agentID string, budget botpkg.BudgetConfig, opts ...botpkg.Option) *botpkg.Bot {
	t.Helper()
	weights := planner.Weights{Reward: 1, Distance: 1, Danger: 1, Progress: 0.1}
	replan := planner.ReplanConfig{Hysteresis: 0.1, DangerAlpha: 1, DangerThresh: 0}
	infCfg := influence.Config{Decay: 0.5, MaxInfluence: 1}
	return botpkg.New(agentID, weights, replan, pathfind.Options{Alpha: 1}, 5, infCfg, budget, opts...)
}

// TestSchedulerDrivesBotToward advances a few ticks with one live bot and
// checks the bot's commands actually move its agent through the engine.
func TestSchedulerDrivesBotToward(t *testing.T) {
	loop := newTestLoop(t, 5)
	if err := loop.Engine().State().Grid.SetTile(grid.Position{X: 3, Y: 0}, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	if err := loop.Engine().State().AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 0, Y: 0}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	b := newTestBot(t, "bot", botpkg.DefaultBudget())
	cfg := DefaultConfig()
	cfg.FaultWindowTicks = 0
	s := New(loop, cfg, nil)
	s.AddBot(b)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx, 1)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	agent := loop.Engine().State().Agents["bot"]
	if agent == nil {
		t.Fatalf("expected agent to still exist")
	}
	if agent.Position == (grid.Position{X: 0, Y: 0}) {
		t.Fatalf("expected the bot to have moved off its starting tile")
	}
}

// TestSchedulerDisqualifiesAfterRepeatedStalls exercises the S5-style
// starved-bot scenario: a bot whose decision cycle always exceeds its hard
// cap is marked faulted every cycle and, once it crosses the fault limit,
// is disqualified and stops consuming ticks — without the engine stalling.
func TestSchedulerDisqualifiesAfterRepeatedStalls(t *testing.T) {
	loop := newTestLoop(t, 5)
	if err := loop.Engine().State().AddAgent(state.AgentState{ID: "slow", Position: grid.Position{X: 0, Y: 0}, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	stallOnce := make(chan struct{})
	policy := stallingPolicy{unblock: stallOnce}
	budget := botpkg.BudgetConfig{Median: time.Millisecond, Hard: 2 * time.Millisecond}
	b := newTestBot(t, "slow", budget, botpkg.WithPolicy(policy))

	cfg := DefaultConfig()
	cfg.FaultLimit = 2
	cfg.FaultWindowTicks = 0 // never expires, for a deterministic test
	s := New(loop, cfg, nil)
	s.AddBot(b)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx, 1)
	}()

	time.Sleep(40 * time.Millisecond)
	close(stallOnce)
	cancel()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bots) != 1 {
		t.Fatalf("expected exactly one bot task, got %d", len(s.bots))
	}
	if !s.bots[0].isDisqualified() {
		t.Fatalf("expected the chronically stalled bot to be disqualified")
	}
}

// stallingPolicy blocks every Act call until unblock is closed, simulating
// a decision task stalled well past its hard cap (spec.md §8 S5).
type stallingPolicy struct {
	unblock <-chan struct{}
}

func (p stallingPolicy) Act(observation []float32) engine.Action {
	<-p.unblock
	return engine.Action{Kind: engine.ActionWait}
}
