package bot

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"bombkernel/internal/bot/mocks"
	"bombkernel/internal/engine"
	"bombkernel/internal/grid"
	"bombkernel/internal/influence"
	"bombkernel/internal/pathfind"
	"bombkernel/internal/planner"
	"bombkernel/internal/state"
)

func testWeights() planner.Weights {
	return planner.Weights{Reward: 1, Distance: 1, Danger: 1, Progress: 0.1}
}

func testReplan() planner.ReplanConfig {
	return planner.ReplanConfig{Hysteresis: 0.1, DangerAlpha: 1, DangerThresh: 0}
}

func testInfluenceConfig() influence.Config {
	return influence.Config{Decay: 0.5, MaxInfluence: 1}
}

func newTestGameState(t *testing.T, size int32) *state.GameState {
	t.Helper()
	s, err := state.NewGameState(size, 1)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return s
}

func newTestBot(agentID string, budget BudgetConfig, opts ...Option) *Bot {
	return New(agentID, testWeights(), testReplan(), pathfind.Options{Alpha: 1}, 5, testInfluenceConfig(), budget, opts...)
}

func TestDecideUsesPolicyWhenConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestGameState(t, 5)
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 1, Y: 1}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	wantAction := engine.Action{Kind: engine.ActionMove, Direction: grid.East}
	policy := mocks.NewMockPolicy(ctrl)
	policy.EXPECT().Act(gomock.Any()).Return(wantAction)

	b := newTestBot("bot", DefaultBudget(), WithPolicy(policy))
	cmd, report := b.Decide(context.Background(), snap, nil)

	if !report.UsedPolicy {
		t.Fatalf("expected UsedPolicy to be true")
	}
	if cmd.Action != wantAction {
		t.Fatalf("expected policy action to pass through unchanged, got %+v", cmd.Action)
	}
}

func TestDecideMapsInvalidPolicyActionToWait(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestGameState(t, 5)
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 1, Y: 1}, MaxBombs: 1, BombsRemaining: 0, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	// PlaceBomb with no bombs remaining is invalid.
	invalid := engine.Action{Kind: engine.ActionPlaceBomb}
	policy := mocks.NewMockPolicy(ctrl)
	policy.EXPECT().Act(gomock.Any()).Return(invalid)

	b := newTestBot("bot", DefaultBudget(), WithPolicy(policy))
	cmd, _ := b.Decide(context.Background(), snap, nil)

	if cmd.Action.Kind != engine.ActionWait {
		t.Fatalf("expected invalid policy action to map to Wait, got %+v", cmd.Action)
	}
}

func TestDecideMovesTowardCrateWithoutPolicy(t *testing.T) {
	s := newTestGameState(t, 5)
	if err := s.Grid.SetTile(grid.Position{X: 3, Y: 0}, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 0, Y: 0}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	b := newTestBot("bot", DefaultBudget())
	cmd, report := b.Decide(context.Background(), snap, nil)

	if report.GoalKind != planner.KindNearestCrate {
		t.Fatalf("expected NearestCrate goal, got %v", report.GoalKind)
	}
	if cmd.Action.Kind != engine.ActionMove {
		t.Fatalf("expected a move toward the crate, got %+v", cmd.Action)
	}
}

func TestDecidePlacesBombOnArrival(t *testing.T) {
	s := newTestGameState(t, 5)
	if err := s.Grid.SetTile(grid.Position{X: 1, Y: 0}, grid.Tile{Kind: grid.TileSoftCrate}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}
	// Agent already sits on a tile adjacent to the crate, the nearest one.
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 0, Y: 0}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	b := newTestBot("bot", DefaultBudget())
	cmd, report := b.Decide(context.Background(), snap, nil)

	if report.GoalKind != planner.KindNearestCrate {
		t.Fatalf("expected NearestCrate goal, got %v", report.GoalKind)
	}
	if cmd.Action.Kind != engine.ActionPlaceBomb {
		t.Fatalf("expected a bomb placement on arrival, got %+v", cmd.Action)
	}
}

func TestDecideReportsDegradedOnHardBudgetOverrun(t *testing.T) {
	s := newTestGameState(t, 5)
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 0, Y: 0}, MaxBombs: 1, BombsRemaining: 1, BlastPower: 2, Alive: true}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	start := time.Unix(0, 0)
	calls := 0
	clock := func() time.Time {
		defer func() { calls++ }()
		if calls == 0 {
			return start
		}
		return start.Add(5 * time.Millisecond)
	}

	b := newTestBot("bot", BudgetConfig{Median: time.Millisecond, Hard: 2 * time.Millisecond}, WithClock(clock))
	cmd, report := b.Decide(context.Background(), snap, nil)

	if !report.Degraded {
		t.Fatalf("expected Degraded to be true after a hard budget overrun")
	}
	if cmd.AgentID != "bot" {
		t.Fatalf("expected a normal command to still be returned, got %+v", cmd)
	}
}

func TestDecideDeadAgentEmitsWait(t *testing.T) {
	s := newTestGameState(t, 5)
	if err := s.AddAgent(state.AgentState{ID: "bot", Position: grid.Position{X: 0, Y: 0}, Alive: false}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	snap := s.PublishSnapshot()

	b := newTestBot("bot", DefaultBudget())
	cmd, _ := b.Decide(context.Background(), snap, nil)

	if cmd.Action.Kind != engine.ActionWait {
		t.Fatalf("expected a dead agent to emit Wait, got %+v", cmd.Action)
	}
}
