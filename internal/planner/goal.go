// Package planner implements the Goal Planner (spec.md §4.6, component C6):
// candidate goal generation, weighted scoring, hysteresis-gated replanning,
// and the per-goal Selected->Planned->Executing->{Completed|Aborted} state
// machine. Grounded on other_examples/ceyewan-Bombman__controller.go's
// safety-first behavior-tree selector (flee beats attack) for goal
// priority, and the teacher's internal/ai/executor.go decision-cycle/FSM
// shape (per-actor state index, transition evaluation) for the replan loop.
package planner

import "bombkernel/internal/grid"

// Kind identifies a candidate goal's generator.
type Kind string

const (
	KindNearestCrate    Kind = "nearest_crate"
	KindNearestPowerUp  Kind = "nearest_power_up"
	KindAttackWeakest   Kind = "attack_weakest"
	KindFleeToSafe      Kind = "flee_to_safe"
	KindIdle            Kind = "idle"
)

// Status is a goal's lifecycle stage (spec.md §4.6).
type Status string

const (
	StatusSelected  Status = "selected"
	StatusPlanned   Status = "planned"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Candidate is one scored, not-yet-planned goal.
type Candidate struct {
	Kind   Kind
	Target grid.Position
	Reward float32
}

// Goal is the planner's single active objective plus its current plan.
type Goal struct {
	Kind     Kind
	Target   grid.Position
	Status   Status
	Plan     []grid.Position // path from the agent's tile at planning time to Target; Plan[StepIdx] is the next tile to move to
	StepIdx  int
	Score    float32
}

// Weights configures score = w_reward*R - w_distance*pathCost -
// w_danger*pathDanger + w_progress*progress (spec.md §4.6, §6).
type Weights struct {
	Reward   float32
	Distance float32
	Danger   float32
	Progress float32
}

// ReplanConfig tunes replan triggers (spec.md §4.6, §6).
type ReplanConfig struct {
	Hysteresis    float32 // in [0, 1]
	DangerAlpha   float32
	DangerThresh  float32
}
