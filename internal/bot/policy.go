// Package bot implements the per-bot decision pipeline (spec.md §4.8,
// component C8): candidate goal generation through internal/planner, local
// incremental Influence/pathfinding state, and a bounded wall-clock budget
// B_bot. Grounded on the teacher's internal/ai.Run decision-cycle shape (a
// per-actor cadence check, state update, then exactly one emitted command)
// generalized from the teacher's compiled state-machine to this repo's
// goal/planner model.
package bot

import "bombkernel/internal/engine"

// Policy is an optional external decision hook (spec.md §4.8: "if configured
// with an external policy, steps 3-4 are replaced by policy.act(observation)").
// It must be a pure function of its input and must itself respect B_bot; the
// bot measures the whole decision cycle against the budget but does not
// interrupt the call.
//
//go:generate go tool mockgen -destination=./mocks/policy_mock.go -package=mocks . Policy
type Policy interface {
	Act(observation []float32) engine.Action
}
