package bot

import "time"

// BudgetConfig bounds one decision cycle's wall-clock cost (spec.md §4.8:
// "B_bot (default 1ms median, 2ms hard cap)"). Exceeding either is never
// fatal (spec.md §4.8: "budget overruns are not fatal"); Median exceedances
// are only reported, Hard exceedances are reported and flagged Degraded on
// the returned Report so a caller can track it in telemetry.
type BudgetConfig struct {
	Median time.Duration
	Hard   time.Duration
}

// DefaultBudget returns the spec.md §4.8 documented defaults.
func DefaultBudget() BudgetConfig {
	return BudgetConfig{Median: time.Millisecond, Hard: 2 * time.Millisecond}
}
