package config

// Validate applies the domain-specific fail-fast checks spec.md §7 names
// as examples of configuration errors: invalid grid size, missing seed,
// contradictory weights. seedProvided distinguishes an explicitly-set
// rng_seed of 0 from one that was simply never overridden from the
// package's own zero-is-unset convention.
func Validate(cfg Config, seedProvided bool) error {
	if cfg.GridSize < 8 || cfg.GridSize > 256 {
		return newError("grid_size", "must be in [8, 256], got %d", cfg.GridSize)
	}
	if cfg.TickDurationMS == 0 {
		return newError("tick_duration_ms", "must be > 0")
	}
	if cfg.NumBots == 0 {
		return newError("num_bots", "must be > 0")
	}
	if cfg.RNGSeed == 0 && !seedProvided {
		return newError("rng_seed", "missing: an explicit seed is required for deterministic runs")
	}
	if cfg.Bot.HardCapMS < cfg.Bot.DecisionBudgetMS {
		return newError("bot.hard_cap_ms", "must be >= bot.decision_budget_ms (%d < %d)", cfg.Bot.HardCapMS, cfg.Bot.DecisionBudgetMS)
	}
	w := cfg.Planner.Weights
	if w.Reward == 0 && w.Distance == 0 && w.Danger == 0 && w.Progress == 0 {
		return newError("planner.weights", "at least one weight must be non-zero")
	}
	if w.Distance < 0 || w.Danger < 0 {
		return newError("planner.weights", "distance and danger weights must be non-negative, got distance=%v danger=%v", w.Distance, w.Danger)
	}
	if cfg.Influence.Decay <= 0 || cfg.Influence.Decay > 1 {
		return newError("influence.decay", "must be in (0, 1], got %v", cfg.Influence.Decay)
	}
	if cfg.Replay.Record && cfg.Replay.Path == "" {
		return newError("replay.path", "required when replay.record is true")
	}
	return nil
}
