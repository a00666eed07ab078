package config

import (
	"os"
	"strconv"
)

// envOverrides builds an overlay from environment variables (spec.md §6:
// "Environment overrides shadow file values"). Grounded on the teacher's
// internal/app.Run idiom of os.Getenv + strconv with a fail-fast-on-error
// parse, generalized from a handful of ad hoc toggles to the full
// enumerated option set.
func envOverrides() (overlay, error) {
	var o overlay
	var err error

	o.GridSize, err = envUint16("BOMBKERNEL_GRID_SIZE", err)
	o.TickDurationMS, err = envUint16("BOMBKERNEL_TICK_DURATION_MS", err)
	o.NumBots, err = envUint16("BOMBKERNEL_NUM_BOTS", err)
	o.RNGSeed, err = envUint64("BOMBKERNEL_RNG_SEED", err)

	var bomb bombOverlay
	bomb.DefaultPower, err = envUint8("BOMBKERNEL_BOMB_DEFAULT_POWER", err)
	bomb.DefaultFuseTicks, err = envUint8("BOMBKERNEL_BOMB_DEFAULT_FUSE_TICKS", err)
	if bomb != (bombOverlay{}) {
		o.Bomb = &bomb
	}

	var influence influenceOverlay
	influence.Alpha, err = envFloat32("BOMBKERNEL_INFLUENCE_ALPHA", err)
	influence.Decay, err = envFloat32("BOMBKERNEL_INFLUENCE_DECAY", err)
	influence.Max, err = envFloat32("BOMBKERNEL_INFLUENCE_MAX", err)
	if influence != (influenceOverlay{}) {
		o.Influence = &influence
	}

	var pf pathfinderOverlay
	pf.MaxExpansions, err = envUint32("BOMBKERNEL_PATHFINDER_MAX_EXPANSIONS", err)
	pf.CacheCapacity, err = envUint32("BOMBKERNEL_PATHFINDER_CACHE_CAPACITY", err)
	if pf != (pathfinderOverlay{}) {
		o.Pathfinder = &pf
	}

	var weights weightsOverlay
	weights.Reward, err = envFloat32("BOMBKERNEL_PLANNER_WEIGHTS_REWARD", err)
	weights.Distance, err = envFloat32("BOMBKERNEL_PLANNER_WEIGHTS_DISTANCE", err)
	weights.Danger, err = envFloat32("BOMBKERNEL_PLANNER_WEIGHTS_DANGER", err)
	weights.Progress, err = envFloat32("BOMBKERNEL_PLANNER_WEIGHTS_PROGRESS", err)
	var planner plannerOverlay
	planner.Hysteresis, err = envFloat32("BOMBKERNEL_PLANNER_HYSTERESIS", err)
	if weights != (weightsOverlay{}) {
		planner.Weights = &weights
	}
	if planner != (plannerOverlay{}) {
		o.Planner = &planner
	}

	var bot botOverlay
	bot.DecisionBudgetMS, err = envUint16("BOMBKERNEL_BOT_DECISION_BUDGET_MS", err)
	bot.HardCapMS, err = envUint16("BOMBKERNEL_BOT_HARD_CAP_MS", err)
	bot.MemoryCapBytes, err = envUint32("BOMBKERNEL_BOT_MEMORY_CAP_BYTES", err)
	if bot != (botOverlay{}) {
		o.Bot = &bot
	}

	var replay replayOverlay
	replay.Record, err = envBool("BOMBKERNEL_REPLAY_RECORD", err)
	if path, ok := os.LookupEnv("BOMBKERNEL_REPLAY_PATH"); ok {
		replay.Path = &path
	}
	if replay != (replayOverlay{}) {
		o.Replay = &replay
	}

	return o, err
}

// Each env* helper short-circuits once a prior helper in the same chain
// has already failed, so envOverrides can thread one error variable
// through many fields without a forest of individual error checks.

func envUint16(name string, prior error) (*uint16, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return nil, newError(name, "invalid uint16 %q: %v", raw, err)
	}
	val := uint16(v)
	return &val, nil
}

func envUint32(name string, prior error) (*uint32, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, newError(name, "invalid uint32 %q: %v", raw, err)
	}
	val := uint32(v)
	return &val, nil
}

func envUint64(name string, prior error) (*uint64, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, newError(name, "invalid uint64 %q: %v", raw, err)
	}
	return &v, nil
}

func envUint8(name string, prior error) (*uint8, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return nil, newError(name, "invalid uint8 %q: %v", raw, err)
	}
	val := uint8(v)
	return &val, nil
}

func envFloat32(name string, prior error) (*float32, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return nil, newError(name, "invalid float32 %q: %v", raw, err)
	}
	val := float32(v)
	return &val, nil
}

func envBool(name string, prior error) (*bool, error) {
	if prior != nil {
		return nil, prior
	}
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, newError(name, "invalid bool %q: %v", raw, err)
	}
	return &v, nil
}
