// Package config loads and validates the enumerated run configuration
// (spec.md §6): defaults, optionally shadowed by a YAML file, optionally
// shadowed by environment variables. Grounded on the teacher's
// internal/app.Run env-override idiom (os.Getenv + strconv), generalized
// into a single typed Config instead of one-off ad hoc overrides; an
// environment value that fails to parse makes Load return an error.
package config

// Config is the full enumerated set of run options (spec.md §6).
type Config struct {
	GridSize       uint16 `yaml:"grid_size" json:"gridSize"`
	TickDurationMS uint16 `yaml:"tick_duration_ms" json:"tickDurationMs"`
	NumBots        uint16 `yaml:"num_bots" json:"numBots"`
	RNGSeed        uint64 `yaml:"rng_seed" json:"rngSeed"`

	Bomb       BombConfig       `yaml:"bomb" json:"bomb"`
	Influence  InfluenceConfig  `yaml:"influence" json:"influence"`
	Pathfinder PathfinderConfig `yaml:"pathfinder" json:"pathfinder"`
	Planner    PlannerConfig    `yaml:"planner" json:"planner"`
	Bot        BotConfig        `yaml:"bot" json:"bot"`
	Replay     ReplayConfig     `yaml:"replay" json:"replay"`
}

type BombConfig struct {
	DefaultPower     uint8 `yaml:"default_power" json:"defaultPower"`
	DefaultFuseTicks uint8 `yaml:"default_fuse_ticks" json:"defaultFuseTicks"`
}

type InfluenceConfig struct {
	Alpha float32 `yaml:"alpha" json:"alpha"`
	Decay float32 `yaml:"decay" json:"decay"`
	Max   float32 `yaml:"max" json:"max"`
}

type PathfinderConfig struct {
	MaxExpansions  uint32 `yaml:"max_expansions" json:"maxExpansions"`
	CacheCapacity  uint32 `yaml:"cache_capacity" json:"cacheCapacity"`
}

type PlannerConfig struct {
	Hysteresis float32      `yaml:"hysteresis" json:"hysteresis"`
	Weights    WeightConfig `yaml:"weights" json:"weights"`
}

type WeightConfig struct {
	Reward   float32 `yaml:"reward" json:"reward"`
	Distance float32 `yaml:"distance" json:"distance"`
	Danger   float32 `yaml:"danger" json:"danger"`
	Progress float32 `yaml:"progress" json:"progress"`
}

type BotConfig struct {
	DecisionBudgetMS uint16 `yaml:"decision_budget_ms" json:"decisionBudgetMs"`
	HardCapMS        uint16 `yaml:"hard_cap_ms" json:"hardCapMs"`
	MemoryCapBytes   uint32 `yaml:"memory_cap_bytes" json:"memoryCapBytes"`
}

type ReplayConfig struct {
	Record bool   `yaml:"record" json:"record"`
	Path   string `yaml:"path" json:"path"`
}

// Default returns the documented defaults (spec.md §6). RNGSeed is left at
// 0, the package's sentinel for "not yet chosen" — Load requires it be
// supplied explicitly by a file or environment override (spec.md §7:
// "missing seed" is named as a fail-fast configuration error).
func Default() Config {
	return Config{
		GridSize:       16,
		TickDurationMS: 16,
		NumBots:        2,
		RNGSeed:        0,
		Bomb: BombConfig{
			DefaultPower:     2,
			DefaultFuseTicks: 3,
		},
		Influence: InfluenceConfig{
			Alpha: 1,
			Decay: 0.5,
			Max:   1,
		},
		Pathfinder: PathfinderConfig{
			MaxExpansions: 2048,
			CacheCapacity: 256,
		},
		Planner: PlannerConfig{
			Hysteresis: 0.1,
			Weights: WeightConfig{
				Reward:   1,
				Distance: 1,
				Danger:   1,
				Progress: 0.1,
			},
		},
		Bot: BotConfig{
			DecisionBudgetMS: 1,
			HardCapMS:        2,
			MemoryCapBytes:   16 << 20,
		},
		Replay: ReplayConfig{
			Record: false,
			Path:   "",
		},
	}
}
