package config

// overlay mirrors Config with every leaf as a pointer, so a YAML document
// that omits a key leaves the corresponding Config field at its existing
// value instead of being zeroed by an ordinary struct unmarshal (spec.md
// §6: "file shadows defaults"). seedProvided reports whether rng_seed was
// actually present in the layer, since 0 is both the zero value and a
// plausible caller-chosen seed.
type overlay struct {
	GridSize       *uint16 `yaml:"grid_size"`
	TickDurationMS *uint16 `yaml:"tick_duration_ms"`
	NumBots        *uint16 `yaml:"num_bots"`
	RNGSeed        *uint64 `yaml:"rng_seed"`

	Bomb       *bombOverlay       `yaml:"bomb"`
	Influence  *influenceOverlay  `yaml:"influence"`
	Pathfinder *pathfinderOverlay `yaml:"pathfinder"`
	Planner    *plannerOverlay    `yaml:"planner"`
	Bot        *botOverlay        `yaml:"bot"`
	Replay     *replayOverlay     `yaml:"replay"`
}

type bombOverlay struct {
	DefaultPower     *uint8 `yaml:"default_power"`
	DefaultFuseTicks *uint8 `yaml:"default_fuse_ticks"`
}

type influenceOverlay struct {
	Alpha *float32 `yaml:"alpha"`
	Decay *float32 `yaml:"decay"`
	Max   *float32 `yaml:"max"`
}

type pathfinderOverlay struct {
	MaxExpansions *uint32 `yaml:"max_expansions"`
	CacheCapacity *uint32 `yaml:"cache_capacity"`
}

type plannerOverlay struct {
	Hysteresis *float32        `yaml:"hysteresis"`
	Weights    *weightsOverlay `yaml:"weights"`
}

type weightsOverlay struct {
	Reward   *float32 `yaml:"reward"`
	Distance *float32 `yaml:"distance"`
	Danger   *float32 `yaml:"danger"`
	Progress *float32 `yaml:"progress"`
}

type botOverlay struct {
	DecisionBudgetMS *uint16 `yaml:"decision_budget_ms"`
	HardCapMS        *uint16 `yaml:"hard_cap_ms"`
	MemoryCapBytes   *uint32 `yaml:"memory_cap_bytes"`
}

type replayOverlay struct {
	Record *bool   `yaml:"record"`
	Path   *string `yaml:"path"`
}

// applyTo overwrites cfg's fields with every non-nil overlay leaf.
func (o overlay) applyTo(cfg *Config) {
	if o.GridSize != nil {
		cfg.GridSize = *o.GridSize
	}
	if o.TickDurationMS != nil {
		cfg.TickDurationMS = *o.TickDurationMS
	}
	if o.NumBots != nil {
		cfg.NumBots = *o.NumBots
	}
	if o.RNGSeed != nil {
		cfg.RNGSeed = *o.RNGSeed
	}
	if o.Bomb != nil {
		if o.Bomb.DefaultPower != nil {
			cfg.Bomb.DefaultPower = *o.Bomb.DefaultPower
		}
		if o.Bomb.DefaultFuseTicks != nil {
			cfg.Bomb.DefaultFuseTicks = *o.Bomb.DefaultFuseTicks
		}
	}
	if o.Influence != nil {
		if o.Influence.Alpha != nil {
			cfg.Influence.Alpha = *o.Influence.Alpha
		}
		if o.Influence.Decay != nil {
			cfg.Influence.Decay = *o.Influence.Decay
		}
		if o.Influence.Max != nil {
			cfg.Influence.Max = *o.Influence.Max
		}
	}
	if o.Pathfinder != nil {
		if o.Pathfinder.MaxExpansions != nil {
			cfg.Pathfinder.MaxExpansions = *o.Pathfinder.MaxExpansions
		}
		if o.Pathfinder.CacheCapacity != nil {
			cfg.Pathfinder.CacheCapacity = *o.Pathfinder.CacheCapacity
		}
	}
	if o.Planner != nil {
		if o.Planner.Hysteresis != nil {
			cfg.Planner.Hysteresis = *o.Planner.Hysteresis
		}
		if w := o.Planner.Weights; w != nil {
			if w.Reward != nil {
				cfg.Planner.Weights.Reward = *w.Reward
			}
			if w.Distance != nil {
				cfg.Planner.Weights.Distance = *w.Distance
			}
			if w.Danger != nil {
				cfg.Planner.Weights.Danger = *w.Danger
			}
			if w.Progress != nil {
				cfg.Planner.Weights.Progress = *w.Progress
			}
		}
	}
	if o.Bot != nil {
		if o.Bot.DecisionBudgetMS != nil {
			cfg.Bot.DecisionBudgetMS = *o.Bot.DecisionBudgetMS
		}
		if o.Bot.HardCapMS != nil {
			cfg.Bot.HardCapMS = *o.Bot.HardCapMS
		}
		if o.Bot.MemoryCapBytes != nil {
			cfg.Bot.MemoryCapBytes = *o.Bot.MemoryCapBytes
		}
	}
	if o.Replay != nil {
		if o.Replay.Record != nil {
			cfg.Replay.Record = *o.Replay.Record
		}
		if o.Replay.Path != nil {
			cfg.Replay.Path = *o.Replay.Path
		}
	}
}

// seedProvided reports whether rng_seed was present in the overlay,
// distinct from being present-but-zero.
func (o overlay) seedProvided() bool { return o.RNGSeed != nil }
