package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables (spec.md §6: "Environment overrides shadow file
// values; file shadows defaults"), then validates the result against both
// the embedded JSON schema and the domain-specific checks in Validate. An
// empty path skips the file layer entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	seedProvided := false

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, newError("config_path", "failed to read %q: %v", path, err)
		}
		var fileOverlay overlay
		if err := yaml.Unmarshal(data, &fileOverlay); err != nil {
			return Config{}, newError("config_path", "failed to parse %q: %v", path, err)
		}
		fileOverlay.applyTo(&cfg)
		seedProvided = seedProvided || fileOverlay.seedProvided()
	}

	envOverlay, err := envOverrides()
	if err != nil {
		return Config{}, fmt.Errorf("config: environment override: %w", err)
	}
	envOverlay.applyTo(&cfg)
	seedProvided = seedProvided || envOverlay.seedProvided()

	if err := Validate(cfg, seedProvided); err != nil {
		return Config{}, err
	}
	if err := validateSchema(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
