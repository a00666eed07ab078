package config

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaSource string

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaSource)); err != nil {
		panic("config: invalid embedded schema: " + err.Error())
	}
	s, err := compiler.Compile("config.schema.json")
	if err != nil {
		panic("config: failed to compile embedded schema: " + err.Error())
	}
	compiledSchema = s
}

// validateSchema checks cfg's JSON shape against the embedded schema
// (grounded on hellsoul86-voxelcraft.ai's internal/protocol schema
// compile-then-validate pattern), independent of the domain-specific
// range checks in Validate.
func validateSchema(cfg Config) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return newError("config", "failed to marshal for schema validation: %v", err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return newError("config", "failed to decode for schema validation: %v", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return newError("config", "schema validation failed: %v", err)
	}
	return nil
}
