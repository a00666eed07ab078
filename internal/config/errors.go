package config

import "fmt"

// Error is a fail-fast configuration error (spec.md §7: "Configuration
// errors (fail-fast at startup): invalid grid size, missing seed,
// contradictory weights"). Field names the offending option using its
// YAML key path (e.g. "planner.weights").
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func newError(field, reason string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(reason, args...)}
}
