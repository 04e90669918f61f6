package operations

import (
	"github.com/Masterminds/semver/v3"
)

// Definition identifies a script step. Reports of steps with the same ID and version are
// interchangeable.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// String returns the definition as id@version.
func (d Definition) String() string {
	return d.ID + "@" + d.versionString()
}

func (d Definition) versionString() string {
	if d.Version == nil {
		return ""
	}

	return d.Version.String()
}

// step holds the definition shared by operations and sequences.
type step struct {
	def Definition
}

func newStep(id string, version *semver.Version, description string) step {
	return step{def: Definition{ID: id, Version: version, Description: description}}
}

// ID returns the step id.
func (s step) ID() string { return s.def.ID }

// Version returns the step version, e.g. "1.0.0".
func (s step) Version() string { return s.def.versionString() }

// Description returns the step description.
func (s step) Description() string { return s.def.Description }

// Def returns the full definition.
func (s step) Def() Definition { return s.def }

// logFields are the key/value pairs identifying the step in log lines.
func (s step) logFields() []any {
	return []any{"id", s.def.ID, "version", s.def.versionString(), "description", s.def.Description}
}
