package operations

import "github.com/Masterminds/semver/v3"

// SequenceHandler runs operations, or nested sequences, through the bundle it receives.
type SequenceHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Sequence is a reported group of steps, such as a full lottery run.
type Sequence[IN, OUT, DEP any] struct {
	step

	handler SequenceHandler[IN, OUT, DEP]
}

// NewSequence returns a sequence.
func NewSequence[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler SequenceHandler[IN, OUT, DEP],
) *Sequence[IN, OUT, DEP] {
	return &Sequence[IN, OUT, DEP]{step: newStep(id, version, description), handler: handler}
}
