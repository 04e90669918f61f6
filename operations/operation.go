package operations

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// EmptyInput is the input of steps that take none, such as starting the lottery.
type EmptyInput struct{}

// OperationHandler performs a single step.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Operation is one script step with at most one side effect, typically a single transaction.
type Operation[IN, OUT, DEP any] struct {
	step

	handler OperationHandler[IN, OUT, DEP]
}

// NewOperation returns an operation. Versions are usually written as semver.MustParse("1.0.0").
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{step: newStep(id, version, description), handler: handler}
}

func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (OUT, error) {
	b.Logger.Infow("Executing operation", o.logFields()...)

	return o.handler(b, deps, input)
}

// AsUntyped erases the type parameters so operations of different shapes can share a registry.
// A nil input or dependency becomes the zero value; any other value must have the original type.
func (o *Operation[IN, OUT, DEP]) AsUntyped() *Operation[any, any, any] {
	return &Operation[any, any, any]{
		step: o.step,
		handler: func(b Bundle, deps any, input any) (any, error) {
			in, err := assertAs[IN](input, "input")
			if err != nil {
				return nil, err
			}
			d, err := assertAs[DEP](deps, "dependencies")
			if err != nil {
				return nil, err
			}

			return o.handler(b, d, in)
		},
	}
}

func assertAs[T any](v any, what string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s type mismatch: got %T, want %T", what, v, zero)
	}

	return typed, nil
}
