package operations

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report records one execution of an operation or a sequence.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// ids of the reports added while a sequence ran; empty for operations
	ChildOperationReports []string `json:"childOperationReports"`
	// set when the step ran with WithForceExecute
	Forced bool `json:"forced,omitempty"`

	cause error
}

// NewReport returns a report stamped with a new id and the current time. childReportsID only
// applies to sequences.
func NewReport[IN, OUT any](
	def Definition, input IN, output OUT, err error, childReportsID ...string,
) Report[IN, OUT] {
	now := time.Now()
	r := Report[IN, OUT]{
		ID:                    uuid.NewString(),
		Def:                   def,
		Input:                 input,
		Output:                output,
		Timestamp:             &now,
		ChildOperationReports: childReportsID,
	}
	if err != nil {
		r.Err, r.cause = &ReportError{Message: err.Error()}, err
	}

	return r
}

// ToGenericReport returns r with its payload typed as any, as stored by a Reporter.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return withPayload[any, any](r, r.Input, r.Output)
}

// SequenceReport is the report of a sequence together with every report it produced, children
// first and the sequence report last.
type SequenceReport[IN, OUT any] struct {
	Report[IN, OUT]

	ExecutionReports []Report[any, any]
}

// ToGenericSequenceReport returns r with its payload typed as any.
func (r SequenceReport[IN, OUT]) ToGenericSequenceReport() SequenceReport[any, any] {
	return SequenceReport[any, any]{Report: r.ToGenericReport(), ExecutionReports: r.ExecutionReports}
}

// ReportError is the serialized form of a failed step.
type ReportError struct {
	Message string `json:"message"`
}

func (e ReportError) Error() string {
	return e.Message
}

func withPayload[I, O, IN, OUT any](r Report[IN, OUT], in I, out O) Report[I, O] {
	return Report[I, O]{
		ID:                    r.ID,
		Def:                   r.Def,
		Input:                 in,
		Output:                out,
		Timestamp:             r.Timestamp,
		Err:                   r.Err,
		ChildOperationReports: r.ChildOperationReports,
		Forced:                r.Forced,
		cause:                 r.cause,
	}
}

// decodeReport restores the payload types of a stored report. Reports read back from JSON hold
// maps for structs and float64 for numbers.
func decodeReport[IN, OUT any](r Report[any, any]) (Report[IN, OUT], error) {
	in, err := reshape[IN](r.Input)
	if err != nil {
		return Report[IN, OUT]{}, fmt.Errorf("input: %w", err)
	}
	out, err := reshape[OUT](r.Output)
	if err != nil {
		return Report[IN, OUT]{}, fmt.Errorf("output: %w", err)
	}

	return withPayload(r, in, out), nil
}

func reshape[T any](v any) (T, error) {
	var typed T
	raw, err := json.Marshal(v)
	if err != nil {
		return typed, err
	}
	err = json.Unmarshal(raw, &typed)

	return typed, err
}
