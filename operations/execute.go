package operations

import (
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteOperation runs operation and records its report.
//
// Without WithForceExecute, an earlier successful report of the same definition and input is
// returned instead and nothing new is recorded. Failed runs are never reused. Input and output
// must pass IsSerializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
	opts ...ExecuteOption[IN, DEP],
) (Report[IN, OUT], error) {
	if err := ensureSerializable(b, "operation", operation.def, "input", input); err != nil {
		return Report[IN, OUT]{}, err
	}

	cfg := newExecuteConfig(opts)
	if !cfg.force {
		if prev, ok := previousRun[IN, OUT](b, operation.def, input); ok {
			b.Logger.Infow("Operation already executed. Returning previous result", operation.logFields()...)
			return prev, nil
		}
	}

	output, err := runOperation(b, operation, deps, input, cfg.retryConfig)
	if err == nil {
		if serr := ensureSerializable(b, "operation", operation.def, "output", output); serr != nil {
			return Report[IN, OUT]{}, serr
		}
	}

	report := NewReport(operation.def, input, output, err)
	report.Forced = cfg.force
	if err = b.reporter.AddReport(report.ToGenericReport()); err != nil {
		return Report[IN, OUT]{}, err
	}

	return report, report.cause
}

// ExecuteSequence runs sequence and returns its report together with the reports of the steps it
// ran. An earlier successful run with the same input is returned as is.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (SequenceReport[IN, OUT], error) {
	if err := ensureSerializable(b, "sequence", sequence.def, "input", input); err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	if prev, ok := previousRun[IN, OUT](b, sequence.def, input); ok {
		reports, err := b.reporter.GetExecutionReports(prev.ID)
		if err != nil {
			return SequenceReport[IN, OUT]{}, err
		}
		b.Logger.Infow("Sequence already executed. Returning previous result", sequence.logFields()...)

		return SequenceReport[IN, OUT]{Report: prev, ExecutionReports: reports}, nil
	}

	b.Logger.Infow("Executing sequence", sequence.logFields()...)
	children := &childRecorder{Reporter: b.reporter}
	output, err := sequence.handler(b.withReporter(children), deps, input)
	if errors.Is(err, ErrNotSerializable) {
		return SequenceReport[IN, OUT]{}, err
	}
	if err == nil {
		if serr := ensureSerializable(b, "sequence", sequence.def, "output", output); serr != nil {
			return SequenceReport[IN, OUT]{}, serr
		}
	}

	report := NewReport(sequence.def, input, output, err, children.childIDs()...)
	if err = b.reporter.AddReport(report.ToGenericReport()); err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	reports, err := b.reporter.GetExecutionReports(report.ID)
	if err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	return SequenceReport[IN, OUT]{Report: report, ExecutionReports: reports}, report.cause
}

func runOperation[IN, OUT, DEP any](
	b Bundle, op *Operation[IN, OUT, DEP], deps DEP, input IN, rc RetryConfig[IN, DEP],
) (OUT, error) {
	if !rc.Enabled {
		return op.execute(b, deps, input)
	}

	current := input
	onRetry := func(attempt uint, err error) {
		b.Logger.Infow("Operation failed. Retrying...", "operation", op.def.ID, "attempt", attempt, "error", err)
		if rc.InputHook != nil {
			current = rc.InputHook(attempt, err, current, deps)
		}
	}

	opts := append(rc.Policy.options(), retry.Context(b.GetContext()), retry.OnRetry(onRetry))

	return retry.DoWithData(func() (OUT, error) {
		return op.execute(b, deps, current)
	}, opts...)
}

func ensureSerializable(b Bundle, kind string, def Definition, what string, v any) error {
	if IsSerializable(b.Logger, v) {
		return nil
	}

	return fmt.Errorf("%s %s %s: %w", kind, def.ID, what, ErrNotSerializable)
}

// previousRun finds a successful report of def with an equal input.
func previousRun[IN, OUT any](b Bundle, def Definition, input IN) (Report[IN, OUT], bool) {
	want, err := inputHash(def, input)
	if err != nil {
		b.Logger.Errorw("Failed to hash input", "id", def.ID, "error", err)
		return Report[IN, OUT]{}, false
	}

	reports, err := b.reporter.GetReports()
	if err != nil {
		b.Logger.Errorw("Failed to read previous reports", "error", err)
		return Report[IN, OUT]{}, false
	}

	for _, r := range reports {
		if r.Err != nil {
			continue
		}
		if h, herr := b.reportHash(r); herr != nil || h != want {
			continue
		}

		typed, derr := decodeReport[IN, OUT](r)
		if derr != nil {
			b.Logger.Debugw("Previous run has an incompatible payload", "id", def.ID, "report_id", r.ID, "error", derr)
			continue
		}
		b.Logger.Debugw("Found previous run", "id", def.ID, "report_id", r.ID)

		return typed, true
	}

	return Report[IN, OUT]{}, false
}
