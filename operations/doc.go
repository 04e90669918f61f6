/*
Package operations runs the lottery scripts as a series of versioned, reported steps.

Each script step (deploying a mock, deploying the Lottery, starting, entering, ending) is an
[Operation]: an ID, a semver version, a description and a handler that performs at most one side
effect. Steps are executed with [ExecuteOperation], which records a [Report] of the input, output
and error in a [Reporter]. A [Sequence] groups steps, e.g. the full deploy-start-enter-end run.

Deduplication:
  - An operation executed again with an identical input returns the previous successful report
    instead of running again. Use [WithForceExecute] for steps that must always run, such as
    entering the lottery twice with the same account.

Retries:
  - Disabled by default. [WithRetry] retries a failed step using avast/retry-go. Return an error
    wrapped with [NewUnrecoverableError] to stop retrying.

Reports:
  - [MemoryReporter] keeps reports for the lifetime of the process. [FileReporter] also writes them
    to a JSON file named after a ksuid run id.

# Usage

	op := operations.NewOperation("start-lottery", semver.MustParse("1.0.0"), "Start the lottery",
		func(b operations.Bundle, deps Deps, input StartInput) (TxOutput, error) { ... },
	)

	bundle := operations.NewBundle(ctx, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input, operations.WithForceExecute[StartInput, Deps]())
*/
package operations
