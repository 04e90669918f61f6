package operations

import (
	"fmt"
	"slices"
	"strings"
)

// OperationRegistry looks up untyped operations by id and version, e.g. to list the steps the CLI
// can run or to replay a report.
type OperationRegistry struct {
	ops []*Operation[any, any, any]
}

func NewOperationRegistry(ops ...*Operation[any, any, any]) *OperationRegistry {
	return &OperationRegistry{ops: ops}
}

// RegisterOperation adds typed operations to r.
func RegisterOperation[I, O, D any](r *OperationRegistry, op ...*Operation[I, O, D]) {
	for _, o := range op {
		r.ops = append(r.ops, o.AsUntyped())
	}
}

// Retrieve returns the operation matching the id and version of def.
func (r OperationRegistry) Retrieve(def Definition) (*Operation[any, any, any], error) {
	i := slices.IndexFunc(r.ops, func(op *Operation[any, any, any]) bool {
		return op.ID() == def.ID && op.Version() == def.versionString()
	})
	if i < 0 {
		return nil, fmt.Errorf("operation not found in registry: %s", def)
	}

	return r.ops[i], nil
}

// Definitions lists the registered definitions ordered by id.
func (r OperationRegistry) Definitions() []Definition {
	defs := make([]Definition, len(r.ops))
	for i, op := range r.ops {
		defs[i] = op.Def()
	}
	slices.SortStableFunc(defs, func(a, b Definition) int {
		return strings.Compare(a.ID, b.ID)
	})

	return defs
}
