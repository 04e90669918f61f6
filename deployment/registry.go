package deployment

import (
	"github.com/smartcontractkit/lottery-deployments/contracts"
)

// Registry is the deployment history of one network. Records of a type are kept in the order they
// were saved so the most recent deployment can be looked up.
type Registry interface {
	// Save appends a record. It errors on a duplicate address.
	Save(rec Record) error
	// Latest returns the most recently saved record of the type, or ErrNotFound.
	Latest(t contracts.Type) (Record, error)
	// All returns the records of the type, oldest first.
	All(t contracts.Type) ([]Record, error)
	// Len returns the number of records of the type.
	Len(t contracts.Type) int
	// Records returns every record ordered by type, then save order.
	Records() []Record
}
