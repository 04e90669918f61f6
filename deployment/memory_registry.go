package deployment

import (
	"fmt"
	"slices"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry is an in-memory Registry for a single chain.
type MemoryRegistry struct {
	selector uint64

	// byType keeps types sorted: map[contracts.Type][]Record
	byType    *treemap.Map
	addresses map[string]struct{}
	mtx       sync.RWMutex
}

// NewMemoryRegistry returns an empty registry for the chain selector.
func NewMemoryRegistry(selector uint64) *MemoryRegistry {
	return &MemoryRegistry{
		selector:  selector,
		byType:    treemap.NewWithStringComparator(),
		addresses: map[string]struct{}{},
	}
}

// ChainSelector returns the chain the registry belongs to.
func (m *MemoryRegistry) ChainSelector() uint64 { return m.selector }

// check validates rec against the registry and returns it with its chain selector filled in.
func (m *MemoryRegistry) check(rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return rec, err
	}

	switch rec.ChainSelector {
	case 0:
		rec.ChainSelector = m.selector
	case m.selector:
	default:
		return rec, fmt.Errorf("record for chain %d saved in registry of chain %d", rec.ChainSelector, m.selector)
	}

	if _, exists := m.addresses[rec.Address.Hex()]; exists {
		return rec, fmt.Errorf("address %s already exists for chain %d", rec.Address.Hex(), m.selector)
	}

	return rec, nil
}

// saveWith checks rec, hands it to persist and keeps it only when persist succeeds.
func (m *MemoryRegistry) saveWith(rec Record, persist func(Record) error) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	rec, err := m.check(rec)
	if err != nil {
		return err
	}
	if persist != nil {
		if err := persist(rec); err != nil {
			return err
		}
	}

	m.byType.Put(string(rec.Type), append(m.records(rec.Type), rec))
	m.addresses[rec.Address.Hex()] = struct{}{}

	return nil
}

// Save appends a record. Thread safe.
func (m *MemoryRegistry) Save(rec Record) error {
	return m.saveWith(rec, nil)
}

func (m *MemoryRegistry) records(t contracts.Type) []Record {
	v, ok := m.byType.Get(string(t))
	if !ok {
		return nil
	}

	return v.([]Record)
}

func (m *MemoryRegistry) Latest(t contracts.Type) (Record, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	records := m.records(t)
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%s on chain %d: %w", t, m.selector, ErrNotFound)
	}

	return records[len(records)-1], nil
}

func (m *MemoryRegistry) All(t contracts.Type) ([]Record, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	records := m.records(t)
	if len(records) == 0 {
		return nil, fmt.Errorf("%s on chain %d: %w", t, m.selector, ErrNotFound)
	}

	return slices.Clone(records), nil
}

func (m *MemoryRegistry) Len(t contracts.Type) int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return len(m.records(t))
}

func (m *MemoryRegistry) Records() []Record {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	out := []Record{}
	it := m.byType.Iterator()
	for it.Next() {
		out = append(out, it.Value().([]Record)...)
	}

	return out
}
