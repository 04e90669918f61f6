package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

var _ Registry = (*FileRegistry)(nil)

// registryFile is the on-disk layout of a FileRegistry.
type registryFile struct {
	Network       string   `json:"network"`
	ChainSelector uint64   `json:"chain_selector"`
	Deployments   []Record `json:"deployments"`
}

// FileRegistry is a Registry persisted as JSON. The file is rewritten after every save.
type FileRegistry struct {
	path    string
	network string
	mem     *MemoryRegistry

	// order preserves save order across types for the file.
	order []Record
	mtx   sync.Mutex
}

// RegistryPath returns the file a network's registry is kept in.
func RegistryPath(dir, network string) string {
	return filepath.Join(dir, network+".json")
}

// OpenFileRegistry loads the registry of the network from dir, or starts an empty one when no file
// exists yet.
func OpenFileRegistry(dir, network string, selector uint64) (*FileRegistry, error) {
	r := &FileRegistry{
		path:    RegistryPath(dir, network),
		network: network,
		mem:     NewMemoryRegistry(selector),
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode registry %s: %w", r.path, err)
	}
	if f.ChainSelector != selector {
		return nil, fmt.Errorf("registry %s belongs to chain %d, not %d", r.path, f.ChainSelector, selector)
	}

	for _, rec := range f.Deployments {
		if err := r.mem.Save(rec); err != nil {
			return nil, fmt.Errorf("registry %s: %w", r.path, err)
		}
		r.order = append(r.order, rec)
	}

	return r, nil
}

// Path returns the registry file.
func (r *FileRegistry) Path() string { return r.path }

// Save writes the registry with rec appended and only then adds rec to the registry. A failed
// write leaves both the file and the registry unchanged.
func (r *FileRegistry) Save(rec Record) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.mem.saveWith(rec, func(rec Record) error {
		order := append(slices.Clip(r.order), rec)
		if err := r.flush(order); err != nil {
			return err
		}
		r.order = order

		return nil
	})
}

func (r *FileRegistry) flush(order []Record) error {
	data, err := json.MarshalIndent(registryFile{
		Network:       r.network,
		ChainSelector: r.mem.ChainSelector(),
		Deployments:   order,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	return nil
}

func (r *FileRegistry) Latest(t contracts.Type) (Record, error) { return r.mem.Latest(t) }

func (r *FileRegistry) All(t contracts.Type) ([]Record, error) { return r.mem.All(t) }

func (r *FileRegistry) Len(t contracts.Type) int { return r.mem.Len(t) }

func (r *FileRegistry) Records() []Record { return r.mem.Records() }
