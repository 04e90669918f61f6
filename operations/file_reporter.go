package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"
)

// FileReporter is a MemoryReporter that also writes every report of a run to
// <dir>/<run id>.json. Run ids are ksuids, so files sort by creation time.
type FileReporter struct {
	*MemoryReporter

	runID string
	path  string
	mu    sync.Mutex
}

// NewFileReporter creates the report directory and returns a reporter for a new run.
func NewFileReporter(dir string) (*FileReporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	runID := ksuid.New().String()

	return &FileReporter{
		MemoryReporter: NewMemoryReporter(),
		runID:          runID,
		path:           filepath.Join(dir, runID+".json"),
	}, nil
}

// RunID returns the id of the run.
func (r *FileReporter) RunID() string {
	return r.runID
}

// Path returns the file the reports are written to.
func (r *FileReporter) Path() string {
	return r.path
}

// AddReport adds the report and rewrites the run file.
func (r *FileReporter) AddReport(report Report[any, any]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.MemoryReporter.AddReport(report); err != nil {
		return err
	}

	reports, err := r.GetReports()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	if err = os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	return nil
}

// LoadReports reads the reports of a run file written by a FileReporter.
func LoadReports(path string) ([]Report[any, any], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var reports []Report[any, any]
	if err = json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	return reports, nil
}
