package operations

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrReportNotFound = errors.New("report not found")

// Reporter stores reports.
type Reporter interface {
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
	// GetExecutionReports returns the report with the given id and all its descendants, children
	// first.
	GetExecutionReports(reportID string) ([]Report[any, any], error)
}

// MemoryReporter keeps reports in insertion order for the lifetime of the process. It is safe for
// concurrent use.
type MemoryReporter struct {
	mu      sync.RWMutex
	reports []Report[any, any]
	index   map[string]int
}

type MemoryReporterOption func(*MemoryReporter)

// WithReports preloads reports, e.g. the reports of an earlier run.
func WithReports(reports []Report[any, any]) MemoryReporterOption {
	return func(r *MemoryReporter) {
		for _, report := range reports {
			r.append(report)
		}
	}
}

func NewMemoryReporter(options ...MemoryReporterOption) *MemoryReporter {
	r := &MemoryReporter{index: make(map[string]int)}
	for _, opt := range options {
		opt(r)
	}

	return r
}

func (r *MemoryReporter) append(report Report[any, any]) {
	r.index[report.ID] = len(r.reports)
	r.reports = append(r.reports, report)
}

func (r *MemoryReporter) AddReport(report Report[any, any]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.append(report)

	return nil
}

// GetReports returns a copy of all reports.
func (r *MemoryReporter) GetReports() ([]Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.reports), nil
}

// GetReport returns ErrReportNotFound for unknown ids.
func (r *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(id)
}

func (r *MemoryReporter) GetExecutionReports(reportID string) ([]Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(reportID, nil)
}

func (r *MemoryReporter) lookup(id string) (Report[any, any], error) {
	i, ok := r.index[id]
	if !ok {
		return Report[any, any]{}, fmt.Errorf("report %s: %w", id, ErrReportNotFound)
	}

	return r.reports[i], nil
}

func (r *MemoryReporter) collect(id string, acc []Report[any, any]) ([]Report[any, any], error) {
	report, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	for _, child := range report.ChildOperationReports {
		if acc, err = r.collect(child, acc); err != nil {
			return nil, err
		}
	}

	return append(acc, report), nil
}

// childRecorder passes reports through to the parent reporter and remembers the ids it added, so
// a sequence can link the reports of its steps.
type childRecorder struct {
	Reporter

	mu  sync.Mutex
	ids []string
}

func (c *childRecorder) AddReport(report Report[any, any]) error {
	if err := c.Reporter.AddReport(report); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, report.ID)

	return nil
}

func (c *childRecorder) childIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.ids)
}
