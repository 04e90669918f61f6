package operations

import (
	"context"
	"sync"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// Bundle is handed to every operation and sequence handler. Create one with NewBundle.
type Bundle struct {
	Logger            logger.Logger
	GetContext        func() context.Context
	OperationRegistry *OperationRegistry

	reporter Reporter
	// input hashes of stored reports, keyed by report id
	hashes *sync.Map
}

// BundleOption configures a Bundle.
type BundleOption func(*Bundle)

// WithOperationRegistry replaces the empty registry of the bundle.
func WithOperationRegistry(registry *OperationRegistry) BundleOption {
	return func(b *Bundle) {
		b.OperationRegistry = registry
	}
}

// NewBundle returns a Bundle recording reports in reporter.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter, opts ...BundleOption) Bundle {
	b := Bundle{
		Logger:            lggr,
		GetContext:        getContext,
		OperationRegistry: NewOperationRegistry(),
		reporter:          reporter,
		hashes:            &sync.Map{},
	}
	for _, opt := range opts {
		opt(&b)
	}

	return b
}

// Reporter returns the reporter the bundle records into.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// withReporter returns a copy of b recording into r. The hash cache is shared.
func (b Bundle) withReporter(r Reporter) Bundle {
	b.reporter = r
	return b
}

// reportHash returns the input hash of a stored report, computing it at most once per report.
func (b Bundle) reportHash(r Report[any, any]) (string, error) {
	if b.hashes != nil {
		if h, ok := b.hashes.Load(r.ID); ok {
			return h.(string), nil
		}
	}

	h, err := inputHash(r.Def, r.Input)
	if err != nil {
		return "", err
	}
	if b.hashes != nil {
		b.hashes.Store(r.ID, h)
	}

	return h, nil
}
