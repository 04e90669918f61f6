// Package lottery drives the Lottery contract: it resolves accounts and dependency contracts for
// a network, deploys mocks on local networks, deploys the Lottery and walks it through its
// lifecycle.
package lottery

import (
	"context"
	"errors"
	"time"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	envconfig "github.com/smartcontractkit/lottery-deployments/config/env"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/deployment"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

// ErrNotLocalNetwork is returned by steps that only make sense against mocks.
var ErrNotLocalNetwork = errors.New("not a local network")

// Verifier publishes contract sources to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (verification.Result, error)
}

// Environment is everything a script needs to act on one network.
type Environment struct {
	Network   network.Network
	Chain     evm.Chain
	Registry  deployment.Registry
	Artifacts *artifacts.Store
	Logger    logger.Logger

	secrets    *envconfig.Config
	verifier   Verifier
	reporter   operations.Reporter
	opRegistry *operations.OperationRegistry
	wait       func(ctx context.Context, d time.Duration) error
	closers    []func() error
}

// Option configures an Environment.
type Option func(*Environment)

// WithSecrets sets the env config holding keys and explorer credentials.
func WithSecrets(secrets *envconfig.Config) Option {
	return func(e *Environment) {
		e.secrets = secrets
	}
}

// WithVerifier replaces the block explorer client built from the network config.
func WithVerifier(v Verifier) Option {
	return func(e *Environment) {
		e.verifier = v
	}
}

// WithReporter sets where operation reports are kept. Defaults to memory.
func WithReporter(r operations.Reporter) Option {
	return func(e *Environment) {
		e.reporter = r
	}
}

// WithWait replaces the randomness callback wait.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Environment) {
		e.wait = wait
	}
}

// WithCloser registers a function run by Close.
func WithCloser(fn func() error) Option {
	return func(e *Environment) {
		e.closers = append(e.closers, fn)
	}
}

// NewEnvironment returns an Environment for a chain that is already initialized.
func NewEnvironment(
	net network.Network,
	chain evm.Chain,
	registry deployment.Registry,
	store *artifacts.Store,
	lggr logger.Logger,
	opts ...Option,
) *Environment {
	e := &Environment{
		Network:    net,
		Chain:      chain,
		Registry:   registry,
		Artifacts:  store,
		Logger:     lggr,
		reporter:   operations.NewMemoryReporter(),
		opRegistry: Operations(),
		wait:       sleep,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Reporter returns the reporter holding the reports of every step run so far.
func (e *Environment) Reporter() operations.Reporter {
	return e.reporter
}

// Close releases the chain provider resources.
func (e *Environment) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil

	return errors.Join(errs...)
}

func (e *Environment) bundle(ctx context.Context) operations.Bundle {
	return operations.NewBundle(
		func() context.Context { return ctx },
		e.Logger,
		e.reporter,
		operations.WithOperationRegistry(e.opRegistry),
	)
}

func (e *Environment) explorer() (Verifier, error) {
	if e.verifier != nil {
		return e.verifier, nil
	}

	apiKey := e.Network.BlockExplorer.APIKey
	if e.secrets != nil && e.secrets.BlockExplorer.APIKey != "" {
		apiKey = e.secrets.BlockExplorer.APIKey
	}

	chainID, err := e.Network.ChainID()
	if err != nil {
		return nil, err
	}

	client, err := verification.NewClient(verification.Config{
		URL:     e.Network.BlockExplorer.URL,
		APIKey:  apiKey,
		ChainID: chainID,
		Logger:  e.Logger,
	})
	if err != nil {
		return nil, err
	}
	e.verifier = client

	return client, nil
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
