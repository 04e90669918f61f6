package lottery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/deployment"
	"github.com/smartcontractkit/lottery-deployments/internal/testutils"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// recordingWait stands in for the randomness callback wait.
type recordingWait struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *recordingWait) wait(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits = append(w.waits, d)

	return nil
}

func (w *recordingWait) calls() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]time.Duration(nil), w.waits...)
}

type testEnvConfig struct {
	network   network.Network
	overrides map[contracts.Type][]byte
	opts      []Option
}

// newTestEnv returns an Environment on a simulated chain with stub contracts, the deployer and
// two users.
func newTestEnv(t *testing.T, cfg testEnvConfig) (*Environment, *recordingWait) {
	t.Helper()

	net := cfg.network
	if net.Name == "" {
		net = network.Development()
	}

	chain := testutils.NewSimChain(t, 2)
	store := artifacts.NewStore(testutils.WriteStubArtifacts(t, cfg.overrides), logger.Test(t))
	w := &recordingWait{}

	opts := append([]Option{WithWait(w.wait)}, cfg.opts...)
	env := NewEnvironment(net, chain, deployment.NewMemoryRegistry(chain.Selector), store, logger.Test(t), opts...)

	return env, w
}

func Test_NewEnvironment_Defaults(t *testing.T) {
	t.Parallel()

	env, _ := newTestEnv(t, testEnvConfig{})

	require.NotNil(t, env.Reporter())
	reports, err := env.Reporter().GetReports()
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Len(t, env.opRegistry.Definitions(), 7)
}

func Test_Environment_Close(t *testing.T) {
	t.Parallel()

	var order []int
	errBoom := errors.New("boom")

	env, _ := newTestEnv(t, testEnvConfig{opts: []Option{
		WithCloser(func() error { order = append(order, 1); return nil }),
		WithCloser(func() error { order = append(order, 2); return errBoom }),
	}})

	err := env.Close()
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []int{2, 1}, order)

	// closers run once
	require.NoError(t, env.Close())
	assert.Equal(t, []int{2, 1}, order)
}

func Test_sleep(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleep(t.Context(), time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
