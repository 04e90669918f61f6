package evm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const sepoliaSelector uint64 = 16015286601757825753 // "ethereum-testnet-sepolia"

// newMockRPCServer answers every request with a valid eth_blockNumber response.
func newMockRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// newBadRPCServer answers every request with a JSON-RPC error payload.
func newBadRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"internal error"}}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestNewMultiClient(t *testing.T) {
	t.Parallel()

	srv := newMockRPCServer(t)
	lggr := logger.Test(t)

	mc, err := NewMultiClient(lggr, RPCConfig{ChainSelector: sepoliaSelector, RPCs: []RPC{
		{Name: "primary", HTTPURL: srv.URL, PreferredURLScheme: URLSchemePreferenceHTTP},
	}})
	require.NoError(t, err)

	assert.Equal(t, "ethereum-testnet-sepolia", mc.chain)
	assert.Equal(t, DefaultRetryConfig(), mc.RetryConfig)
	assert.Empty(t, mc.Backups)

	mc, err = NewMultiClient(lggr, RPCConfig{ChainSelector: sepoliaSelector, RPCs: []RPC{
		{Name: "primary", HTTPURL: srv.URL},
		{Name: "backup", HTTPURL: srv.URL},
	}}, WithRetryConfig(RetryConfig{Attempts: 3, DialAttempts: 1, DialTimeout: time.Second}))
	require.NoError(t, err)
	require.Len(t, mc.Backups, 1)
	assert.Equal(t, uint(3), mc.RetryConfig.Attempts)
}

func TestNewMultiClient_Errors(t *testing.T) {
	t.Parallel()

	srv := newMockRPCServer(t)

	tests := []struct {
		name    string
		give    RPCConfig
		wantErr string
	}{
		{
			name:    "no rpcs",
			give:    RPCConfig{ChainSelector: sepoliaSelector},
			wantErr: "no RPCs provided",
		},
		{
			name:    "unknown selector",
			give:    RPCConfig{ChainSelector: 1, RPCs: []RPC{{Name: "a", HTTPURL: srv.URL}}},
			wantErr: "chain with selector 1 not found",
		},
		{
			name:    "no dialable rpc",
			give:    RPCConfig{ChainSelector: sepoliaSelector, RPCs: []RPC{{Name: "a"}}},
			wantErr: "no valid RPC clients created",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewMultiClient(logger.Test(t), tt.give)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMultiClient_healthCheckSkipsBadRPC(t *testing.T) {
	t.Parallel()

	badSrv := newBadRPCServer(t)
	goodSrv := newMockRPCServer(t)

	mc, err := NewMultiClient(logger.Test(t), RPCConfig{ChainSelector: sepoliaSelector, RPCs: []RPC{
		{Name: "bad-rpc", HTTPURL: badSrv.URL, PreferredURLScheme: URLSchemePreferenceHTTP},
		{Name: "good-rpc", HTTPURL: goodSrv.URL, PreferredURLScheme: URLSchemePreferenceHTTP},
	}})
	require.NoError(t, err)
	require.NotNil(t, mc.Client)
	require.Empty(t, mc.Backups)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	blockNum, err := mc.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), blockNum)
}

func TestMultiClient_failover(t *testing.T) {
	t.Parallel()

	srv := newMockRPCServer(t)

	primary, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	backup, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)

	tests := []struct {
		name        string
		call        func(ctx context.Context, client *ethclient.Client) error
		wantErr     string
		wantPrimary *ethclient.Client
	}{
		{
			name: "all clients fail",
			call: func(ctx context.Context, client *ethclient.Client) error {
				return errors.New("operation failed")
			},
			wantErr:     "all backup clients failed",
			wantPrimary: primary,
		},
		{
			name: "context deadline on every attempt",
			call: func(ctx context.Context, client *ethclient.Client) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr:     "context deadline exceeded",
			wantPrimary: primary,
		},
		{
			name: "backup serves the call and is promoted",
			call: func(ctx context.Context, client *ethclient.Client) error {
				if client == primary {
					return errors.New("primary down")
				}

				return nil
			},
			wantPrimary: backup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mc := &MultiClient{
				Client:  primary,
				Backups: []*ethclient.Client{backup},
				chain:   "ethereum-testnet-sepolia",
				RetryConfig: RetryConfig{
					Attempts: 2,
					Delay:    10 * time.Millisecond,
					Timeout:  50 * time.Millisecond,
				},
				lggr: logger.Test(t),
			}

			err := mc.failover(context.Background(), "test-operation", tt.call)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Same(t, tt.wantPrimary, mc.Client)
		})
	}
}

func TestMultiClient_promote(t *testing.T) {
	t.Parallel()

	srv := newMockRPCServer(t)
	dial := func() *ethclient.Client {
		c, err := ethclient.Dial(srv.URL)
		require.NoError(t, err)

		return c
	}
	c0, c1, c2 := dial(), dial(), dial()

	mc := &MultiClient{Client: c0, Backups: []*ethclient.Client{c1, c2}}

	mc.promote(0)
	assert.Same(t, c0, mc.Client)

	mc.promote(5)
	assert.Same(t, c0, mc.Client)

	mc.promote(2)
	assert.Same(t, c2, mc.Client)
	require.Len(t, mc.Backups, 2)
	assert.Same(t, c0, mc.Backups[0])
	assert.Same(t, c1, mc.Backups[1])
}

func Test_callContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := callContext(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	parent, parentCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer parentCancel()
	parentDeadline, _ := parent.Deadline()

	ctx, cancel = callContext(parent, time.Second)
	defer cancel()
	deadline, ok = ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, parentDeadline, deadline)
}
