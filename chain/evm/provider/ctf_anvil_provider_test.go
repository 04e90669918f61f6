package provider

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/chain"
)

func Test_CTFAnvilChainProviderConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    CTFAnvilChainProviderConfig
		wantErr string
	}{
		{
			name: "valid with port",
			give: CTFAnvilChainProviderConfig{Once: &sync.Once{}, ConfirmFunctor: ConfirmFuncGeth(time.Minute), Port: "8545"},
		},
		{
			name: "valid without port",
			give: CTFAnvilChainProviderConfig{Once: &sync.Once{}, ConfirmFunctor: ConfirmFuncGeth(time.Minute)},
		},
		{
			name:    "missing once",
			give:    CTFAnvilChainProviderConfig{ConfirmFunctor: ConfirmFuncGeth(time.Minute)},
			wantErr: "sync.Once instance is required",
		},
		{
			name:    "missing confirm functor",
			give:    CTFAnvilChainProviderConfig{Once: &sync.Once{}},
			wantErr: "confirm functor is required",
		},
		{
			name:    "port not a number",
			give:    CTFAnvilChainProviderConfig{Once: &sync.Once{}, ConfirmFunctor: ConfirmFuncGeth(time.Minute), Port: "abc"},
			wantErr: "invalid port abc",
		},
		{
			name:    "port out of range",
			give:    CTFAnvilChainProviderConfig{Once: &sync.Once{}, ConfirmFunctor: ConfirmFuncGeth(time.Minute), Port: "70000"},
			wantErr: "must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_CTFAnvilChainProviderConfig_dockerCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give CTFAnvilChainProviderConfig
		want []string
	}{
		{
			name: "no fork",
			give: CTFAnvilChainProviderConfig{DockerCmdParamsOverrides: []string{"--block-time", "1"}},
			want: []string{"--block-time", "1"},
		},
		{
			name: "fork at block",
			give: CTFAnvilChainProviderConfig{
				ForkURLs:                 []string{"https://archive.example", "https://other.example"},
				ForkBlockNumber:          19000000,
				DockerCmdParamsOverrides: []string{"--auto-impersonate"},
			},
			want: []string{"--fork-url", "https://archive.example", "--fork-block-number", "19000000", "--auto-impersonate"},
		},
		{
			name: "block number ignored without fork",
			give: CTFAnvilChainProviderConfig{ForkBlockNumber: 5},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.give.dockerCmd())
		})
	}
}

// Test_CTFAnvilChainProvider_Initialize starts a real Anvil container. It needs Docker and only
// runs when CTF_ANVIL_TESTS is set.
func Test_CTFAnvilChainProvider_Initialize(t *testing.T) {
	if os.Getenv("CTF_ANVIL_TESTS") == "" {
		t.Skip("set CTF_ANVIL_TESTS to run tests against an Anvil container")
	}

	p := NewCTFAnvilChainProvider(simSelector, CTFAnvilChainProviderConfig{
		Once:                  &sync.Once{},
		ConfirmFunctor:        ConfirmFuncGeth(time.Minute, WithTickInterval(100*time.Millisecond)),
		NumAdditionalAccounts: 2,
		T:                     t,
	})

	got, err := p.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })

	c, err := chain.AsEVM(got)
	require.NoError(t, err)
	assert.Equal(t, devDeployerAddr, c.DeployerKey.From)
	assert.Len(t, c.Users, 2)
	assert.NotEmpty(t, p.GetNodeHTTPURL())

	balance, err := c.Client.BalanceAt(context.Background(), c.Users[0].From, nil)
	require.NoError(t, err)
	assert.Positive(t, balance.Sign())
}
