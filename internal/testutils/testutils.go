// Package testutils provides simulated chains, stub contracts and artifact fixtures for tests.
package testutils

import (
	"testing"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/chain"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/chain/evm/provider"
)

// NewSimChain returns an in-process chain whose deployer and numUsers user accounts are the
// prefunded dev accounts. It is closed when the test ends.
func NewSimChain(t *testing.T, numUsers uint) evm.Chain {
	t.Helper()

	p := provider.NewSimChainProvider(chainsel.GETH_TESTNET.Selector, provider.SimChainProviderConfig{
		NumAdditionalAccounts: numUsers,
	})
	t.Cleanup(func() { _ = p.Close() })

	bc, err := p.Initialize(t.Context())
	require.NoError(t, err)

	c, err := chain.AsEVM(bc)
	require.NoError(t, err)

	return c
}
