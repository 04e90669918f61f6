package deployment

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/internal/testutils"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

func Test_Deploy(t *testing.T) {
	t.Parallel()

	chain := testutils.NewSimChain(t, 1)
	store := artifacts.NewStore(testutils.WriteStubArtifacts(t, nil), nil)
	reg := NewMemoryRegistry(chain.Selector)
	lggr := logger.Test(t)

	feed, err := store.Load(contracts.TypeMockV3Aggregator)
	require.NoError(t, err)

	rec, err := Deploy(t.Context(), lggr, chain, reg, DeployRequest{
		Artifact: feed,
		Args:     []any{uint8(8), big.NewInt(2000e8)},
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.TypeMockV3Aggregator, rec.Type)
	assert.Equal(t, DefaultVersion, rec.Version)
	assert.Equal(t, chain.Selector, rec.ChainSelector)
	assert.NotZero(t, rec.BlockNumber)

	deployed, err := IsDeployed(t.Context(), chain.Client, rec.Address)
	require.NoError(t, err)
	assert.True(t, deployed)

	latest, err := reg.Latest(contracts.TypeMockV3Aggregator)
	require.NoError(t, err)
	assert.Equal(t, rec, latest)

	rec2, err := Deploy(t.Context(), lggr, chain, reg, DeployRequest{
		Artifact: feed,
		Args:     []any{uint8(8), big.NewInt(1)},
		From:     chain.Users[0],
	})
	require.NoError(t, err)
	assert.NotEqual(t, rec.Address, rec2.Address)
	assert.Equal(t, 2, reg.Len(contracts.TypeMockV3Aggregator))

	deployed, err = IsDeployed(t.Context(), chain.Client, common.HexToAddress("0xdead"))
	require.NoError(t, err)
	assert.False(t, deployed)
}

func Test_Deploy_Errors(t *testing.T) {
	t.Parallel()

	chain := testutils.NewSimChain(t, 0)
	store := artifacts.NewStore(testutils.WriteStubArtifacts(t, nil), nil)
	reg := NewMemoryRegistry(chain.Selector)
	lggr := logger.Nop()

	_, err := Deploy(t.Context(), lggr, chain, reg, DeployRequest{})
	require.EqualError(t, err, "artifact is required")

	lottery, err := store.Load(contracts.TypeLottery)
	require.NoError(t, err)

	_, err = Deploy(t.Context(), lggr, chain, reg, DeployRequest{Artifact: lottery, Args: []any{common.Address{}}})
	require.ErrorContains(t, err, "failed to deploy Lottery")
	assert.Equal(t, 0, reg.Len(contracts.TypeLottery))
}
