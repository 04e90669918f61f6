package lottery

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/deployment"
)

// sepolia is a live network backed by the simulated chain. Nothing may be deployed to it.
func sepolia() network.Network {
	return network.Network{
		Name:          "sepolia",
		Type:          network.NetworkTypeLive,
		ChainSelector: chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector,
		Contracts: map[string]string{
			string(PriceFeed):      "0x694AA1769357215DE4FAC081bf1f309aDC325306",
			string(VRFCoordinator): "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625",
			string(LinkToken):      "0x779877A7B0D9E8603169DdbD7836e478b4624789",
		},
		Fee:     "250000000000000000",
		KeyHash: "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
	}
}

func Test_ContractName_Type(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give    ContractName
		want    contracts.Type
		wantErr string
	}{
		{give: PriceFeed, want: contracts.TypeMockV3Aggregator},
		{give: VRFCoordinator, want: contracts.TypeVRFCoordinatorMock},
		{give: LinkToken, want: contracts.TypeLinkToken},
		{give: "dai_token", wantErr: `unknown contract "dai_token"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.give), func(t *testing.T) {
			t.Parallel()

			got, err := tt.give.Type()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Environment_GetContract_Local(t *testing.T) {
	t.Parallel()

	env, _ := newTestEnv(t, testEnvConfig{})

	feed, err := env.GetContract(t.Context(), PriceFeed)
	require.NoError(t, err)

	// the first lookup deploys every mock
	for _, name := range ContractNames {
		typ, terr := name.Type()
		require.NoError(t, terr)
		assert.Equal(t, 1, env.Registry.Len(typ), name)
	}

	deployed, err := deployment.IsDeployed(t.Context(), env.Chain.Client, feed)
	require.NoError(t, err)
	assert.True(t, deployed)

	// later lookups reuse them
	for _, name := range ContractNames {
		addr, gerr := env.GetContract(t.Context(), name)
		require.NoError(t, gerr)

		typ, terr := name.Type()
		require.NoError(t, terr)
		rec, lerr := env.Registry.Latest(typ)
		require.NoError(t, lerr)
		assert.Equal(t, rec.Address, addr)
		assert.Equal(t, 1, env.Registry.Len(typ))
	}

	_, err = env.GetContract(t.Context(), "dai_token")
	require.ErrorContains(t, err, "unknown contract")
}

func Test_Environment_GetContract_Live(t *testing.T) {
	t.Parallel()

	env, _ := newTestEnv(t, testEnvConfig{network: sepolia()})

	for _, name := range ContractNames {
		addr, err := env.GetContract(t.Context(), name)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(sepolia().Contracts[string(name)]), addr)
	}

	for _, typ := range []contracts.Type{contracts.TypeMockV3Aggregator, contracts.TypeLinkToken, contracts.TypeVRFCoordinatorMock} {
		assert.Zero(t, env.Registry.Len(typ))
	}
}

func Test_Environment_GetContract_LiveMissing(t *testing.T) {
	t.Parallel()

	net := sepolia()
	delete(net.Contracts, string(LinkToken))
	env, _ := newTestEnv(t, testEnvConfig{network: net})

	_, err := env.GetContract(t.Context(), LinkToken)
	require.EqualError(t, err, "no address configured for link_token on network sepolia")
}

func Test_Environment_DeployMocks(t *testing.T) {
	t.Parallel()

	env, _ := newTestEnv(t, testEnvConfig{})

	mocks, err := env.DeployMocks(t.Context(), DefaultDecimals, big.NewInt(DefaultInitialValue))
	require.NoError(t, err)

	assert.NotEqual(t, mocks.PriceFeed, mocks.LinkToken)
	assert.NotEqual(t, mocks.LinkToken, mocks.VRFCoordinator)

	tests := []struct {
		typ  contracts.Type
		want common.Address
	}{
		{typ: contracts.TypeMockV3Aggregator, want: mocks.PriceFeed},
		{typ: contracts.TypeLinkToken, want: mocks.LinkToken},
		{typ: contracts.TypeVRFCoordinatorMock, want: mocks.VRFCoordinator},
	}
	for _, tt := range tests {
		rec, lerr := env.Registry.Latest(tt.typ)
		require.NoError(t, lerr)
		assert.Equal(t, tt.want, rec.Address, tt.typ)
	}

	// the coordinator is constructed with the token
	reports, err := env.Reporter().GetReports()
	require.NoError(t, err)
	require.Len(t, reports, 3)
	in, ok := reports[2].Input.(DeployContractInput)
	require.True(t, ok)
	assert.Equal(t, contracts.TypeVRFCoordinatorMock, in.Type)
	assert.Equal(t, []any{mocks.LinkToken}, in.Args)

	// identical deployments are reused
	again, err := env.DeployMocks(t.Context(), DefaultDecimals, big.NewInt(DefaultInitialValue))
	require.NoError(t, err)
	assert.Equal(t, mocks, again)
	assert.Equal(t, 1, env.Registry.Len(contracts.TypeLinkToken))
}
