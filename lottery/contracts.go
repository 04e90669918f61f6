package lottery

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/deployment"
	"github.com/smartcontractkit/lottery-deployments/operations"
)

// ContractName is the name a dependency contract is configured under in the network manifest.
type ContractName string

const (
	PriceFeed      ContractName = "eth_usd_price_feed"
	VRFCoordinator ContractName = "vrf_coordinator"
	LinkToken      ContractName = "link_token"
)

// contractTypes maps a dependency to the mock standing in for it on local networks.
var contractTypes = map[ContractName]contracts.Type{
	PriceFeed:      contracts.TypeMockV3Aggregator,
	VRFCoordinator: contracts.TypeVRFCoordinatorMock,
	LinkToken:      contracts.TypeLinkToken,
}

// ContractNames lists the dependency contracts.
var ContractNames = []ContractName{PriceFeed, VRFCoordinator, LinkToken}

// Type returns the contract type bound at the dependency's address.
func (n ContractName) Type() (contracts.Type, error) {
	t, ok := contractTypes[n]
	if !ok {
		return "", fmt.Errorf("unknown contract %q", string(n))
	}

	return t, nil
}

const (
	// DefaultDecimals of the mock price feed.
	DefaultDecimals uint8 = 8
	// DefaultInitialValue of the mock price feed: 2,000 USD per ETH at 8 decimals.
	DefaultInitialValue int64 = 2_000_00000000
)

// Mocks are the addresses of the locally deployed dependencies.
type Mocks struct {
	PriceFeed      common.Address `json:"eth_usd_price_feed"`
	LinkToken      common.Address `json:"link_token"`
	VRFCoordinator common.Address `json:"vrf_coordinator"`
}

// GetContract returns the address of a dependency contract. Local networks use the most recently
// deployed mock and deploy the mocks when none is recorded. Fork and live networks use the
// address configured for the network.
func (e *Environment) GetContract(ctx context.Context, name ContractName) (common.Address, error) {
	return e.getContract(e.bundle(ctx), name)
}

func (e *Environment) getContract(b operations.Bundle, name ContractName) (common.Address, error) {
	t, err := name.Type()
	if err != nil {
		return common.Address{}, err
	}

	if !e.Network.IsLocal() {
		return e.Network.ContractAddress(string(name))
	}

	if e.Registry.Len(t) == 0 {
		if _, err = e.deployMocks(b, DefaultDecimals, big.NewInt(DefaultInitialValue)); err != nil {
			return common.Address{}, err
		}
	}

	rec, err := e.Registry.Latest(t)
	if err != nil {
		return common.Address{}, fmt.Errorf("no %s deployed on network %s: %w", t, e.Network.Name, err)
	}

	return rec.Address, nil
}

// DeployMocks deploys MockV3Aggregator(decimals, initialValue), LinkToken and
// VRFCoordinatorMock(link) from the deployer account and records them.
func (e *Environment) DeployMocks(ctx context.Context, decimals uint8, initialValue *big.Int) (Mocks, error) {
	return e.deployMocks(e.bundle(ctx), decimals, initialValue)
}

func (e *Environment) deployMocks(b operations.Bundle, decimals uint8, initialValue *big.Int) (Mocks, error) {
	e.Logger.Infow("Deploying mocks", "network", e.Network.Name)

	account, err := e.GetAccount(b.GetContext())
	if err != nil {
		return Mocks{}, err
	}

	var mocks Mocks

	rec, err := e.deploy(b, account, contracts.TypeMockV3Aggregator, []any{decimals, initialValue})
	if err != nil {
		return mocks, err
	}
	mocks.PriceFeed = rec.Address

	if rec, err = e.deploy(b, account, contracts.TypeLinkToken, nil); err != nil {
		return mocks, err
	}
	mocks.LinkToken = rec.Address

	if rec, err = e.deploy(b, account, contracts.TypeVRFCoordinatorMock, []any{mocks.LinkToken}); err != nil {
		return mocks, err
	}
	mocks.VRFCoordinator = rec.Address

	e.Logger.Infow("Mocks deployed",
		"price_feed", mocks.PriceFeed.Hex(),
		"link_token", mocks.LinkToken.Hex(),
		"vrf_coordinator", mocks.VRFCoordinator.Hex(),
	)

	return mocks, nil
}

// deploy runs DeployContract. Without options an identical earlier deployment is reused.
func (e *Environment) deploy(
	b operations.Bundle, auth *bind.TransactOpts, t contracts.Type, args []any,
	opts ...operations.ExecuteOption[DeployContractInput, Deps],
) (deployment.Record, error) {
	report, err := operations.ExecuteOperation(b, DeployContract, Deps{Env: e, Auth: auth}, DeployContractInput{
		Type: t,
		Args: args,
		From: auth.From,
	}, opts...)
	if err != nil {
		return deployment.Record{}, err
	}

	return report.Output, nil
}
