package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc blocks until tx has the required confirmations and returns its block number. A
// reverted transaction is an error.
type ConfirmFunc func(tx *types.Transaction) (uint64, error)

// OnchainClient is what the scripts need from a node: deploying, calling and transacting through
// bind, plus balances and nonces.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain is an EVM chain ready for the lottery scripts.
type Chain struct {
	Selector uint64
	Client   OnchainClient
	// DeployerKey deploys contracts and is the default sender. Its signer may be backed by a raw
	// key, a keystore file or KMS.
	DeployerKey *bind.TransactOpts
	// Users are extra funded accounts, e.g. lottery players.
	Users   []*bind.TransactOpts
	Confirm ConfirmFunc
	// SignHash signs a digest with the deployer key.
	SignHash func([]byte) ([]byte, error)
}

func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// Name is the chain-selectors name, empty for unknown selectors.
func (c Chain) Name() string {
	if details, ok := chainsel.ChainBySelector(c.Selector); ok {
		return details.Name
	}

	return ""
}

func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name(), c.Selector)
}

// Family is always "evm" for known selectors.
func (c Chain) Family() string {
	family, _ := chainsel.GetSelectorFamily(c.Selector)

	return family
}

func (c Chain) ChainID() (*big.Int, error) {
	return ChainIDFromSelector(c.Selector)
}

// Accounts lists the deployer, when set, followed by the users.
func (c Chain) Accounts() []*bind.TransactOpts {
	accounts := make([]*bind.TransactOpts, 0, len(c.Users)+1)
	if c.DeployerKey != nil {
		accounts = append(accounts, c.DeployerKey)
	}

	return append(accounts, c.Users...)
}

// ChainIDFromSelector maps a chain selector to its EVM chain id.
func ChainIDFromSelector(selector uint64) (*big.Int, error) {
	raw, err := chainsel.GetChainIDFromSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID from selector %d: %w", selector, err)
	}

	id, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse chain ID %q", raw)
	}

	return id, nil
}
