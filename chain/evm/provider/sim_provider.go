package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"

	"github.com/smartcontractkit/lottery-deployments/chain"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

var (
	// SimChainID is the chain ID of every simulated chain.
	SimChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is 1,000,000 ether.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: NumAdditionalAccounts is the number of prefunded development accounts besides the
	// deployer. Zero selects every available account.
	NumAdditionalAccounts uint
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that blocks are only produced when a transaction is confirmed.
	BlockTime time.Duration
	// Optional: ConfirmTimeout bounds the wait for a receipt. Defaults to one minute.
	ConfirmTimeout time.Duration
}

var (
	_ chain.Provider = (*SimChainProvider)(nil)
	_ chain.Closer   = (*SimChainProvider)(nil)
)

// SimChainProvider manages an in-memory EVM chain backed by go-ethereum's simulated backend.
// It backs the "development" network.
type SimChainProvider struct {
	selector uint64
	config   SimChainProviderConfig

	chain     *evm.Chain
	backend   *simulated.Backend
	client    *SimClient
	stopMine  context.CancelFunc
	closeOnce sync.Once
}

// NewSimChainProvider creates a new SimChainProvider with the given selector and configuration.
func NewSimChainProvider(selector uint64, config SimChainProviderConfig) *SimChainProvider {
	if config.ConfirmTimeout == 0 {
		config.ConfirmTimeout = time.Minute
	}

	return &SimChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize starts the simulated backend with the development accounts prefunded with
// 1,000,000 ether each.
func (p *SimChainProvider) Initialize(ctx context.Context) (chain.BlockChain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	deployerPrivKey, err := devDeployerKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse deployer key: %w", err)
	}

	deployer, err := bind.NewKeyedTransactorWithChainID(deployerPrivKey, SimChainID)
	if err != nil {
		return nil, err
	}

	users, err := devUserTransactors(SimChainID, p.config.NumAdditionalAccounts)
	if err != nil {
		return nil, err
	}

	genesis := types.GenesisAlloc{
		deployer.From: {Balance: prefundAmountWei},
	}
	for _, u := range users {
		genesis[u.From] = types.Account{Balance: prefundAmountWei}
	}

	p.backend = simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50000000))
	p.backend.Commit()

	p.client, err = NewSimClient(p.backend)
	if err != nil {
		return nil, err
	}

	if p.config.BlockTime > 0 {
		p.startAutoMine(p.config.BlockTime)
	}

	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      p.client,
		DeployerKey: deployer,
		Users:       users,
		Confirm:     p.confirm(ctx, deployer),
		SignHash: func(hash []byte) ([]byte, error) {
			return crypto.Sign(hash, deployerPrivKey)
		},
	}

	return *p.chain, nil
}

// confirm commits a block so the transaction is mined, then checks the receipt.
func (p *SimChainProvider) confirm(ctx context.Context, deployer *bind.TransactOpts) evm.ConfirmFunc {
	return func(tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", p.selector)
		}

		p.client.Commit()

		waitCtx, cancel := context.WithTimeout(ctx, p.config.ConfirmTimeout)
		defer cancel()

		receipt, err := bind.WaitMined(waitCtx, p.client, tx)
		if err != nil {
			return 0, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
				tx.Hash().Hex(), p.selector, err,
			)
		}

		if receipt.Status == types.ReceiptStatusFailed {
			return 0, revertError(waitCtx, p.client, deployer.From, p.selector, tx, receipt)
		}

		return receipt.BlockNumber.Uint64(), nil
	}
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// ChainSelector returns the chain selector of the simulated chain managed by this provider.
func (p *SimChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns nil until Initialize succeeds.
func (p *SimChainProvider) BlockChain() chain.BlockChain {
	if p.chain == nil {
		return nil
	}

	return *p.chain
}

// Client returns the simulated client, nil before Initialize.
func (p *SimChainProvider) Client() *SimClient {
	return p.client
}

// Close stops block production and shuts the backend down. It is safe to call more than once.
func (p *SimChainProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.stopMine != nil {
			p.stopMine()
		}
		if p.backend != nil {
			err = p.backend.Close()
		}
	})

	return err
}

// startAutoMine commits a block every blockTime until the provider is closed.
func (p *SimChainProvider) startAutoMine(blockTime time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	p.stopMine = cancel

	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.client.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
