package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/chain"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// RPCChainProviderConfig configures an RPCChainProvider.
type RPCChainProviderConfig struct {
	// DeployerTransactorGen signs for the deployer: TransactorFromRaw, TransactorFromKeystore or
	// TransactorFromKMS. Required.
	DeployerTransactorGen SignerGenerator
	// RPCs are dialed in order by the MultiClient. At least one is required.
	RPCs []evm.RPC
	// ConfirmFunctor builds the function waiting for receipts. Required.
	ConfirmFunctor ConfirmFunctor
	ClientOpts     []func(client *evm.MultiClient)
	// UsersTransactorGen generates the extra accounts, e.g. lottery players.
	UsersTransactorGen []SignerGenerator
	// Logger defaults to a console logger.
	Logger logger.Logger
	// Optional: DevAccountBalance, when set, is the balance in wei the deployer and the users get
	// at Initialize through the node's set-balance method. Local nodes whose own accounts are not
	// the development accounts need it.
	DevAccountBalance *big.Int
}

func (c RPCChainProviderConfig) validate() error {
	var errs []error
	if c.DeployerTransactorGen == nil {
		errs = append(errs, errors.New("deployer transactor generator is required"))
	}
	if c.ConfirmFunctor == nil {
		errs = append(errs, errors.New("confirm functor is required"))
	}
	if len(c.RPCs) == 0 {
		errs = append(errs, errors.New("at least one RPC is required"))
	}

	return errors.Join(errs...)
}

var _ chain.Provider = (*RPCChainProvider)(nil)

// RPCChainProvider connects to running nodes: a live network, or a local node such as Ganache
// started outside the scripts.
type RPCChainProvider struct {
	selector uint64
	config   RPCChainProviderConfig

	chain *evm.Chain
}

func NewRPCChainProvider(selector uint64, config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{selector: selector, config: config}
}

func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

func (p *RPCChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns nil until Initialize succeeds.
func (p *RPCChainProvider) BlockChain() chain.BlockChain {
	if p.chain == nil {
		return nil
	}

	return *p.chain
}

// Initialize dials the RPCs and wires the deployer, the users and the confirm function into a
// chain. Later calls return the same chain.
func (p *RPCChainProvider) Initialize(ctx context.Context) (chain.BlockChain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	if err := p.config.validate(); err != nil {
		return nil, fmt.Errorf("failed to validate provider config: %w", err)
	}

	lggr := p.config.Logger
	if lggr == nil {
		var err error
		if lggr, err = logger.New(); err != nil {
			return nil, fmt.Errorf("failed to create default logger: %w", err)
		}
	}

	chainID, err := evm.ChainIDFromSelector(p.selector)
	if err != nil {
		return nil, err
	}

	deployer, users, err := p.transactors(chainID)
	if err != nil {
		return nil, err
	}

	client, err := evm.NewMultiClient(lggr, evm.RPCConfig{ChainSelector: p.selector, RPCs: p.config.RPCs},
		p.config.ClientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-client: %w", err)
	}

	if p.config.DevAccountBalance != nil {
		accounts := []common.Address{deployer.From}
		for _, user := range users {
			accounts = append(accounts, user.From)
		}
		if err = p.fundAccounts(ctx, lggr, accounts); err != nil {
			return nil, err
		}
	}

	confirm, err := p.config.ConfirmFunctor.Generate(ctx, p.selector, client, deployer.From)
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployer,
		Users:       users,
		Confirm:     confirm,
		SignHash:    p.config.DeployerTransactorGen.SignHash,
	}

	return *p.chain, nil
}

func (p *RPCChainProvider) transactors(chainID *big.Int) (*bind.TransactOpts, []*bind.TransactOpts, error) {
	deployer, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	users := make([]*bind.TransactOpts, len(p.config.UsersTransactorGen))
	for i, gen := range p.config.UsersTransactorGen {
		if users[i], err = gen.Generate(chainID); err != nil {
			return nil, nil, fmt.Errorf("failed to generate user transactor %d: %w", i, err)
		}
	}

	return deployer, users, nil
}

// fundAccounts sets the balance of accounts on the node behind the first HTTP RPC.
func (p *RPCChainProvider) fundAccounts(ctx context.Context, lggr logger.Logger, accounts []common.Address) error {
	var url string
	for _, rpc := range p.config.RPCs {
		if rpc.HTTPURL != "" {
			url = rpc.HTTPURL
			break
		}
	}
	if url == "" {
		return errors.New("funding development accounts requires an http rpc url")
	}

	client := NewAnvilClient(url)
	for _, account := range accounts {
		if err := client.Fund(ctx, account, p.config.DevAccountBalance); err != nil {
			return fmt.Errorf("failed to fund development account %s: %w", account.Hex(), err)
		}
	}

	lggr.Infow("Funded development accounts", "count", len(accounts), "balance", p.config.DevAccountBalance.String())

	return nil
}
