package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/smartcontractkit/chainlink-testing-framework/framework"
	"github.com/smartcontractkit/chainlink-testing-framework/framework/components/blockchain"
	"github.com/smartcontractkit/freeport"
	"github.com/testcontainers/testcontainers-go"

	"github.com/smartcontractkit/lottery-deployments/chain"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// CTFAnvilChainProviderConfig holds the configuration to initialize the CTFAnvilChainProvider.
type CTFAnvilChainProviderConfig struct {
	// Required: A sync.Once instance to ensure that the CTF framework only sets up the new
	// DefaultNetwork once
	Once *sync.Once

	// Required: ConfirmFunctor generates the confirmation function for transactions.
	ConfirmFunctor ConfirmFunctor

	// Optional: DeployerTransactorGen is a generator for the deployer key. If not provided, the
	// default Anvil deployer account will be used. On a fork the custom deployer is funded
	// through anvil_setBalance.
	DeployerTransactorGen SignerGenerator

	// Optional: ClientOpts are applied to the MultiClient created for the node.
	ClientOpts []func(client *evm.MultiClient)

	// Optional: DockerCmdParamsOverrides are appended to the anvil command line.
	DockerCmdParamsOverrides []string

	// Optional: ForkURLs are archive RPCs to fork from. The first one is passed to anvil as
	// --fork-url; the node then mirrors the remote chain state.
	ForkURLs []string

	// Optional: ForkBlockNumber pins the fork to a block. Ignored without ForkURLs.
	ForkBlockNumber uint64

	// Optional: Port specifies the port for the Anvil container. A free port is allocated when
	// empty.
	Port string

	// Optional: Image specifies the Docker image to use for the Anvil container.
	Image string

	// Optional: Number of prefunded user accounts besides the deployer. Zero selects all.
	NumAdditionalAccounts uint

	// Optional: when set, the allocated port is returned and the container terminated through
	// the test cleanup.
	T testing.TB

	// Optional: Logger for the MultiClient. Defaults to a runtime logger.
	Logger logger.Logger
}

func (c CTFAnvilChainProviderConfig) validate() error {
	if c.Once == nil {
		return errors.New("sync.Once instance is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}

	if c.Port != "" {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			return fmt.Errorf("invalid port %s: must be a valid integer", c.Port)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
		}
	}

	return nil
}

// dockerCmd returns the extra anvil command line arguments.
func (c CTFAnvilChainProviderConfig) dockerCmd() []string {
	cmd := make([]string, 0, len(c.DockerCmdParamsOverrides)+4)
	if len(c.ForkURLs) > 0 {
		cmd = append(cmd, "--fork-url", c.ForkURLs[0])
		if c.ForkBlockNumber > 0 {
			cmd = append(cmd, "--fork-block-number", strconv.FormatUint(c.ForkBlockNumber, 10))
		}
	}

	return append(cmd, c.DockerCmdParamsOverrides...)
}

var (
	_ chain.Provider = (*CTFAnvilChainProvider)(nil)
	_ chain.Closer   = (*CTFAnvilChainProvider)(nil)
)

// CTFAnvilChainProvider runs an Anvil node inside a Chainlink Testing Framework Docker container.
// It backs the "anvil-local" style local networks and, with ForkURLs, the mainnet-fork style
// networks. Docker must be available.
type CTFAnvilChainProvider struct {
	selector uint64
	config   CTFAnvilChainProviderConfig

	chain     *evm.Chain
	httpURL   string
	container testcontainers.Container
}

// NewCTFAnvilChainProvider creates a new CTFAnvilChainProvider with the given selector and
// configuration.
func NewCTFAnvilChainProvider(
	selector uint64, config CTFAnvilChainProviderConfig,
) *CTFAnvilChainProvider {
	return &CTFAnvilChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize starts the container, connects a MultiClient to it and builds the chain with the
// standard Anvil development accounts.
func (p *CTFAnvilChainProvider) Initialize(ctx context.Context) (chain.BlockChain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	if err := p.config.validate(); err != nil {
		return nil, err
	}

	chainID, err := evm.ChainIDFromSelector(p.selector)
	if err != nil {
		return nil, err
	}

	httpURL, err := p.startContainer(ctx, chainID.String())
	if err != nil {
		return nil, err
	}
	p.httpURL = httpURL

	lggr := p.config.Logger
	if lggr == nil {
		if lggr, err = logger.New(); err != nil {
			return nil, err
		}
	}

	client, err := evm.NewMultiClient(lggr, evm.RPCConfig{
		ChainSelector: p.selector,
		RPCs: []evm.RPC{
			{
				Name:               "anvil-local",
				HTTPURL:            httpURL,
				PreferredURLScheme: evm.URLSchemePreferenceHTTP,
			},
		},
	}, p.config.ClientOpts...)
	if err != nil {
		return nil, err
	}

	deployerKey, signHash, err := p.deployer(ctx, chainID)
	if err != nil {
		return nil, err
	}

	users, err := devUserTransactors(chainID, p.config.NumAdditionalAccounts)
	if err != nil {
		return nil, err
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, p.selector, client, deployerKey.From)
	if err != nil {
		return nil, err
	}

	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployerKey,
		Users:       users,
		Confirm:     confirmFunc,
		SignHash:    signHash,
	}

	return *p.chain, nil
}

// deployer returns the configured deployer or the default Anvil account 0. A custom deployer
// on a fork is funded, since it has no balance on the forked chain unless it is a real account.
func (p *CTFAnvilChainProvider) deployer(
	ctx context.Context, chainID *big.Int,
) (*bind.TransactOpts, func([]byte) ([]byte, error), error) {
	if gen := p.config.DeployerTransactorGen; gen != nil {
		key, err := gen.Generate(chainID)
		if err != nil {
			return nil, nil, err
		}
		if len(p.config.ForkURLs) > 0 {
			if err := NewAnvilClient(p.httpURL).SetBalance(ctx, key.From, DevAccountBalance); err != nil {
				return nil, nil, fmt.Errorf("failed to fund deployer %s: %w", key.From, err)
			}
		}

		return key, gen.SignHash, nil
	}

	privKey, err := devDeployerKey()
	if err != nil {
		return nil, nil, err
	}
	key, err := bind.NewKeyedTransactorWithChainID(privKey, chainID)
	if err != nil {
		return nil, nil, err
	}

	return key, func(hash []byte) ([]byte, error) {
		sig, signErr := crypto.Sign(hash, privKey)
		if signErr != nil {
			return nil, fmt.Errorf("failed to sign hash: %w", signErr)
		}

		return sig, nil
	}, nil
}

// Name returns the human-readable name of the CTFAnvilChainProvider.
func (*CTFAnvilChainProvider) Name() string {
	return "Anvil EVM CTF Chain Provider"
}

// ChainSelector returns the chain selector of the Anvil EVM chain managed by this provider.
func (p *CTFAnvilChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns nil until Initialize succeeds.
func (p *CTFAnvilChainProvider) BlockChain() chain.BlockChain {
	if p.chain == nil {
		return nil
	}

	return *p.chain
}

// GetNodeHTTPURL returns the external HTTP URL of the Anvil node, empty before Initialize.
func (p *CTFAnvilChainProvider) GetNodeHTTPURL() string {
	return p.httpURL
}

// Close terminates the Anvil container. Subsequent calls are no-ops.
func (p *CTFAnvilChainProvider) Close() error {
	return p.Cleanup(context.Background())
}

// Cleanup terminates the Anvil container. Subsequent calls are no-ops.
func (p *CTFAnvilChainProvider) Cleanup(ctx context.Context) error {
	if p.container != nil {
		if err := p.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate Anvil container: %w", err)
		}
		p.container = nil
	}

	return nil
}

// allocatePort returns the configured port or a free one.
func (p *CTFAnvilChainProvider) allocatePort() (int, error) {
	if p.config.Port != "" {
		return strconv.Atoi(p.config.Port)
	}
	if p.config.T != nil {
		return freeport.GetOne(p.config.T), nil
	}

	ports, err := freeport.Take(1)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate a free port: %w", err)
	}

	return ports[0], nil
}

// startContainer starts the Anvil container, retrying with a new port on failure, and returns
// the external HTTP URL of the node.
func (p *CTFAnvilChainProvider) startContainer(ctx context.Context, chainID string) (string, error) {
	attempts := uint(10)

	if err := framework.DefaultNetwork(p.config.Once); err != nil {
		return "", fmt.Errorf("failed to set up CTF default network: %w", err)
	}

	httpURL, err := retry.DoWithData(func() (string, error) {
		port, err := p.allocatePort()
		if err != nil {
			return "", err
		}

		output, err := blockchain.NewBlockchainNetwork(&blockchain.Input{
			Type:                     blockchain.TypeAnvil,
			ChainID:                  chainID,
			Port:                     strconv.Itoa(port),
			Image:                    p.config.Image,
			DockerCmdParamsOverrides: p.config.dockerCmd(),
		})
		if err != nil {
			if p.config.Port == "" {
				freeport.Return([]int{port})
			}

			return "", fmt.Errorf("failed to create Anvil container: %w", err)
		}

		p.container = output.Container
		if p.config.T != nil {
			testcontainers.CleanupContainer(p.config.T, output.Container)
		}

		return output.Nodes[0].ExternalHTTPUrl, nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start CTF Anvil container after %d attempts: %w", attempts, err)
	}

	return httpURL, nil
}
