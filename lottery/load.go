package lottery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/chain"
	"github.com/smartcontractkit/lottery-deployments/chain/evm/provider"
	envconfig "github.com/smartcontractkit/lottery-deployments/config/env"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/deployment"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// confirmTimeout bounds the wait for a transaction receipt on RPC and Anvil networks.
const confirmTimeout = 5 * time.Minute

// the CTF framework sets up its default docker network once per process
var anvilOnce = &sync.Once{}

// LoadConfig describes how to open an Environment.
type LoadConfig struct {
	Network network.Network
	// Optional: Secrets hold the deployer key, KMS and keystore settings.
	Secrets *envconfig.Config
	// ArtifactsDir is the project directory holding build/contracts or out.
	ArtifactsDir string
	// RegistryDir holds one deployment registry file per network and the operation reports.
	// Simulated networks keep their registry in memory.
	RegistryDir string
	Logger      logger.Logger
	// Optional: Options are applied to the Environment.
	Options []Option
}

// LoadEnvironment starts or connects to the network's chain and opens its deployment registry.
// Close the Environment to release the chain.
func LoadEnvironment(ctx context.Context, cfg LoadConfig) (*Environment, error) {
	lggr := cfg.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}

	p, err := NewChainProvider(cfg.Network, cfg.Secrets, lggr)
	if err != nil {
		return nil, err
	}

	closeProvider := func() error { return nil }
	if c, ok := p.(chain.Closer); ok {
		closeProvider = c.Close
	}

	lggr.Infow("Connecting to network", "network", cfg.Network.Name, "provider", p.Name())

	bc, err := p.Initialize(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize network %s: %w", cfg.Network.Name, err), closeProvider())
	}

	evmChain, err := chain.AsEVM(bc)
	if err != nil {
		return nil, errors.Join(err, closeProvider())
	}

	var registry deployment.Registry
	if cfg.Network.IsSimulated() {
		registry = deployment.NewMemoryRegistry(cfg.Network.ChainSelector)
	} else {
		registry, err = deployment.OpenFileRegistry(cfg.RegistryDir, cfg.Network.Name, cfg.Network.ChainSelector)
		if err != nil {
			return nil, errors.Join(err, closeProvider())
		}
	}

	opts := []Option{WithSecrets(cfg.Secrets), WithCloser(closeProvider)}
	if !cfg.Network.IsSimulated() && cfg.RegistryDir != "" {
		reporter, err := operations.NewFileReporter(filepath.Join(cfg.RegistryDir, "reports", cfg.Network.Name))
		if err != nil {
			return nil, errors.Join(err, closeProvider())
		}
		lggr.Infow("Recording operation reports", "path", reporter.Path())
		opts = append(opts, WithReporter(reporter))
	}
	opts = append(opts, cfg.Options...)

	store := artifacts.NewStore(cfg.ArtifactsDir, lggr)

	return NewEnvironment(cfg.Network, evmChain, registry, store, lggr, opts...), nil
}

// NewChainProvider picks the chain provider of a network:
//   - local networks without RPCs or Anvil config run an in-process simulated chain
//   - networks with an Anvil config start an Anvil container, forking the live chain on fork networks
//   - everything else connects over RPC with the configured deployer key
func NewChainProvider(net network.Network, secrets *envconfig.Config, lggr logger.Logger) (chain.Provider, error) {
	if net.IsSimulated() {
		return provider.NewSimChainProvider(net.ChainSelector, provider.SimChainProviderConfig{}), nil
	}

	confirm := provider.ConfirmFuncGeth(confirmTimeout, provider.WithConfirmations(net.RequiredConfirmations()))

	if anvil, ok := net.AnvilConfig(); ok {
		cfg := provider.CTFAnvilChainProviderConfig{
			Once:           anvilOnce,
			ConfirmFunctor: confirm,
			Image:          anvil.Image,
			Logger:         lggr,
		}
		if anvil.Port != 0 {
			cfg.Port = strconv.FormatUint(anvil.Port, 10)
		}
		if net.Type == network.NetworkTypeFork {
			cfg.ForkURLs = net.ForkURLs()
			cfg.ForkBlockNumber = anvil.ForkBlockNumber
		}

		return provider.NewCTFAnvilChainProvider(net.ChainSelector, cfg), nil
	}

	rpcs, err := net.EVMRPCs()
	if err != nil {
		return nil, err
	}

	cfg := provider.RPCChainProviderConfig{
		RPCs:           rpcs,
		ConfirmFunctor: confirm,
		Logger:         lggr,
	}

	switch net.Type {
	case network.NetworkTypeLocal, network.NetworkTypeFork:
		// development accounts, funded on the node at Initialize
		if cfg.DeployerTransactorGen, err = provider.DevAccountTransactorGen(0); err != nil {
			return nil, err
		}
		cfg.UsersTransactorGen = provider.DevUserTransactorGens()
		cfg.DevAccountBalance = provider.DevAccountBalance
	default:
		if cfg.DeployerTransactorGen, err = DeployerTransactorGen(secrets); err != nil {
			return nil, err
		}
	}

	return provider.NewRPCChainProvider(net.ChainSelector, cfg), nil
}

// DeployerTransactorGen returns the live network deployer: the configured private key, or the
// KMS key when no private key is set.
func DeployerTransactorGen(secrets *envconfig.Config) (provider.SignerGenerator, error) {
	if secrets == nil {
		return nil, errors.New("no deployer key configured: set ONCHAIN_EVM_DEPLOYER_KEY or a KMS key")
	}

	if secrets.Onchain.EVM.DeployerKey != "" {
		return provider.TransactorFromRaw(secrets.Onchain.EVM.DeployerKey), nil
	}

	if kms := secrets.Onchain.KMS; kms.IsSet() {
		gen, err := provider.TransactorFromKMS(kms.KeyID, kms.KeyRegion, kms.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to create KMS signer: %w", err)
		}

		return gen, nil
	}

	return nil, errors.New("no deployer key configured: set ONCHAIN_EVM_DEPLOYER_KEY or a KMS key")
}
