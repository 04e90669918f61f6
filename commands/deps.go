package commands

import (
	"context"
	"os"

	envconfig "github.com/smartcontractkit/lottery-deployments/config/env"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/lottery"
)

// EnvironmentLoaderFunc opens the Environment of a network.
type EnvironmentLoaderFunc func(ctx context.Context, cfg lottery.LoadConfig) (*lottery.Environment, error)

// NetworksLoaderFunc loads the network manifest files.
type NetworksLoaderFunc func(paths []string) (*network.Config, error)

// SecretsLoaderFunc exports the dotenv files and reads the secrets from the environment.
type SecretsLoaderFunc func(envFiles ...string) (*envconfig.Config, error)

// defaultNetworksLoader is the production implementation that reads YAML manifests. RPC URLs may
// reference environment variables, e.g. ${WEB3_INFURA_PROJECT_ID}.
func defaultNetworksLoader(paths []string) (*network.Config, error) {
	return network.Load(paths,
		network.WithHTTPURLTransformer(os.ExpandEnv),
		network.WithWSURLTransformer(os.ExpandEnv),
	)
}

// defaultSecretsLoader is the production implementation that reads the process environment.
func defaultSecretsLoader(envFiles ...string) (*envconfig.Config, error) {
	if err := envconfig.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	return envconfig.LoadEnv()
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// EnvironmentLoader opens the network. Default: lottery.LoadEnvironment
	EnvironmentLoader EnvironmentLoaderFunc

	// NetworksLoader reads the network manifests. Default: network.Load
	NetworksLoader NetworksLoaderFunc

	// SecretsLoader reads keys and explorer credentials. Default: dotenv files, then env vars
	SecretsLoader SecretsLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.EnvironmentLoader == nil {
		d.EnvironmentLoader = lottery.LoadEnvironment
	}
	if d.NetworksLoader == nil {
		d.NetworksLoader = defaultNetworksLoader
	}
	if d.SecretsLoader == nil {
		d.SecretsLoader = defaultSecretsLoader
	}
}
