// Package config loads the secrets of the lottery scripts: deployer keys, KMS and keystore
// settings and the block explorer API key.
//
// Values come from environment variables, a YAML file or both. Environment variables win over the
// file. Several keys accept the variable names used by brownie projects as aliases, e.g.
// PRIVATE_KEY and ETHERSCAN_TOKEN.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every secret of the scripts. It must never be logged.
type Config struct {
	Onchain       OnchainConfig       `mapstructure:"onchain" yaml:"onchain"`
	BlockExplorer BlockExplorerConfig `mapstructure:"block_explorer" yaml:"block_explorer"`
}

// OnchainConfig groups the signing configuration.
type OnchainConfig struct {
	KMS      KMSConfig      `mapstructure:"kms" yaml:"kms"`
	EVM      EVMConfig      `mapstructure:"evm" yaml:"evm"`
	Keystore KeystoreConfig `mapstructure:"keystore" yaml:"keystore"`
}

// KMSConfig selects an AWS KMS key to sign with on live networks.
type KMSConfig struct {
	KeyID     string `mapstructure:"key_id" yaml:"key_id"`
	KeyRegion string `mapstructure:"key_region" yaml:"key_region"`
	// AWSProfile is optional. The default credential chain is used when empty.
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile"`
}

// IsSet reports whether a KMS key is configured.
func (c KMSConfig) IsSet() bool {
	return c.KeyID != "" && c.KeyRegion != ""
}

// EVMConfig holds the raw deployer key, hex encoded. It takes precedence over KMS.
type EVMConfig struct {
	DeployerKey string `mapstructure:"deployer_key" yaml:"deployer_key"`
}

// KeystoreConfig locates the encrypted keystore files of accounts loaded by id.
type KeystoreConfig struct {
	// Dir holds one <id>.json file per account.
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Password string `mapstructure:"password" yaml:"password"`
}

// BlockExplorerConfig overrides the explorer API key of the network manifest.
type BlockExplorerConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// envBindings lists, per config key, the environment variables that set it in order of
// preference.
var envBindings = [][]string{
	{"onchain.kms.key_id", "ONCHAIN_KMS_KEY_ID", "KMS_DEPLOYER_KEY_ID"},
	{"onchain.kms.key_region", "ONCHAIN_KMS_KEY_REGION", "KMS_DEPLOYER_KEY_REGION"},
	{"onchain.kms.aws_profile", "ONCHAIN_KMS_AWS_PROFILE"},
	{"onchain.evm.deployer_key", "ONCHAIN_EVM_DEPLOYER_KEY", "PRIVATE_KEY"},
	{"onchain.keystore.dir", "ONCHAIN_KEYSTORE_DIR"},
	{"onchain.keystore.password", "ONCHAIN_KEYSTORE_PASSWORD"},
	{"block_explorer.api_key", "BLOCK_EXPLORER_API_KEY", "ETHERSCAN_TOKEN"},
}

// Load reads the file at filePath and applies environment overrides. A missing file is not an
// error, the config then comes from the environment alone.
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return LoadEnv()
	}

	return decode(filePath, true)
}

// LoadEnv reads the config from environment variables only.
func LoadEnv() (*Config, error) {
	return decode("", true)
}

// LoadFile reads the config from the file only.
func LoadFile(filePath string) (*Config, error) {
	return decode(filePath, false)
}

func decode(filePath string, withEnv bool) (*Config, error) {
	v := viper.New()

	if withEnv {
		for _, b := range envBindings {
			if err := v.BindEnv(b...); err != nil {
				return nil, fmt.Errorf("failed to bind env for %s: %w", b[0], err)
			}
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports the variables of the dotenv files into the process environment. Variables
// that are already set keep their value and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var found []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil
	}

	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("failed to load dotenv files: %w", err)
	}

	return nil
}
