package network

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EVMMetadata is the shape of the free-form metadata block of an EVM network.
type EVMMetadata struct {
	AnvilConfig *AnvilConfig `yaml:"anvil_config,omitempty"`
}

// AnvilConfig describes the Anvil container that backs a local or forked network.
type AnvilConfig struct {
	Image string `yaml:"image"`
	Port  uint64 `yaml:"port"`
	// ArchiveHTTPURL is the node a fork is taken from.
	ArchiveHTTPURL string `yaml:"archive_http_url"`
	// ForkBlockNumber pins the fork. Zero forks from the latest block.
	ForkBlockNumber uint64 `yaml:"fork_block_number,omitempty"`
}

func (a AnvilConfig) Validate() error {
	var errs []error
	if a.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	if a.Port == 0 {
		errs = append(errs, errors.New("port is required"))
	}

	return errors.Join(errs...)
}

// DecodeMetadata re-decodes metadata, as parsed from the manifest into generic maps, into T.
func DecodeMetadata[T any](metadata any) (T, error) {
	var out T
	if metadata == nil {
		return out, errors.New("metadata is nil")
	}

	var node yaml.Node
	if err := node.Encode(metadata); err != nil {
		return out, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := node.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode metadata into %T: %w", out, err)
	}

	return out, nil
}
