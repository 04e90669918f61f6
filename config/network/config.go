package network

import (
	"cmp"
	"fmt"
	"maps"
	"os"
	"slices"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"gopkg.in/yaml.v3"
)

// DevelopmentNetwork is the name of the built-in in-process simulated network.
const DevelopmentNetwork = "development"

// Development returns the built-in simulated network, used for "development" unless a manifest
// defines it.
func Development() Network {
	return Network{
		Name:          DevelopmentNetwork,
		Type:          NetworkTypeLocal,
		ChainSelector: chainsel.GETH_TESTNET.Selector,
	}
}

// Manifest is the document layout of a networks file.
type Manifest struct {
	Networks []Network `yaml:"networks"`
}

// Config is the merged set of networks from one or more manifests, keyed by name. Names rather
// than chain selectors are the key since a fork shares the selector of the chain it forks.
type Config struct {
	networks map[string]Network
}

// NewConfig returns a Config of networks. A later network replaces an earlier one of the same
// name.
func NewConfig(networks ...Network) *Config {
	c := &Config{networks: make(map[string]Network, len(networks))}
	for _, n := range networks {
		c.networks[n.Name] = n
	}

	return c
}

// Networks returns the networks ordered by name.
func (c *Config) Networks() []Network {
	return slices.SortedFunc(maps.Values(c.networks), func(a, b Network) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

// Names returns the sorted network names.
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.networks))
}

// NetworkByName looks a network up. "development" falls back to Development.
func (c *Config) NetworkByName(name string) (Network, error) {
	if n, ok := c.networks[name]; ok {
		return n, nil
	}
	if name == DevelopmentNetwork {
		return Development(), nil
	}

	return Network{}, fmt.Errorf("network %q not found in configuration", name)
}

// Merge adds the networks of other, replacing those with the same name.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	maps.Copy(c.networks, other.networks)
}

// Validate validates every network.
func (c *Config) Validate() error {
	for _, n := range c.Networks() {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("network %q: %w", n.Name, err)
		}
	}

	return nil
}

func (c *Config) MarshalYAML() (any, error) {
	return Manifest{Networks: c.Networks()}, nil
}

func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var m Manifest
	if err := value.Decode(&m); err != nil {
		return err
	}
	*c = *NewConfig(m.Networks...)

	return nil
}

// URLTransformer rewrites a URL, e.g. to expand ${VAR} references to API keys.
type URLTransformer func(string) string

// LoadOption customizes Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	// rewrites run on every network after all files are merged
	rewrites []func(*Network)
}

// WithHTTPURLTransformer rewrites the RPC HTTP URLs and the Anvil archive URL.
func WithHTTPURLTransformer(t URLTransformer) LoadOption {
	return func(lc *loadConfig) {
		lc.rewrites = append(lc.rewrites, func(n *Network) {
			for i := range n.RPCs {
				n.RPCs[i].HTTPURL = t(n.RPCs[i].HTTPURL)
			}
			if md, err := DecodeMetadata[EVMMetadata](n.Metadata); err == nil && md.AnvilConfig != nil {
				md.AnvilConfig.ArchiveHTTPURL = t(md.AnvilConfig.ArchiveHTTPURL)
				n.Metadata = md
			}
		})
	}
}

// WithWSURLTransformer rewrites the RPC websocket URLs.
func WithWSURLTransformer(t URLTransformer) LoadOption {
	return func(lc *loadConfig) {
		lc.rewrites = append(lc.rewrites, func(n *Network) {
			for i := range n.RPCs {
				n.RPCs[i].WSURL = t(n.RPCs[i].WSURL)
			}
		})
	}
}

// Load reads and merges the manifests at filePaths, in order, and validates the result.
func Load(filePaths []string, opts ...LoadOption) (*Config, error) {
	lc := &loadConfig{}
	for _, opt := range opts {
		opt(lc)
	}

	cfg := NewConfig()
	for _, fp := range filePaths {
		fileCfg, err := readManifest(fp)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	for name, n := range cfg.networks {
		for _, rewrite := range lc.rewrites {
			rewrite(&n)
		}
		cfg.networks[name] = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate networks configuration: %w", err)
	}

	return cfg, nil
}

func readManifest(fp string) (*Config, error) {
	data, err := os.ReadFile(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal networks YAML: %w", err)
	}

	return NewConfig(m.Networks...), nil
}
