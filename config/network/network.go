package network

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

// NetworkType represents how the scripts reach a network.
type NetworkType string

const (
	// NetworkTypeLocal is a throwaway development chain. Dependencies are mocked.
	NetworkTypeLocal NetworkType = "local"
	// NetworkTypeFork is a local node forked from a live chain. Dependencies are the live ones.
	NetworkTypeFork NetworkType = "fork"
	// NetworkTypeLive is a public chain reached over RPC.
	NetworkTypeLive NetworkType = "live"
)

const (
	// DefaultConfirmations is the number of blocks each transaction waits for.
	DefaultConfirmations uint64 = 1
	// DefaultCallbackWait is how long EndLottery waits for the randomness callback.
	DefaultCallbackWait = 180 * time.Second

	// Local networks that leave fee and key hash empty use these, the mock coordinator ignores both.
	DefaultLocalFee     = "100000000000000000"
	DefaultLocalKeyHash = "0x2ed0feb3e7fd2022120aa84fab1945545a9f2ffc9076fd6156fa96eaff4c1311"
)

// Network represents a network configuration.
type Network struct {
	Name          string            `yaml:"name"`
	Type          NetworkType       `yaml:"type"`
	ChainSelector uint64            `yaml:"chain_selector"`
	Confirmations uint64            `yaml:"confirmations,omitempty"`
	CallbackWait  time.Duration     `yaml:"callback_wait,omitempty"`
	BlockExplorer BlockExplorer     `yaml:"block_explorer,omitempty"`
	RPCs          []RPC             `yaml:"rpcs,omitempty"`
	Contracts     map[string]string `yaml:"contracts,omitempty"`
	// Fee is the LINK fee paid per randomness request, in juels (decimal string).
	Fee string `yaml:"fee,omitempty"`
	// KeyHash identifies the VRF proving key.
	KeyHash string `yaml:"key_hash,omitempty"`
	// Verify publishes the Lottery source to the block explorer after deployment.
	Verify   bool `yaml:"verify,omitempty"`
	Metadata any  `yaml:"metadata,omitempty"`
}

// ChainFamily returns the family of the network based on its chain selector.
func (n *Network) ChainFamily() (string, error) {
	return chain_selectors.GetSelectorFamily(n.ChainSelector)
}

// ChainID returns the chain ID as a string based on the chain selector.
func (n *Network) ChainID() (string, error) {
	return chain_selectors.GetChainIDFromSelector(n.ChainSelector)
}

// IsLocal reports whether the network's dependencies are mocked.
func (n *Network) IsLocal() bool {
	return n.Type == NetworkTypeLocal
}

// IsSimulated reports whether the network is an in-process simulated chain: a local network
// with neither RPCs nor an Anvil configuration.
func (n *Network) IsSimulated() bool {
	if n.Type != NetworkTypeLocal || len(n.RPCs) > 0 {
		return false
	}
	_, ok := n.AnvilConfig()

	return !ok
}

// AnvilConfig returns the Anvil configuration from the network metadata, if there is one.
func (n *Network) AnvilConfig() (*AnvilConfig, bool) {
	md, err := DecodeMetadata[EVMMetadata](n.Metadata)
	if err != nil || md.AnvilConfig == nil {
		return nil, false
	}

	return md.AnvilConfig, true
}

// RequiredConfirmations returns the configured confirmations, or [DefaultConfirmations].
func (n *Network) RequiredConfirmations() uint64 {
	if n.Confirmations == 0 {
		return DefaultConfirmations
	}

	return n.Confirmations
}

// RandomnessWait returns the configured callback wait, or [DefaultCallbackWait].
func (n *Network) RandomnessWait() time.Duration {
	if n.CallbackWait <= 0 {
		return DefaultCallbackWait
	}

	return n.CallbackWait
}

// FeeWei parses the randomness request fee.
func (n *Network) FeeWei() (*big.Int, error) {
	raw := strings.TrimSpace(n.Fee)
	if raw == "" && n.IsLocal() {
		raw = DefaultLocalFee
	}

	fee, ok := new(big.Int).SetString(raw, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("invalid fee %q", n.Fee)
	}

	return fee, nil
}

// KeyHashBytes parses the VRF key hash.
func (n *Network) KeyHashBytes() ([32]byte, error) {
	var out [32]byte
	raw := n.KeyHash
	if raw == "" && n.IsLocal() {
		raw = DefaultLocalKeyHash
	}

	b, err := hexutil.Decode(raw)
	if err != nil {
		return out, fmt.Errorf("invalid key hash %q: %w", n.KeyHash, err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("invalid key hash %q: want 32 bytes, got %d", n.KeyHash, len(b))
	}
	copy(out[:], b)

	return out, nil
}

// ContractAddress returns the configured address of a dependency contract.
func (n *Network) ContractAddress(name string) (common.Address, error) {
	addr, ok := n.Contracts[name]
	if !ok || addr == "" {
		return common.Address{}, fmt.Errorf("no address configured for %s on network %s", name, n.Name)
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid address %q configured for %s on network %s", addr, name, n.Name)
	}

	return common.HexToAddress(addr), nil
}

// EVMRPCs converts the configured RPCs into client RPCs.
func (n *Network) EVMRPCs() ([]evm.RPC, error) {
	rpcs := make([]evm.RPC, 0, len(n.RPCs))
	for _, r := range n.RPCs {
		pref, err := evm.URLSchemePreferenceFromString(r.PreferredURLScheme)
		if err != nil {
			return nil, fmt.Errorf("rpc %s: %w", r.RPCName, err)
		}
		rpcs = append(rpcs, evm.RPC{
			Name:               r.RPCName,
			WSURL:              r.WSURL,
			HTTPURL:            r.HTTPURL,
			PreferredURLScheme: pref,
		})
	}

	return rpcs, nil
}

// Validate validates the network configuration to ensure that all required fields are set.
func (n *Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}

	switch n.Type {
	case NetworkTypeLocal, NetworkTypeFork, NetworkTypeLive:
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown type %q", n.Type)
	}

	if n.ChainSelector == 0 {
		return errors.New("chain selector is required")
	}

	for name, addr := range n.Contracts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("contract %s: invalid address %q", name, addr)
		}
	}

	for _, r := range n.RPCs {
		if _, err := evm.URLSchemePreferenceFromString(r.PreferredURLScheme); err != nil {
			return fmt.Errorf("rpc %s: %w", r.RPCName, err)
		}
	}

	if anvil, ok := n.AnvilConfig(); ok {
		if err := anvil.Validate(); err != nil {
			return fmt.Errorf("anvil config: %w", err)
		}
	}

	if n.IsLocal() {
		return nil
	}

	if n.Fee == "" {
		return errors.New("fee is required")
	}
	if _, err := n.FeeWei(); err != nil {
		return err
	}

	if n.KeyHash == "" {
		return errors.New("key hash is required")
	}
	if _, err := n.KeyHashBytes(); err != nil {
		return err
	}

	switch n.Type {
	case NetworkTypeLive:
		if len(n.RPCs) == 0 {
			return errors.New("at least one RPC is required")
		}
	case NetworkTypeFork:
		anvil, ok := n.AnvilConfig()
		if len(n.RPCs) == 0 && (!ok || anvil.ArchiveHTTPURL == "") {
			return errors.New("a fork needs at least one RPC or an anvil archive URL")
		}
	}

	return nil
}

// ForkURLs returns the URLs an Anvil fork of this network should fork from. The archive URL
// comes first when configured.
func (n *Network) ForkURLs() []string {
	urls := []string{}
	if anvil, ok := n.AnvilConfig(); ok && anvil.ArchiveHTTPURL != "" {
		urls = append(urls, anvil.ArchiveHTTPURL)
	}
	for _, r := range n.RPCs {
		if r.HTTPURL != "" {
			urls = append(urls, r.HTTPURL)
		}
	}

	return urls
}

// RPC represents an RPC configuration in the flattened structure
type RPC struct {
	RPCName            string `yaml:"rpc_name"`
	PreferredURLScheme string `yaml:"preferred_url_scheme"`
	HTTPURL            string `yaml:"http_url"`
	WSURL              string `yaml:"ws_url"`
}

// PreferredEndpoint returns the correct endpoint based on the preferred URL scheme. By default, it
// returns the HTTP URL.
func (rpc *RPC) PreferredEndpoint() string {
	if rpc.PreferredURLScheme == "ws" {
		return rpc.WSURL
	}

	return rpc.HTTPURL
}

// BlockExplorer represents a block explorer configuration in the flattened structure
type BlockExplorer struct {
	Type   string `yaml:"type"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}
