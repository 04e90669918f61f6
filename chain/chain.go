package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

var (
	ErrBlockChainNotFound = errors.New("blockchain not found")
	// ErrUnsupportedFamily is returned by AsEVM for chains of any other family.
	ErrUnsupportedFamily = errors.New("unsupported chain family")
)

var _ BlockChain = evm.Chain{}

// BlockChain is a chain the scripts can address.
type BlockChain interface {
	// String returns "<name> (<selector>)".
	String() string
	Name() string
	ChainSelector() uint64
	Family() string
}

// Provider brings a chain up: it dials RPCs, starts a simulated backend or an Anvil container.
type Provider interface {
	Name() string
	ChainSelector() uint64
	// Initialize starts the chain. It is safe to call more than once.
	Initialize(ctx context.Context) (BlockChain, error)
	// BlockChain returns the chain after Initialize, nil before.
	BlockChain() BlockChain
}

// Closer is implemented by providers holding a container or a backend to release on exit.
type Closer interface {
	Close() error
}

// AsEVM unwraps the EVM chain behind b.
func AsEVM(b BlockChain) (evm.Chain, error) {
	switch c := b.(type) {
	case evm.Chain:
		return c, nil
	case *evm.Chain:
		if c == nil {
			return evm.Chain{}, ErrBlockChainNotFound
		}

		return *c, nil
	case nil:
		return evm.Chain{}, ErrBlockChainNotFound
	default:
		return evm.Chain{}, fmt.Errorf("%w: %s", ErrUnsupportedFamily, b.Family())
	}
}
