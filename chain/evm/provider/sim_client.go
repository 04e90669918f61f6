package provider

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
)

// SimClient is the evm.OnchainClient of a simulated backend. Blocks are only produced by Commit,
// which the confirm function of the simulated chain calls after each transaction.
type SimClient struct {
	simulated.Client

	backend *simulated.Backend
	// serializes block production across concurrent confirmations
	commitMu sync.Mutex
}

func NewSimClient(backend *simulated.Backend) (*SimClient, error) {
	if backend == nil {
		return nil, errors.New("simulated backend must not be nil")
	}

	return &SimClient{Client: backend.Client(), backend: backend}, nil
}

// Commit mines the pending transactions into a new block and returns its hash.
func (c *SimClient) Commit() common.Hash {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	return c.backend.Commit()
}
