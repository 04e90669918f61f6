package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MockV3Aggregator is a binding to a price feed, real or mocked. Both share the read interface.
type MockV3Aggregator struct {
	base
}

func NewMockV3Aggregator(address common.Address, backend bind.ContractBackend) *MockV3Aggregator {
	return &MockV3Aggregator{base: newBase(TypeMockV3Aggregator, address, backend)}
}

func (a *MockV3Aggregator) Decimals(opts *bind.CallOpts) (uint8, error) {
	return call[uint8](a.base, opts, "decimals")
}

func (a *MockV3Aggregator) LatestAnswer(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](a.base, opts, "latestAnswer")
}

// UpdateAnswer sets a new answer on a mocked feed.
func (a *MockV3Aggregator) UpdateAnswer(opts *bind.TransactOpts, answer *big.Int) (*types.Transaction, error) {
	return a.contract.Transact(opts, "updateAnswer", answer)
}
