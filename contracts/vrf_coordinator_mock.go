package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VRFCoordinatorMock is a binding to the mocked VRF coordinator, which lets a script play the
// oracle node and answer randomness requests itself.
type VRFCoordinatorMock struct {
	base
}

func NewVRFCoordinatorMock(address common.Address, backend bind.ContractBackend) *VRFCoordinatorMock {
	return &VRFCoordinatorMock{base: newBase(TypeVRFCoordinatorMock, address, backend)}
}

// Link returns the LINK token the coordinator charges in.
func (c *VRFCoordinatorMock) Link(opts *bind.CallOpts) (common.Address, error) {
	return call[common.Address](c.base, opts, "LINK")
}

// CallBackWithRandomness delivers randomness for requestID to consumer.
func (c *VRFCoordinatorMock) CallBackWithRandomness(
	opts *bind.TransactOpts, requestID [32]byte, randomness *big.Int, consumer common.Address,
) (*types.Transaction, error) {
	return c.contract.Transact(opts, "callBackWithRandomness", requestID, randomness, consumer)
}
