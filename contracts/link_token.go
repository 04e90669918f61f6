package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LinkToken is a binding to an ERC677 LINK token.
type LinkToken struct {
	base
}

func NewLinkToken(address common.Address, backend bind.ContractBackend) *LinkToken {
	return &LinkToken{base: newBase(TypeLinkToken, address, backend)}
}

func (t *LinkToken) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	return call[*big.Int](t.base, opts, "balanceOf", owner)
}

func (t *LinkToken) Symbol(opts *bind.CallOpts) (string, error) {
	return call[string](t.base, opts, "symbol")
}

func (t *LinkToken) Decimals(opts *bind.CallOpts) (uint8, error) {
	return call[uint8](t.base, opts, "decimals")
}

func (t *LinkToken) Transfer(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "transfer", to, amount)
}

func (t *LinkToken) TransferAndCall(
	opts *bind.TransactOpts, to common.Address, amount *big.Int, data []byte,
) (*types.Transaction, error) {
	return t.contract.Transact(opts, "transferAndCall", to, amount, data)
}
