package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LotteryState mirrors the contract's LOTTERY_STATE enum.
type LotteryState uint8

const (
	LotteryOpen LotteryState = iota
	LotteryClosed
	LotteryCalculatingWinner
)

func (s LotteryState) String() string {
	switch s {
	case LotteryOpen:
		return "open"
	case LotteryClosed:
		return "closed"
	case LotteryCalculatingWinner:
		return "calculating winner"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Lottery is a binding to a deployed Lottery contract.
type Lottery struct {
	base
}

// NewLottery binds a Lottery deployed at address.
func NewLottery(address common.Address, backend bind.ContractBackend) *Lottery {
	return &Lottery{base: newBase(TypeLottery, address, backend)}
}

// EntranceFee returns the entrance fee in wei at the current price feed answer.
func (l *Lottery) EntranceFee(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.base, opts, "getEntranceFee")
}

func (l *Lottery) UsdEntryFee(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.base, opts, "usdEntryFee")
}

func (l *Lottery) State(opts *bind.CallOpts) (LotteryState, error) {
	s, err := call[uint8](l.base, opts, "lottery_state")

	return LotteryState(s), err
}

func (l *Lottery) RecentWinner(opts *bind.CallOpts) (common.Address, error) {
	return call[common.Address](l.base, opts, "recentWinner")
}

// Player returns the i-th entrant. Past the last entrant the call fails with an execution error,
// see [IsExecutionError].
func (l *Lottery) Player(opts *bind.CallOpts, i uint64) (common.Address, error) {
	return call[common.Address](l.base, opts, "players", new(big.Int).SetUint64(i))
}

func (l *Lottery) Randomness(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.base, opts, "randomness")
}

func (l *Lottery) Fee(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.base, opts, "fee")
}

func (l *Lottery) KeyHash(opts *bind.CallOpts) ([32]byte, error) {
	return call[[32]byte](l.base, opts, "keyhash")
}

func (l *Lottery) Owner(opts *bind.CallOpts) (common.Address, error) {
	return call[common.Address](l.base, opts, "owner")
}

// StartLottery opens the lottery. Only the owner may call it.
func (l *Lottery) StartLottery(opts *bind.TransactOpts) (*types.Transaction, error) {
	return l.contract.Transact(opts, "startLottery")
}

// Enter enters opts.From into the lottery. opts.Value must cover the entrance fee.
func (l *Lottery) Enter(opts *bind.TransactOpts) (*types.Transaction, error) {
	return l.contract.Transact(opts, "enter")
}

// EndLottery closes the lottery and requests randomness from the VRF coordinator. The contract
// must hold enough LINK to pay the request fee.
func (l *Lottery) EndLottery(opts *bind.TransactOpts) (*types.Transaction, error) {
	return l.contract.Transact(opts, "endLottery")
}

// ParseRequestedRandomness returns the request id of the first RequestedRandomness event in the
// receipt.
func ParseRequestedRandomness(receipt *types.Receipt) ([32]byte, error) {
	var id [32]byte
	if receipt == nil {
		return id, fmt.Errorf("RequestedRandomness: %w: nil receipt", ErrEventNotFound)
	}

	ev := mustABI(TypeLottery).Events["RequestedRandomness"]
	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}

		out, err := ev.Inputs.Unpack(lg.Data)
		if err != nil {
			return id, fmt.Errorf("failed to unpack RequestedRandomness: %w", err)
		}
		if len(out) != 1 {
			return id, fmt.Errorf("RequestedRandomness: expected 1 value, got %d", len(out))
		}
		v, ok := out[0].([32]byte)
		if !ok {
			return id, fmt.Errorf("RequestedRandomness: expected bytes32, got %T", out[0])
		}

		return v, nil
	}

	return id, fmt.Errorf("RequestedRandomness: %w in tx %s", ErrEventNotFound, receipt.TxHash)
}
