package lottery

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

// maxPlayers bounds the players enumeration.
const maxPlayers = 10_000

// Status is a snapshot of a deployed lottery.
type Status struct {
	Lottery      common.Address         `json:"lottery"`
	State        contracts.LotteryState `json:"state"`
	EntranceFee  *big.Int               `json:"entrance_fee"`
	Balance      *big.Int               `json:"balance"`
	RecentWinner common.Address         `json:"recent_winner"`
	Players      []common.Address       `json:"players"`
}

// Status reads the state of the most recently deployed lottery.
func (e *Environment) Status(ctx context.Context) (Status, error) {
	addr, err := e.LatestLottery()
	if err != nil {
		return Status{}, err
	}

	l := contracts.NewLottery(addr, e.Chain.Client)
	opts := &bind.CallOpts{Context: ctx}

	s := Status{Lottery: addr}

	if s.State, err = l.State(opts); err != nil {
		return s, err
	}
	if s.EntranceFee, err = l.EntranceFee(opts); err != nil {
		return s, err
	}
	if s.RecentWinner, err = l.RecentWinner(opts); err != nil {
		return s, err
	}
	if s.Balance, err = e.Chain.Client.BalanceAt(ctx, addr, nil); err != nil {
		return s, err
	}
	if s.Players, err = players(opts, l); err != nil {
		return s, err
	}

	return s, nil
}

// players reads players(i) until the index is out of bounds. Depending on the compiler version
// that read reverts or hits the INVALID opcode.
func players(opts *bind.CallOpts, l *contracts.Lottery) ([]common.Address, error) {
	var out []common.Address
	for i := range uint64(maxPlayers) {
		p, err := l.Player(opts, i)
		if contracts.IsExecutionError(err) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}

	return out, nil
}
