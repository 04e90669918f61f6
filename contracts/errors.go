package contracts

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/rpc"
)

// executionErrorMarkers are the messages nodes use for a call that aborted inside the EVM. Solidity
// before 0.8 aborts out of bounds array reads with the INVALID opcode instead of REVERT.
var executionErrorMarkers = []string{
	"execution reverted",
	"invalid opcode",  // geth, ganache ("VM Exception while processing transaction: invalid opcode")
	"invalidfeopcode", // anvil
	"vm exception",    // ganache
	"revert",
}

// IsExecutionError reports whether err means the EVM aborted the call, by REVERT or by an invalid
// opcode, as opposed to the call never reaching the node.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}

	var invalid *vm.ErrInvalidOpCode
	if errors.Is(err, vm.ErrExecutionReverted) || errors.As(err, &invalid) {
		return true
	}

	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range executionErrorMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}
