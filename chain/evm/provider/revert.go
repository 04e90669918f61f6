package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractCaller can replay a transaction as a call. Both the MultiClient and the simulated client
// satisfy it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// revertError describes a reverted receipt, with the revert reason when the node returns one.
func revertError(
	ctx context.Context, caller ContractCaller, from common.Address, selector uint64,
	tx *types.Transaction, receipt *types.Receipt,
) error {
	if reason := revertReason(ctx, caller, from, tx, receipt); reason != "" {
		return fmt.Errorf("tx %s reverted for selector %d: %s", tx.Hash().Hex(), selector, reason)
	}

	return fmt.Errorf("tx %s reverted, could not decode error reason for selector %d", tx.Hash().Hex(), selector)
}

// txSender recovers the signer of tx, falling back to from when tx carries no valid signature.
func txSender(tx *types.Transaction, from common.Address) common.Address {
	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return from
	}

	return sender
}

// revertReason replays tx from its sender at the block of its receipt. The reason is the JSON-RPC error data when
// present, otherwise the error message of the replay. It is empty when the replay succeeds.
func revertReason(
	ctx context.Context, caller ContractCaller, from common.Address, tx *types.Transaction, receipt *types.Receipt,
) string {
	_, err := caller.CallContract(ctx, ethereum.CallMsg{
		From:     txSender(tx, from),
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}, receipt.BlockNumber)
	if err == nil {
		return ""
	}

	if data, derr := rpcErrorData(err); derr == nil && data != "" {
		return data
	}

	return err.Error()
}

// rpcError is the method set of go-ethereum's unexported rpc.jsonError.
type rpcError interface {
	error
	ErrorCode() int
	ErrorData() any
}

// rpcErrorData returns the data field of a JSON-RPC error found in the chain of err.
func rpcErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	var rerr rpcError
	if !errors.As(err, &rerr) {
		return "", fmt.Errorf("not a JSON-RPC error: %w", err)
	}

	data := rerr.ErrorData()
	if data == nil || data == "" {
		if strings.Contains(rerr.Error(), "missing trie node") {
			return "", errors.New("missing trie node, the node is likely not an archive node")
		}

		return "", nil
	}

	return fmt.Sprint(data), nil
}
