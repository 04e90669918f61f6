package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

// ConfirmFunctor builds the ConfirmFunc of a chain once its client and deployer are known.
type ConfirmFunctor interface {
	Generate(
		ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmOption configures the functor returned by ConfirmFuncGeth.
type ConfirmOption func(*gethConfirmer)

// WithTickInterval sets how often the receipt and the chain head are polled. Defaults to 1s.
func WithTickInterval(interval time.Duration) ConfirmOption {
	return func(c *gethConfirmer) {
		c.tick = interval
	}
}

// WithConfirmations sets how many blocks, the one including the tx among them, must exist
// before a tx counts as confirmed. Values below 1 mean 1.
func WithConfirmations(n uint64) ConfirmOption {
	return func(c *gethConfirmer) {
		c.confirmations = max(n, 1)
	}
}

// ConfirmFuncGeth polls the chain client for the receipt of each tx. A tx that is not mined and
// confirmed within timeout fails to confirm.
func ConfirmFuncGeth(timeout time.Duration, opts ...ConfirmOption) ConfirmFunctor {
	c := &gethConfirmer{
		tick:          time.Second,
		timeout:       timeout,
		confirmations: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type gethConfirmer struct {
	tick          time.Duration
	timeout       time.Duration
	confirmations uint64
}

func (c *gethConfirmer) Generate(
	ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", selector)
		}
		hash := tx.Hash()

		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var receipt *types.Receipt
		err := poll(ctx, c.tick, func() bool {
			r, err := client.TransactionReceipt(ctx, hash)
			receipt = r

			return err == nil && r != nil
		})
		if err != nil {
			return 0, fmt.Errorf("tx %s failed to confirm for selector %d: %w", hash.Hex(), selector, err)
		}

		block := receipt.BlockNumber.Uint64()
		if receipt.Status == types.ReceiptStatusFailed {
			return block, revertError(ctx, client, from, selector, tx, receipt)
		}

		target := block + c.confirmations - 1
		err = poll(ctx, c.tick, func() bool {
			head, err := client.HeaderByNumber(ctx, nil)

			return err == nil && head.Number.Uint64() >= target
		})
		if err != nil {
			return block, fmt.Errorf("tx %s mined in block %d but did not reach %d confirmations for selector %d: %w",
				hash.Hex(), block, c.confirmations, selector, err,
			)
		}

		return block, nil
	}, nil
}

// poll calls done immediately and then on every tick until it reports true or ctx ends.
func poll(ctx context.Context, tick time.Duration, done func() bool) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}
