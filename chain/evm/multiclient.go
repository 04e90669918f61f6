package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// RetryConfig controls how often and how long the MultiClient retries a single RPC before it
// moves on to the next one. Dial settings apply when the client is created.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	// Timeout bounds each attempt unless the caller's context already has a deadline.
	Timeout time.Duration

	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

// DefaultRetryConfig tries every RPC once with a 10s timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     1,
		Delay:        time.Second,
		Timeout:      10 * time.Second,
		DialAttempts: 1,
		DialDelay:    time.Second,
		DialTimeout:  10 * time.Second,
	}
}

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) func(*MultiClient) {
	return func(mc *MultiClient) {
		mc.RetryConfig = cfg
	}
}

var _ OnchainClient = &MultiClient{}

// MultiClient is an OnchainClient that fails over between the RPCs configured for a network.
// Calls go to Client first, then to each of the Backups. The RPC that answers becomes Client.
type MultiClient struct {
	*ethclient.Client
	Backups     []*ethclient.Client
	RetryConfig RetryConfig

	lggr  logger.Logger
	chain string
	mu    sync.RWMutex
}

// NewMultiClient dials every RPC of the config and keeps the ones that answer eth_blockNumber.
func NewMultiClient(lggr logger.Logger, rpcsCfg RPCConfig, opts ...func(client *MultiClient)) (*MultiClient, error) {
	if len(rpcsCfg.RPCs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}
	details, ok := chainsel.ChainBySelector(rpcsCfg.ChainSelector)
	if !ok {
		return nil, fmt.Errorf("chain with selector %d not found", rpcsCfg.ChainSelector)
	}

	mc := &MultiClient{
		lggr:        lggr.Named("multiclient"),
		chain:       details.Name,
		RetryConfig: DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(mc)
	}

	var healthy []*ethclient.Client
	for _, r := range rpcsCfg.RPCs {
		client, err := mc.dial(r)
		if err != nil {
			mc.lggr.Warnw("Skipping RPC", "rpc", r.Name, "chain", mc.chain, "error", err)
			continue
		}
		healthy = append(healthy, client)
	}
	if len(healthy) == 0 {
		return nil, errors.New("no valid RPC clients created")
	}

	mc.Client, mc.Backups = healthy[0], healthy[1:]

	return mc, nil
}

// dial connects to the RPC and checks that it serves eth_blockNumber.
func (mc *MultiClient) dial(r RPC) (*ethclient.Client, error) {
	endpoint, err := r.ToEndpoint()
	if err != nil {
		return nil, err
	}

	client, err := retry.DoWithData(func() (*ethclient.Client, error) {
		ctx, cancel := context.WithTimeout(context.Background(), mc.RetryConfig.DialTimeout)
		defer cancel()

		mc.lggr.Debugw("Dialing RPC", "chain", mc.chain, "rpc", r.Name)

		return ethclient.DialContext(ctx, endpoint)
	},
		retry.Attempts(mc.RetryConfig.DialAttempts),
		retry.Delay(mc.RetryConfig.DialDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s at %s: %w", r.Name, endpoint, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if _, err = client.BlockNumber(ctx); err != nil {
		client.Close()

		return nil, fmt.Errorf("health check of RPC %s failed: %w", r.Name, err)
	}

	return client, nil
}

// failover runs call against each client in turn, retrying each per RetryConfig, and promotes
// the first client that succeeds.
func (mc *MultiClient) failover(ctx context.Context, op string, call func(context.Context, *ethclient.Client) error) error {
	traceID := uuid.NewString()

	var lastErr error
	for i, client := range mc.clients() {
		lastErr = retry.Do(func() error {
			attemptCtx, cancel := callContext(ctx, mc.RetryConfig.Timeout)
			defer cancel()

			return call(attemptCtx, client)
		},
			retry.Context(ctx),
			retry.Attempts(mc.RetryConfig.Attempts),
			retry.Delay(mc.RetryConfig.Delay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				mc.lggr.Warnw("RPC call failed, retrying",
					"traceID", traceID, "chain", mc.chain, "op", op, "client", i, "attempt", n+1, "error", withErrorData(err),
				)
			}),
		)
		if lastErr == nil {
			mc.promote(i)

			return nil
		}

		mc.lggr.Infow("RPC client exhausted, trying next client",
			"traceID", traceID, "chain", mc.chain, "op", op, "client", i, "error", withErrorData(lastErr),
		)
	}

	return errors.Join(lastErr, fmt.Errorf("all backup clients failed for chain %q", mc.chain))
}

// failoverWithData is failover for calls that return a value.
func failoverWithData[T any](
	ctx context.Context, mc *MultiClient, op string, call func(context.Context, *ethclient.Client) (T, error),
) (T, error) {
	var out T
	err := mc.failover(ctx, op, func(ctx context.Context, c *ethclient.Client) error {
		v, err := call(ctx, c)
		if err != nil {
			return err
		}
		out = v

		return nil
	})

	return out, err
}

func (mc *MultiClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return mc.failover(ctx, "SendTransaction", func(ctx context.Context, c *ethclient.Client) error {
		return c.SendTransaction(ctx, tx)
	})
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return failoverWithData(ctx, mc, "CallContract", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNumber)
	})
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return failoverWithData(ctx, mc, "CodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) NonceAt(ctx context.Context, account common.Address, block *big.Int) (uint64, error) {
	return failoverWithData(ctx, mc, "NonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.NonceAt(ctx, account, block)
	})
}

func (mc *MultiClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return failoverWithData(ctx, mc, "HeaderByNumber", func(ctx context.Context, c *ethclient.Client) (*types.Header, error) {
		return c.HeaderByNumber(ctx, number)
	})
}

func (mc *MultiClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return failoverWithData(ctx, mc, "SuggestGasPrice", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
}

func (mc *MultiClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return failoverWithData(ctx, mc, "SuggestGasTipCap", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasTipCap(ctx)
	})
}

func (mc *MultiClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return failoverWithData(ctx, mc, "PendingCodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.PendingCodeAt(ctx, account)
	})
}

func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return failoverWithData(ctx, mc, "PendingNonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.PendingNonceAt(ctx, account)
	})
}

func (mc *MultiClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return failoverWithData(ctx, mc, "EstimateGas", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.EstimateGas(ctx, call)
	})
}

func (mc *MultiClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return failoverWithData(ctx, mc, "BalanceAt", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.BalanceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return failoverWithData(ctx, mc, "TransactionReceipt", func(ctx context.Context, c *ethclient.Client) (*types.Receipt, error) {
		return c.TransactionReceipt(ctx, txHash)
	})
}

func (mc *MultiClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return failoverWithData(ctx, mc, "FilterLogs", func(ctx context.Context, c *ethclient.Client) ([]types.Log, error) {
		return c.FilterLogs(ctx, q)
	})
}

func (mc *MultiClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return failoverWithData(ctx, mc, "SubscribeFilterLogs", func(ctx context.Context, c *ethclient.Client) (ethereum.Subscription, error) {
		return c.SubscribeFilterLogs(ctx, q, ch)
	})
}

// WaitMined polls every client for the receipt of tx and returns the first one found. It fails
// when every client gave up or ctx is done. RetryConfig.Timeout does not apply.
func (mc *MultiClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	clients := mc.clients()
	mc.lggr.Debugw("Waiting for tx to be mined", "tx", tx.Hash().Hex(), "chain", mc.chain, "clients", len(clients))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		receipt *types.Receipt
		err     error
	}
	results := make(chan result, len(clients))
	for _, client := range clients {
		go func() {
			receipt, err := bind.WaitMined(ctx, client, tx)
			results <- result{receipt, err}
		}()
	}

	var errs []error
	for range clients {
		r := <-results
		if r.err == nil {
			mc.lggr.Debugw("Tx mined", "tx", tx.Hash().Hex(), "block", r.receipt.BlockNumber)

			return r.receipt, nil
		}
		errs = append(errs, r.err)
	}

	return nil, fmt.Errorf("failed to wait for tx %s: %w", tx.Hash().Hex(), errors.Join(errs...))
}

// callContext keeps the deadline of parent when it has one.
func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

// promote makes the i-th client of clients() the primary. The clients before it rotate to the
// end of the backups.
func (mc *MultiClient) promote(i int) {
	if i == 0 {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	all := append([]*ethclient.Client{mc.Client}, mc.Backups...)
	if i >= len(all) {
		return
	}
	rotated := slices.Concat(all[i:], all[:i])
	mc.Client, mc.Backups = rotated[0], rotated[1:]
}

func (mc *MultiClient) clients() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client{mc.Client}, mc.Backups...)
}

// withErrorData appends the revert data of a JSON-RPC error to its message.
func withErrorData(err error) error {
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return fmt.Errorf("%s: %v", de.Error(), de.ErrorData())
	}

	return err
}
