package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
)

// AnvilClient calls the anvil_* custom methods of an Anvil node.
// See https://book.getfoundry.sh/reference/anvil/#custom-methods.
type AnvilClient struct {
	url    string
	client *resty.Client
}

// NewAnvilClient creates a client for the Anvil node at url.
func NewAnvilClient(url string) *AnvilClient {
	return &AnvilClient{
		url: url,
		client: resty.New().
			SetHeader("Content-Type", "application/json"),
	}
}

// SetBalance sets the balance of account to balance wei.
func (c *AnvilClient) SetBalance(ctx context.Context, account common.Address, balance *big.Int) error {
	return c.post(ctx, "anvil_setBalance", account.Hex(), hexutil.EncodeBig(balance))
}

// setBalanceMethods are the balance cheat codes of Anvil, Hardhat and Ganache 7, tried in order.
var setBalanceMethods = []string{"anvil_setBalance", "hardhat_setBalance", "evm_setAccountBalance"}

// Fund sets the balance of account with the first set-balance method the node accepts.
func (c *AnvilClient) Fund(ctx context.Context, account common.Address, balance *big.Int) error {
	errs := make([]error, 0, len(setBalanceMethods))
	for _, method := range setBalanceMethods {
		err := c.post(ctx, method, account.Hex(), hexutil.EncodeBig(balance))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

type jsonRPCResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnvilClient) post(ctx context.Context, method string, params ...any) error {
	var out jsonRPCResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"jsonrpc": "2.0",
			"method":  method,
			"params":  params,
			"id":      rand.IntN(1 << 30), //nolint:gosec // request id only
		}).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to call %s: http status %d", method, resp.StatusCode())
	}
	if out.Error != nil {
		return fmt.Errorf("failed to call %s: %s (code %d)", method, out.Error.Message, out.Error.Code)
	}

	return nil
}
