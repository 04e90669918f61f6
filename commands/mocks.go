package commands

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/lottery"
)

var (
	fulfillLong = longDesc(`
		Calls back the most recent Lottery through the mock VRF coordinator, standing in for a
		Chainlink node. Only local networks, where the coordinator is a mock, allow it.
	`)

	fulfillExample = examples(`
		lottery fulfill --request-id 0x...07 --randomness 777
	`)
)

func newMocksCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mocks",
		Short: "Mock dependency commands",
	}

	deploy := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the price feed, LINK token and VRF coordinator mocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			decimals, err := cmd.Flags().GetUint8("decimals")
			if err != nil {
				return err
			}
			initial, err := bigIntFlag(cmd, "initial-value")
			if err != nil {
				return err
			}

			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				mocks, err := env.DeployMocks(ctx, decimals, initial)
				if err != nil {
					return err
				}

				cmd.Printf("Price feed      %s\n", mocks.PriceFeed.Hex())
				cmd.Printf("LINK token      %s\n", mocks.LinkToken.Hex())
				cmd.Printf("VRF coordinator %s\n", mocks.VRFCoordinator.Hex())

				return nil
			})
		},
	}
	deploy.Flags().Uint8("decimals", lottery.DefaultDecimals, "Price feed decimals")
	deploy.Flags().String("initial-value", big.NewInt(lottery.DefaultInitialValue).String(), "Price feed initial answer")

	cmd.AddCommand(deploy)

	return cmd
}

func newFundCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Fund a contract with LINK, by default the most recent Lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := bigIntFlag(cmd, "amount")
			if err != nil {
				return err
			}

			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				to, err := addressFlag(cmd, "to")
				if err != nil {
					return err
				}
				if to == (common.Address{}) {
					if to, err = env.LatestLottery(); err != nil {
						return err
					}
				}

				opts := []lottery.FundOption{lottery.WithAmount(amount)}
				if acc := accountOptions(cmd); len(acc) > 0 {
					account, aerr := env.GetAccount(ctx, acc...)
					if aerr != nil {
						return aerr
					}
					opts = append(opts, lottery.WithFundAccount(account))
				}

				out, err := env.FundWithLink(ctx, to, opts...)
				if err != nil {
					return err
				}

				cmd.Printf("Funded %s with %s juels of LINK in tx %s\n", to.Hex(), amount, out.TxHash.Hex())

				return nil
			})
		},
	}

	cmd.Flags().String("amount", big.NewInt(lottery.DefaultFundAmount).String(), "LINK amount in juels")
	cmd.Flags().String("to", "", "Contract to fund (default: the most recent Lottery)")
	flags.Account(cmd)

	return cmd
}

func newFulfillCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fulfill",
		Short:   "Deliver randomness to the most recent Lottery through the mock coordinator",
		Long:    fulfillLong,
		Example: fulfillExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := flags.MustString(cmd.Flags().GetString("request-id"))
			id, err := hexutil.Decode(raw)
			if err != nil || len(id) != common.HashLength {
				return fmt.Errorf("invalid request id %q: want 32 hex encoded bytes", raw)
			}
			randomness, err := bigIntFlag(cmd, "randomness")
			if err != nil {
				return err
			}

			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				out, err := env.FulfillRandomness(ctx, common.BytesToHash(id), randomness)
				if err != nil {
					return err
				}

				cmd.Printf("Fulfilled request %s in tx %s\n", raw, out.TxHash.Hex())

				return nil
			})
		},
	}

	cmd.Flags().String("request-id", "", "Randomness request id (required)")
	cmd.Flags().String("randomness", "", "Random number to deliver (required)")
	_ = cmd.MarkFlagRequired("request-id")
	_ = cmd.MarkFlagRequired("randomness")

	return cmd
}

func bigIntFlag(cmd *cobra.Command, name string) (*big.Int, error) {
	raw := flags.MustString(cmd.Flags().GetString(name))

	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid --%s %q: want a non-negative integer", name, raw)
	}

	return v, nil
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw := flags.MustString(cmd.Flags().GetString(name))
	if raw == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid --%s address %q", name, raw)
	}

	return common.HexToAddress(raw), nil
}
