package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/lottery"
)

var (
	deployLong = longDesc(`
		Deploys a new Lottery from the deployer account, wired to the network's price feed, VRF
		coordinator and LINK token. Mocks are deployed first on local networks. The source is published
		to the block explorer when the network sets verify.
	`)

	endLong = longDesc(`
		Funds the most recent Lottery with 0.1 LINK, ends it and waits for the VRF coordinator to call
		back with randomness, then prints the winner. The wait is a fixed duration: the network's
		callback_wait, or --callback-wait.
	`)

	runExample = examples(`
		# Full lottery on the development chain, waiting a second for the callback
		lottery run --callback-wait 1s

		# Full lottery on Sepolia
		lottery run --network sepolia
	`)
)

func newDeployCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new Lottery",
		Long:  deployLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				addr, err := env.DeployLottery(ctx)
				if err != nil {
					return err
				}

				cmd.Printf("Deployed lottery to %s on %s\n", addr.Hex(), env.Network.Name)

				return nil
			})
		},
	}
}

func newStartCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the most recently deployed Lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				if err := env.StartLottery(ctx); err != nil {
					return err
				}

				cmd.Println("The lottery is started!")

				return nil
			})
		},
	}
}

func newEnterCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enter",
		Short: "Enter the most recently deployed Lottery, paying the entrance fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				if err := env.EnterLottery(ctx, accountOptions(cmd)...); err != nil {
					return err
				}

				cmd.Println("You entered the lottery!")

				return nil
			})
		},
	}

	flags.Account(cmd)

	return cmd
}

func newEndCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the most recently deployed Lottery and report the winner",
		Long:  endLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				applyCallbackWait(cmd, env)

				res, err := env.EndLottery(ctx)
				if err != nil {
					return err
				}

				printEnd(cmd, res)

				return nil
			})
		},
	}

	flags.CallbackWait(cmd)

	return cmd
}

func newRunCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Deploy, start, enter and end a Lottery",
		Example: runExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				applyCallbackWait(cmd, env)

				out, err := env.Run(ctx)
				if err != nil {
					return err
				}

				cmd.Printf("Lottery %s\n", out.Lottery.Hex())
				printEnd(cmd, out.End)

				return nil
			})
		},
	}

	flags.CallbackWait(cmd)

	return cmd
}

func applyCallbackWait(cmd *cobra.Command, env *lottery.Environment) {
	if wait := flags.MustDuration(cmd.Flags().GetDuration("callback-wait")); wait > 0 {
		env.Network.CallbackWait = wait
	}
}

func accountOptions(cmd *cobra.Command) []lottery.AccountOption {
	var opts []lottery.AccountOption
	if i := flags.MustInt(cmd.Flags().GetInt("account-index")); i >= 0 {
		opts = append(opts, lottery.WithIndex(i))
	}
	if id := flags.MustString(cmd.Flags().GetString("account-id")); id != "" {
		opts = append(opts, lottery.WithID(id))
	}

	return opts
}

func printEnd(cmd *cobra.Command, res lottery.EndResult) {
	if res.RequestID != nil {
		cmd.Printf("Randomness request %s\n", res.RequestID.Hex())
	}
	cmd.Printf("%s is the new winner!\n", res.Winner.Hex())
}
