package commands

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/lottery"
)

func newStatusCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the most recently deployed Lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}

			return cfg.withEnvironment(cmd, func(ctx context.Context, env *lottery.Environment) error {
				s, err := env.Status(ctx)
				if err != nil {
					return err
				}

				if asJSON {
					b, merr := json.MarshalIndent(s, "", "  ")
					if merr != nil {
						return merr
					}
					cmd.Println(string(b))

					return nil
				}

				players := make([]string, 0, len(s.Players))
				for _, p := range s.Players {
					players = append(players, p.Hex())
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetAutoWrapText(false)
				table.AppendBulk([][]string{
					{"Lottery", s.Lottery.Hex()},
					{"State", s.State.String()},
					{"Entrance fee (wei)", s.EntranceFee.String()},
					{"Balance (wei)", s.Balance.String()},
					{"Recent winner", s.RecentWinner.Hex()},
					{"Players", strings.Join(players, "\n")},
				})
				table.Render()

				return nil
			})
		},
	}

	cmd.Flags().Bool("json", false, "Print the status as JSON")

	return cmd
}

func newNetworksCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the networks of the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			netCfg, err := cfg.networks(cmd)
			if err != nil {
				return err
			}

			// development is always available
			nets := netCfg.Networks()
			if !slices.ContainsFunc(nets, func(n network.Network) bool { return n.Name == network.DevelopmentNetwork }) {
				nets = append([]network.Network{network.Development()}, nets...)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Name", "Type", "Chain ID", "Chain selector", "Verify"})
			table.SetAutoWrapText(false)
			for _, n := range nets {
				chainID, cerr := n.ChainID()
				if cerr != nil {
					chainID = "?"
				}
				table.Append([]string{
					n.Name,
					string(n.Type),
					chainID,
					strconv.FormatUint(n.ChainSelector, 10),
					strconv.FormatBool(n.Verify),
				})
			}
			table.Render()

			return nil
		},
	}
}

func newOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the operations the scripts record reports for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Version", "Description"})
			table.SetAutoWrapText(false)
			for _, def := range lottery.Operations().Definitions() {
				table.Append([]string{def.ID, def.Version.String(), def.Description})
			}
			table.Render()

			return nil
		},
	}
}
