// Package commands provides the cobra commands of the lottery CLI.
//
//	cmd := commands.NewCommand(commands.Config{})
//	if err := cmd.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
//
// Every command runs against one network, selected with --network and described by the network
// manifest (--networks-file). The built-in "development" network is an in-process simulated chain
// which lives as long as the command.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/lottery"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

var (
	rootShort = "Deploy and drive the Lottery contract"

	rootLong = longDesc(`
		Deploys the Lottery contract and walks it through its lifecycle: start, enter and end.

		On local networks the price feed, VRF coordinator and LINK token are mocked and deployed on
		first use. On fork and live networks their addresses come from the network manifest.
		Deployments are recorded per network under the registry directory.
	`)

	rootExample = examples(`
		# Deploy, start, enter and end a lottery on the in-process development chain
		lottery run

		# Deploy a lottery to Sepolia, using the networks.yaml manifest and the key in .env
		lottery deploy --network sepolia
	`)
)

// Config holds the configuration of the lottery commands.
type Config struct {
	// Logger is the logger to use for command output.
	// Optional: built from --log-level when nil.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommand creates the root lottery command with all subcommands.
func NewCommand(cfg Config) *cobra.Command {
	cfg.deps()

	cmd := &cobra.Command{
		Use:           "lottery",
		Short:         rootShort,
		Long:          rootLong,
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags.Global(cmd)

	cmd.AddCommand(newDeployCmd(cfg))
	cmd.AddCommand(newStartCmd(cfg))
	cmd.AddCommand(newEnterCmd(cfg))
	cmd.AddCommand(newEndCmd(cfg))
	cmd.AddCommand(newRunCmd(cfg))
	cmd.AddCommand(newMocksCmd(cfg))
	cmd.AddCommand(newFundCmd(cfg))
	cmd.AddCommand(newFulfillCmd(cfg))
	cmd.AddCommand(newStatusCmd(cfg))
	cmd.AddCommand(newNetworksCmd(cfg))
	cmd.AddCommand(newOperationsCmd())

	return cmd
}

// logger returns the configured logger, or one at the --log-level.
func (c *Config) logger(cmd *cobra.Command) (logger.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}

	lvl, err := logger.ParseLevel(flags.MustString(cmd.Flags().GetString("log-level")))
	if err != nil {
		return nil, err
	}

	lcfg := logger.Config{Level: lvl, Console: true}

	return lcfg.New()
}

// networks loads the network manifests. The default manifest is optional.
func (c *Config) networks(cmd *cobra.Command) (*network.Config, error) {
	paths := flags.MustStringSlice(cmd.Flags().GetStringSlice("networks-file"))

	if !cmd.Flags().Changed("networks-file") {
		paths = existing(paths)
	}

	cfg, err := c.Deps.NetworksLoader(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load networks: %w", err)
	}

	return cfg, nil
}

// loadEnvironment opens the Environment of the --network. Close it when done.
func (c *Config) loadEnvironment(cmd *cobra.Command, opts ...lottery.Option) (*lottery.Environment, error) {
	lggr, err := c.logger(cmd)
	if err != nil {
		return nil, err
	}

	// the dotenv file is exported first, network URLs may reference its variables
	secrets, err := c.Deps.SecretsLoader(flags.MustString(cmd.Flags().GetString("env-file")))
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	netCfg, err := c.networks(cmd)
	if err != nil {
		return nil, err
	}

	name := flags.MustString(cmd.Flags().GetString("network"))
	net, err := netCfg.NetworkByName(name)
	if err != nil {
		names := netCfg.Names()
		if !slices.Contains(names, network.DevelopmentNetwork) {
			names = append(names, network.DevelopmentNetwork)
			slices.Sort(names)
		}

		return nil, fmt.Errorf("%w, available networks: %s", err, strings.Join(names, ", "))
	}

	return c.Deps.EnvironmentLoader(cmd.Context(), lottery.LoadConfig{
		Network:      net,
		Secrets:      secrets,
		ArtifactsDir: flags.MustString(cmd.Flags().GetString("artifacts-dir")),
		RegistryDir:  flags.MustString(cmd.Flags().GetString("registry-dir")),
		Logger:       lggr,
		Options:      opts,
	})
}

// withEnvironment runs fn against the --network and closes the Environment afterwards.
func (c *Config) withEnvironment(
	cmd *cobra.Command, fn func(ctx context.Context, env *lottery.Environment) error, opts ...lottery.Option,
) (err error) {
	env, err := c.loadEnvironment(cmd, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, env.Close())
	}()

	return fn(cmd.Context(), env)
}

func existing(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		out = append(out, p)
	}

	return out
}

// longDesc trims a help text and the indentation of its lines.
func longDesc(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return strings.Join(lines, "\n")
}

// examples trims example lines and indents them by two spaces.
func examples(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			line = "  " + line
		}
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}
