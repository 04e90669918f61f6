// Package flags provides the flags shared by the lottery commands.
//
// Command-specific flags are defined locally in the command file.
package flags

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DefaultNetworksFile is read when --networks-file is not given and the file exists.
	DefaultNetworksFile = "networks.yaml"
	// DefaultEnvFile is loaded into the process environment when it exists.
	DefaultEnvFile = ".env"
)

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustStringSlice returns the string slice value, ignoring the error.
func MustStringSlice(s []string, _ error) []string { return s }

// MustInt returns the int value, ignoring the error.
func MustInt(i int, _ error) int { return i }

// MustDuration returns the duration value, ignoring the error.
func MustDuration(d time.Duration, _ error) time.Duration { return d }

// Global adds the persistent flags every command reads to locate the network and the project.
//
// Usage:
//
//	flags.Global(rootCmd)
//	// later in any subcommand RunE:
//	name, _ := cmd.Flags().GetString("network")
func Global(cmd *cobra.Command) {
	cmd.PersistentFlags().AddFlagSet(GlobalSet())
}

// GlobalSet returns a fresh set of the global flags.
func GlobalSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringSlice("networks-file", []string{DefaultNetworksFile}, "Network manifest files, merged in order")
	fs.String("env-file", DefaultEnvFile, "Dotenv file exported before the secrets are read")
	fs.StringP("network", "n", "development", "Network to run against, by name")
	fs.String("artifacts-dir", ".", "Project directory holding build/contracts (brownie) or out (foundry)")
	fs.String("registry-dir", "deployments", "Directory holding the deployment registry and operation reports")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")

	return fs
}

// CallbackWait adds the --callback-wait flag. Zero keeps the network's callback_wait.
func CallbackWait(cmd *cobra.Command) {
	cmd.Flags().Duration("callback-wait", 0, "How long to wait for the randomness callback (default: the network's callback_wait)")
}

// Account adds the --account-index and --account-id flags selecting the signing account.
func Account(cmd *cobra.Command) {
	cmd.Flags().Int("account-index", -1, "Development account index to sign with, 0 is the deployer")
	cmd.Flags().String("account-id", "", "Keystore account id to sign with")
	cmd.MarkFlagsMutuallyExclusive("account-index", "account-id")
}
