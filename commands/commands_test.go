package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	envconfig "github.com/smartcontractkit/lottery-deployments/config/env"
	"github.com/smartcontractkit/lottery-deployments/internal/testutils"
	"github.com/smartcontractkit/lottery-deployments/lottery"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const testManifest = `
networks:
  - name: sepolia
    type: live
    chain_selector: 16015286601757825753
    rpcs:
      - rpc_name: public
        preferred_url_scheme: http
        http_url: https://rpc.sepolia.org
    contracts:
      eth_usd_price_feed: "0x694AA1769357215DE4FAC081bf1f309aDC325306"
      vrf_coordinator: "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"
      link_token: "0x779877A7B0D9E8603169DdbD7836e478b4624789"
    fee: "250000000000000000"
    key_hash: "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
    verify: true
`

func noSecrets(...string) (*envconfig.Config, error) {
	return &envconfig.Config{}, nil
}

// execute runs the lottery command with args against stub artifacts and returns its output.
func execute(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()

	if deps.SecretsLoader == nil {
		deps.SecretsLoader = noSecrets
	}

	cmd := NewCommand(Config{Logger: logger.Test(t), Deps: deps})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)

	base := []string{
		"--artifacts-dir", testutils.WriteStubArtifacts(t, nil),
		"--registry-dir", t.TempDir(),
	}
	cmd.SetArgs(append(args, base...))

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func writeManifest(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))

	return path
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{Logger: logger.Nop()})

	assert.Equal(t, "lottery", cmd.Use)
	assert.Equal(t, rootShort, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	uses := make([]string, 0, len(cmd.Commands()))
	for _, sc := range cmd.Commands() {
		uses = append(uses, sc.Use)
	}
	assert.ElementsMatch(t, []string{
		"deploy", "start", "enter", "end", "run", "mocks", "fund", "fulfill", "status", "networks", "operations",
	}, uses)

	for _, name := range []string{"networks-file", "env-file", "network", "artifacts-dir", "registry-dir", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRun_Development(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Deps{}, "run", "--callback-wait", "1ms")
	require.NoError(t, err)

	assert.Contains(t, out, "Lottery 0x")
	assert.Contains(t, out, "Randomness request 0x0000000000000000000000000000000000000000000000000000000000000007")
	assert.Contains(t, strings.ToLower(out), "0x000000000000000000000000000000000000002a is the new winner!")
}

func TestDeploy_Development(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Deps{}, "deploy")
	require.NoError(t, err)
	assert.Contains(t, out, "Deployed lottery to 0x")
	assert.Contains(t, out, "on development")
}

func TestMocksDeploy_Development(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Deps{}, "mocks", "deploy", "--decimals", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "Price feed      0x")
	assert.Contains(t, out, "LINK token      0x")
	assert.Contains(t, out, "VRF coordinator 0x")
}

func TestFund(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{
			name: "explicit contract",
			args: []string{"fund", "--to", "0x00000000000000000000000000000000000000aa", "--amount", "5"},
			want: "funded 0x00000000000000000000000000000000000000aa with 5 juels of link",
		},
		{
			name:    "no lottery deployed",
			args:    []string{"fund"},
			wantErr: "no Lottery deployed on network development",
		},
		{
			name:    "invalid amount",
			args:    []string{"fund", "--amount", "0.1"},
			wantErr: `invalid --amount "0.1"`,
		},
		{
			name:    "invalid address",
			args:    []string{"fund", "--to", "lottery"},
			wantErr: `invalid --to address "lottery"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, Deps{}, tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Contains(t, strings.ToLower(out), tt.want)
		})
	}
}

func TestFulfill_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing flags",
			args:    []string{"fulfill"},
			wantErr: `required flag(s) "randomness", "request-id" not set`,
		},
		{
			name:    "short request id",
			args:    []string{"fulfill", "--request-id", "0x07", "--randomness", "1"},
			wantErr: `invalid request id "0x07"`,
		},
		{
			name: "no lottery deployed",
			args: []string{
				"fulfill", "--request-id", "0x0000000000000000000000000000000000000000000000000000000000000007",
				"--randomness", "777",
			},
			wantErr: "no Lottery deployed on network development",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, Deps{}, tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFulfill_NotLocal(t *testing.T) {
	t.Parallel()

	// the live network is opened on a simulated chain
	loader := func(ctx context.Context, cfg lottery.LoadConfig) (*lottery.Environment, error) {
		live := cfg.Network
		cfg.Network.Type = "local"
		cfg.Network.RPCs = nil
		env, err := lottery.LoadEnvironment(ctx, cfg)
		if err != nil {
			return nil, err
		}
		env.Network = live

		return env, nil
	}

	_, err := execute(t, Deps{EnvironmentLoader: loader},
		"fulfill", "--networks-file", writeManifest(t), "--network", "sepolia",
		"--request-id", "0x0000000000000000000000000000000000000000000000000000000000000007",
		"--randomness", "777",
	)
	require.ErrorIs(t, err, lottery.ErrNotLocalNetwork)
}

func TestStatus_NoLottery(t *testing.T) {
	t.Parallel()

	_, err := execute(t, Deps{}, "status")
	require.ErrorContains(t, err, "no Lottery deployed on network development")
}

func TestEnvironmentLoaderConfig(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	var (
		got      lottery.LoadConfig
		envFiles []string
	)
	deps := Deps{
		EnvironmentLoader: func(_ context.Context, cfg lottery.LoadConfig) (*lottery.Environment, error) {
			got = cfg
			return nil, errStop
		},
		SecretsLoader: func(files ...string) (*envconfig.Config, error) {
			envFiles = files
			return &envconfig.Config{BlockExplorer: envconfig.BlockExplorerConfig{APIKey: "key"}}, nil
		},
	}

	_, err := execute(t, deps, "deploy", "--networks-file", writeManifest(t), "-n", "sepolia", "--env-file", "secrets.env")
	require.ErrorIs(t, err, errStop)

	assert.Equal(t, "sepolia", got.Network.Name)
	assert.True(t, got.Network.Verify)
	assert.Equal(t, "key", got.Secrets.BlockExplorer.APIKey)
	assert.Equal(t, []string{"secrets.env"}, envFiles)
	assert.NotEmpty(t, got.ArtifactsDir)
	assert.NotEmpty(t, got.RegistryDir)
	assert.NotNil(t, got.Logger)
}

func TestUnknownNetwork(t *testing.T) {
	t.Parallel()

	_, err := execute(t, Deps{}, "deploy", "--networks-file", writeManifest(t), "--network", "mainnet")
	require.ErrorContains(t, err, `network "mainnet" not found in configuration, available networks: development, sepolia`)
}

func TestNetworks(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Deps{}, "networks", "--networks-file", writeManifest(t))
	require.NoError(t, err)

	assert.Contains(t, out, "development")
	assert.Contains(t, out, "1337")
	assert.Contains(t, out, "sepolia")
	assert.Contains(t, out, "11155111")
	assert.Contains(t, out, "16015286601757825753")
}

func TestNetworks_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, Deps{}, "networks", "--networks-file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to load networks")
}

func TestOperations(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Deps{}, "operations")
	require.NoError(t, err)

	for _, id := range []string{"deploy-contract", "start-lottery", "enter-lottery", "end-lottery", "fund-with-link", "fulfill-randomness", "verify-contract"} {
		assert.Contains(t, out, id)
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{Deps: Deps{SecretsLoader: noSecrets}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"status", "--log-level", "loud"})

	err := cmd.ExecuteContext(t.Context())
	require.ErrorContains(t, err, `invalid log level "loud"`)
}

func Test_longDesc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "empty", give: "", want: ""},
		{name: "single line", give: "  Deploys.  ", want: "Deploys."},
		{
			name: "indented block",
			give: `
				Deploys the Lottery.
				Then starts it.
			`,
			want: "Deploys the Lottery.\nThen starts it.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, longDesc(tt.give))
		})
	}
}

func Test_examples(t *testing.T) {
	t.Parallel()

	got := examples(`
		# Deploy
		lottery deploy

		lottery run
	`)
	assert.Equal(t, "  # Deploy\n  lottery deploy\n\n  lottery run", got)
}
