package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

// StubRuntimes returns the default stub runtime of every contract type.
func StubRuntimes() map[contracts.Type][]byte {
	return map[contracts.Type][]byte{
		contracts.TypeLottery:            LotteryRuntime(),
		contracts.TypeMockV3Aggregator:   ConstantRuntime(),
		contracts.TypeVRFCoordinatorMock: ConstantRuntime(),
		contracts.TypeLinkToken:          ConstantRuntime(),
	}
}

// WriteStubArtifacts writes a brownie build directory holding stub contracts and returns the
// project directory. Entries in overrides replace the default runtime of a type.
func WriteStubArtifacts(t *testing.T, overrides map[contracts.Type][]byte) string {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "build", "contracts")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	runtimes := StubRuntimes()
	for typ, code := range overrides {
		runtimes[typ] = code
	}

	for typ, runtime := range runtimes {
		abiJSON, err := contracts.ABIJSON(typ)
		require.NoError(t, err)

		artifact := map[string]any{
			"contractName": string(typ),
			"abi":          json.RawMessage(abiJSON),
			"bytecode":     hexutil.Encode(InitCode(runtime)),
			"source":       "// stub " + string(typ) + "\n",
			"compiler": map[string]any{
				"version":   "0.6.6+commit.6c089d02",
				"optimizer": map[string]any{"enabled": true, "runs": 200},
			},
		}

		data, err := json.Marshal(artifact)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(typ)+".json"), data, 0o600))
	}

	return root
}
