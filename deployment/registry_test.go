package deployment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

var (
	testSelector = chainsel.GETH_TESTNET.Selector
	testTime     = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
)

func newRecord(t contracts.Type, addr string, block uint64) Record {
	return Record{
		TypeAndVersion: NewTypeAndVersion(t, DefaultVersion),
		Address:        common.HexToAddress(addr),
		TxHash:         common.HexToHash(addr),
		BlockNumber:    block,
		Timestamp:      testTime,
	}
}

func Test_TypeAndVersion(t *testing.T) {
	t.Parallel()

	tv, err := TypeAndVersionFromString("Lottery 1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "Lottery 1.2.0", tv.String())
	assert.True(t, tv.Equal(NewTypeAndVersion(contracts.TypeLottery, *semver.MustParse("1.2.0"))))
	assert.False(t, tv.Equal(NewTypeAndVersion(contracts.TypeLottery, DefaultVersion)))

	_, err = TypeAndVersionFromString("Lottery")
	require.EqualError(t, err, "invalid type and version string: Lottery")

	_, err = TypeAndVersionFromString("Lottery one")
	require.Error(t, err)
}

func Test_MemoryRegistry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    []Record
		wantErr string
	}{
		{
			name: "valid records",
			give: []Record{newRecord(contracts.TypeLottery, "0x01", 1), newRecord(contracts.TypeLottery, "0x02", 2)},
		},
		{
			name:    "empty type",
			give:    []Record{{Address: common.HexToAddress("0x01")}},
			wantErr: "type cannot be empty",
		},
		{
			name:    "empty address",
			give:    []Record{{TypeAndVersion: NewTypeAndVersion(contracts.TypeLottery, DefaultVersion)}},
			wantErr: "address cannot be empty: invalid address",
		},
		{
			name:    "duplicate address",
			give:    []Record{newRecord(contracts.TypeLottery, "0x01", 1), newRecord(contracts.TypeLinkToken, "0x01", 2)},
			wantErr: "address 0x0000000000000000000000000000000000000001 already exists for chain 3379446385462418246",
		},
		{
			name: "foreign chain",
			give: func() []Record {
				r := newRecord(contracts.TypeLottery, "0x01", 1)
				r.ChainSelector = 1

				return []Record{r}
			}(),
			wantErr: "record for chain 1 saved in registry of chain 3379446385462418246",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := NewMemoryRegistry(testSelector)

			var err error
			for _, rec := range tt.give {
				if err = reg.Save(rec); err != nil {
					break
				}
			}

			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_MemoryRegistry_Lookups(t *testing.T) {
	t.Parallel()

	reg := NewMemoryRegistry(testSelector)
	require.NoError(t, reg.Save(newRecord(contracts.TypeMockV3Aggregator, "0x0a", 1)))
	require.NoError(t, reg.Save(newRecord(contracts.TypeLottery, "0x01", 2)))
	require.NoError(t, reg.Save(newRecord(contracts.TypeLottery, "0x02", 3)))

	latest, err := reg.Latest(contracts.TypeLottery)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x02"), latest.Address)
	assert.Equal(t, testSelector, latest.ChainSelector)

	all, err := reg.All(contracts.TypeLottery)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(2), all[0].BlockNumber)

	assert.Equal(t, 2, reg.Len(contracts.TypeLottery))
	assert.Equal(t, 0, reg.Len(contracts.TypeLinkToken))

	_, err = reg.Latest(contracts.TypeLinkToken)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = reg.All(contracts.TypeLinkToken)
	require.ErrorIs(t, err, ErrNotFound)

	records := reg.Records()
	require.Len(t, records, 3)
	assert.Equal(t, contracts.TypeLottery, records[0].Type)
	assert.Equal(t, contracts.TypeMockV3Aggregator, records[2].Type)
}

func Test_FileRegistry(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "deployments")

	reg, err := OpenFileRegistry(dir, "sepolia", testSelector)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sepolia.json"), reg.Path())
	assert.Equal(t, 0, reg.Len(contracts.TypeLottery))

	require.NoError(t, reg.Save(newRecord(contracts.TypeLottery, "0x01", 1)))
	require.NoError(t, reg.Save(newRecord(contracts.TypeLinkToken, "0x02", 2)))
	require.NoError(t, reg.Save(newRecord(contracts.TypeLottery, "0x03", 3)))
	require.Error(t, reg.Save(newRecord(contracts.TypeLottery, "0x03", 4)))

	reloaded, err := OpenFileRegistry(dir, "sepolia", testSelector)
	require.NoError(t, err)

	latest, err := reloaded.Latest(contracts.TypeLottery)
	require.NoError(t, err)
	want := newRecord(contracts.TypeLottery, "0x03", 3)
	want.ChainSelector = testSelector
	assert.Equal(t, want, latest)
	assert.Equal(t, 2, reloaded.Len(contracts.TypeLottery))
	assert.Equal(t, reg.Records(), reloaded.Records())

	_, err = OpenFileRegistry(dir, "sepolia", 1)
	require.ErrorContains(t, err, "belongs to chain 3379446385462418246, not 1")
}

func Test_FileRegistry_SaveFailureKeepsRegistry(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "deployments")
	reg, err := OpenFileRegistry(dir, "sepolia", testSelector)
	require.NoError(t, err)
	require.NoError(t, reg.Save(newRecord(contracts.TypeLinkToken, "0x01", 1)))

	// a file where the registry dir should be makes every write fail
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, nil, 0o600))

	rec := newRecord(contracts.TypeLottery, "0x02", 2)
	require.ErrorContains(t, reg.Save(rec), "failed to create registry dir")
	assert.Equal(t, 0, reg.Len(contracts.TypeLottery))
	_, err = reg.Latest(contracts.TypeLottery)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, reg.Records(), 1)

	require.NoError(t, os.Remove(dir))
	require.NoError(t, reg.Save(rec))

	reloaded, err := OpenFileRegistry(dir, "sepolia", testSelector)
	require.NoError(t, err)
	assert.Equal(t, reg.Records(), reloaded.Records())
	assert.Equal(t, 1, reloaded.Len(contracts.TypeLottery))
	assert.Equal(t, 1, reloaded.Len(contracts.TypeLinkToken))
}

func Test_OpenFileRegistry_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(RegistryPath(dir, "bad"), []byte("{"), 0o600))

	_, err := OpenFileRegistry(dir, "bad", testSelector)
	require.ErrorContains(t, err, "failed to decode registry")
}
