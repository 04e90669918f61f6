package deployment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/contracts"
)

var (
	// ErrNotFound is returned when the registry holds no deployment of a contract type.
	ErrNotFound = errors.New("deployment not found")
	// ErrInvalidAddress is returned for empty or malformed addresses.
	ErrInvalidAddress = errors.New("invalid address")
)

// DefaultVersion is recorded when a deployment does not name its version.
var DefaultVersion = *semver.MustParse("1.0.0")

// TypeAndVersion identifies what was deployed.
type TypeAndVersion struct {
	Type    contracts.Type `json:"type"`
	Version semver.Version `json:"version"`
}

func NewTypeAndVersion(t contracts.Type, v semver.Version) TypeAndVersion {
	return TypeAndVersion{Type: t, Version: v}
}

func (tv TypeAndVersion) String() string {
	return fmt.Sprintf("%s %s", tv.Type, tv.Version.String())
}

func (tv TypeAndVersion) Equal(other TypeAndVersion) bool {
	return tv.Type == other.Type && tv.Version.Equal(&other.Version)
}

// TypeAndVersionFromString parses "<type> <version>".
func TypeAndVersionFromString(s string) (TypeAndVersion, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return TypeAndVersion{}, fmt.Errorf("invalid type and version string: %s", s)
	}
	v, err := semver.NewVersion(parts[1])
	if err != nil {
		return TypeAndVersion{}, err
	}

	return TypeAndVersion{Type: contracts.Type(parts[0]), Version: *v}, nil
}

// Record is a single contract deployment.
type Record struct {
	TypeAndVersion
	ChainSelector uint64         `json:"chain_selector"`
	Address       common.Address `json:"address"`
	TxHash        common.Hash    `json:"tx_hash"`
	BlockNumber   uint64         `json:"block_number"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Validate checks the record can be stored.
func (r Record) Validate() error {
	if r.Type == "" {
		return errors.New("type cannot be empty")
	}
	if r.Address == (common.Address{}) {
		return fmt.Errorf("address cannot be empty: %w", ErrInvalidAddress)
	}

	return nil
}
