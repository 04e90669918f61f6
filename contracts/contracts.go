// Package contracts holds the ABIs of the Lottery contract and its dependencies, together with
// thin bindings over go-ethereum's bind.BoundContract.
package contracts

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/*.json
var abiFS embed.FS

// Type is the name of a contract as it appears in the build artifacts.
type Type string

const (
	TypeLottery            Type = "Lottery"
	TypeMockV3Aggregator   Type = "MockV3Aggregator"
	TypeVRFCoordinatorMock Type = "VRFCoordinatorMock"
	TypeLinkToken          Type = "LinkToken"
)

// Types lists every contract type with an embedded ABI.
var Types = []Type{TypeLottery, TypeMockV3Aggregator, TypeVRFCoordinatorMock, TypeLinkToken}

var (
	// ErrUnknownType is returned when no ABI is embedded for a contract type.
	ErrUnknownType = errors.New("unknown contract type")
	// ErrEventNotFound is returned when a receipt does not carry the expected event.
	ErrEventNotFound = errors.New("event not found")
)

func (t Type) String() string { return string(t) }

var abis = mustParseABIs()

func mustParseABIs() map[Type]*abi.ABI {
	out := make(map[Type]*abi.ABI, len(Types))
	for _, t := range Types {
		raw, err := ABIJSON(t)
		if err != nil {
			panic(err)
		}
		parsed, err := abi.JSON(strings.NewReader(string(raw)))
		if err != nil {
			panic(fmt.Sprintf("failed to parse %s ABI: %v", t, err))
		}
		out[t] = &parsed
	}

	return out
}

// ABIJSON returns the raw embedded ABI of the contract type.
func ABIJSON(t Type) ([]byte, error) {
	raw, err := abiFS.ReadFile(path.Join("abi", string(t)+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}

	return raw, nil
}

// ABI returns the parsed embedded ABI of the contract type.
func ABI(t Type) (*abi.ABI, error) {
	parsed, ok := abis[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}

	return parsed, nil
}

func mustABI(t Type) *abi.ABI {
	parsed, err := ABI(t)
	if err != nil {
		panic(err)
	}

	return parsed
}

// Bind returns a generic bound contract for the type at address.
func Bind(t Type, address common.Address, backend bind.ContractBackend) (*bind.BoundContract, error) {
	parsed, err := ABI(t)
	if err != nil {
		return nil, err
	}

	return bind.NewBoundContract(address, *parsed, backend, backend, backend), nil
}

// base is embedded by every binding.
type base struct {
	address  common.Address
	contract *bind.BoundContract
}

func newBase(t Type, address common.Address, backend bind.ContractBackend) base {
	return base{
		address:  address,
		contract: bind.NewBoundContract(address, *mustABI(t), backend, backend, backend),
	}
}

// Address returns the address the binding is bound to.
func (b base) Address() common.Address { return b.address }

// BoundContract exposes the underlying go-ethereum binding.
func (b base) BoundContract() *bind.BoundContract { return b.contract }

// call invokes a constant method which returns a single value of type T.
func call[T any](b base, opts *bind.CallOpts, method string, args ...any) (T, error) {
	var (
		zero T
		out  []any
	)

	if err := b.contract.Call(opts, &out, method, args...); err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}

	if len(out) == 0 {
		return zero, fmt.Errorf("%s returned no data", method)
	}

	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: expected %T, got %T", method, zero, out[0])
	}

	return v, nil
}
