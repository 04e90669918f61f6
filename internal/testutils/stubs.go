package testutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/contracts"
)

// StubAnswer is returned by every constant call on a stub contract.
const StubAnswer = 42

// StubRequestID is the request id emitted by the stub Lottery on endLottery.
var StubRequestID = [32]byte{31: 7}

// program is a tiny EVM assembler with forward jump labels.
type program struct {
	code   []byte
	labels map[string]int
	refs   map[int]string
}

func newProgram() *program {
	return &program{labels: map[string]int{}, refs: map[int]string{}}
}

func (p *program) op(ops ...vm.OpCode) *program {
	for _, o := range ops {
		p.code = append(p.code, byte(o))
	}

	return p
}

// push emits the smallest PUSHn for data, which must be 1 to 32 bytes.
func (p *program) push(data ...byte) *program {
	p.code = append(p.code, byte(vm.PUSH1)+byte(len(data)-1))
	p.code = append(p.code, data...)

	return p
}

func (p *program) pushLabel(name string) *program {
	p.code = append(p.code, byte(vm.PUSH2))
	p.refs[len(p.code)] = name
	p.code = append(p.code, 0, 0)

	return p
}

func (p *program) label(name string) *program {
	p.labels[name] = len(p.code)

	return p.op(vm.JUMPDEST)
}

func (p *program) bytes() []byte {
	for off, name := range p.refs {
		dest := p.labels[name]
		p.code[off] = byte(dest >> 8)
		p.code[off+1] = byte(dest)
	}

	return p.code
}

// returnWord returns v as a single 32 byte word.
func (p *program) returnWord(v byte) *program {
	return p.push(v).push(0).op(vm.MSTORE).push(32).push(0).op(vm.RETURN)
}

// InitCode wraps runtime code in a constructor which returns it. Constructor arguments appended
// to the init code are ignored.
func InitCode(runtime []byte) []byte {
	n := len(runtime)
	header := []byte{
		byte(vm.PUSH2), byte(n >> 8), byte(n),
		byte(vm.PUSH2), 0, 15,
		byte(vm.PUSH1), 0,
		byte(vm.CODECOPY),
		byte(vm.PUSH2), byte(n >> 8), byte(n),
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}

	return append(header, runtime...)
}

// ConstantRuntime answers every call, with or without arguments, with [StubAnswer].
func ConstantRuntime() []byte {
	return newProgram().returnWord(StubAnswer).bytes()
}

// RevertRuntime reverts every call.
func RevertRuntime() []byte {
	return newProgram().push(0).push(0).op(vm.REVERT).bytes()
}

// LotteryRuntime behaves enough like a Lottery compiled with solc 0.6 for the scripts: calls
// without arguments return [StubAnswer], players(i) hits the INVALID opcode as on an empty lottery
// and endLottery emits RequestedRandomness([StubRequestID]).
func LotteryRuntime() []byte {
	return LotteryRuntimeWith(0, vm.INVALID)
}

// LotteryRuntimeWith is LotteryRuntime with n players. players(i) returns the address [StubAnswer]
// for i < n and otherwise aborts with outOfBounds, which is INVALID (solc < 0.8) or REVERT.
func LotteryRuntimeWith(n byte, outOfBounds vm.OpCode) []byte {
	lotteryABI, err := contracts.ABI(contracts.TypeLottery)
	if err != nil {
		panic(err)
	}
	endLottery := lotteryABI.Methods["endLottery"].ID
	topic := lotteryABI.Events["RequestedRandomness"].ID

	p := newProgram().
		push(4).op(vm.CALLDATASIZE, vm.GT).pushLabel("args").op(vm.JUMPI).
		push(0).op(vm.CALLDATALOAD).push(0xe0).op(vm.SHR).
		push(endLottery...).op(vm.EQ).pushLabel("end").op(vm.JUMPI).
		returnWord(StubAnswer).
		label("end").
		push(StubRequestID[:]...).push(0).op(vm.MSTORE).
		push(topic.Bytes()...).push(32).push(0).op(vm.LOG1).
		op(vm.STOP).
		label("args").
		push(n).push(4).op(vm.CALLDATALOAD, vm.LT).pushLabel("player").op(vm.JUMPI)
	if outOfBounds == vm.REVERT {
		p.push(0).push(0)
	}

	return p.op(outOfBounds).
		label("player").
		returnWord(StubAnswer).
		bytes()
}

// DeployStub deploys runtime from the chain's deployer and waits for it to be confirmed.
func DeployStub(t *testing.T, c evm.Chain, runtime []byte) common.Address {
	t.Helper()

	addr, tx, _, err := bind.DeployContract(c.DeployerKey, abi.ABI{}, InitCode(runtime), c.Client)
	require.NoError(t, err)

	_, err = c.Confirm(tx)
	require.NoError(t, err)

	return addr
}
