package lottery

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/deployment"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

// Deps are handed to every lottery operation.
type Deps struct {
	Env *Environment
	// Auth signs the operation's transaction.
	Auth *bind.TransactOpts
}

// DeployContractInput deploys a contract type from its artifact.
type DeployContractInput struct {
	Type contracts.Type `json:"type"`
	Args []any          `json:"args,omitempty"`
	From common.Address `json:"from"`
}

// TxInput is a call to a contract method without arguments.
type TxInput struct {
	Contract common.Address `json:"contract"`
	From     common.Address `json:"from"`
	// Value is sent along with the call, in wei.
	Value *big.Int `json:"value,omitempty"`
}

// TxOutput identifies a confirmed transaction.
type TxOutput struct {
	TxHash common.Hash `json:"tx_hash"`
	Block  uint64      `json:"block"`
}

// EndLotteryOutput is the endLottery transaction and the randomness request it emitted.
type EndLotteryOutput struct {
	TxOutput
	// RequestID is nil when the receipt has no RequestedRandomness event.
	RequestID *common.Hash `json:"request_id,omitempty"`
}

// FundInput transfers LINK.
type FundInput struct {
	Token  common.Address `json:"token"`
	To     common.Address `json:"to"`
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
}

// FulfillInput delivers randomness through the mock coordinator.
type FulfillInput struct {
	Coordinator common.Address `json:"coordinator"`
	Consumer    common.Address `json:"consumer"`
	From        common.Address `json:"from"`
	RequestID   common.Hash    `json:"request_id"`
	Randomness  *big.Int       `json:"randomness"`
}

// VerifyInput publishes the source of a deployed contract.
type VerifyInput struct {
	Type            contracts.Type `json:"type"`
	Address         common.Address `json:"address"`
	ConstructorArgs hexutil.Bytes  `json:"constructor_args,omitempty"`
}

// RunInput starts a full lottery run. ID keeps separate runs apart in the reports.
type RunInput struct {
	Network string `json:"network"`
	ID      string `json:"id"`
}

// RunOutput is the outcome of a full lottery run.
type RunOutput struct {
	Lottery common.Address `json:"lottery"`
	End     EndResult      `json:"end"`
}

var version1 = semver.MustParse("1.0.0")

var (
	DeployContract = operations.NewOperation(
		"deploy-contract", version1, "Deploy a contract from its compiled artifact",
		func(b operations.Bundle, deps Deps, in DeployContractInput) (deployment.Record, error) {
			artifact, err := deps.Env.Artifacts.Load(in.Type)
			if err != nil {
				return deployment.Record{}, operations.NewUnrecoverableError(err)
			}

			return deployment.Deploy(b.GetContext(), b.Logger, deps.Env.Chain, deps.Env.Registry, deployment.DeployRequest{
				Artifact: artifact,
				Args:     in.Args,
				From:     deps.Auth,
			})
		},
	)

	StartLotteryOp = operations.NewOperation(
		"start-lottery", version1, "Open the lottery for entries",
		func(b operations.Bundle, deps Deps, in TxInput) (TxOutput, error) {
			l := contracts.NewLottery(in.Contract, deps.Env.Chain.Client)
			out, _, err := transact(b, deps, in.Value, l.StartLottery)

			return out, err
		},
	)

	EnterLotteryOp = operations.NewOperation(
		"enter-lottery", version1, "Enter the lottery, paying the entrance fee",
		func(b operations.Bundle, deps Deps, in TxInput) (TxOutput, error) {
			l := contracts.NewLottery(in.Contract, deps.Env.Chain.Client)
			out, _, err := transact(b, deps, in.Value, l.Enter)

			return out, err
		},
	)

	EndLotteryOp = operations.NewOperation(
		"end-lottery", version1, "Close the lottery and request randomness",
		func(b operations.Bundle, deps Deps, in TxInput) (EndLotteryOutput, error) {
			l := contracts.NewLottery(in.Contract, deps.Env.Chain.Client)
			out, tx, err := transact(b, deps, in.Value, l.EndLottery)
			if err != nil {
				return EndLotteryOutput{}, err
			}

			receipt, err := deployment.Receipt(b.GetContext(), deps.Env.Chain.Client, tx)
			if err != nil {
				return EndLotteryOutput{TxOutput: out}, err
			}

			id, err := contracts.ParseRequestedRandomness(receipt)
			switch {
			case errors.Is(err, contracts.ErrEventNotFound):
				b.Logger.Warnw("No randomness request in endLottery receipt", "tx", out.TxHash.Hex())
				return EndLotteryOutput{TxOutput: out}, nil
			case err != nil:
				return EndLotteryOutput{TxOutput: out}, err
			}

			requestID := common.Hash(id)
			b.Logger.Infow("Randomness requested", "request_id", requestID.Hex())

			return EndLotteryOutput{TxOutput: out, RequestID: &requestID}, nil
		},
	)

	FundWithLinkOp = operations.NewOperation(
		"fund-with-link", version1, "Transfer LINK to a contract",
		func(b operations.Bundle, deps Deps, in FundInput) (TxOutput, error) {
			token := contracts.NewLinkToken(in.Token, deps.Env.Chain.Client)
			out, _, err := transact(b, deps, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
				return token.Transfer(opts, in.To, in.Amount)
			})

			return out, err
		},
	)

	FulfillRandomnessOp = operations.NewOperation(
		"fulfill-randomness", version1, "Deliver randomness through the mock VRF coordinator",
		func(b operations.Bundle, deps Deps, in FulfillInput) (TxOutput, error) {
			coordinator := contracts.NewVRFCoordinatorMock(in.Coordinator, deps.Env.Chain.Client)
			out, _, err := transact(b, deps, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
				return coordinator.CallBackWithRandomness(opts, in.RequestID, in.Randomness, in.Consumer)
			})

			return out, err
		},
	)

	VerifyContractOp = operations.NewOperation(
		"verify-contract", version1, "Publish a contract source to the block explorer",
		func(b operations.Bundle, deps Deps, in VerifyInput) (verification.Result, error) {
			artifact, err := deps.Env.Artifacts.Load(in.Type)
			if err != nil {
				return verification.Result{}, operations.NewUnrecoverableError(err)
			}

			explorer, err := deps.Env.explorer()
			if err != nil {
				return verification.Result{}, operations.NewUnrecoverableError(err)
			}

			req, err := verification.RequestFromArtifact(artifact, in.Address, in.ConstructorArgs)
			if err != nil {
				return verification.Result{}, operations.NewUnrecoverableError(err)
			}

			res, err := explorer.Verify(b.GetContext(), req)
			if errors.Is(err, verification.ErrVerificationFailed) {
				return res, operations.NewUnrecoverableError(err)
			}

			return res, err
		},
	)

	RunSequence = operations.NewSequence(
		"lottery-run", version1, "Deploy, start, enter and end a lottery",
		func(b operations.Bundle, deps Deps, in RunInput) (RunOutput, error) {
			e := deps.Env

			addr, err := e.deployLottery(b)
			if err != nil {
				return RunOutput{}, err
			}
			if err = e.startLottery(b); err != nil {
				return RunOutput{Lottery: addr}, err
			}
			if err = e.enterLottery(b); err != nil {
				return RunOutput{Lottery: addr}, err
			}

			end, err := e.endLottery(b)

			return RunOutput{Lottery: addr, End: end}, err
		},
	)
)

// Operations returns a registry of every lottery operation.
func Operations() *operations.OperationRegistry {
	r := operations.NewOperationRegistry()
	operations.RegisterOperation(r, DeployContract)
	operations.RegisterOperation(r, StartLotteryOp, EnterLotteryOp)
	operations.RegisterOperation(r, EndLotteryOp)
	operations.RegisterOperation(r, FundWithLinkOp)
	operations.RegisterOperation(r, FulfillRandomnessOp)
	operations.RegisterOperation(r, VerifyContractOp)

	return r
}

// transact sends a transaction signed by deps.Auth and waits for its confirmations.
func transact(
	b operations.Bundle, deps Deps, value *big.Int, send func(*bind.TransactOpts) (*types.Transaction, error),
) (TxOutput, *types.Transaction, error) {
	if deps.Auth == nil {
		return TxOutput{}, nil, operations.NewUnrecoverableError(errors.New("no account to sign with"))
	}

	opts := *deps.Auth
	opts.Context = b.GetContext()
	opts.Value = value

	tx, err := send(&opts)
	if err != nil {
		return TxOutput{}, nil, err
	}

	b.Logger.Infow("Sent transaction", "tx", tx.Hash().Hex(), "from", opts.From.Hex())

	block, err := deps.Env.Chain.Confirm(tx)
	if err != nil {
		return TxOutput{TxHash: tx.Hash(), Block: block}, tx, fmt.Errorf("failed to confirm tx %s: %w", tx.Hash().Hex(), err)
	}

	return TxOutput{TxHash: tx.Hash(), Block: block}, tx, nil
}
