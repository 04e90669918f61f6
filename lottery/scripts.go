package lottery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/operations"
)

const (
	// EntryBufferWei is added to the entrance fee when entering, so that a price feed update
	// between the fee read and the entry does not make it fall short.
	EntryBufferWei int64 = 100_000_000
	// DefaultFundAmount is 0.1 LINK.
	DefaultFundAmount int64 = 100_000_000_000_000_000
)

// verifyRetryDelay leaves the explorer time to index a fresh deployment.
var verifyRetryDelay = 10 * time.Second

// EndResult is the outcome of ending a lottery.
type EndResult struct {
	TxHash common.Hash `json:"tx_hash"`
	Block  uint64      `json:"block"`
	// RequestID is the randomness request, when the receipt carries one.
	RequestID *common.Hash   `json:"request_id,omitempty"`
	Winner    common.Address `json:"winner"`
}

// DeployLottery deploys Lottery(priceFeed, vrfCoordinator, link, fee, keyHash) from the deployer
// account and publishes its source when the network asks for verification.
func (e *Environment) DeployLottery(ctx context.Context) (common.Address, error) {
	return e.deployLottery(e.bundle(ctx))
}

func (e *Environment) deployLottery(b operations.Bundle) (common.Address, error) {
	account, err := e.GetAccount(b.GetContext())
	if err != nil {
		return common.Address{}, err
	}

	args := make([]any, 0, 5)
	for _, name := range []ContractName{PriceFeed, VRFCoordinator, LinkToken} {
		addr, err := e.getContract(b, name)
		if err != nil {
			return common.Address{}, err
		}
		args = append(args, addr)
	}

	fee, err := e.Network.FeeWei()
	if err != nil {
		return common.Address{}, err
	}
	keyHash, err := e.Network.KeyHashBytes()
	if err != nil {
		return common.Address{}, err
	}
	args = append(args, fee, keyHash)

	// every call deploys a new lottery
	rec, err := e.deploy(b, account, contracts.TypeLottery, args, operations.WithForceExecute[DeployContractInput, Deps]())
	if err != nil {
		return common.Address{}, err
	}

	e.Logger.Infow("Deployed lottery", "address", rec.Address.Hex(), "network", e.Network.Name)

	if e.Network.Verify {
		if err := e.verify(b, contracts.TypeLottery, rec.Address, args...); err != nil {
			return rec.Address, err
		}
	}

	return rec.Address, nil
}

func (e *Environment) verify(b operations.Bundle, t contracts.Type, addr common.Address, args ...any) error {
	artifact, err := e.Artifacts.Load(t)
	if err != nil {
		return err
	}

	ctorArgs, err := artifact.ConstructorArgs(args...)
	if err != nil {
		return err
	}

	_, err = operations.ExecuteOperation(b, VerifyContractOp, Deps{Env: e},
		VerifyInput{Type: t, Address: addr, ConstructorArgs: ctorArgs},
		operations.WithRetryConfig(operations.RetryConfig[VerifyInput, Deps]{
			Enabled: true,
			Policy:  operations.RetryPolicy{MaxAttempts: 3, Delay: verifyRetryDelay},
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to verify %s at %s: %w", t, addr.Hex(), err)
	}

	return nil
}

// StartLottery starts the most recently deployed lottery.
func (e *Environment) StartLottery(ctx context.Context) error {
	return e.startLottery(e.bundle(ctx))
}

func (e *Environment) startLottery(b operations.Bundle) error {
	account, addr, err := e.lotteryAndAccount(b.GetContext())
	if err != nil {
		return err
	}

	_, err = operations.ExecuteOperation(b, StartLotteryOp, Deps{Env: e, Auth: account},
		TxInput{Contract: addr, From: account.From},
		operations.WithForceExecute[TxInput, Deps](),
	)
	if err != nil {
		return err
	}

	e.Logger.Infow("The lottery is started", "lottery", addr.Hex())

	return nil
}

// EnterLottery enters the deployer into the most recently deployed lottery, paying the entrance
// fee plus EntryBufferWei.
func (e *Environment) EnterLottery(ctx context.Context, opts ...AccountOption) error {
	return e.enterLottery(e.bundle(ctx), opts...)
}

func (e *Environment) enterLottery(b operations.Bundle, opts ...AccountOption) error {
	account, addr, err := e.lotteryAndAccount(b.GetContext(), opts...)
	if err != nil {
		return err
	}

	fee, err := contracts.NewLottery(addr, e.Chain.Client).EntranceFee(&bind.CallOpts{Context: b.GetContext()})
	if err != nil {
		return err
	}
	value := new(big.Int).Add(fee, big.NewInt(EntryBufferWei))

	_, err = operations.ExecuteOperation(b, EnterLotteryOp, Deps{Env: e, Auth: account},
		TxInput{Contract: addr, From: account.From, Value: value},
		operations.WithForceExecute[TxInput, Deps](),
	)
	if err != nil {
		return err
	}

	e.Logger.Infow("You entered the lottery", "lottery", addr.Hex(), "player", account.From.Hex(), "value", value)

	return nil
}

// EndLottery funds the most recently deployed lottery with LINK, ends it, waits for the randomness
// callback and reports the winner.
func (e *Environment) EndLottery(ctx context.Context) (EndResult, error) {
	return e.endLottery(e.bundle(ctx))
}

func (e *Environment) endLottery(b operations.Bundle) (EndResult, error) {
	ctx := b.GetContext()

	account, addr, err := e.lotteryAndAccount(ctx)
	if err != nil {
		return EndResult{}, err
	}

	link, err := e.getContract(b, LinkToken)
	if err != nil {
		return EndResult{}, err
	}

	if _, err = e.fundWithLink(b, addr, WithLinkToken(link), WithFundAccount(account)); err != nil {
		return EndResult{}, err
	}

	report, err := operations.ExecuteOperation(b, EndLotteryOp, Deps{Env: e, Auth: account},
		TxInput{Contract: addr, From: account.From},
		operations.WithForceExecute[TxInput, Deps](),
	)
	if err != nil {
		return EndResult{}, err
	}

	res := EndResult{TxHash: report.Output.TxHash, Block: report.Output.Block, RequestID: report.Output.RequestID}

	wait := e.Network.RandomnessWait()
	e.Logger.Infow("Waiting for the randomness callback", "lottery", addr.Hex(), "wait", wait)
	if err = e.wait(ctx, wait); err != nil {
		return res, fmt.Errorf("waiting for the randomness callback: %w", err)
	}

	res.Winner, err = contracts.NewLottery(addr, e.Chain.Client).RecentWinner(&bind.CallOpts{Context: ctx})
	if err != nil {
		return res, err
	}

	e.Logger.Infof("%s is the new winner!", res.Winner.Hex())

	return res, nil
}

// Run deploys, starts, enters and ends a lottery.
func (e *Environment) Run(ctx context.Context) (RunOutput, error) {
	report, err := operations.ExecuteSequence(e.bundle(ctx), RunSequence, Deps{Env: e}, RunInput{
		Network: e.Network.Name,
		ID:      uuid.New().String(),
	})

	return report.Output, err
}

type fundOptions struct {
	amount  *big.Int
	account *bind.TransactOpts
	token   *common.Address
}

// FundOption overrides a FundWithLink default.
type FundOption func(*fundOptions)

// WithAmount sets the LINK amount in juels.
func WithAmount(amount *big.Int) FundOption {
	return func(o *fundOptions) {
		o.amount = amount
	}
}

// WithFundAccount sets the account the LINK is sent from.
func WithFundAccount(account *bind.TransactOpts) FundOption {
	return func(o *fundOptions) {
		o.account = account
	}
}

// WithLinkToken sets the LINK token contract.
func WithLinkToken(token common.Address) FundOption {
	return func(o *fundOptions) {
		o.token = &token
	}
}

// FundWithLink transfers LINK to contract. By default 0.1 LINK is sent by the deployer from the
// network's LINK token.
func (e *Environment) FundWithLink(ctx context.Context, contract common.Address, opts ...FundOption) (TxOutput, error) {
	return e.fundWithLink(e.bundle(ctx), contract, opts...)
}

func (e *Environment) fundWithLink(b operations.Bundle, contract common.Address, opts ...FundOption) (TxOutput, error) {
	o := &fundOptions{amount: big.NewInt(DefaultFundAmount)}
	for _, opt := range opts {
		opt(o)
	}

	if o.account == nil {
		account, err := e.GetAccount(b.GetContext())
		if err != nil {
			return TxOutput{}, err
		}
		o.account = account
	}

	if o.token == nil {
		token, err := e.getContract(b, LinkToken)
		if err != nil {
			return TxOutput{}, err
		}
		o.token = &token
	}

	report, err := operations.ExecuteOperation(b, FundWithLinkOp, Deps{Env: e, Auth: o.account},
		FundInput{Token: *o.token, To: contract, From: o.account.From, Amount: o.amount},
		operations.WithForceExecute[FundInput, Deps](),
	)
	if err != nil {
		return TxOutput{}, err
	}

	e.Logger.Infow("Funded contract with LINK", "contract", contract.Hex(), "amount", o.amount)

	return report.Output, nil
}

// FulfillRandomness answers a randomness request of the most recently deployed lottery through the
// mock coordinator. Live coordinators answer on their own, so only local networks allow it.
func (e *Environment) FulfillRandomness(ctx context.Context, requestID common.Hash, randomness *big.Int) (TxOutput, error) {
	if !e.Network.IsLocal() {
		return TxOutput{}, fmt.Errorf("fulfill randomness on network %s: %w", e.Network.Name, ErrNotLocalNetwork)
	}

	b := e.bundle(ctx)

	account, addr, err := e.lotteryAndAccount(ctx)
	if err != nil {
		return TxOutput{}, err
	}

	coordinator, err := e.getContract(b, VRFCoordinator)
	if err != nil {
		return TxOutput{}, err
	}

	report, err := operations.ExecuteOperation(b, FulfillRandomnessOp, Deps{Env: e, Auth: account},
		FulfillInput{
			Coordinator: coordinator,
			Consumer:    addr,
			From:        account.From,
			RequestID:   requestID,
			Randomness:  randomness,
		},
		operations.WithForceExecute[FulfillInput, Deps](),
	)
	if err != nil {
		return TxOutput{}, err
	}

	e.Logger.Infow("Fulfilled randomness", "request_id", requestID.Hex(), "randomness", randomness)

	return report.Output, nil
}

// LatestLottery returns the most recently deployed lottery.
func (e *Environment) LatestLottery() (common.Address, error) {
	rec, err := e.Registry.Latest(contracts.TypeLottery)
	if err != nil {
		return common.Address{}, fmt.Errorf("no Lottery deployed on network %s: %w", e.Network.Name, err)
	}

	return rec.Address, nil
}

func (e *Environment) lotteryAndAccount(ctx context.Context, opts ...AccountOption) (*bind.TransactOpts, common.Address, error) {
	account, err := e.GetAccount(ctx, opts...)
	if err != nil {
		return nil, common.Address{}, err
	}

	addr, err := e.LatestLottery()
	if err != nil {
		return nil, common.Address{}, err
	}

	return account, addr, nil
}
