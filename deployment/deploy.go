package deployment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// DeployRequest describes a contract deployment.
type DeployRequest struct {
	Artifact *artifacts.Artifact
	// Args are the constructor arguments.
	Args []any
	// Optional: Version recorded with the deployment. Defaults to DefaultVersion.
	Version *semver.Version
	// Optional: From signs the deployment. Defaults to the chain deployer.
	From *bind.TransactOpts
}

// Deploy sends the contract creation, waits for it to be confirmed and records it in registry.
func Deploy(
	ctx context.Context, lggr logger.Logger, chain evm.Chain, registry Registry, req DeployRequest,
) (Record, error) {
	if req.Artifact == nil {
		return Record{}, errors.New("artifact is required")
	}

	from := req.From
	if from == nil {
		from = chain.DeployerKey
	}
	if from == nil {
		return Record{}, fmt.Errorf("no deployer account for chain %s", chain)
	}

	version := DefaultVersion
	if req.Version != nil {
		version = *req.Version
	}

	opts := *from
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(&opts, *req.Artifact.ABI, req.Artifact.Bytecode, chain.Client, req.Args...)
	if err != nil {
		return Record{}, fmt.Errorf("failed to deploy %s: %w", req.Artifact.Type, err)
	}

	lggr.Infow("Deploying contract",
		"type", req.Artifact.Type,
		"address", addr.Hex(),
		"tx", tx.Hash().Hex(),
		"chain", chain.String(),
	)

	block, err := chain.Confirm(tx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to confirm %s deployment: %w", req.Artifact.Type, err)
	}

	deployed, err := IsDeployed(ctx, chain.Client, addr)
	if err != nil {
		return Record{}, err
	}
	if !deployed {
		return Record{}, fmt.Errorf("no code at %s after deploying %s", addr.Hex(), req.Artifact.Type)
	}

	rec := Record{
		TypeAndVersion: NewTypeAndVersion(req.Artifact.Type, version),
		ChainSelector:  chain.Selector,
		Address:        addr,
		TxHash:         tx.Hash(),
		BlockNumber:    block,
		Timestamp:      time.Now().UTC(),
	}

	if err := registry.Save(rec); err != nil {
		return rec, fmt.Errorf("failed to record %s deployment: %w", req.Artifact.Type, err)
	}

	lggr.Infow("Deployed contract", "type", req.Artifact.Type, "address", addr.Hex(), "block", block)

	return rec, nil
}

// Receipt fetches the receipt of a confirmed transaction.
func Receipt(ctx context.Context, client bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt of tx %s: %w", tx.Hash().Hex(), err)
	}

	return receipt, nil
}

// IsDeployed reports whether code exists at address.
func IsDeployed(ctx context.Context, client bind.ContractBackend, address common.Address) (bool, error) {
	code, err := client.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}

	return len(code) > 0, nil
}
