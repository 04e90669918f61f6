package lottery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/smartcontractkit/lottery-deployments/chain/evm/provider"
)

type accountOptions struct {
	index *int
	id    string
}

// AccountOption selects the account GetAccount returns.
type AccountOption func(*accountOptions)

// WithIndex selects a development account. Index 0 is the deployer.
func WithIndex(i int) AccountOption {
	return func(o *accountOptions) {
		o.index = &i
	}
}

// WithID selects the encrypted keystore account <keystore dir>/<id>.json.
func WithID(id string) AccountOption {
	return func(o *accountOptions) {
		o.id = id
	}
}

// GetAccount resolves the account that signs a script's transactions, in order:
//  1. WithIndex: the chain account at that index
//  2. WithID: the keystore account decrypted with the configured password
//  3. otherwise the chain deployer, which is development account 0 on local and fork networks
//     and the configured private key or KMS key on live networks
//
// The returned options are a copy bound to ctx.
func (e *Environment) GetAccount(ctx context.Context, opts ...AccountOption) (*bind.TransactOpts, error) {
	o := &accountOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		account *bind.TransactOpts
		err     error
	)

	switch {
	case o.index != nil:
		account, err = e.accountAt(*o.index)
	case o.id != "":
		account, err = e.keystoreAccount(o.id)
	default:
		account = e.Chain.DeployerKey
		if account == nil {
			err = fmt.Errorf("no deployer account on network %s", e.Network.Name)
		}
	}
	if err != nil {
		return nil, err
	}

	out := *account
	out.Context = ctx

	return &out, nil
}

func (e *Environment) accountAt(i int) (*bind.TransactOpts, error) {
	accounts := e.Chain.Accounts()
	if i < 0 || i >= len(accounts) {
		return nil, fmt.Errorf("account index %d out of range: network %s has %d accounts", i, e.Network.Name, len(accounts))
	}

	return accounts[i], nil
}

func (e *Environment) keystoreAccount(id string) (*bind.TransactOpts, error) {
	if e.secrets == nil || e.secrets.Onchain.Keystore.Dir == "" {
		return nil, errors.New("keystore directory is not configured: set ONCHAIN_KEYSTORE_DIR")
	}
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid account id %q", id)
	}

	chainID, err := e.Chain.ChainID()
	if err != nil {
		return nil, err
	}

	ks := e.secrets.Onchain.Keystore
	gen := provider.TransactorFromKeystore(filepath.Join(ks.Dir, id+".json"), ks.Password)

	account, err := gen.Generate(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}

	return account, nil
}
