package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerGenerator produces transactors for a chain and signs raw hashes with the same account.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
	SignHash(hash []byte) ([]byte, error)
}

var (
	_ SignerGenerator = (*keySigner)(nil)
	_ SignerGenerator = (*kmsGenerator)(nil)
)

// GeneratorOption tweaks the transactors returned by a key backed SignerGenerator.
type GeneratorOption func(*keySigner)

// WithGasLimit pins the gas limit of generated transactors instead of estimating it.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(s *keySigner) {
		s.gasLimit = gasLimit
	}
}

// TransactorFromRaw signs with a hex encoded private key. A 0x prefix is accepted.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	return newKeySigner(func() (*ecdsa.PrivateKey, error) {
		hexKey := strings.TrimPrefix(strings.TrimPrefix(privKey, "0x"), "0X")

		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
		}

		return key, nil
	}, opts)
}

// TransactorFromKeystore signs with the key of an encrypted go-ethereum keystore file. The file
// is read and decrypted on first use.
func TransactorFromKeystore(path, password string, opts ...GeneratorOption) SignerGenerator {
	return newKeySigner(func() (*ecdsa.PrivateKey, error) {
		keyJSON, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read keystore file %s: %w", path, err)
		}

		key, err := keystore.DecryptKey(keyJSON, password)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt keystore file %s: %w", path, err)
		}

		return key.PrivateKey, nil
	}, opts)
}

// TransactorRandom signs with a freshly generated key which is kept for the life of the
// generator.
func TransactorRandom(opts ...GeneratorOption) SignerGenerator {
	return newKeySigner(func() (*ecdsa.PrivateKey, error) {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}

		return key, nil
	}, opts)
}

// keySigner holds a lazily loaded private key. A failed load is retried on the next call.
type keySigner struct {
	load     func() (*ecdsa.PrivateKey, error)
	gasLimit uint64

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

func newKeySigner(load func() (*ecdsa.PrivateKey, error), opts []GeneratorOption) *keySigner {
	s := &keySigner{load: load}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *keySigner) privateKey() (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		key, err := s.load()
		if err != nil {
			return nil, err
		}
		s.key = key
	}

	return s.key, nil
}

func (s *keySigner) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.GasLimit = s.gasLimit

	return opts, nil
}

func (s *keySigner) SignHash(hash []byte) ([]byte, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return sig, nil
}

// TransactorFromKMS signs with an AWS KMS key. An empty profile selects the default credential
// chain.
func TransactorFromKMS(keyID, keyRegion, awsProfileName string) (SignerGenerator, error) {
	signer, err := NewKMSSigner(keyID, keyRegion, awsProfileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS signer: %w", err)
	}

	return TransactorFromKMSSigner(signer), nil
}

// TransactorFromKMSSigner wraps an existing KMSSigner.
func TransactorFromKMSSigner(signer *KMSSigner) SignerGenerator {
	return &kmsGenerator{signer: signer}
}

type kmsGenerator struct {
	signer *KMSSigner
}

func (g *kmsGenerator) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := g.signer.GetTransactOpts(context.Background(), chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transact opts from KMS signer: %w", err)
	}

	return opts, nil
}

func (g *kmsGenerator) SignHash(hash []byte) ([]byte, error) {
	return g.signer.SignHash(hash)
}
