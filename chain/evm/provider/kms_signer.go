package provider

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/lottery-deployments/chain/internal/kms"
)

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// KMSSigner signs transactions and digests with an AWS KMS secp256k1 key
// (ECC_SECG_P256K1, SIGN_VERIFY).
type KMSSigner struct {
	client   kms.Client
	kmsKeyID string

	mu     sync.Mutex
	pubKey *ecdsa.PublicKey
}

// NewKMSSigner dials KMS in keyRegion. An empty awsProfile uses the default credential chain.
func NewKMSSigner(keyID, keyRegion, awsProfile string) (*KMSSigner, error) {
	client, err := kms.NewClient(kms.ClientConfig{KeyID: keyID, KeyRegion: keyRegion, AWSProfile: awsProfile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KMS Client: %w", err)
	}

	return NewKMSSignerWithClient(keyID, client), nil
}

func NewKMSSignerWithClient(keyID string, client kms.Client) *KMSSigner {
	return &KMSSigner{client: client, kmsKeyID: keyID}
}

// GetECDSAPublicKey fetches the public key of the KMS key. It is fetched once per signer.
func (s *KMSSigner) GetECDSAPublicKey() (*ecdsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubKey != nil {
		return s.pubKey, nil
	}

	out, err := s.client.GetPublicKey(&kmslib.GetPublicKeyInput{KeyId: aws.String(s.kmsKeyID)})
	if err != nil {
		return nil, fmt.Errorf("cannot get public key from KMS for KeyId=%s: %w", s.kmsKeyID, err)
	}

	raw, err := kms.ParsePublicKey(out.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("KeyId=%s: %w", s.kmsKeyID, err)
	}

	if s.pubKey, err = crypto.UnmarshalPubkey(raw); err != nil {
		return nil, fmt.Errorf("cannot unmarshal public key bytes: %w", err)
	}

	return s.pubKey, nil
}

// GetAddress returns the address of the KMS key.
func (s *KMSSigner) GetAddress() (common.Address, error) {
	pub, err := s.GetECDSAPublicKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// GetTransactOpts returns transact options sending from the KMS key address. Every transaction
// is signed by a KMS call.
func (s *KMSSigner) GetTransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chainID is required")
	}

	pub, err := s.GetECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	from := crypto.PubkeyToAddress(*pub)
	txSigner := types.LatestSignerForChainID(chainID)

	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != from {
				return nil, bind.ErrNotAuthorized
			}

			sig, serr := s.signDigest(pub, txSigner.Hash(tx).Bytes())
			if serr != nil {
				return nil, fmt.Errorf("failed to sign transaction: %w", serr)
			}

			return tx.WithSignature(txSigner, sig)
		},
	}, nil
}

// SignHash signs a 32 byte digest. The signature is [R || S || V] with V in {0, 1}.
func (s *KMSSigner) SignHash(hash []byte) ([]byte, error) {
	pub, err := s.GetECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	return s.signDigest(pub, hash)
}

func (s *KMSSigner) signDigest(pub *ecdsa.PublicKey, digest []byte) ([]byte, error) {
	out, err := s.client.Sign(&kmslib.SignInput{
		KeyId:            aws.String(s.kmsKeyID),
		Message:          digest,
		MessageType:      aws.String(kmslib.MessageTypeDigest),
		SigningAlgorithm: aws.String(kmslib.SigningAlgorithmSpecEcdsaSha256),
	})
	if err != nil {
		return nil, fmt.Errorf("call to kms.Sign() failed: %w", err)
	}

	r, sv, err := kms.ParseSignature(out.Signature)
	if err != nil {
		return nil, err
	}

	sig, err := evmSignature(crypto.FromECDSAPub(pub), digest, r, sv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert KMS signature to Ethereum signature: %w", err)
	}

	return sig, nil
}

// evmSignature turns r and s into a 65 byte EVM signature. s is moved to the lower half of the
// curve order (EIP-2) and the recovery id is the one that recovers pub.
//
// See https://aws.amazon.com/blogs/database/part2-use-aws-kms-to-securely-manage-ethereum-accounts/
func evmSignature(pub, digest []byte, r, s *big.Int) ([]byte, error) {
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	sig := make([]byte, crypto.SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])

	for _, v := range []byte{0, 1} {
		sig[64] = v
		recovered, err := crypto.Ecrecover(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("failed to recover signature with v=%d: %w", v, err)
		}
		if bytes.Equal(recovered, pub) {
			return sig, nil
		}
	}

	return nil, errors.New("cannot reconstruct public key from sig")
}
