// Package kms talks to AWS KMS for live-network signing with a key that never leaves KMS.
package kms

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
)

// Client is the part of the KMS API used for signing.
type Client interface {
	GetPublicKey(input *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error)
	Sign(input *kmslib.SignInput) (*kmslib.SignOutput, error)
}

// ClientConfig locates the key. An empty AWSProfile uses the default credential chain.
type ClientConfig struct {
	KeyID      string
	KeyRegion  string
	AWSProfile string
}

func (c ClientConfig) validate() error {
	var errs []error
	if c.KeyID == "" {
		errs = append(errs, errors.New("KMS key ID is required"))
	}
	if c.KeyRegion == "" {
		errs = append(errs, errors.New("KMS key region is required"))
	}

	return errors.Join(errs...)
}

// NewClient returns a KMS client for the region of the key.
func NewClient(cfg ClientConfig) (Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid KMS config: %w", err)
	}

	opts := session.Options{Config: aws.Config{Region: aws.String(cfg.KeyRegion)}}
	if cfg.AWSProfile != "" {
		opts.Profile, opts.SharedConfigState = cfg.AWSProfile, session.SharedConfigEnable
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return kmslib.New(sess), nil
}

// SPKI is the DER SubjectPublicKeyInfo returned by GetPublicKey.
type SPKI struct {
	AlgorithmIdentifier pkix.AlgorithmIdentifier
	SubjectPublicKey    asn1.BitString
}

// ECDSASig is the DER signature returned by Sign.
type ECDSASig struct {
	R asn1.RawValue
	S asn1.RawValue
}

// ParsePublicKey returns the raw public key bytes of a DER SubjectPublicKeyInfo.
func ParsePublicKey(der []byte) ([]byte, error) {
	var spki SPKI
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, fmt.Errorf("cannot parse asn1 public key: %w", err)
	}

	return spki.SubjectPublicKey.Bytes, nil
}

// ParseSignature returns r and s of a DER ECDSA signature.
func ParseSignature(der []byte) (r, s *big.Int, err error) {
	var sig ECDSASig
	if _, err = asn1.Unmarshal(der, &sig); err != nil {
		return nil, nil, fmt.Errorf("cannot parse asn1 signature: %w", err)
	}

	return new(big.Int).SetBytes(sig.R.Bytes), new(big.Int).SetBytes(sig.S.Bytes), nil
}
