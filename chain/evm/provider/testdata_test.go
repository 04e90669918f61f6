package provider

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/chain/internal/kms"
)

var (
	testAddr1 = common.HexToAddress("0xc1d6fEcd5D09Ad67cF5E0FC9633D89759DD84271")

	testChainID    = chainsel.TEST_1000.EvmChainID
	testChainIDBig = new(big.Int).SetUint64(testChainID)

	// sepoliaSelector is "ethereum-testnet-sepolia".
	sepoliaSelector uint64 = 16015286601757825753
	// simSelector is "geth-testnet" whose chain id matches the simulated backend.
	simSelector uint64 = 3379446385462418246

	// dev account 0 of Anvil and the simulated chain.
	devDeployerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	devUser1Addr    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// Contract creation code for a contract whose runtime always reverts with empty data.
var revertingInitCode = hexutil.MustDecode("0x6005600c60003960056000f360006000fd")

var (
	testKMSKeyID     = "1234567-1234-1234-1234-123456789012"
	testKMSKeyRegion = "ap-southeast-1"
)

// fakeKMSClient is a kms.Client backed by testify mock expectations.
type fakeKMSClient struct {
	mock.Mock
}

var _ kms.Client = (*fakeKMSClient)(nil)

func (f *fakeKMSClient) GetPublicKey(in *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error) {
	args := f.Called(in)
	out, _ := args.Get(0).(*kmslib.GetPublicKeyOutput)

	return out, args.Error(1)
}

func (f *fakeKMSClient) Sign(in *kmslib.SignInput) (*kmslib.SignOutput, error) {
	args := f.Called(in)
	if fn, ok := args.Get(0).(func(*kmslib.SignInput) *kmslib.SignOutput); ok {
		return fn(in), args.Error(1)
	}
	out, _ := args.Get(0).(*kmslib.SignOutput)

	return out, args.Error(1)
}

// newKMSBackedByKey returns a fake KMS client which serves the public key of priv and signs
// digests with it, encoding both the way AWS KMS does.
func newKMSBackedByKey(t *testing.T, priv *ecdsa.PrivateKey) *fakeKMSClient {
	t.Helper()

	c := &fakeKMSClient{}
	c.On("GetPublicKey", &kmslib.GetPublicKeyInput{KeyId: aws.String(testKMSKeyID)}).
		Return(&kmslib.GetPublicKeyOutput{PublicKey: encodeSPKI(t, &priv.PublicKey)}, nil)
	c.On("Sign", mock.Anything).
		Return(func(in *kmslib.SignInput) *kmslib.SignOutput {
			return &kmslib.SignOutput{Signature: derSignature(t, priv, in.Message)}
		}, nil)

	return c
}

// encodeSPKI encodes pub as the ASN.1 SubjectPublicKeyInfo returned by KMS GetPublicKey.
func encodeSPKI(t *testing.T, pub *ecdsa.PublicKey) []byte {
	t.Helper()

	// id-ecPublicKey with the secp256k1 curve parameter.
	curveOID, err := asn1.Marshal(asn1.ObjectIdentifier{1, 3, 132, 0, 10})
	require.NoError(t, err)

	pubBytes := crypto.FromECDSAPub(pub)
	der, err := asn1.Marshal(kms.SPKI{
		AlgorithmIdentifier: pkix.AlgorithmIdentifier{
			Algorithm:  asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1},
			Parameters: asn1.RawValue{FullBytes: curveOID},
		},
		SubjectPublicKey: asn1.BitString{Bytes: pubBytes, BitLength: len(pubBytes) * 8},
	})
	require.NoError(t, err)

	return der
}

// derSignature signs digest with priv and DER encodes r and s like KMS Sign.
func derSignature(t *testing.T, priv *ecdsa.PrivateKey, digest []byte) []byte {
	t.Helper()

	sig, err := crypto.Sign(digest, priv)
	require.NoError(t, err)

	integer := func(b []byte) asn1.RawValue {
		v := new(big.Int).SetBytes(b)
		enc, merr := asn1.Marshal(v)
		require.NoError(t, merr)

		var raw asn1.RawValue
		_, merr = asn1.Unmarshal(enc, &raw)
		require.NoError(t, merr)

		return raw
	}

	der, err := asn1.Marshal(kms.ECDSASig{R: integer(sig[:32]), S: integer(sig[32:64])})
	require.NoError(t, err)

	return der
}

// newFakeRPCServer returns a fake RPC server which always answers with a valid eth_blockNumber
// response. The server is closed when the test ends.
func newFakeRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// sendValue signs and sends a plain value transfer from key to to.
func sendValue(
	t *testing.T, client *SimClient, key *ecdsa.PrivateKey, to common.Address, value *big.Int,
) *types.Transaction {
	t.Helper()

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := client.PendingNonceAt(context.Background(), from)
	require.NoError(t, err)

	gasPrice, err := client.SuggestGasPrice(context.Background())
	require.NoError(t, err)

	tx, err := types.SignTx(
		types.NewTransaction(nonce, to, value, 21000, gasPrice, nil),
		types.LatestSignerForChainID(SimChainID), key,
	)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(context.Background(), tx))

	return tx
}

// sendRaw signs and sends a transaction with a fixed gas limit, skipping estimation.
func sendRaw(
	t *testing.T, client *SimClient, key *ecdsa.PrivateKey, to *common.Address, data []byte,
) *types.Transaction {
	t.Helper()

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := client.PendingNonceAt(context.Background(), from)
	require.NoError(t, err)

	gasPrice, err := client.SuggestGasPrice(context.Background())
	require.NoError(t, err)

	tx, err := types.SignTx(
		types.NewTx(&types.LegacyTx{Nonce: nonce, To: to, Gas: 200_000, GasPrice: gasPrice, Data: data}),
		types.LatestSignerForChainID(SimChainID), key,
	)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(context.Background(), tx))

	return tx
}
