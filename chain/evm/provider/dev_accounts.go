package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// devAccountKeys are the Anvil/Hardhat development keys. Anvil and the simulated chain prefund
// them. Other local nodes such as Ganache derive their own accounts, so RPC networks fund these
// with DevAccountBalance at Initialize.
var devAccountKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6", // 0x90F79bf6EB2c4f870365E785982E1f101E93b906
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a", // 0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65
}

// DevAccountBalance is the balance in wei the development accounts get on local RPC networks.
var DevAccountBalance = new(big.Int).Mul(big.NewInt(1_000), big.NewInt(params.Ether))

// MaxDevUsers is the number of prefunded development accounts besides the deployer.
var MaxDevUsers = uint(len(devAccountKeys) - 1)

// devDeployerKey returns the private key of development account 0.
func devDeployerKey() (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(devAccountKeys[0])
}

// devUserTransactors returns transactors for development accounts 1..n. A zero n selects every
// available account.
func devUserTransactors(chainID *big.Int, n uint) ([]*bind.TransactOpts, error) {
	if n == 0 || n > MaxDevUsers {
		n = MaxDevUsers
	}

	transactors := make([]*bind.TransactOpts, 0, n)
	for i := uint(1); i <= n; i++ {
		privateKey, err := crypto.HexToECDSA(devAccountKeys[i])
		if err != nil {
			return nil, fmt.Errorf("failed to parse dev account key %d: %w", i, err)
		}

		transactor, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
		if err != nil {
			return nil, fmt.Errorf("failed to create transactor %d: %w", i, err)
		}

		transactors = append(transactors, transactor)
	}

	return transactors, nil
}

// DevAccountTransactorGen returns a generator for development account i. Account 0 is the
// deployer.
func DevAccountTransactorGen(i int) (SignerGenerator, error) {
	if i < 0 || i >= len(devAccountKeys) {
		return nil, fmt.Errorf("no development account %d: %d accounts available", i, len(devAccountKeys))
	}

	return TransactorFromRaw(devAccountKeys[i]), nil
}

// DevUserTransactorGens returns generators for every development account besides the deployer.
func DevUserTransactorGens() []SignerGenerator {
	gens := make([]SignerGenerator, 0, MaxDevUsers)
	for _, key := range devAccountKeys[1:] {
		gens = append(gens, TransactorFromRaw(key))
	}

	return gens
}
