// Package provider contains the EVM chain providers the lottery scripts run on:
//
//   - SimChainProvider: an in-memory go-ethereum simulated chain ("development").
//   - CTFAnvilChainProvider: an Anvil node in a Docker container, optionally forking a remote
//     chain ("anvil-local", "mainnet-fork").
//   - RPCChainProvider: nodes reached over RPC, live or local ("ganache-local"). Local nodes get
//     the development accounts funded.
//
// Signers for the deployer account are produced by a SignerGenerator: a raw private key, an
// encrypted keystore file, a random key or an AWS KMS key.
package provider
