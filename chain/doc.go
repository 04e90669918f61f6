// Package chain defines the blockchain abstraction the lottery scripts run against.
//
// A [Provider] knows how to bring a chain up (connect to RPCs, start a simulated backend or an
// Anvil container) and hands back a [BlockChain]. The only family supported today is EVM, see
// the evm subpackage for the concrete chain type and evm/provider for the providers.
package chain
