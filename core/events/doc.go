// Package events defines the factory events emitted on the event bus.
//
// Available event types:
//   - ImplementationDeployed: a new copy of the shared logic became current
//   - WalletCreated: a wallet was deployed and registered
//   - OperationRejected: a mutating call failed without changing state
package events
