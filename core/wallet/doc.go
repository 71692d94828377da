// Package wallet implements the deterministic wallet factory.
//
// A Factory derives wallet addresses from its own address, the current
// shared implementation and a caller supplied salt, deploys at most one
// delegating wallet per user and records the user <-> wallet mapping.
//
// Mutating operations (CreateWallet, DeployImplementation) are restricted to
// the controller and run one at a time under the factory write lock; each
// either completes fully or leaves no trace. Reads (PredictWalletAddress,
// GetWalletAddress, GetWalletOwner, WalletExists) take the read lock and
// never observe a half-finished creation.
//
//	f, err := wallet.New(ctx, wallet.Options{
//	    Address: factoryAddr,
//	    Gate:    g,
//	    Logic:   logic.OwnedWallet{},
//	    Store:   registry.NewMemoryStore(),
//	})
//	predicted := f.PredictWalletAddress(user, salt)
//	addr, err := f.CreateWallet(ctx, controller, user, owner, salt) // addr == predicted
package wallet
