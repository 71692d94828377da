// Package derive computes deterministic instance addresses.
//
// Addresses follow the CREATE2 rule:
//
//	address = keccak256(0xff ++ factory ++ salt ++ keccak256(initCode))[12:]
//
// The init code hashed for wallets is the EIP-1167 minimal proxy creation
// code with the shared implementation address embedded, so changing either
// the factory or the implementation moves every derived address. All
// functions are pure; inputs are fixed-width types and cannot be malformed.
package derive
