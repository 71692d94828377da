// Package registry records which wallet belongs to which user.
//
// The Store keeps both directions of the mapping and the implementations
// the factory has deployed. Entries are written once and never updated or
// deleted: a second insert for the same user fails with
// model.ErrAlreadyExists, and a wallet address can never map back to two
// users.
package registry
