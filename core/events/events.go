package events

import (
	"time"

	"github.com/kilianp07/walletfactory/core/model"
)

// Operation names used in events, audit records and metric labels.
const (
	OpDeployImplementation = "deploy_implementation"
	OpCreateWallet         = "create_wallet"
)

// Event is implemented by every factory event.
type Event interface {
	Operation() string
	When() time.Time
}

// ImplementationDeployed is published when DeployImplementation succeeds.
type ImplementationDeployed struct {
	Caller         model.Address
	Implementation model.Implementation
	Time           time.Time
}

// WalletCreated is published after a wallet is deployed and registered.
type WalletCreated struct {
	Caller         model.Address
	User           model.UserID
	Wallet         model.Address
	Owner          model.Address
	Salt           model.Salt
	Implementation model.Address
	// Registered is the number of wallets after this creation.
	Registered int
	Duration   time.Duration
	Time       time.Time
}

// OperationRejected is published when a mutating call fails. Reason is one
// of the Reason* constants, Err carries the detail.
type OperationRejected struct {
	Op     string
	Caller model.Address
	User   model.UserID
	Wallet model.Address
	Reason string
	Err    error
	Time   time.Time
}

func (e ImplementationDeployed) Operation() string { return OpDeployImplementation }
func (e ImplementationDeployed) When() time.Time   { return e.Time }
func (e WalletCreated) Operation() string          { return OpCreateWallet }
func (e WalletCreated) When() time.Time            { return e.Time }
func (e OperationRejected) Operation() string      { return e.Op }
func (e OperationRejected) When() time.Time        { return e.Time }
