package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
)

// ErrWalletTaken is returned when a wallet address is already mapped to a user.
var ErrWalletTaken = fmt.Errorf("%w: registry: wallet already registered", model.ErrAlreadyExists)

// Entry is one user -> wallet mapping together with the facts of its creation.
type Entry struct {
	User           model.UserID  `json:"user"`
	Wallet         model.Address `json:"wallet"`
	Owner          model.Address `json:"owner"`
	Salt           model.Salt    `json:"salt"`
	Implementation model.Address `json:"implementation"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Store persists registry entries and implementation deployments.
type Store interface {
	// Insert records both directions of e atomically.
	Insert(ctx context.Context, e Entry) error
	Lookup(ctx context.Context, user model.UserID) (Entry, error)
	ReverseLookup(ctx context.Context, wallet model.Address) (Entry, error)
	Exists(ctx context.Context, user model.UserID) (bool, error)
	// List returns every entry ordered by creation time.
	List(ctx context.Context) ([]Entry, error)
	RecordImplementation(ctx context.Context, impl model.Implementation) error
	// Implementations returns deployments ordered by version.
	Implementations(ctx context.Context) ([]model.Implementation, error)
	Close() error
}

// Backends holds the store implementations selectable from configuration.
var Backends = module.NewRegistry[Store]("registry store")

func init() {
	Backends.MustRegister("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
}
