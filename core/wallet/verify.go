package wallet

import (
	"context"
	"fmt"

	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
)

// Mismatch describes a registry entry that fails verification.
type Mismatch struct {
	Entry    registry.Entry `json:"entry"`
	Expected model.Address  `json:"expected"`
	Reason   string         `json:"reason"`
}

func (m Mismatch) Error() string {
	return fmt.Sprintf("%s: user %s wallet %s: %s", model.ErrInconsistent, m.Entry.User, m.Entry.Wallet, m.Reason)
}

// Verify recomputes every wallet address in store from factory, the
// recorded implementation and salt. It does not need a running Factory.
func Verify(ctx context.Context, store registry.Store, factory model.Address) ([]Mismatch, error) {
	impls, err := store.Implementations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load implementations: %w", err)
	}
	known := make(map[model.Address]bool, len(impls))
	for _, impl := range impls {
		known[impl.Address] = true
	}
	entries, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	var out []Mismatch
	for _, e := range entries {
		want := derive.WalletAddress(factory, e.Implementation, e.Salt)
		switch {
		case !known[e.Implementation]:
			out = append(out, Mismatch{Entry: e, Expected: want, Reason: "unknown implementation"})
		case want != e.Wallet:
			out = append(out, Mismatch{Entry: e, Expected: want, Reason: "address does not match derivation"})
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
