package wallet

import (
	"context"
	"fmt"

	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/model"
)

// restore re-installs the implementation history and every registered
// wallet from the store. Wallet storage is rebuilt from the owner recorded
// at creation.
func (f *Factory) restore(ctx context.Context) error {
	impls, err := f.store.Implementations(ctx)
	if err != nil {
		return fmt.Errorf("load implementations: %w", err)
	}
	if len(impls) == 0 {
		impl, err := f.deployImplementation(ctx, 0)
		if err != nil {
			return fmt.Errorf("deploy initial implementation: %w", err)
		}
		f.current = impl
		f.log.Infof("deployed implementation v0 at %s", impl.Address)
		return nil
	}

	known := make(map[model.Address]bool, len(impls))
	name := f.deployer.Logic().Name()
	for i, impl := range impls {
		if impl.Version != uint64(i) {
			return fmt.Errorf("%w: implementation history has a gap at v%d", model.ErrInconsistent, i)
		}
		if impl.Logic != name {
			return fmt.Errorf("%w: implementation v%d runs %q, factory runs %q", model.ErrInconsistent, impl.Version, impl.Logic, name)
		}
		addr, err := f.deployer.DeployImplementation(impl.Version)
		if err != nil {
			return fmt.Errorf("restore implementation v%d: %w", impl.Version, err)
		}
		if addr != impl.Address {
			return fmt.Errorf("%w: implementation v%d recorded at %s, derives to %s", model.ErrInconsistent, impl.Version, impl.Address, addr)
		}
		known[addr] = true
	}
	f.current = impls[len(impls)-1]

	entries, err := f.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	for _, e := range entries {
		if !known[e.Implementation] {
			return fmt.Errorf("%w: wallet %s uses unknown implementation %s", model.ErrInconsistent, e.Wallet, e.Implementation)
		}
		if want := derive.WalletAddress(f.address, e.Implementation, e.Salt); want != e.Wallet {
			return fmt.Errorf("%w: wallet %s derives to %s", model.ErrInconsistent, e.Wallet, want)
		}
		if _, err := f.deployer.Deploy(e.Implementation, e.Owner, e.Salt); err != nil {
			return fmt.Errorf("restore wallet %s: %w", e.Wallet, err)
		}
	}
	f.registered = len(entries)
	f.log.Infof("restored %d implementation(s) and %d wallet(s)", len(impls), len(entries))
	return nil
}
