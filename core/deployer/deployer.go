package deployer

import (
	"fmt"

	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
)

// Deployer creates instances on behalf of a single factory address.
type Deployer struct {
	factory model.Address
	logic   logic.Logic
	space   AddressSpace
}

// New returns a Deployer for factory using the shared logic l.
func New(factory model.Address, l logic.Logic, space AddressSpace) *Deployer {
	return &Deployer{factory: factory, logic: l, space: space}
}

// Factory returns the factory address deployments are derived from.
func (d *Deployer) Factory() model.Address { return d.factory }

// Logic returns the shared logic.
func (d *Deployer) Logic() logic.Logic { return d.logic }

// Predict returns the address Deploy would use for impl and salt.
func (d *Deployer) Predict(impl model.Address, salt model.Salt) model.Address {
	return derive.WalletAddress(d.factory, impl, salt)
}

// DeployImplementation installs version of the shared logic and returns its address.
func (d *Deployer) DeployImplementation(version uint64) (model.Address, error) {
	addr := derive.ImplementationAddress(d.factory, d.logic.Code(), version)
	inst := &Instance{Address: addr, Kind: KindImplementation, Salt: model.SaltFromUint64(version), logic: d.logic}
	if err := d.space.Install(inst); err != nil {
		return model.Address{}, fmt.Errorf("implementation v%d: %w", version, err)
	}
	return addr, nil
}

// Deploy clones impl at the derived address and initializes owner before
// the instance becomes visible.
func (d *Deployer) Deploy(impl, owner model.Address, salt model.Salt) (*Instance, error) {
	target, ok := d.space.Get(impl)
	if !ok || target.Kind != KindImplementation {
		return nil, fmt.Errorf("%w: implementation %s not deployed", model.ErrDeploymentFailed, impl)
	}
	inst := &Instance{
		Address:        d.Predict(impl, salt),
		Kind:           KindWallet,
		Implementation: impl,
		Salt:           salt,
		logic:          d.logic,
		storage:        logic.NewMemoryStorage(),
	}
	if err := d.logic.Initialize(inst.storage, owner); err != nil {
		return nil, fmt.Errorf("%w: initialize %s: %v", model.ErrDeploymentFailed, inst.Address, err)
	}
	if err := d.space.Install(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Undeploy removes the instance at addr. It only exists to roll back a
// creation whose registry write failed.
func (d *Deployer) Undeploy(addr model.Address) { d.space.Remove(addr) }

// Instance returns the instance deployed at addr.
func (d *Deployer) Instance(addr model.Address) (*Instance, bool) { return d.space.Get(addr) }
