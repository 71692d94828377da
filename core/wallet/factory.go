package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/walletfactory/core/deployer"
	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/gate"
	"github.com/kilianp07/walletfactory/core/logger"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/monitoring"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

// Options configures a Factory. Address, Gate, Logic and Store are required.
type Options struct {
	Address model.Address
	Gate    gate.Gate
	Logic   logic.Logic
	Store   registry.Store
	// Space defaults to an unbounded in-memory address space.
	Space deployer.AddressSpace
	// Audit records every mutating attempt before the call returns. Optional.
	Audit EventRecorder
	// Bus receives an event after every mutating call. Delivery is best
	// effort. Optional.
	Bus    eventbus.EventBus[events.Event]
	Logger logger.Logger
	Now    func() time.Time
}

// EventRecorder durably records factory events. audit.Recorder implements it.
type EventRecorder interface {
	Record(ctx context.Context, ev events.Event) error
}

// Factory creates and tracks wallets.
type Factory struct {
	mu         sync.RWMutex
	address    model.Address
	gate       gate.Gate
	deployer   *deployer.Deployer
	store      registry.Store
	audit      EventRecorder
	bus        eventbus.EventBus[events.Event]
	log        logger.Logger
	now        func() time.Time
	current    model.Implementation
	registered int
}

// New builds a Factory. The implementation history and every registered
// wallet found in the store are re-installed; on an empty store version 0 of
// the shared logic is deployed.
func New(ctx context.Context, opts Options) (*Factory, error) {
	if opts.Address.IsZero() {
		return nil, fmt.Errorf("%w: factory address must not be zero", model.ErrInvalidInput)
	}
	if opts.Gate == nil || opts.Logic == nil || opts.Store == nil {
		return nil, fmt.Errorf("%w: gate, logic and store are required", model.ErrInvalidInput)
	}
	if opts.Space == nil {
		opts.Space = deployer.NewMemorySpace(0)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &Factory{
		address:  opts.Address,
		gate:     opts.Gate,
		deployer: deployer.New(opts.Address, opts.Logic, opts.Space),
		store:    opts.Store,
		audit:    opts.Audit,
		bus:      opts.Bus,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if err := f.restore(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Address returns the factory identity used in every derivation.
func (f *Factory) Address() model.Address { return f.address }

// Controller returns the only identity allowed to mutate the factory.
func (f *Factory) Controller() model.Address { return f.gate.Controller() }

// Implementation returns the shared implementation new wallets delegate to.
func (f *Factory) Implementation() model.Implementation {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// DeployImplementation deploys the next version of the shared logic and
// makes it current. Wallets already deployed keep their implementation.
func (f *Factory) DeployImplementation(ctx context.Context, caller model.Address) (model.Implementation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := events.OpDeployImplementation
	if err := ctx.Err(); err != nil {
		return model.Implementation{}, err
	}
	if err := f.gate.Authorize(caller); err != nil {
		return model.Implementation{}, f.reject(ctx, op, caller, model.UserID{}, model.Address{}, err)
	}
	impl, err := f.deployImplementation(context.WithoutCancel(ctx), f.current.Version+1)
	if err != nil {
		return model.Implementation{}, f.reject(ctx, op, caller, model.UserID{}, model.Address{}, err)
	}
	f.current = impl
	f.log.Infow("implementation deployed", map[string]any{
		"implementation": impl.Address.String(),
		"version":        impl.Version,
	})
	f.publish(ctx, events.ImplementationDeployed{Caller: caller, Implementation: impl, Time: impl.DeployedAt})
	return impl, nil
}

func (f *Factory) deployImplementation(ctx context.Context, version uint64) (model.Implementation, error) {
	addr, err := f.deployer.DeployImplementation(version)
	if err != nil {
		return model.Implementation{}, err
	}
	impl := model.Implementation{
		Address:    addr,
		Logic:      f.deployer.Logic().Name(),
		Version:    version,
		DeployedAt: f.now().UTC(),
	}
	if err := f.store.RecordImplementation(ctx, impl); err != nil {
		f.deployer.Undeploy(addr)
		return model.Implementation{}, fmt.Errorf("record implementation v%d: %w", version, err)
	}
	return impl, nil
}

// CreateWallet deploys a wallet for user owned by owner at the address
// PredictWalletAddress(user, salt) returns, and registers it. A user can
// only ever receive one wallet.
func (f *Factory) CreateWallet(ctx context.Context, caller model.Address, user model.UserID, owner model.Address, salt model.Salt) (model.Address, error) {
	start := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	op := events.OpCreateWallet
	if err := ctx.Err(); err != nil {
		return model.Address{}, err
	}
	if err := f.gate.Authorize(caller); err != nil {
		return model.Address{}, f.reject(ctx, op, caller, user, model.Address{}, err)
	}
	if owner.IsZero() {
		return model.Address{}, f.reject(ctx, op, caller, user, model.Address{},
			fmt.Errorf("%w: owner must not be the zero address", model.ErrInvalidInput))
	}
	// The call is committed from here on.
	ctx = context.WithoutCancel(ctx)
	exists, err := f.store.Exists(ctx, user)
	if err != nil {
		return model.Address{}, f.reject(ctx, op, caller, user, model.Address{}, fmt.Errorf("check user: %w", err))
	}
	if exists {
		return model.Address{}, f.reject(ctx, op, caller, user, model.Address{},
			fmt.Errorf("%w: user %s", model.ErrAlreadyExists, user))
	}
	impl := f.current.Address
	inst, err := f.deployer.Deploy(impl, owner, salt)
	if err != nil {
		return model.Address{}, f.reject(ctx, op, caller, user, f.deployer.Predict(impl, salt), err)
	}
	entry := registry.Entry{
		User:           user,
		Wallet:         inst.Address,
		Owner:          owner,
		Salt:           salt,
		Implementation: impl,
		CreatedAt:      f.now().UTC(),
	}
	if err := f.store.Insert(ctx, entry); err != nil {
		f.deployer.Undeploy(inst.Address)
		return model.Address{}, f.reject(ctx, op, caller, user, inst.Address, fmt.Errorf("record wallet: %w", err))
	}
	f.registered++
	f.log.Infow("wallet created", map[string]any{
		"user":   user.String(),
		"wallet": inst.Address.String(),
		"owner":  owner.String(),
	})
	f.publish(ctx, events.WalletCreated{
		Caller:         caller,
		User:           user,
		Wallet:         inst.Address,
		Owner:          owner,
		Salt:           salt,
		Implementation: impl,
		Registered:     f.registered,
		Duration:       f.now().Sub(start),
		Time:           entry.CreatedAt,
	})
	return inst.Address, nil
}

// PredictWalletAddress returns the address CreateWallet will produce for
// salt under the current implementation. The user does not enter the
// derivation; it is accepted so callers can predict per user.
func (f *Factory) PredictWalletAddress(user model.UserID, salt model.Salt) model.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.deployer.Predict(f.current.Address, salt)
}

// GetWalletAddress returns the wallet registered for user or model.ErrNotFound.
func (f *Factory) GetWalletAddress(ctx context.Context, user model.UserID) (model.Address, error) {
	e, err := f.Entry(ctx, user)
	return e.Wallet, err
}

// GetWalletOwner returns the user a wallet was registered for or model.ErrNotFound.
func (f *Factory) GetWalletOwner(ctx context.Context, wallet model.Address) (model.UserID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, err := f.store.ReverseLookup(ctx, wallet)
	return e.User, err
}

// WalletExists reports whether user has a wallet. Store failures are
// logged and reported as false.
func (f *Factory) WalletExists(ctx context.Context, user model.UserID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ok, err := f.store.Exists(ctx, user)
	if err != nil {
		f.log.Errorf("wallet exists %s: %v", user, err)
		monitoring.CaptureOperation("wallet_exists", events.ReasonInternal, err, "user", user.String())
		return false
	}
	return ok
}

// Entry returns the full registry entry for user.
func (f *Factory) Entry(ctx context.Context, user model.UserID) (registry.Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.store.Lookup(ctx, user)
}

// Registered returns the number of wallets created by this factory.
func (f *Factory) Registered() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.registered
}

// Call forwards a method call to the shared logic on behalf of wallet.
func (f *Factory) Call(ctx context.Context, caller, wallet model.Address, method string, args []byte) ([]byte, error) {
	inst, err := f.instance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return inst.Call(ctx, caller, method, args)
}

// InstanceOwner reads the current owner of wallet through the shared logic.
func (f *Factory) InstanceOwner(ctx context.Context, wallet model.Address) (model.Address, error) {
	inst, err := f.instance(ctx, wallet)
	if err != nil {
		return model.Address{}, err
	}
	return inst.Owner(ctx)
}

func (f *Factory) instance(ctx context.Context, wallet model.Address) (*deployer.Instance, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, err := f.store.ReverseLookup(ctx, wallet); err != nil {
		return nil, err
	}
	inst, ok := f.deployer.Instance(wallet)
	if !ok {
		return nil, fmt.Errorf("%w: instance %s", model.ErrNotFound, wallet)
	}
	return inst, nil
}

func (f *Factory) reject(ctx context.Context, op string, caller model.Address, user model.UserID, wallet model.Address, err error) error {
	reason := events.Reason(err)
	f.log.Warnf("%s rejected (%s): %v", op, reason, err)
	if reason == events.ReasonDeploymentFailed || reason == events.ReasonInternal {
		monitoring.CaptureOperation(op, reason, err, "caller", caller.String(), "user", user.String())
	}
	f.publish(ctx, events.OperationRejected{
		Op:     op,
		Caller: caller,
		User:   user,
		Wallet: wallet,
		Reason: reason,
		Err:    err,
		Time:   f.now().UTC(),
	})
	return err
}

// publish records ev in the audit trail, then hands it to the bus. An audit
// failure does not undo the mutation; it is logged and reported.
func (f *Factory) publish(ctx context.Context, ev events.Event) {
	if f.audit != nil {
		if err := f.audit.Record(ctx, ev); err != nil {
			f.log.Errorf("audit %s: %v", ev.Operation(), err)
			monitoring.CaptureOperation(ev.Operation(), events.ReasonInternal, err, monitoring.TagComponent, "audit")
		}
	}
	if f.bus != nil {
		f.bus.Publish(ev)
	}
}
