package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/walletfactory/core/deployer"
	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/gate"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

var (
	factoryAddr = model.Address{0xfa, 0xc7}
	controller  = model.Address{0xc0}
	stranger    = model.Address{0x57}
	ownerA      = model.Address{0x0a}
	ownerB      = model.Address{0x0b}
	userU       = model.UserID{0x01}
	userV       = model.UserID{0x02}
	saltS       = model.Salt{0x5a}
	saltT       = model.Salt{0x5b}
)

type fixture struct {
	f     *Factory
	store registry.Store
	bus   *eventbus.TypedBus[events.Event]
	sub   <-chan events.Event
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	g, err := gate.NewControllerGate(controller)
	require.NoError(t, err)
	bus := eventbus.New[events.Event]()
	t.Cleanup(bus.Close)
	opts := Options{
		Address: factoryAddr,
		Gate:    g,
		Logic:   logic.OwnedWallet{},
		Store:   registry.NewMemoryStore(),
		Bus:     bus,
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
	for _, m := range mutate {
		m(&opts)
	}
	sub := bus.Subscribe()
	f, err := New(context.Background(), opts)
	require.NoError(t, err)
	return &fixture{f: f, store: opts.Store, bus: bus, sub: sub}
}

func (fx *fixture) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-fx.sub:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return nil
	}
}

func TestNewDeploysInitialImplementation(t *testing.T) {
	fx := newFixture(t)
	impl := fx.f.Implementation()
	assert.Equal(t, uint64(0), impl.Version)
	assert.Equal(t, logic.OwnedWalletName, impl.Logic)
	assert.Equal(t, derive.ImplementationAddress(factoryAddr, logic.OwnedWallet{}.Code(), 0), impl.Address)
	assert.Equal(t, controller, fx.f.Controller())
	assert.Equal(t, factoryAddr, fx.f.Address())

	recorded, err := fx.store.Implementations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Implementation{impl}, recorded)
}

func TestNewRequiresDependencies(t *testing.T) {
	g, _ := gate.NewControllerGate(controller)
	_, err := New(context.Background(), Options{Gate: g, Logic: logic.OwnedWallet{}, Store: registry.NewMemoryStore()})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = New(context.Background(), Options{Address: factoryAddr, Logic: logic.OwnedWallet{}, Store: registry.NewMemoryStore()})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCreateWalletLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	f := fx.f

	assert.False(t, f.WalletExists(ctx, userU))
	_, err := f.GetWalletAddress(ctx, userU)
	assert.ErrorIs(t, err, model.ErrNotFound)

	predicted := f.PredictWalletAddress(userU, saltS)
	assert.Equal(t, predicted, f.PredictWalletAddress(userU, saltS))

	addr, err := f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	require.NoError(t, err)
	assert.Equal(t, predicted, addr)
	assert.Equal(t, derive.WalletAddress(factoryAddr, f.Implementation().Address, saltS), addr)

	got, err := f.GetWalletAddress(ctx, userU)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	user, err := f.GetWalletOwner(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, userU, user)
	assert.True(t, f.WalletExists(ctx, userU))
	owner, err := f.InstanceOwner(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ownerA, owner)
	assert.Equal(t, 1, f.Registered())

	created, ok := fx.next(t).(events.WalletCreated)
	require.True(t, ok)
	assert.Equal(t, addr, created.Wallet)
	assert.Equal(t, 1, created.Registered)

	_, err = f.CreateWallet(ctx, controller, userU, ownerB, saltT)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
	got, _ = f.GetWalletAddress(ctx, userU)
	assert.Equal(t, addr, got)

	rejected, ok := fx.next(t).(events.OperationRejected)
	require.True(t, ok)
	assert.Equal(t, events.ReasonAlreadyExists, rejected.Reason)
}

func TestUnauthorizedLeavesNoTrace(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	before := fx.f.Implementation()

	_, err := fx.f.CreateWallet(ctx, stranger, userU, ownerA, saltS)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.False(t, fx.f.WalletExists(ctx, userU))
	_, err = fx.f.GetWalletOwner(ctx, fx.f.PredictWalletAddress(userU, saltS))
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = fx.f.DeployImplementation(ctx, stranger)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, before, fx.f.Implementation())

	for i := 0; i < 2; i++ {
		rejected, ok := fx.next(t).(events.OperationRejected)
		require.True(t, ok)
		assert.Equal(t, events.ReasonUnauthorized, rejected.Reason)
		assert.Equal(t, stranger, rejected.Caller)
	}
}

func TestZeroOwnerRejected(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.f.CreateWallet(context.Background(), controller, userU, model.Address{}, saltS)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.False(t, fx.f.WalletExists(context.Background(), userU))
}

func TestCanceledContextStartsNothing(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fx.f.WalletExists(context.Background(), userU))
}

func TestSaltReuseAcrossUsersFails(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	first, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	require.NoError(t, err)

	_, err = fx.f.CreateWallet(ctx, controller, userV, ownerB, saltS)
	assert.ErrorIs(t, err, model.ErrDeploymentFailed)
	assert.False(t, fx.f.WalletExists(ctx, userV))

	owner, err := fx.f.InstanceOwner(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, ownerA, owner, "existing wallet must be untouched")
}

func TestCapacityExhausted(t *testing.T) {
	// One slot for the v0 implementation and one for a single wallet.
	fx := newFixture(t, func(o *Options) { o.Space = deployer.NewMemorySpace(2) })
	ctx := context.Background()
	_, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	require.NoError(t, err)

	_, err = fx.f.CreateWallet(ctx, controller, userV, ownerB, saltT)
	assert.ErrorIs(t, err, model.ErrDeploymentFailed)
	assert.ErrorIs(t, err, deployer.ErrCapacity)
	assert.False(t, fx.f.WalletExists(ctx, userV))
	assert.Equal(t, 1, fx.f.Registered())
}

type failingStore struct {
	*registry.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Insert(context.Context, registry.Entry) error { return errDiskFull }

func TestRegistryFailureRollsBackDeployment(t *testing.T) {
	space := deployer.NewMemorySpace(0)
	fx := newFixture(t, func(o *Options) {
		o.Store = failingStore{registry.NewMemoryStore()}
		o.Space = space
	})
	ctx := context.Background()
	predicted := fx.f.PredictWalletAddress(userU, saltS)

	_, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	assert.ErrorIs(t, err, errDiskFull)
	_, deployed := space.Get(predicted)
	assert.False(t, deployed, "instance must be removed when the registry write fails")
	assert.Equal(t, 1, space.Len())
	assert.Equal(t, 0, fx.f.Registered())

	rejected, ok := fx.next(t).(events.OperationRejected)
	require.True(t, ok)
	assert.Equal(t, events.ReasonInternal, rejected.Reason)
}

func TestDeployImplementationOnlyAffectsNewWallets(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	v0 := fx.f.Implementation()
	old, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	require.NoError(t, err)
	before := fx.f.PredictWalletAddress(userV, saltT)
	_ = fx.next(t)

	v1, err := fx.f.DeployImplementation(ctx, controller)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1.Version)
	assert.NotEqual(t, v0.Address, v1.Address)
	assert.Equal(t, v1, fx.f.Implementation())
	deployed, ok := fx.next(t).(events.ImplementationDeployed)
	require.True(t, ok)
	assert.Equal(t, v1, deployed.Implementation)

	after := fx.f.PredictWalletAddress(userV, saltT)
	assert.NotEqual(t, before, after)

	entry, err := fx.f.Entry(ctx, userU)
	require.NoError(t, err)
	assert.Equal(t, old, entry.Wallet)
	assert.Equal(t, v0.Address, entry.Implementation)

	addr, err := fx.f.CreateWallet(ctx, controller, userV, ownerB, saltT)
	require.NoError(t, err)
	assert.Equal(t, after, addr)
}

func TestCallTransferOwnership(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	addr, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, saltS)
	require.NoError(t, err)

	args, err := json.Marshal(logic.TransferArgs{NewOwner: ownerB})
	require.NoError(t, err)
	_, err = fx.f.Call(ctx, stranger, addr, logic.MethodTransferOwnership, args)
	assert.ErrorIs(t, err, logic.ErrNotOwner)

	_, err = fx.f.Call(ctx, ownerA, addr, logic.MethodTransferOwnership, args)
	require.NoError(t, err)
	owner, err := fx.f.InstanceOwner(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ownerB, owner)

	// The registry keeps the creation facts.
	entry, err := fx.f.Entry(ctx, userU)
	require.NoError(t, err)
	assert.Equal(t, ownerA, entry.Owner)

	_, err = fx.f.Call(ctx, ownerA, model.Address{0xde, 0xad}, logic.MethodOwner, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentCreateSameUser(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	var wins, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.f.CreateWallet(ctx, controller, userU, ownerA, model.SaltFromUint64(uint64(i)))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, model.ErrAlreadyExists):
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), dup.Load())
	assert.Equal(t, 1, fx.f.Registered())
}

func TestConcurrentReadsSeeCompleteState(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		user := model.UserID{0x10, byte(i)}
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := fx.f.CreateWallet(ctx, controller, user, ownerA, model.SaltFromUint64(uint64(i+1)))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			if fx.f.WalletExists(ctx, user) {
				addr, err := fx.f.GetWalletAddress(ctx, user)
				assert.NoError(t, err)
				back, err := fx.f.GetWalletOwner(ctx, addr)
				assert.NoError(t, err)
				assert.Equal(t, user, back)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, fx.f.Registered())
}
