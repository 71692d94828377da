// Package storetest holds the contract every registry.Store must satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
)

// Run exercises newStore against the registry.Store contract. newStore must
// return an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) registry.Store) {
	t.Run("InsertLookup", func(t *testing.T) { testInsertLookup(t, newStore(t)) })
	t.Run("NoOverwrite", func(t *testing.T) { testNoOverwrite(t, newStore(t)) })
	t.Run("ReverseInjective", func(t *testing.T) { testReverseInjective(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("Implementations", func(t *testing.T) { testImplementations(t, newStore(t)) })
}

// Entry builds a deterministic entry for tests.
func Entry(n byte) registry.Entry {
	return registry.Entry{
		User:           model.UserID{n},
		Wallet:         model.Address{0xaa, n},
		Owner:          model.Address{0x0b, n},
		Salt:           model.Salt{0x5a, n},
		Implementation: model.Address{0x1e},
		CreatedAt:      time.Unix(1700000000+int64(n), 0).UTC(),
	}
}

func testInsertLookup(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	e := Entry(1)
	require.NoError(t, s.Insert(ctx, e))

	got, err := s.Lookup(ctx, e.User)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	rev, err := s.ReverseLookup(ctx, e.Wallet)
	require.NoError(t, err)
	assert.Equal(t, e.User, rev.User)

	ok, err := s.Exists(ctx, e.User)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testNoOverwrite(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	e := Entry(1)
	require.NoError(t, s.Insert(ctx, e))

	dup := Entry(2)
	dup.User = e.User
	assert.ErrorIs(t, s.Insert(ctx, dup), model.ErrAlreadyExists)

	got, err := s.Lookup(ctx, e.User)
	require.NoError(t, err)
	assert.Equal(t, e.Wallet, got.Wallet)
	_, err = s.ReverseLookup(ctx, dup.Wallet)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testReverseInjective(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	e := Entry(1)
	require.NoError(t, s.Insert(ctx, e))

	other := Entry(2)
	other.Wallet = e.Wallet
	assert.ErrorIs(t, s.Insert(ctx, other), registry.ErrWalletTaken)

	ok, err := s.Exists(ctx, other.User)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testNotFound(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	_, err := s.Lookup(ctx, model.UserID{9})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.ReverseLookup(ctx, model.Address{9})
	assert.ErrorIs(t, err, model.ErrNotFound)
	ok, err := s.Exists(ctx, model.UserID{9})
	require.NoError(t, err)
	assert.False(t, ok)
}

func testListOrder(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	for _, n := range []byte{1, 2, 3} {
		require.NoError(t, s.Insert(ctx, Entry(n)))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, n := range []byte{1, 2, 3} {
		assert.Equal(t, Entry(n), list[i])
	}
}

func testImplementations(t *testing.T, s registry.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	v1 := model.Implementation{Address: model.Address{2}, Logic: "owned-wallet", Version: 1, DeployedAt: time.Unix(20, 0).UTC()}
	v0 := model.Implementation{Address: model.Address{1}, Logic: "owned-wallet", Version: 0, DeployedAt: time.Unix(10, 0).UTC()}
	require.NoError(t, s.RecordImplementation(ctx, v1))
	require.NoError(t, s.RecordImplementation(ctx, v0))
	assert.ErrorIs(t, s.RecordImplementation(ctx, v0), model.ErrAlreadyExists)

	impls, err := s.Implementations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Implementation{v0, v1}, impls)
}
