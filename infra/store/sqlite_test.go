package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/core/registry/storetest"
)

func newTestStore(t *testing.T) registry.Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.db")
	ctx := context.Background()
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	e := storetest.Entry(4)
	require.NoError(t, s.Insert(ctx, e))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Lookup(ctx, e.User)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestBackendsSQLite(t *testing.T) {
	s, err := registry.Backends.Create(module.Config{
		Type: "sqlite",
		Conf: map[string]any{"path": filepath.Join(t.TempDir(), "w.db")},
	})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = registry.Backends.Create(module.Config{Type: "sqlite"})
	assert.Error(t, err)
}

func TestSQLiteStoreConflictFromAnotherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.db")
	ctx := context.Background()
	a, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	b, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	e := storetest.Entry(1)
	require.NoError(t, b.Insert(ctx, e))

	sameUser := storetest.Entry(2)
	sameUser.User = e.User
	err = a.Insert(ctx, sameUser)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
	assert.NotErrorIs(t, err, registry.ErrWalletTaken)

	sameWallet := storetest.Entry(3)
	sameWallet.Wallet = e.Wallet
	assert.ErrorIs(t, a.Insert(ctx, sameWallet), registry.ErrWalletTaken)

	impl := model.Implementation{Version: 0, Address: model.Address{0x1e}, Logic: "owned-wallet"}
	require.NoError(t, b.RecordImplementation(ctx, impl))
	assert.ErrorIs(t, a.RecordImplementation(ctx, impl), model.ErrAlreadyExists)
}
