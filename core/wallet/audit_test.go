package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/walletfactory/core/audit"
	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

type slowAuditStore struct {
	mu    sync.Mutex
	delay time.Duration
	recs  []audit.Record
}

func (s *slowAuditStore) Append(_ context.Context, rec audit.Record) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *slowAuditStore) Query(context.Context, audit.Query) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.recs...), nil
}

func (s *slowAuditStore) Close() error { return nil }

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, events.Event) error { return errors.New("disk full") }

func TestAuditKeepsEveryAttemptUnderBurst(t *testing.T) {
	store := &slowAuditStore{delay: time.Millisecond}
	fx := newFixture(t, func(o *Options) { o.Audit = audit.NewRecorder(store) })
	ctx := context.Background()

	const n = 3 * eventbus.DefaultBuffer
	for i := 1; i <= n; i++ {
		user := model.UserID{byte(i >> 8), byte(i)}
		salt := model.Salt{byte(i >> 8), byte(i)}
		_, err := fx.f.CreateWallet(ctx, controller, user, ownerA, salt)
		require.NoError(t, err)
	}
	_, err := fx.f.CreateWallet(ctx, stranger, userU, ownerA, saltS)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	recs, err := store.Query(ctx, audit.Query{})
	require.NoError(t, err)
	require.Len(t, recs, n+1)
	assert.Equal(t, audit.OutcomeOK, recs[0].Outcome)
	assert.Equal(t, events.ReasonUnauthorized, recs[n].Outcome)
	assert.Positive(t, fx.bus.Dropped(), "the undrained subscriber should have missed events")
}

func TestAuditFailureDoesNotUndoCreation(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.Audit = failingRecorder{} })
	addr, err := fx.f.CreateWallet(context.Background(), controller, userU, ownerA, saltS)
	require.NoError(t, err)
	got, err := fx.f.GetWalletAddress(context.Background(), userU)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}
