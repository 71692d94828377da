package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/walletfactory/core/model"
)

// MemoryStore keeps the registry in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[model.UserID]Entry
	byAddr map[model.Address]model.UserID
	order  []model.UserID
	impls  map[uint64]model.Implementation
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: map[model.UserID]Entry{},
		byAddr: map[model.Address]model.UserID{},
		impls:  map[uint64]model.Implementation{},
	}
}

func (s *MemoryStore) Insert(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[e.User]; ok {
		return fmt.Errorf("%w: user %s", model.ErrAlreadyExists, e.User)
	}
	if _, ok := s.byAddr[e.Wallet]; ok {
		return fmt.Errorf("%w: %s", ErrWalletTaken, e.Wallet)
	}
	s.byUser[e.User] = e
	s.byAddr[e.Wallet] = e.User
	s.order = append(s.order, e.User)
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, user model.UserID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUser[user]
	if !ok {
		return Entry{}, fmt.Errorf("%w: user %s", model.ErrNotFound, user)
	}
	return e, nil
}

func (s *MemoryStore) ReverseLookup(ctx context.Context, wallet model.Address) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byAddr[wallet]
	if !ok {
		return Entry{}, fmt.Errorf("%w: wallet %s", model.ErrNotFound, wallet)
	}
	return s.byUser[u], nil
}

func (s *MemoryStore) Exists(ctx context.Context, user model.UserID) (bool, error) {
	s.mu.RLock()
	_, ok := s.byUser[user]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Entry, 0, len(s.order))
	for _, u := range s.order {
		res = append(res, s.byUser[u])
	}
	return res, nil
}

func (s *MemoryStore) RecordImplementation(ctx context.Context, impl model.Implementation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.impls[impl.Version]; ok {
		return fmt.Errorf("%w: implementation v%d", model.ErrAlreadyExists, impl.Version)
	}
	s.impls[impl.Version] = impl
	return nil
}

func (s *MemoryStore) Implementations(ctx context.Context) ([]model.Implementation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Implementation, 0, len(s.impls))
	for _, impl := range s.impls {
		res = append(res, impl)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Version < res[j].Version })
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
