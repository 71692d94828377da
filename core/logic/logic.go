// Package logic defines the shared implementation wallet instances delegate
// to. An implementation owns no state: every call receives the storage of
// the instance it runs on behalf of.
package logic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
)

var (
	// ErrAlreadyInitialized is returned when an instance is initialized twice.
	ErrAlreadyInitialized = errors.New("logic: already initialized")
	// ErrNotOwner is returned when a restricted method is called by someone other than the owner.
	ErrNotOwner = fmt.Errorf("%w: logic: caller is not the owner", model.ErrUnauthorized)
	// ErrUnknownMethod is returned for methods the implementation does not expose.
	ErrUnknownMethod = fmt.Errorf("%w: logic: unknown method", model.ErrInvalidInput)
	// ErrZeroOwner is returned when an instance would be owned by the zero address.
	ErrZeroOwner = fmt.Errorf("%w: logic: zero owner", model.ErrInvalidInput)
)

// Storage is the private key/value storage of one instance.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// Message is a call forwarded by an instance to the shared implementation.
type Message struct {
	Caller model.Address
	Method string
	Args   []byte
}

// Logic is the shared implementation. Code identifies the exact template
// bytes; it feeds the implementation address derivation.
type Logic interface {
	Name() string
	Code() []byte
	Initialize(st Storage, owner model.Address) error
	Invoke(ctx context.Context, st Storage, msg Message) ([]byte, error)
}

// Catalog holds the logic implementations selectable from configuration.
var Catalog = module.NewRegistry[Logic]("logic")

// MemoryStorage is a Storage backed by a map. It is safe for concurrent use.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage returns empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (s *MemoryStorage) Set(key string, value []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
