package deployer

import (
	"fmt"
	"sync"

	"github.com/kilianp07/walletfactory/core/model"
)

var (
	// ErrOccupied is returned when an address already holds an instance.
	ErrOccupied = fmt.Errorf("%w: address occupied", model.ErrDeploymentFailed)
	// ErrCapacity is returned when the address space cannot hold more instances.
	ErrCapacity = fmt.Errorf("%w: capacity exhausted", model.ErrDeploymentFailed)
)

// AddressSpace holds every deployed instance keyed by address.
type AddressSpace interface {
	// Install adds inst unless its address is occupied or the space is full.
	Install(inst *Instance) error
	Remove(addr model.Address)
	Get(addr model.Address) (*Instance, bool)
	Len() int
}

// MemorySpace is an in-process AddressSpace.
type MemorySpace struct {
	mu        sync.RWMutex
	instances map[model.Address]*Instance
	capacity  int
}

// NewMemorySpace returns an empty space. capacity <= 0 means unlimited.
func NewMemorySpace(capacity int) *MemorySpace {
	return &MemorySpace{instances: map[model.Address]*Instance{}, capacity: capacity}
}

func (s *MemorySpace) Install(inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[inst.Address]; ok {
		return fmt.Errorf("%w: %s", ErrOccupied, inst.Address)
	}
	if s.capacity > 0 && len(s.instances) >= s.capacity {
		return fmt.Errorf("%w: %d instances", ErrCapacity, s.capacity)
	}
	s.instances[inst.Address] = inst
	return nil
}

func (s *MemorySpace) Remove(addr model.Address) {
	s.mu.Lock()
	delete(s.instances, addr)
	s.mu.Unlock()
}

func (s *MemorySpace) Get(addr model.Address) (*Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[addr]
	return inst, ok
}

func (s *MemorySpace) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}
