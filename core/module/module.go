package module

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Config contains the type name and raw configuration for a component.
type Config struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Builder constructs an implementation of T using the provided raw config.
type Builder[T any] func(map[string]any) (T, error)

// Registry stores builders keyed by component type.
type Registry[T any] struct {
	kind     string
	mu       sync.RWMutex
	builders map[string]Builder[T]
}

// NewRegistry returns an empty registry. kind names the component family in errors.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, builders: make(map[string]Builder[T])}
}

// Register adds a builder for the given type name. Names cannot be replaced.
func (r *Registry[T]) Register(name string, b Builder[T]) error {
	if b == nil {
		return fmt.Errorf("%s: nil builder for %s", r.kind, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("%s: builder already registered for %s", r.kind, name)
	}
	r.builders[name] = b
	return nil
}

// MustRegister is Register for init functions.
func (r *Registry[T]) MustRegister(name string, b Builder[T]) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Create instantiates a component based on its configuration.
func (r *Registry[T]) Create(cfg Config) (T, error) {
	r.mu.RLock()
	b, ok := r.builders[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unknown type %q", r.kind, cfg.Type)
	}
	return b(cfg.Conf)
}

// Names lists registered type names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Decode fills out the provided struct using json tags.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
