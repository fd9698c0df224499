package tools

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry is the shared, read-mostly table of connected backends and the
// tools they expose. It is written when backends start or stop and read by
// every run through Snapshot.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	backends map[string]registeredBackend
}

type registeredBackend struct {
	backend     Backend
	descriptors []ToolDescriptor
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]registeredBackend),
	}
}

// Register adds or replaces the backend called name. The BackendName of the
// descriptors is set to name.
func (r *Registry) Register(name string, backend Backend, descriptors []ToolDescriptor) error {
	if name == "" {
		return errors.New("backend name cannot be empty")
	}
	if backend == nil {
		return errors.Errorf("backend %s is nil", name)
	}

	ds := make([]ToolDescriptor, len(descriptors))
	for i, d := range descriptors {
		d.BackendName = name
		ds[i] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; !ok {
		r.order = append(r.order, name)
	}
	r.backends[name] = registeredBackend{backend: backend, descriptors: ds}
	return nil
}

// Unregister removes the backend. Removing an unknown backend is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; !ok {
		return
	}
	delete(r.backends, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Backend(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b.backend, ok
}

// Names returns the registered backend names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Descriptors returns the descriptors of all backends, grouped by backend in
// registration order.
func (r *Registry) Descriptors() []ToolDescriptor {
	return r.Snapshot().Descriptors()
}

// Snapshot copies the current state. The returned value is immutable and can
// be used without holding any lock.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		backends: make(map[string]Backend, len(r.backends)),
	}
	for _, name := range r.order {
		rb := r.backends[name]
		s.backends[name] = rb.backend
		s.descriptors = append(s.descriptors, rb.descriptors...)
	}
	return s
}

var _ BackendLookup = (*Registry)(nil)

// Snapshot is a point-in-time copy of a Registry.
type Snapshot struct {
	backends    map[string]Backend
	descriptors []ToolDescriptor
}

// NewSnapshot builds a snapshot directly, mostly useful in tests.
func NewSnapshot(backends map[string]Backend, descriptors []ToolDescriptor) *Snapshot {
	s := &Snapshot{backends: make(map[string]Backend, len(backends))}
	for k, v := range backends {
		s.backends[k] = v
	}
	s.descriptors = append(s.descriptors, descriptors...)
	return s
}

func (s *Snapshot) Backend(name string) (Backend, bool) {
	b, ok := s.backends[name]
	return b, ok
}

func (s *Snapshot) Descriptors() []ToolDescriptor {
	return append([]ToolDescriptor(nil), s.descriptors...)
}

var _ BackendLookup = (*Snapshot)(nil)
