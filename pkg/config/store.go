package config

import (
	"sync"

	"github.com/huandu/go-clone"
)

// Store holds the live configuration. Runs take a Snapshot before they start
// and never hold the lock across a network call.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: clone.Clone(cfg).(*Config)}
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone.Clone(s.cfg).(*Config)
}

// Update applies f to the configuration under the write lock.
func (s *Store) Update(f func(cfg *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.cfg)
}

func (s *Store) Set(cfg *Config) {
	c := clone.Clone(cfg).(*Config)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = c
}
