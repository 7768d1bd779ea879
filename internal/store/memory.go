package store

import "sync"

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool

	// FailWith, when set, makes every operation fail with it.
	FailWith error
}

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Retrieve implements Store.
func (s *MemoryStore) Retrieve(keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(); err != nil {
		return nil, newError("retrieve", s.Name(), keys, err)
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Write implements Store.
func (s *MemoryStore) Write(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return newError("write", s.Name(), keysOf(values), err)
	}
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Snapshot returns a copy of every stored value.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check() error {
	if s.closed {
		return ErrClosed
	}
	return s.FailWith
}
