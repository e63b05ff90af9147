// Package memory provides a thread-safe in-memory implementation of kv.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrEthical07/goGate/kv"
)

// Store is a thread-safe in-memory kv.Store. Suitable for tests, demos and
// single-process embedding where persistence across restarts is not needed.
type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

var _ kv.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, fmt.Errorf("%w: store closed", kv.ErrUnavailable)
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Apply(_ context.Context, ops ...kv.Op) error {
	if err := kv.Validate(ops); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", kv.ErrUnavailable)
	}
	for _, op := range ops {
		if _, exists := s.data[op.Key]; exists && op.Kind == kv.OpRequireAbsent {
			return kv.ErrConflict
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case kv.OpSet:
			s.data[op.Key] = op.Value
		case kv.OpDelete:
			delete(s.data, op.Key)
		}
	}
	return nil
}

func (s *Store) Take(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, fmt.Errorf("%w: store closed", kv.ErrUnavailable)
	}
	v, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return v, ok, nil
}

// Keys returns the stored keys in sorted order. Intended for tests and debugging.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
