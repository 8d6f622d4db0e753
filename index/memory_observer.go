package index

import (
	"context"
	"sync"

	"github.com/hupe1980/globdex/hashing"
)

// MemoryObserver keeps the bit-to-key table and the values in memory.
// A bit maps to the key most recently hashed to it.
type MemoryObserver[K, F comparable] struct {
	mu     sync.RWMutex
	bits   map[uint64]K
	values map[K]map[F]string
}

var (
	_ Observer[string, string] = (*MemoryObserver[string, string])(nil)
	_ KeyEnumerator[string]    = (*MemoryObserver[string, string])(nil)
)

// NewMemoryObserver creates an empty observer.
func NewMemoryObserver[K, F comparable]() *MemoryObserver[K, F] {
	return &MemoryObserver[K, F]{
		bits:   make(map[uint64]K),
		values: make(map[K]map[F]string),
	}
}

func (m *MemoryObserver[K, F]) Observe(_ context.Context, key *hashing.HashableKey[K], field F, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key.Key()
	m.bits[key.Bit()] = k

	fields, ok := m.values[k]
	if !ok {
		fields = make(map[F]string)
		m.values[k] = fields
	}
	fields[field] = value
	return nil
}

func (m *MemoryObserver[K, F]) ToKey(_ context.Context, bit uint64) (K, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.bits[bit]
	return k, ok, nil
}

func (m *MemoryObserver[K, F]) ToKeys(_ context.Context, bits []uint64) ([]K, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]K, 0, len(bits))
	for _, b := range bits {
		if k, ok := m.bits[b]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemoryObserver[K, F]) Lookup(_ context.Context, key K, field F) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key][field]
	return v, ok, nil
}

// Keys visits every observed key in no particular order.
func (m *MemoryObserver[K, F]) Keys(ctx context.Context, fn func(key K) error) error {
	m.mu.RLock()
	keys := make([]K, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of observed keys.
func (m *MemoryObserver[K, F]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
