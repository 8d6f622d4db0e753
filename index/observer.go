package index

import (
	"context"

	"github.com/hupe1980/globdex/hashing"
)

// KeyObserver is told about every entry before its trigram bits are set.
type KeyObserver[K, F comparable] interface {
	Observe(ctx context.Context, key *hashing.HashableKey[K], field F, value string) error
}

// KeyLookup resolves bits back to the keys that were hashed to them.
type KeyLookup[K comparable] interface {
	// ToKey returns the key hashed to bit, if any.
	ToKey(ctx context.Context, bit uint64) (K, bool, error)
	// ToKeys resolves bits, skipping bits no key was hashed to.
	ToKeys(ctx context.Context, bits []uint64) ([]K, error)
}

// KeyEnumerator is implemented by lookups that can list every key. It lets
// a Reader answer patterns without literal text.
type KeyEnumerator[K comparable] interface {
	Keys(ctx context.Context, fn func(key K) error) error
}

// DataLookup returns the value stored for a key and field.
type DataLookup[K, F comparable] interface {
	Lookup(ctx context.Context, key K, field F) (string, bool, error)
}

// Observer is a KeyObserver that also serves both lookups.
type Observer[K, F comparable] interface {
	KeyObserver[K, F]
	KeyLookup[K]
	DataLookup[K, F]
}
