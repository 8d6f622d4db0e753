// Package index implements the trigram index write and read paths.
//
// A Writer maps each key to one bit of a fixed bit space and asserts that bit
// in the row of every trigram of the indexed value. Rows are split into
// segments of equal length, stored through a segment.Cache.
//
// A Reader answers glob queries: it intersects the bit sets of the pattern's
// literal fragments, resolves the surviving bits to keys and keeps the keys
// whose stored value really matches the pattern. Trigram matching only
// narrows candidates; the final answer never contains a key whose value does
// not match.
//
// # Patterns
//
// A pattern is literal text with '*' wildcards matching any sequence,
// including the empty one. No other character is special. A pattern without
// '*' requires an exact match.
//
// # Collaborators
//
// Keys reach the reader through a KeyLookup and values through a DataLookup.
// MemoryObserver keeps both in process; StoreObserver persists them in a
// store.Store.
package index
