// Package globdex provides a trigram index answering glob queries over string
// values stored in a generic row/column store.
//
// Every key is hashed to one bit of a large, fixed bit space. Every trigram of
// an indexed value selects a row; the row holds the bit space split into
// segments, one store cell per segment. A glob search turns the literal
// fragments of its pattern into trigrams, intersects the rows' bits and
// verifies the surviving keys against their stored values, so results never
// contain false positives.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := globdex.New[string, string](store.NewMemoryStore(), globdex.DefaultConfig())
//	defer idx.Close(ctx)
//
//	_ = idx.Add(ctx, "doc-1", "title", "hello world")
//	_ = idx.Add(ctx, "doc-2", "title", "goodbye world")
//
//	keys, _ := idx.GlobSearch(ctx, "title", "*o w*") // [doc-1 doc-2] in any order
//
// # Stores
//
// Any store.Store works: store.MemoryStore for tests, store/bolt for a local
// file, store/dynamodb, store/s3 and store/minio for shared deployments. The
// index wraps it with compression, optional per-call timeouts and optional
// retries.
//
// # Write Coalescing
//
// With Config.WriteCoalescing, segment writes are handed to background flush
// workers and repeated assertions on one segment collapse into fewer puts.
// Searches read the store, so they observe such writes after Flush.
//
// # Patterns
//
// '*' matches any run of characters, including none. All other characters are
// literal. A pattern without '*' matches the whole value exactly. Patterns
// without literal text, such as "*", need a key lookup that can enumerate its
// keys (WithLongRowLookup or WithMemoryLookup).
package globdex
