// Package store defines the keyed columnar store that holds segment images and
// lookup rows, plus an in-memory implementation and composable wrappers.
//
// A cell is addressed by (row, column). Backends live in sub-packages:
//
//	store/bolt      embedded bbolt file, one bucket per row
//	store/dynamodb  one item per cell (partition key row, sort key column)
//	store/s3        one object per cell
//	store/minio     one object per cell on S3-compatible storage
//
// Wrappers stack on any Store:
//
//	st = store.Retrying(store.WithTimeout(store.Compressed(backend, store.CompressionZSTD), 2*time.Second))
package store
