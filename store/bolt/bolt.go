// Package bolt stores cells in an embedded bbolt database: one bucket per row,
// one key per column.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/globdex/store"
	bbolt "go.etcd.io/bbolt"
)

// Store implements store.Store on a bbolt file.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s is locked", store.ErrUnavailable, path)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// bucketName prefixes rows so an empty row still names a valid bucket.
func bucketName(row []byte) []byte {
	return append([]byte{'r'}, row...)
}

// Put writes a cell.
func (s *Store) Put(ctx context.Context, row, column, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(row))
		if err != nil {
			return err
		}
		return b.Put(column, value)
	})
}

// Get returns a cell.
func (s *Store) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(row))
		if b == nil {
			return store.ErrNotFound
		}
		v := b.Get(column)
		if v == nil {
			return store.ErrNotFound
		}
		// Values are only valid inside the transaction.
		out = bytes.Clone(v)
		if out == nil {
			out = []byte{}
		}
		return nil
	})
	return out, err
}

// Delete removes a cell.
func (s *Store) Delete(ctx context.Context, row, column []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(row))
		if b == nil {
			return nil
		}
		return b.Delete(column)
	})
}

// ScanColumns walks the row's bucket in key order. Each page is read in its
// own read transaction, so a long scan does not pin old pages.
func (s *Store) ScanColumns(ctx context.Context, row []byte, pageSize int, fn store.VisitFunc) error {
	pageSize = store.PageSize(pageSize)
	name := bucketName(row)

	var after []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		type cell struct{ k, v []byte }
		page := make([]cell, 0, pageSize)

		err := s.db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket(name)
			if b == nil {
				return nil
			}
			c := b.Cursor()
			k, v := c.First()
			if after != nil {
				k, v = c.Seek(after)
				if k != nil && bytes.Equal(k, after) {
					k, v = c.Next()
				}
			}
			for ; k != nil && len(page) < pageSize; k, v = c.Next() {
				page = append(page, cell{bytes.Clone(k), bytes.Clone(v)})
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, c := range page {
			if err := fn(row, c.k, c.v); err != nil {
				return store.Stop(err)
			}
		}
		if len(page) < pageSize {
			return nil
		}
		after = page[len(page)-1].k
	}
}
