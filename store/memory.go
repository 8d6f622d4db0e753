package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// MemoryStore is an in-memory Store for tests and single-process use.
// Cells live in an immutable radix tree keyed by uvarint(len(row)) ++ row ++
// column, so a row's columns are one ordered prefix walk. Readers work on a
// snapshot of the tree and never block writers.
type MemoryStore struct {
	mu   sync.Mutex // serializes writers
	tree atomic.Pointer[iradix.Tree]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	m.tree.Store(iradix.New())
	return m
}

func rowPrefix(row []byte) []byte {
	p := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(row)), uint64(len(row)))
	return append(p, row...)
}

func cellKey(row, column []byte) []byte {
	return append(rowPrefix(row), column...)
}

// Put writes a cell. The value is copied.
func (m *MemoryStore) Put(ctx context.Context, row, column, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tree, _, _ := m.tree.Load().Insert(cellKey(row, column), bytes.Clone(value))
	m.tree.Store(tree)
	return nil
}

// Get returns a copy of a cell.
func (m *MemoryStore) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, ok := m.tree.Load().Get(cellKey(row, column))
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

// Delete removes a cell.
func (m *MemoryStore) Delete(ctx context.Context, row, column []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tree, _, ok := m.tree.Load().Delete(cellKey(row, column))
	if ok {
		m.tree.Store(tree)
	}
	return nil
}

// ScanColumns walks a consistent snapshot of the row. The page size only
// bounds how often ctx is checked.
func (m *MemoryStore) ScanColumns(ctx context.Context, row []byte, pageSize int, fn VisitFunc) error {
	prefix := rowPrefix(row)
	pageSize = PageSize(pageSize)

	var (
		err error
		n   int
	)
	m.tree.Load().Root().WalkPrefix(prefix, func(k []byte, v interface{}) bool {
		if n%pageSize == 0 {
			if err = ctx.Err(); err != nil {
				return true
			}
		}
		n++
		err = fn(row, k[len(prefix):], v.([]byte))
		return err != nil
	})
	return Stop(err)
}

// Len returns the number of cells.
func (m *MemoryStore) Len() int {
	return m.tree.Load().Len()
}
