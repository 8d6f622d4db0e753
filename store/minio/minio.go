package minio

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/hupe1980/globdex/store"
	"github.com/minio/minio-go/v7"
)

// Store implements store.Store on a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ store.Store = (*Store)(nil)

// NewStore creates a store. prefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *Store) rowPrefix(row []byte) string {
	return path.Join(s.prefix, hex.EncodeToString(row)) + "/"
}

func (s *Store) key(row, column []byte) string {
	return s.rowPrefix(row) + hex.EncodeToString(column)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NotFound":
		return store.ErrNotFound
	case resp.Code == "SlowDown" || resp.Code == "ServiceUnavailable" || resp.Code == "InternalError":
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}

// Put writes a cell.
func (s *Store) Put(ctx context.Context, row, column, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(row, column), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return translate(err)
}

// Get reads a cell.
func (s *Store) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	return s.get(ctx, s.key(row, column))
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

// Delete removes a cell.
func (s *Store) Delete(ctx context.Context, row, column []byte) error {
	err := translate(s.client.RemoveObject(ctx, s.bucket, s.key(row, column), minio.RemoveObjectOptions{}))
	if errors.Is(err, store.ErrNotFound) {
		return nil // Already gone
	}
	return err
}

// ScanColumns lists the row prefix and fetches each object.
func (s *Store) ScanColumns(ctx context.Context, row []byte, pageSize int, fn store.VisitFunc) error {
	prefix := s.rowPrefix(row)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine on early return

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: store.PageSize(pageSize),
	}) {
		if obj.Err != nil {
			return translate(obj.Err)
		}

		column, err := hex.DecodeString(strings.TrimPrefix(obj.Key, prefix))
		if err != nil {
			continue
		}

		value, err := s.get(ctx, obj.Key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if err := fn(row, column, value); err != nil {
			return store.Stop(err)
		}
	}
	return nil
}
