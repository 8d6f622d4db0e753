package s3

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hupe1980/globdex/store"
)

// Client is the subset of the S3 API the store needs.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements store.Store on an S3 bucket.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ store.Store = (*Store)(nil)

type options struct {
	prefix  string
	awsOpts []func(*config.LoadOptions) error
}

// Option configures New.
type Option func(*options)

// WithPrefix sets the key prefix for all objects.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *options) { o.awsOpts = append(o.awsOpts, config.WithRegion(region)) }
}

// New creates a store using the default AWS configuration chain.
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfg, err := config.LoadDefaultConfig(ctx, o.awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, o.prefix), nil
}

// NewStore creates a store on bucket using client.
func NewStore(client Client, bucket, prefix string) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *Store) rowPrefix(row []byte) string {
	return path.Join(s.prefix, hex.EncodeToString(row)) + "/"
}

func (s *Store) key(row, column []byte) string {
	return s.rowPrefix(row) + hex.EncodeToString(column)
}

// translate maps S3 errors onto store errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return store.ErrNotFound
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return store.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return store.ErrNotFound
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
		}
	}
	return err
}

// Put uploads a cell.
func (s *Store) Put(ctx context.Context, row, column, value []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(row, column)),
		Body:   bytes.NewReader(value),
	})
	return translate(err)
}

// Get downloads a cell.
func (s *Store) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	return s.get(ctx, s.key(row, column))
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Delete removes a cell. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, row, column []byte) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(row, column)),
	})
	err = translate(err)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// ScanColumns lists the row prefix, pageSize keys per request, and fetches
// each object. A cell deleted between list and fetch is skipped.
func (s *Store) ScanColumns(ctx context.Context, row []byte, pageSize int, fn store.VisitFunc) error {
	prefix := s.rowPrefix(row)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(store.PageSize(pageSize))),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return translate(err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			column, err := hex.DecodeString(strings.TrimPrefix(key, prefix))
			if err != nil {
				// Not one of ours.
				continue
			}

			value, err := s.get(ctx, key)
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
	}
	return nil
}
