// Package dynamodb stores cells as DynamoDB items.
//
// Table schema:
//   - Partition key: row (binary)
//   - Sort key: col (binary) - binary sort keys order by unsigned bytes, so
//     segment columns scan in ascending segment order
//   - Attribute: val (binary)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name globdex \
//	  --attribute-definitions AttributeName=row,AttributeType=B AttributeName=col,AttributeType=B \
//	  --key-schema AttributeName=row,KeyType=HASH AttributeName=col,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/globdex/store"
)

const (
	attrRow = "row"
	attrCol = "col"
	attrVal = "val"
)

// Client is the subset of the DynamoDB API the store needs.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store implements store.Store on a DynamoDB table.
type Store struct {
	client Client
	table  string
}

var _ store.Store = (*Store)(nil)

// NewStore creates a store on table using client.
func NewStore(client Client, table string) *Store {
	return &Store{client: client, table: table}
}

// New creates a store using the default AWS configuration chain.
func New(ctx context.Context, table string, optFns ...func(*config.LoadOptions) error) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(dynamodb.NewFromConfig(cfg), table), nil
}

func key(row, column []byte) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrRow: &types.AttributeValueMemberB{Value: row},
		attrCol: &types.AttributeValueMemberB{Value: column},
	}
}

// translate maps throttling and server errors to store.ErrUnavailable.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}

// Put writes a cell.
func (s *Store) Put(ctx context.Context, row, column, value []byte) error {
	item := key(row, column)
	item[attrVal] = &types.AttributeValueMemberB{Value: value}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return translate(err)
}

// Get reads a cell with a strongly consistent read.
func (s *Store) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(row, column),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, translate(err)
	}
	if len(resp.Item) == 0 {
		return nil, store.ErrNotFound
	}
	return value(resp.Item)
}

func value(item map[string]types.AttributeValue) ([]byte, error) {
	v, ok := item[attrVal].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q attribute", store.ErrCorrupt, attrVal)
	}
	return v.Value, nil
}

// Delete removes a cell.
func (s *Store) Delete(ctx context.Context, row, column []byte) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(row, column),
	})
	return translate(err)
}

// ScanColumns queries the row's partition, pageSize items per request.
func (s *Store) ScanColumns(ctx context.Context, row []byte, pageSize int, fn store.VisitFunc) error {
	var start map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#r = :row"),
			ExpressionAttributeNames: map[string]string{
				"#r": attrRow,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":row": &types.AttributeValueMemberB{Value: row},
			},
			ConsistentRead:    aws.Bool(true),
			Limit:             aws.Int32(int32(store.PageSize(pageSize))),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return translate(err)
		}

		for _, item := range resp.Items {
			col, ok := item[attrCol].(*types.AttributeValueMemberB)
			if !ok {
				return fmt.Errorf("%w: missing %q attribute", store.ErrCorrupt, attrCol)
			}
			v, err := value(item)
			if err != nil {
				return err
			}
			if err := fn(row, col.Value, v); err != nil {
				return store.Stop(err)
			}
		}

		if len(resp.LastEvaluatedKey) == 0 {
			return nil
		}
		start = resp.LastEvaluatedKey
	}
}
