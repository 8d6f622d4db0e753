package dynamodb

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/globdex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is an in-memory DynamoDB table keyed by (row, col).
type mockClient struct {
	mu       sync.RWMutex
	items    map[string]map[string]types.AttributeValue
	queries  int
	throttle bool
}

func newMockClient() *mockClient {
	return &mockClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(k map[string]types.AttributeValue) string {
	row := k[attrRow].(*types.AttributeValueMemberB).Value
	col := k[attrCol].(*types.AttributeValueMemberB).Value
	return string(row) + "\x00" + string(col)
}

func (m *mockClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.throttle {
		return nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	}
	m.items[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(params.Key)]}, nil
}

func (m *mockClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	row := params.ExpressionAttributeValues[":row"].(*types.AttributeValueMemberB).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if bytes.Equal(item[attrRow].(*types.AttributeValueMemberB).Value, row) {
			items = append(items, item)
		}
	}
	col := func(item map[string]types.AttributeValue) []byte {
		return item[attrCol].(*types.AttributeValueMemberB).Value
	}
	sort.Slice(items, func(i, j int) bool { return bytes.Compare(col(items[i]), col(items[j])) < 0 })

	if params.ExclusiveStartKey != nil {
		after := col(params.ExclusiveStartKey)
		i := sort.Search(len(items), func(i int) bool { return bytes.Compare(col(items[i]), after) > 0 })
		items = items[i:]
	}

	out := &dynamodb.QueryOutput{Items: items}
	if limit := int(*params.Limit); limit < len(items) {
		out.Items = items[:limit]
		last := out.Items[limit-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{attrRow: last[attrRow], attrCol: last[attrCol]}
	}
	return out, nil
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMockClient(), "globdex")

	_, err := s.Get(ctx, []byte("r"), []byte{1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, []byte("r"), []byte{1}, []byte("img")))
	got, err := s.Get(ctx, []byte("r"), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), got)

	require.NoError(t, s.Delete(ctx, []byte("r"), []byte{1}))
	_, err = s.Get(ctx, []byte("r"), []byte{1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ScanColumnsPaginates(t *testing.T) {
	ctx := context.Background()
	client := newMockClient()
	s := NewStore(client, "globdex")

	for i := range 7 {
		require.NoError(t, s.Put(ctx, []byte("r"), []byte{byte(6 - i)}, []byte{byte(6 - i)}))
	}
	require.NoError(t, s.Put(ctx, []byte("q"), []byte{0}, []byte{0xff}))

	var seen []byte
	require.NoError(t, s.ScanColumns(ctx, []byte("r"), 3, func(_, col, val []byte) error {
		assert.Equal(t, col, val)
		seen = append(seen, val[0])
		return nil
	}))
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6}, seen)
	assert.Equal(t, 3, client.queries)
}

func TestStore_Throttling(t *testing.T) {
	client := newMockClient()
	client.throttle = true
	s := NewStore(client, "globdex")

	err := s.Put(context.Background(), []byte("r"), []byte{1}, nil)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.True(t, store.Retryable(err))

	var throughput *types.ProvisionedThroughputExceededException
	assert.True(t, errors.As(err, &throughput))
}

func TestStore_CorruptItem(t *testing.T) {
	client := newMockClient()
	client.items["r\x00\x01"] = map[string]types.AttributeValue{
		attrRow: &types.AttributeValueMemberB{Value: []byte("r")},
		attrCol: &types.AttributeValueMemberB{Value: []byte{1}},
	}

	_, err := NewStore(client, "t").Get(context.Background(), []byte("r"), []byte{1})
	assert.ErrorIs(t, err, store.ErrCorrupt)
}
