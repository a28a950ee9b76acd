package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable is an in-memory stand-in for the DynamoDB API. Scan pages hold
// pageSize items; the first BatchWriteItem call leaves its last request
// unprocessed when throttleOnce is set.
type fakeTable struct {
	mu           sync.Mutex
	items        map[string]map[string]types.AttributeValue
	pageSize     int
	throttleOnce bool
	batchCalls   int
	failGet      error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func keyOf(k map[string]types.AttributeValue) string {
	return k[fieldKey].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	item, ok := f.items[k]
	if !ok {
		item = map[string]types.AttributeValue{fieldKey: in.Key[fieldKey]}
		f.items[k] = item
	}
	for placeholder, attr := range in.ExpressionAttributeNames {
		item[attr] = in.ExpressionAttributeValues[":v"+strings.TrimPrefix(placeholder, "#f")]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeTable) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := keyOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after) + 1
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, map[string]types.AttributeValue{fieldKey: f.items[k][fieldKey]})
	}
	if end < len(keys) {
		out.LastEvaluatedKey = strKey(fieldKey, keys[end-1])
	}
	return out, nil
}

func (f *fakeTable) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	out := &dynamodb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		if f.throttleOnce && len(reqs) > 1 {
			f.throttleOnce = false
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-1:]}
			reqs = reqs[:len(reqs)-1]
		}
		for _, r := range reqs {
			delete(f.items, keyOf(r.DeleteRequest.Key))
		}
	}
	return out, nil
}

func TestKVStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	s := NewKVStore(table, "kv_store")
	s.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	_, found, err := s.Get(ctx, "usage_stats_u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "usage_stats_u1", `{"total":{"text":1,"image":0}}`))
	v, found, err := s.Get(ctx, "usage_stats_u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"total":{"text":1,"image":0}}`, v)

	updated := table.items["usage_stats_u1"][fieldUpdatedAt].(*types.AttributeValueMemberS)
	assert.Equal(t, "2024-03-15T10:00:00Z", updated.Value)

	require.NoError(t, s.Remove(ctx, "usage_stats_u1"))
	_, found, err = s.Get(ctx, "usage_stats_u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKVStore_GetWrapsClientError(t *testing.T) {
	boom := errors.New("throttled")
	table := newFakeTable()
	table.failGet = boom
	_, _, err := NewKVStore(table, "kv_store").Get(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
}

func TestKVStore_ClearPaginatesAndRetries(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	table.throttleOnce = true
	s := NewKVStore(table, "kv_store")

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Set(ctx, k, "v"))
	}
	require.NoError(t, s.Clear(ctx))

	assert.Empty(t, table.items)
	assert.Equal(t, 2, table.batchCalls)
}

func TestKVStore_ClearEmptyTable(t *testing.T) {
	table := newFakeTable()
	require.NoError(t, NewKVStore(table, "kv_store").Clear(context.Background()))
	assert.Zero(t, table.batchCalls)
}
