package migration

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory BatchWriteAPI and PutItemAPI keyed like the real tables.
type fakeDynamo struct {
	mu sync.Mutex

	batchSizes []int
	items      map[string]map[string]map[string]ddbtypes.AttributeValue
	puts       []*dynamodb.PutItemInput

	// unprocessed items returned on each of the first unprocessedCalls calls.
	unprocessed      int
	unprocessedCalls int
	// failCall fails the n-th BatchWriteItem call (1-based) when non-zero.
	failCall int
	putErr   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]map[string]ddbtypes.AttributeValue{}}
}

func itemKey(item map[string]ddbtypes.AttributeValue) string {
	str := func(name string) string {
		switch v := item[name].(type) {
		case *ddbtypes.AttributeValueMemberS:
			return v.Value
		case *ddbtypes.AttributeValueMemberN:
			return v.Value
		default:
			return ""
		}
	}
	if _, ok := item["passage_id"]; ok {
		return str("lesson_id") + "/" + str("passage_id")
	}
	if _, ok := item["cache_type"]; ok {
		return str("cache_type")
	}
	return str("topic")
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.batchSizes) + 1
	total := 0
	for _, reqs := range in.RequestItems {
		total += len(reqs)
	}
	f.batchSizes = append(f.batchSizes, total)
	if f.failCall == call {
		return nil, errors.New("throughput exceeded")
	}

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]ddbtypes.WriteRequest{}}
	for table, reqs := range in.RequestItems {
		keep := reqs
		if f.unprocessedCalls > 0 && f.unprocessed > 0 {
			n := f.unprocessed
			if n > len(reqs) {
				n = len(reqs)
			}
			keep = reqs[:len(reqs)-n]
			out.UnprocessedItems[table] = reqs[len(reqs)-n:]
		}
		if f.items[table] == nil {
			f.items[table] = map[string]map[string]ddbtypes.AttributeValue{}
		}
		for _, r := range keep {
			f.items[table][itemKey(r.PutRequest.Item)] = r.PutRequest.Item
		}
	}
	if f.unprocessedCalls > 0 {
		f.unprocessedCalls--
	}
	return out, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	table := *in.TableName
	if f.items[table] == nil {
		f.items[table] = map[string]map[string]ddbtypes.AttributeValue{}
	}
	f.items[table][itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items[table])
}
