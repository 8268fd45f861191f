package destination

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type TableSummary struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	ItemCount int64     `json:"item_count"`
	SizeBytes int64     `json:"size_bytes"`
	ARN       string    `json:"arn"`
	CreatedAt time.Time `json:"created_at"`
	KeySchema []string  `json:"key_schema"`
	Indexes   []string  `json:"indexes,omitempty"`
}

// Summarize describes every table whose name starts with prefix; empty matches all.
func (t *Tables) Summarize(ctx context.Context, prefix string) ([]TableSummary, error) {
	var names []string
	p := dynamodb.NewListTablesPaginator(t.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		for _, n := range page.TableNames {
			if strings.HasPrefix(n, prefix) {
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)

	out := make([]TableSummary, 0, len(names))
	for _, n := range names {
		desc, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(n)})
		if err != nil {
			return nil, fmt.Errorf("describe table %s: %w", n, err)
		}
		td := desc.Table
		if td == nil {
			continue
		}
		s := TableSummary{
			Name:      n,
			Status:    string(td.TableStatus),
			ItemCount: aws.ToInt64(td.ItemCount),
			SizeBytes: aws.ToInt64(td.TableSizeBytes),
			ARN:       aws.ToString(td.TableArn),
			CreatedAt: aws.ToTime(td.CreationDateTime),
		}
		for _, k := range td.KeySchema {
			s.KeySchema = append(s.KeySchema, fmt.Sprintf("%s (%s)", aws.ToString(k.AttributeName), k.KeyType))
		}
		for _, gsi := range td.GlobalSecondaryIndexes {
			s.Indexes = append(s.Indexes, aws.ToString(gsi.IndexName))
		}
		out = append(out, s)
	}
	t.log.Info("Tables summarized", "tables", len(out), "prefix", prefix)
	return out, nil
}
