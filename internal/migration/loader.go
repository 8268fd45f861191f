package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gorm.io/datatypes"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

// MaxBatchSize is the BatchWriteItem per-request item limit.
const MaxBatchSize = 25

const (
	defaultWriteAttempts = 3
	defaultRetryDelay    = 200 * time.Millisecond
)

type BatchWriteAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// BatchWriteError reports the first failing batch of a write call. Batch is 1-based.
type BatchWriteError struct {
	Table string
	Batch int
	Items int
	Err   error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("write batch %d (%d items) to %s: %v", e.Batch, e.Items, e.Table, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }

type fieldKind int

const (
	// kindNumber is coerced to an integer N attribute; an empty string becomes 0.
	kindNumber fieldKind = iota
	// kindString is forced to an S attribute; empty strings are dropped.
	kindString
	// kindPassthrough is marshaled as is; empty strings are dropped.
	kindPassthrough
	// kindQuestions is a []QuestionDocument with its raw JSON columns decoded.
	kindQuestions
)

type fieldMapping struct {
	name  string
	kind  fieldKind
	value func(d *types.PassageDocument) any
}

// passageSchema is the complete field mapping of a passage item. Nil values are
// never written.
var passageSchema = []fieldMapping{
	{"lesson_id", kindNumber, func(d *types.PassageDocument) any { return d.LessonID }},
	{"lesson_title", kindString, func(d *types.PassageDocument) any { return d.LessonTitle }},
	{"lesson_description", kindPassthrough, func(d *types.PassageDocument) any { return d.LessonDescription }},
	{"lesson_topic", kindPassthrough, func(d *types.PassageDocument) any { return d.LessonTopic }},
	{"lesson_proficiency", kindPassthrough, func(d *types.PassageDocument) any { return d.LessonProficiency }},
	{"lesson_estimated_duration", kindPassthrough, func(d *types.PassageDocument) any { return d.LessonEstimatedDuration }},
	{"lesson_approval_status", kindPassthrough, func(d *types.PassageDocument) any { return d.LessonApprovalStatus }},
	{"passage_id", kindString, func(d *types.PassageDocument) any { return d.PassageID }},
	{"passage_title", kindString, func(d *types.PassageDocument) any { return d.PassageTitle }},
	{"passage_content", kindPassthrough, func(d *types.PassageDocument) any { return d.PassageContent }},
	{"passage_sort_order", kindPassthrough, func(d *types.PassageDocument) any { return d.PassageSortOrder }},
	{"passage_approval_status", kindPassthrough, func(d *types.PassageDocument) any { return d.PassageApprovalStatus }},
	{"passage_word_count", kindNumber, func(d *types.PassageDocument) any { return d.PassageWordCount }},
	{"passage_reading_level", kindPassthrough, func(d *types.PassageDocument) any { return d.PassageReadingLevel }},
	{"passage_source", kindPassthrough, func(d *types.PassageDocument) any { return d.PassageSource }},
	{"proficiency", kindString, func(d *types.PassageDocument) any { return d.Proficiency }},
	{"questions", kindQuestions, func(d *types.PassageDocument) any { return d.Questions }},
	{"question_count", kindNumber, func(d *types.PassageDocument) any { return d.QuestionCount }},
	{"total_points", kindNumber, func(d *types.PassageDocument) any { return d.TotalPoints }},
}

// PassageItem encodes a document through passageSchema.
func PassageItem(d *types.PassageDocument) (map[string]ddbtypes.AttributeValue, error) {
	item := make(map[string]ddbtypes.AttributeValue, len(passageSchema))
	for _, f := range passageSchema {
		v, ok := deref(f.value(d))
		if !ok {
			continue
		}
		av, keep, err := encodeField(f.kind, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		if keep {
			item[f.name] = av
		}
	}
	return item, nil
}

// deref unwraps typed pointers; ok is false for nil.
func deref(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *string:
		if t == nil {
			return nil, false
		}
		return *t, true
	case *int:
		if t == nil {
			return nil, false
		}
		return *t, true
	case *int64:
		if t == nil {
			return nil, false
		}
		return *t, true
	default:
		return v, true
	}
}

func encodeField(kind fieldKind, v any) (ddbtypes.AttributeValue, bool, error) {
	switch kind {
	case kindNumber:
		n, err := toInt(v)
		if err != nil {
			return nil, false, err
		}
		return &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}, true, nil
	case kindString:
		s := fmt.Sprint(v)
		if s == "" {
			return nil, false, nil
		}
		return &ddbtypes.AttributeValueMemberS{Value: s}, true, nil
	case kindQuestions:
		qs, ok := v.([]types.QuestionDocument)
		if !ok {
			return nil, false, fmt.Errorf("unsupported questions type %T", v)
		}
		items, err := questionItems(qs)
		if err != nil {
			return nil, false, err
		}
		av, err := attributevalue.Marshal(items)
		if err != nil {
			return nil, false, err
		}
		return av, true, nil
	default:
		if s, ok := v.(string); ok && s == "" {
			return nil, false, nil
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, false, err
		}
		return av, true, nil
	}
}

// questionItem is the stored shape of one question. Options and AcceptableAnswers
// carry whatever JSON the column held: lists, objects or mixed scalars.
type questionItem struct {
	QuestionID             int64   `dynamodbav:"question_id"`
	Question               string  `dynamodbav:"question"`
	Type                   string  `dynamodbav:"type"`
	Options                any     `dynamodbav:"options"`
	Correct                *int    `dynamodbav:"correct"`
	CorrectAnswer          *string `dynamodbav:"correctAnswer"`
	AcceptableAnswers      any     `dynamodbav:"acceptableAnswers"`
	WordLimit              *int    `dynamodbav:"wordLimit"`
	Placeholder            *string `dynamodbav:"placeholder"`
	SortOrder              int     `dynamodbav:"sort_order"`
	Points                 *int    `dynamodbav:"points"`
	QuestionApprovalStatus string  `dynamodbav:"question_approval_status"`
}

func questionItems(qs []types.QuestionDocument) ([]questionItem, error) {
	out := make([]questionItem, 0, len(qs))
	for _, q := range qs {
		opts, err := decodeRaw(q.Options)
		if err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.QuestionID, err)
		}
		answers, err := decodeRaw(q.AcceptableAnswers)
		if err != nil {
			return nil, fmt.Errorf("question %d acceptableAnswers: %w", q.QuestionID, err)
		}
		out = append(out, questionItem{
			QuestionID:             q.QuestionID,
			Question:               q.Question,
			Type:                   q.Type,
			Options:                opts,
			Correct:                q.Correct,
			CorrectAnswer:          q.CorrectAnswer,
			AcceptableAnswers:      answers,
			WordLimit:              q.WordLimit,
			Placeholder:            q.Placeholder,
			SortOrder:              q.SortOrder,
			Points:                 q.Points,
			QuestionApprovalStatus: q.QuestionApprovalStatus,
		})
	}
	return out, nil
}

// decodeRaw turns stored JSON into plain values; empty input and null are nil.
func decodeRaw(raw datatypes.JSON) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// WriteStats summarizes one write call.
type WriteStats struct {
	Items   int
	Batches int
	Skipped int
}

// BulkLoader writes items in sequential batches of at most MaxBatchSize.
type BulkLoader struct {
	client      BatchWriteAPI
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	log         *logger.Logger
}

func NewBulkLoader(client BatchWriteAPI, batchSize int, baseLog *logger.Logger) *BulkLoader {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &BulkLoader{
		client:      client,
		batchSize:   batchSize,
		maxAttempts: defaultWriteAttempts,
		retryDelay:  defaultRetryDelay,
		log:         baseLog.With("component", "BulkLoader"),
	}
}

func (l *BulkLoader) BatchSize() int { return l.batchSize }

// BatchCount is the number of batches a write of n items issues.
func (l *BulkLoader) BatchCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + l.batchSize - 1) / l.batchSize
}

// WritePassages encodes and writes documents. Documents that fail to encode are
// logged and skipped.
func (l *BulkLoader) WritePassages(ctx context.Context, table string, docs []types.PassageDocument) (WriteStats, error) {
	items := make([]map[string]ddbtypes.AttributeValue, 0, len(docs))
	skipped := 0
	for i := range docs {
		item, err := PassageItem(&docs[i])
		if err != nil {
			skipped++
			l.log.Warn("Skipping passage that cannot be encoded", "passage_id", docs[i].PassageID, "error", err)
			continue
		}
		items = append(items, item)
	}
	l.log.Info("Writing passages", "table", table, "passages", len(items))
	stats, err := l.writeItems(ctx, table, items)
	stats.Skipped = skipped
	if err != nil {
		return stats, err
	}
	l.log.Info("Passages written", "table", table, "passages", stats.Items, "batches", stats.Batches)
	return stats, nil
}

// WriteTopics writes one {topic} item per distinct non-empty trimmed topic. Blank
// and repeated topics count as skipped.
func (l *BulkLoader) WriteTopics(ctx context.Context, table string, topics []string) (WriteStats, error) {
	items := make([]map[string]ddbtypes.AttributeValue, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	skipped := 0
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			skipped++
			continue
		}
		if _, dup := seen[t]; dup {
			skipped++
			continue
		}
		seen[t] = struct{}{}
		items = append(items, map[string]ddbtypes.AttributeValue{
			"topic": &ddbtypes.AttributeValueMemberS{Value: t},
		})
	}
	if len(items) == 0 {
		l.log.Info("No valid topics to write", "table", table)
		return WriteStats{Skipped: skipped}, nil
	}
	stats, err := l.writeItems(ctx, table, items)
	stats.Skipped = skipped
	if err != nil {
		return stats, err
	}
	l.log.Info("Topics written", "table", table, "topics", stats.Items, "batches", stats.Batches)
	return stats, nil
}

func (l *BulkLoader) writeItems(ctx context.Context, table string, items []map[string]ddbtypes.AttributeValue) (WriteStats, error) {
	var stats WriteStats
	for start := 0; start < len(items); start += l.batchSize {
		end := start + l.batchSize
		if end > len(items) {
			end = len(items)
		}
		batchNo := start/l.batchSize + 1

		reqs := make([]ddbtypes.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			reqs = append(reqs, ddbtypes.WriteRequest{PutRequest: &ddbtypes.PutRequest{Item: item}})
		}
		if err := l.writeBatch(ctx, table, reqs); err != nil {
			l.log.Error("Batch write failed", "table", table, "batch", batchNo, "items", len(reqs), "error", err)
			return stats, &BatchWriteError{Table: table, Batch: batchNo, Items: len(reqs), Err: err}
		}
		stats.Batches++
		stats.Items += len(reqs)
		l.log.Debug("Batch written", "table", table, "batch", batchNo, "items", len(reqs))
	}
	return stats, nil
}

// writeBatch resubmits unprocessed items of the same batch up to maxAttempts.
func (l *BulkLoader) writeBatch(ctx context.Context, table string, reqs []ddbtypes.WriteRequest) error {
	pending := reqs
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		out, err := l.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]ddbtypes.WriteRequest{table: pending},
		})
		if err != nil {
			return err
		}
		if out == nil || len(out.UnprocessedItems[table]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems[table]
		if attempt == l.maxAttempts {
			break
		}
		l.log.Warn("Resubmitting unprocessed items", "table", table, "unprocessed", len(pending), "attempt", attempt)
		if err := sleepCtx(ctx, l.retryDelay*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%d items still unprocessed after %d attempts", len(pending), l.maxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
