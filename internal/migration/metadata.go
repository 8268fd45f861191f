package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/yungbote/passage-migration/internal/platform/logger"
)

const (
	CacheTypeLesson   = "lesson_cache"
	MetadataSource    = "passage-migration"
	PassagesStructure = "passage-focused (individual passages with questions)"
)

type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type MetadataTables struct {
	Passages string `dynamodbav:"passages"`
	Topics   string `dynamodbav:"topics"`
}

type MetadataStructure struct {
	Passages string `dynamodbav:"passages"`
}

// CacheMetadata is the singleton freshness record keyed by cache_type.
type CacheMetadata struct {
	CacheType          string            `dynamodbav:"cache_type"`
	LastUpdated        int64             `dynamodbav:"lastUpdated"`
	Source             string            `dynamodbav:"source"`
	MigrationTimestamp int64             `dynamodbav:"migrationTimestamp"`
	Tables             MetadataTables    `dynamodbav:"tables"`
	Structure          MetadataStructure `dynamodbav:"structure"`
	RunID              string            `dynamodbav:"run_id,omitempty"`
	PassageCount       int               `dynamodbav:"passage_count"`
	TopicCount         int               `dynamodbav:"topic_count"`
}

type MetadataWriter struct {
	client PutItemAPI
	now    func() time.Time
	log    *logger.Logger
}

func NewMetadataWriter(client PutItemAPI, baseLog *logger.Logger) *MetadataWriter {
	return &MetadataWriter{
		client: client,
		now:    time.Now,
		log:    baseLog.With("component", "MetadataWriter"),
	}
}

// Record builds the metadata for a completed load.
func (w *MetadataWriter) Record(tables MetadataTables, runID string, passages, topics int) CacheMetadata {
	ms := w.now().UnixMilli()
	return CacheMetadata{
		CacheType:          CacheTypeLesson,
		LastUpdated:        ms,
		Source:             MetadataSource,
		MigrationTimestamp: ms,
		Tables:             tables,
		Structure:          MetadataStructure{Passages: PassagesStructure},
		RunID:              runID,
		PassageCount:       passages,
		TopicCount:         topics,
	}
}

// Write replaces the metadata record in table.
func (w *MetadataWriter) Write(ctx context.Context, table string, meta CacheMetadata) error {
	item, err := attributevalue.MarshalMap(meta)
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if _, err := w.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &table,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put cache metadata into %s: %w", table, err)
	}
	w.log.Info("Cache metadata written", "table", table, "last_updated", meta.LastUpdated)
	return nil
}
