// Package destination provisions and inspects the DynamoDB tables the migration writes.
package destination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

const (
	ProficiencyIndex = "proficiency-index"
	defaultWait      = 2 * time.Minute
)

type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

type Tables struct {
	client  TableAPI
	maxWait time.Duration
	log     *logger.Logger
}

func New(client TableAPI, log *logger.Logger) *Tables {
	return &Tables{client: client, maxWait: defaultWait, log: log.With("service", "DestinationTables")}
}

// Definitions returns the create inputs for every migration table.
func Definitions(names config.TableNames) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName: aws.String(names.Passages),
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String("lesson_id"), KeyType: ddbtypes.KeyTypeHash},
				{AttributeName: aws.String("passage_id"), KeyType: ddbtypes.KeyTypeRange},
			},
			AttributeDefinitions: []ddbtypes.AttributeDefinition{
				{AttributeName: aws.String("lesson_id"), AttributeType: ddbtypes.ScalarAttributeTypeN},
				{AttributeName: aws.String("passage_id"), AttributeType: ddbtypes.ScalarAttributeTypeS},
				{AttributeName: aws.String("proficiency"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			},
			GlobalSecondaryIndexes: []ddbtypes.GlobalSecondaryIndex{
				{
					IndexName: aws.String(ProficiencyIndex),
					KeySchema: []ddbtypes.KeySchemaElement{
						{AttributeName: aws.String("proficiency"), KeyType: ddbtypes.KeyTypeHash},
					},
					Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
				},
			},
			BillingMode: ddbtypes.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(names.Topics),
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String("topic"), KeyType: ddbtypes.KeyTypeHash},
			},
			AttributeDefinitions: []ddbtypes.AttributeDefinition{
				{AttributeName: aws.String("topic"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			},
			BillingMode: ddbtypes.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(names.CacheMetadata),
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String("cache_type"), KeyType: ddbtypes.KeyTypeHash},
			},
			AttributeDefinitions: []ddbtypes.AttributeDefinition{
				{AttributeName: aws.String("cache_type"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			},
			BillingMode: ddbtypes.BillingModePayPerRequest,
		},
	}
}

// EnsureTables creates missing tables and waits until each one exists.
func (t *Tables) EnsureTables(ctx context.Context, names config.TableNames) error {
	waiter := dynamodb.NewTableExistsWaiter(t.client)
	for _, def := range Definitions(names) {
		name := aws.ToString(def.TableName)
		if _, err := t.client.CreateTable(ctx, def); err != nil {
			if !alreadyExists(err) {
				return fmt.Errorf("create table %s: %w", name, err)
			}
			t.log.Info("Table already exists", "table", name)
		} else {
			t.log.Info("Creating table", "table", name)
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: def.TableName}, t.maxWait); err != nil {
			return fmt.Errorf("wait for table %s: %w", name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var inUse *ddbtypes.ResourceInUseException
	if errors.As(err, &inUse) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceInUseException"
}
