// Package awsx loads the aws-sdk-go-v2 configuration and builds service clients.
package awsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

// Clients holds the AWS clients of one run.
type Clients struct {
	Config   aws.Config
	DynamoDB *dynamodb.Client
	S3       *s3.Client
}

// LoadOptions returns the config loaders for cfg. A local DynamoDB endpoint without
// shared credentials gets static placeholder credentials.
func LoadOptions(cfg config.DynamoConfig, localCreds bool) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if p := strings.TrimSpace(cfg.Profile); p != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(p))
	}
	if localCreds {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return opts
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*Clients, error) {
	dyn := cfg.Dynamo
	local := strings.TrimSpace(dyn.Endpoint) != "" && strings.TrimSpace(dyn.Profile) == ""
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, LoadOptions(dyn, local)...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := strings.TrimSpace(dyn.Endpoint); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	})
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if r := strings.TrimSpace(cfg.ObjectStorage.Region); r != "" {
			o.Region = r
		}
	})

	log.Info("AWS clients ready",
		"region", awsCfg.Region,
		"profile", dyn.Profile,
		"dynamodb_endpoint", dyn.Endpoint,
	)
	return &Clients{Config: awsCfg, DynamoDB: ddb, S3: s3Client}, nil
}
