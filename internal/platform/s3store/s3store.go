// Package s3store uploads export objects to an S3 bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/platform/objectstore"
)

type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client PutObjectAPI
	bucket string
	region string
	log    *logger.Logger
}

var _ objectstore.Uploader = (*Store)(nil)

func New(client PutObjectAPI, bucket, region string, log *logger.Logger) (*Store, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing S3 bucket name")
	}
	return &Store{client: client, bucket: bucket, region: region, log: log.With("service", "S3Store")}, nil
}

func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Upload(ctx context.Context, obj objectstore.Object) (string, error) {
	if err := obj.Validate(); err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if len(obj.Metadata) > 0 {
		in.Metadata = obj.Metadata
	}
	if obj.PublicRead {
		in.ACL = s3types.ObjectCannedACLPublicRead
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, obj.Key, err)
	}
	u := s.PublicURL(obj.Key)
	s.log.Info("Export uploaded", "bucket", s.bucket, "key", obj.Key, "bytes", len(obj.Body), "url", u)
	return u, nil
}

func (s *Store) PublicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.region == "" || s.region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
