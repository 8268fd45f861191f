// Package objectstore defines the upload surface shared by the export backends.
package objectstore

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderS3          = "s3"
	ProviderGCS         = "gcs"
	ProviderGCSEmulator = "gcs_emulator"
)

// Object is one blob to upload.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
	PublicRead  bool
}

func (o Object) Validate() error {
	if strings.TrimSpace(o.Key) == "" {
		return fmt.Errorf("object key is required")
	}
	if strings.HasPrefix(o.Key, "/") {
		return fmt.Errorf("object key %q must be relative", o.Key)
	}
	return nil
}

// Uploader writes objects and returns a URL for the stored object.
type Uploader interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Bucket() string
}

func IsSupportedProvider(p string) bool {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case ProviderS3, ProviderGCS, ProviderGCSEmulator:
		return true
	default:
		return false
	}
}

// Memory is an in-process Uploader used by tests and dry runs.
type Memory struct {
	BucketName string
	Objects    map[string]Object
	Err        error
}

func NewMemory(bucket string) *Memory {
	return &Memory{BucketName: bucket, Objects: map[string]Object{}}
}

func (m *Memory) Upload(ctx context.Context, obj Object) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if err := obj.Validate(); err != nil {
		return "", err
	}
	m.Objects[obj.Key] = obj
	return fmt.Sprintf("mem://%s/%s", m.BucketName, obj.Key), nil
}

func (m *Memory) Bucket() string { return m.BucketName }
