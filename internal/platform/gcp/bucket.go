package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/platform/objectstore"
)

const uploadTimeout = 2 * time.Minute

// ExportBucket uploads export objects to one GCS bucket.
type ExportBucket struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   StorageMode
	emulatorHost  string
	bucket        string
	publicBaseURL string
}

var _ objectstore.Uploader = (*ExportBucket)(nil)

func NewExportBucket(ctx context.Context, log *logger.Logger, storageCfg StorageConfig, bucket string) (*ExportBucket, error) {
	if err := storageCfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing export bucket name")
	}
	serviceLog := log.With("service", "ExportBucket")

	publicBaseURL, publicBaseSource, err := resolvePublicBaseURL(storageCfg)
	if err != nil {
		return nil, err
	}

	stClient, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
		"public_base_source", publicBaseSource,
		"public_base_url", publicBaseURL,
		"bucket", bucket,
	)

	return &ExportBucket{
		log:           serviceLog,
		storageClient: stClient,
		storageMode:   storageCfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg StorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case StorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case StorageModeEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &StorageConfigError{
			Code:     StorageConfigErrorInvalidMode,
			Provider: string(storageCfg.Mode),
		}
	}
}

func resolvePublicBaseURL(storageCfg StorageConfig) (baseURL string, source string, err error) {
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL"))
	if raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return "", "", fmt.Errorf(
				"invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443",
				raw,
			)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}

	if storageCfg.IsEmulator() {
		return strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"), "storage_emulator_host", nil
	}

	return "", "gcs_default", nil
}

func (b *ExportBucket) Bucket() string { return b.bucket }

// Upload writes obj with its content type and metadata. Public objects get the
// publicRead predefined ACL, which the emulator does not enforce.
func (b *ExportBucket) Upload(ctx context.Context, obj objectstore.Object) (string, error) {
	if err := obj.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := b.storageClient.Bucket(b.bucket).Object(obj.Key).NewWriter(ctx)
	w.ContentType = obj.ContentType
	if w.ContentType == "" {
		w.ContentType = contentTypeForKey(obj.Key)
	}
	if len(obj.Metadata) > 0 {
		w.Metadata = obj.Metadata
	}
	if obj.PublicRead && b.storageMode != StorageModeEmulator {
		w.PredefinedACL = "publicRead"
	}
	if _, err := io.Copy(w, bytes.NewReader(obj.Body)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	u := b.PublicURL(obj.Key)
	b.log.Info("Export uploaded", "bucket", b.bucket, "key", obj.Key, "bytes", len(obj.Body), "url", u)
	return u, nil
}

func contentTypeForKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(k, ".json"):
		return "application/json"
	case strings.HasSuffix(k, ".yaml"), strings.HasSuffix(k, ".yml"):
		return "application/x-yaml"
	case strings.HasSuffix(k, ".txt"):
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func (b *ExportBucket) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.storageMode == StorageModeEmulator {
		if u := b.publicEmulatorObjectMediaURL(key); u != "" {
			return u
		}
	}
	if b.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", b.publicBaseURL, b.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, key)
}

func (b *ExportBucket) publicEmulatorObjectMediaURL(key string) string {
	base := strings.TrimRight(strings.TrimSpace(b.publicBaseURL), "/")
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(b.emulatorHost), "/")
	}
	if base == "" {
		return ""
	}
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		base,
		url.PathEscape(b.bucket),
		url.PathEscape(key),
	)
}

func (b *ExportBucket) Close() error {
	if b == nil || b.storageClient == nil {
		return nil
	}
	return b.storageClient.Close()
}
