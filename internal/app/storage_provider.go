package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/gcp"
	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/platform/objectstore"
	"github.com/yungbote/passage-migration/internal/platform/s3store"
)

var newExportBucket = gcp.NewExportBucket

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Provider     string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s provider=%q emulator_host=%q): %v",
		e.Code,
		e.Provider,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveUploader selects the export backend named by cfg.Provider. The returned
// close func is nil for backends without resources to release.
func resolveUploader(ctx context.Context, log *logger.Logger, cfg config.ObjectStorageConfig, s3Client s3store.PutObjectAPI) (objectstore.Uploader, func() error, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = objectstore.ProviderS3
	}
	fail := func(code StorageProviderBootstrapErrorCode, cause error) error {
		err := &StorageProviderBootstrapError{
			Code:         code,
			Provider:     provider,
			EmulatorHost: cfg.EmulatorHost,
			Cause:        cause,
		}
		log.Error(
			"Object storage provider bootstrap failed",
			"provider", provider,
			"emulator_host", cfg.EmulatorHost,
			"error_code", err.Code,
			"error", err,
		)
		return err
	}

	if !objectstore.IsSupportedProvider(provider) {
		return nil, nil, fail(StorageProviderBootstrapErrorInvalidMode, fmt.Errorf("unsupported object storage provider %q", provider))
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, nil, fail(StorageProviderBootstrapErrorMissingBucket, errors.New("missing export bucket name"))
	}

	log.Info(
		"Selecting object storage provider",
		"provider", provider,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
		"public_read", cfg.PublicRead,
	)

	mode, onGCS := gcp.ModeForProvider(provider)
	if !onGCS {
		if s3Client == nil {
			return nil, nil, fail(StorageProviderBootstrapErrorConnectFailed, errors.New("missing S3 client"))
		}
		st, err := s3store.New(s3Client, cfg.Bucket, cfg.Region, log)
		if err != nil {
			return nil, nil, fail(StorageProviderBootstrapErrorConnectFailed, err)
		}
		return st, nil, nil
	}

	storageCfg, err := gcp.StorageConfigFor(string(mode), cfg.EmulatorHost)
	if err != nil {
		return nil, nil, classifyStorageProviderBootstrapError(log, provider, cfg.EmulatorHost, err)
	}
	bucket, err := newExportBucket(ctx, log, storageCfg, cfg.Bucket)
	if err != nil {
		return nil, nil, classifyStorageProviderBootstrapError(log, provider, cfg.EmulatorHost, err)
	}
	return bucket, bucket.Close, nil
}

func classifyStorageProviderBootstrapError(log *logger.Logger, provider, emulatorHost string, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.StorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.StorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.StorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	out := &StorageProviderBootstrapError{
		Code:         code,
		Provider:     provider,
		EmulatorHost: emulatorHost,
		Cause:        err,
	}
	if log != nil {
		log.Error(
			"Object storage provider bootstrap failed",
			"provider", provider,
			"emulator_host", emulatorHost,
			"error_code", out.Code,
			"error", out,
		)
	}
	return out
}

var _ s3store.PutObjectAPI = (*s3.Client)(nil)
