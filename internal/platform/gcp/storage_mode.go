package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/passage-migration/internal/platform/objectstore"
)

// StorageMode selects real GCS or a fake-gcs emulator for the export bucket.
type StorageMode string

const (
	StorageModeGCS      StorageMode = objectstore.ProviderGCS
	StorageModeEmulator StorageMode = objectstore.ProviderGCSEmulator
)

type StorageConfig struct {
	Mode         StorageMode
	EmulatorHost string
}

func (cfg StorageConfig) IsEmulator() bool { return cfg.Mode == StorageModeEmulator }

type StorageConfigErrorCode string

const (
	StorageConfigErrorInvalidMode         StorageConfigErrorCode = "invalid_mode"
	StorageConfigErrorMissingEmulatorHost StorageConfigErrorCode = "missing_emulator_host"
	StorageConfigErrorInvalidEmulatorHost StorageConfigErrorCode = "invalid_emulator_host"
)

type StorageConfigError struct {
	Code         StorageConfigErrorCode
	Provider     string
	EmulatorHost string
	Cause        error
}

func (e *StorageConfigError) Error() string {
	if e == nil {
		return "invalid gcs export config"
	}
	switch e.Code {
	case StorageConfigErrorInvalidMode:
		return fmt.Sprintf("export provider %q is not served by GCS (want %q or %q)", e.Provider, StorageModeGCS, StorageModeEmulator)
	case StorageConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("export provider %q requires STORAGE_EMULATOR_HOST", StorageModeEmulator)
	case StorageConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected an absolute URL like http://fake-gcs:4443", e.EmulatorHost)
	default:
		return "invalid gcs export config"
	}
}

func (e *StorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ModeForProvider maps an objectstore provider name onto a GCS mode. ok is false
// for providers GCS does not serve, s3 included.
func ModeForProvider(provider string) (StorageMode, bool) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case objectstore.ProviderGCS:
		return StorageModeGCS, true
	case objectstore.ProviderGCSEmulator:
		return StorageModeEmulator, true
	default:
		return "", false
	}
}

// StorageConfigFor builds a validated config for a GCS-backed export provider.
func StorageConfigFor(provider, emulatorHost string) (StorageConfig, error) {
	mode, ok := ModeForProvider(provider)
	if !ok {
		return StorageConfig{}, &StorageConfigError{Code: StorageConfigErrorInvalidMode, Provider: provider}
	}
	cfg := StorageConfig{Mode: mode, EmulatorHost: strings.TrimSpace(emulatorHost)}
	if err := cfg.Validate(); err != nil {
		return StorageConfig{}, err
	}
	return cfg, nil
}

// Validate checks the emulator host in emulator mode; real GCS ignores it.
func (cfg StorageConfig) Validate() error {
	switch cfg.Mode {
	case StorageModeGCS:
		return nil
	case StorageModeEmulator:
	default:
		return &StorageConfigError{Code: StorageConfigErrorInvalidMode, Provider: string(cfg.Mode)}
	}
	if cfg.EmulatorHost == "" {
		return &StorageConfigError{Code: StorageConfigErrorMissingEmulatorHost, Provider: string(cfg.Mode)}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &StorageConfigError{
			Code:         StorageConfigErrorInvalidEmulatorHost,
			Provider:     string(cfg.Mode),
			EmulatorHost: cfg.EmulatorHost,
			Cause:        err,
		}
	}
	return nil
}
