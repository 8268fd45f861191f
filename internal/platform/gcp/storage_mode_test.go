package gcp

import (
	"errors"
	"testing"

	"github.com/yungbote/passage-migration/internal/platform/objectstore"
)

func TestModeForProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     StorageMode
		ok       bool
	}{
		{objectstore.ProviderGCS, StorageModeGCS, true},
		{" GCS_Emulator ", StorageModeEmulator, true},
		{objectstore.ProviderS3, "", false},
		{"", "", false},
		{"azure", "", false},
	}
	for _, tc := range cases {
		got, ok := ModeForProvider(tc.provider)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ModeForProvider(%q): want=%q/%v got=%q/%v", tc.provider, tc.want, tc.ok, got, ok)
		}
	}
}

func configErrCode(t *testing.T, err error) StorageConfigErrorCode {
	t.Helper()
	var cfgErr *StorageConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *StorageConfigError, got %T (%v)", err, err)
	}
	return cfgErr.Code
}

func TestStorageConfigForGCSIgnoresEmulatorHost(t *testing.T) {
	cfg, err := StorageConfigFor("gcs", "not-a-url")
	if err != nil {
		t.Fatalf("StorageConfigFor: %v", err)
	}
	if cfg.Mode != StorageModeGCS || cfg.IsEmulator() {
		t.Fatalf("mode: want=%q got=%q", StorageModeGCS, cfg.Mode)
	}
}

func TestStorageConfigForEmulator(t *testing.T) {
	cfg, err := StorageConfigFor("gcs_emulator", " http://fake-gcs:4443 ")
	if err != nil {
		t.Fatalf("StorageConfigFor: %v", err)
	}
	if !cfg.IsEmulator() || cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("config: got=%+v", cfg)
	}
}

func TestStorageConfigForRejectsNonGCSProviders(t *testing.T) {
	for _, p := range []string{"", "s3", "local"} {
		_, err := StorageConfigFor(p, "http://fake-gcs:4443")
		if got := configErrCode(t, err); got != StorageConfigErrorInvalidMode {
			t.Fatalf("StorageConfigFor(%q): want=%q got=%q", p, StorageConfigErrorInvalidMode, got)
		}
	}
}

func TestStorageConfigForEmulatorHostErrors(t *testing.T) {
	_, err := StorageConfigFor("gcs_emulator", "")
	if got := configErrCode(t, err); got != StorageConfigErrorMissingEmulatorHost {
		t.Fatalf("missing host: want=%q got=%q", StorageConfigErrorMissingEmulatorHost, got)
	}
	_, err = StorageConfigFor("gcs_emulator", "fake-gcs:4443")
	if got := configErrCode(t, err); got != StorageConfigErrorInvalidEmulatorHost {
		t.Fatalf("invalid host: want=%q got=%q", StorageConfigErrorInvalidEmulatorHost, got)
	}
}

func TestStorageConfigValidateUnknownMode(t *testing.T) {
	err := StorageConfig{Mode: StorageMode("s3")}.Validate()
	if got := configErrCode(t, err); got != StorageConfigErrorInvalidMode {
		t.Fatalf("Validate: want=%q got=%q", StorageConfigErrorInvalidMode, got)
	}
}
