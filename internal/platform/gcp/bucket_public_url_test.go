package gcp

import (
	"strings"
	"testing"
)

func TestResolvePublicBaseURLGCSDefault(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolvePublicBaseURL(StorageConfig{
		Mode: StorageModeGCS,
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "" {
		t.Fatalf("baseURL: want empty got=%q", baseURL)
	}
	if source != "gcs_default" {
		t.Fatalf("source: want=%q got=%q", "gcs_default", source)
	}
}

func TestResolvePublicBaseURLEmulatorFallback(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolvePublicBaseURL(StorageConfig{
		Mode:         StorageModeEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "http://fake-gcs:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://fake-gcs:4443", baseURL)
	}
	if source != "storage_emulator_host" {
		t.Fatalf("source: want=%q got=%q", "storage_emulator_host", source)
	}
}

func TestResolvePublicBaseURLEnvOverride(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")

	baseURL, source, err := resolvePublicBaseURL(StorageConfig{
		Mode:         StorageModeEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "http://localhost:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://localhost:4443", baseURL)
	}
	if source != "object_storage_public_base_url" {
		t.Fatalf("source: want=%q got=%q", "object_storage_public_base_url", source)
	}
}

func TestResolvePublicBaseURLInvalidEnv(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")

	_, _, err := resolvePublicBaseURL(StorageConfig{
		Mode:         StorageModeEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err == nil {
		t.Fatalf("resolvePublicBaseURL: expected error, got nil")
	}
}

func TestPublicURLGCSDefault(t *testing.T) {
	b := &ExportBucket{bucket: "pi-app-data"}

	got := b.PublicURL("passage-migration-dev.json")
	want := "https://storage.googleapis.com/pi-app-data/passage-migration-dev.json"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesPublicBaseURL(t *testing.T) {
	b := &ExportBucket{
		publicBaseURL: "http://localhost:4443",
		bucket:        "pi-app-data",
	}

	got := b.PublicURL("/exports/prompts.dev.yaml")
	want := "http://localhost:4443/pi-app-data/exports/prompts.dev.yaml"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	b := &ExportBucket{
		storageMode:   StorageModeEmulator,
		publicBaseURL: "http://localhost:4443",
		bucket:        "pi-app-data",
	}

	got := b.PublicURL("exports/dev/prompts.dev.yaml")
	want := "http://localhost:4443/storage/v1/b/pi-app-data/o/exports%2Fdev%2Fprompts.dev.yaml?alt=media"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesEmulatorHostWhenPublicBaseMissing(t *testing.T) {
	b := &ExportBucket{
		storageMode:  StorageModeEmulator,
		emulatorHost: "http://fake-gcs:4443",
		bucket:       "pi-app-data",
	}

	got := b.PublicURL("/passage-migration-prod.json")
	want := "http://fake-gcs:4443/storage/v1/b/pi-app-data/o/passage-migration-prod.json?alt=media"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	for key, want := range map[string]string{
		"passage-migration-dev.json": "application/json",
		"prompts.prod.yaml":          "application/x-yaml",
		"notes.yml":                  "application/x-yaml",
		"readme.txt":                 "text/plain; charset=utf-8",
		"blob":                       "application/octet-stream",
	} {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("contentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
	if !strings.HasPrefix(contentTypeForKey("X.JSON"), "application/json") {
		t.Fatalf("contentTypeForKey should ignore case")
	}
}
