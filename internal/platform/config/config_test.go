package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("PG_CREDENTIALS_FILE", filepath.Join(dir, "missing-credentials"))
	for _, k := range []string{
		"PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DATABASE", "PG_SCHEMA", "PG_SSLMODE",
		"AWS_REGION", "AWS_PROFILE", "DYNAMODB_ENDPOINT", "PASSAGES_TABLE", "TOPICS_TABLE",
		"CACHE_METADATA_TABLE", "OBJECT_STORAGE_PROVIDER", "S3_BUCKET", "EXPORT_GCS_BUCKET_NAME",
		"PASSAGE_ROW_CAP", "BATCH_SIZE", "QUESTION_FETCH_CONCURRENCY", "PG_AWS_PROFILE",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func setCreds(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "db.local")
	t.Setenv("PG_USER", "migrator")
	t.Setenv("PG_PASSWORD", "s3cr3t")
}

func TestParseEnvironment(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want Environment
		ok   bool
	}{
		{"dev", EnvironmentDev, true},
		{" PROD ", EnvironmentProd, true},
		{"staging", "", false},
		{"", "", false},
	} {
		got, err := ParseEnvironment(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseEnvironment(%q): want=%q got=%q err=%v", tc.raw, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidEnvironment) {
			t.Fatalf("ParseEnvironment(%q): expected ErrInvalidEnvironment, got %v", tc.raw, err)
		}
	}
}

func TestLoadDefaultsPerEnvironment(t *testing.T) {
	isolate(t)
	setCreds(t)

	dev, err := Load(EnvironmentDev, nil)
	if err != nil {
		t.Fatalf("Load dev: %v", err)
	}
	if dev.Postgres.Database != "genaicoe_postgresql" || dev.Dynamo.Region != "us-east-1" {
		t.Fatalf("dev: got database=%q region=%q", dev.Postgres.Database, dev.Dynamo.Region)
	}
	if dev.Postgres.Port != 5432 || dev.Postgres.Schema != DefaultSchema {
		t.Fatalf("dev: got port=%d schema=%q", dev.Postgres.Port, dev.Postgres.Schema)
	}
	if dev.Migration.RowCap != DefaultRowCap || dev.Migration.BatchSize != MaxBatchSize {
		t.Fatalf("dev: got row_cap=%d batch=%d", dev.Migration.RowCap, dev.Migration.BatchSize)
	}
	if dev.Dynamo.Tables.Passages != "pni-passages" || dev.Dynamo.Tables.Topics != "pni-topics" || dev.Dynamo.Tables.CacheMetadata != "pni-cache-metadata" {
		t.Fatalf("dev: unexpected tables %+v", dev.Dynamo.Tables)
	}

	prod, err := Load(EnvironmentProd, nil)
	if err != nil {
		t.Fatalf("Load prod: %v", err)
	}
	if prod.Postgres.Database != "prod" || prod.Dynamo.Region != "eu-west-1" {
		t.Fatalf("prod: got database=%q region=%q", prod.Postgres.Database, prod.Dynamo.Region)
	}
}

func TestLoadMissingCredential(t *testing.T) {
	isolate(t)
	t.Setenv("PG_HOST", "db.local")
	t.Setenv("PG_USER", "migrator")

	_, err := Load(EnvironmentDev, nil)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Load: expected ErrMissingCredential, got %v", err)
	}
	if !strings.Contains(err.Error(), "PG_PASSWORD") {
		t.Fatalf("Load: error should name PG_PASSWORD, got %q", err.Error())
	}
}

func TestLoadProfileFallbackAndEnvPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "credentials")
	body := "[default]\naws_access_key_id = x\n\n[postgres-creds]\npg_host = profile-host\npg_user = profile-user\npg_password = profile-pass\npg_port = 6543\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	t.Setenv("PG_CREDENTIALS_FILE", path)
	t.Setenv("PG_USER", "env-user")

	cfg, err := Load(EnvironmentDev, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "profile-host" || cfg.Postgres.Password != "profile-pass" || cfg.Postgres.Port != 6543 {
		t.Fatalf("profile values: got %+v", cfg.Postgres)
	}
	if cfg.Postgres.User != "env-user" {
		t.Fatalf("env precedence: want=%q got=%q", "env-user", cfg.Postgres.User)
	}
}

func TestLoadMigrationKnobs(t *testing.T) {
	isolate(t)
	setCreds(t)
	t.Setenv("PASSAGE_ROW_CAP", "0")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("QUESTION_FETCH_CONCURRENCY", "-1")

	cfg, err := Load(EnvironmentDev, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Migration.RowCap != 0 {
		t.Fatalf("row cap: want=0 got=%d", cfg.Migration.RowCap)
	}
	if cfg.Migration.BatchSize != MaxBatchSize {
		t.Fatalf("batch size clamp: want=%d got=%d", MaxBatchSize, cfg.Migration.BatchSize)
	}
	if cfg.Migration.QuestionConcurrency != DefaultFetchWorkers {
		t.Fatalf("concurrency: want=%d got=%d", DefaultFetchWorkers, cfg.Migration.QuestionConcurrency)
	}

	t.Setenv("PASSAGE_ROW_CAP", "-5")
	if _, err := Load(EnvironmentDev, nil); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("negative cap: expected ErrInvalidValue, got %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := isolate(t)
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("PG_HOST=dotenv-host\nPG_USER=dotenv-user\nPG_PASSWORD=dotenv-pass\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envPath)
	t.Setenv("PG_HOST", "process-host")
	// godotenv sets variables that are unset, so clear what isolate blanked.
	os.Unsetenv("PG_USER")
	os.Unsetenv("PG_PASSWORD")

	cfg, err := Load(EnvironmentDev, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "process-host" {
		t.Fatalf("host: want=%q got=%q", "process-host", cfg.Postgres.Host)
	}
	if cfg.Postgres.User != "dotenv-user" || cfg.Postgres.Password != "dotenv-pass" {
		t.Fatalf("dotenv values: got user=%q password=%q", cfg.Postgres.User, cfg.Postgres.Password)
	}
}

func TestPostgresDSNEscapes(t *testing.T) {
	c := PostgresConfig{Host: "h", Port: 5432, Database: "prod", User: "u", Password: "p@ss/word", SSLMode: "require"}
	dsn := c.DSN()
	if !strings.HasPrefix(dsn, "postgres://u:p%40ss%2Fword@h:5432/prod") || !strings.HasSuffix(dsn, "sslmode=require") {
		t.Fatalf("DSN: got %q", dsn)
	}
}
