package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/passage-migration/internal/migration"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/s3store"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("PG_CREDENTIALS_FILE", filepath.Join(dir, "missing.ini"))
	t.Setenv("LOG_MODE", "test")
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "migrator")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("OBJECT_STORAGE_PROVIDER", "s3")
}

func TestNewWiresConfigAndClients(t *testing.T) {
	setBaseEnv(t)
	a, err := New(context.Background(), config.EnvironmentProd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Cfg.Postgres.Database != "prod" {
		t.Fatalf("database: want=prod got=%q", a.Cfg.Postgres.Database)
	}
	if a.AWS.Config.Region != "eu-west-1" {
		t.Fatalf("region: want=eu-west-1 got=%q", a.AWS.Config.Region)
	}
	if a.Tables == nil {
		t.Fatalf("tables not wired")
	}

	up, err := a.Uploader(context.Background())
	if err != nil {
		t.Fatalf("Uploader: %v", err)
	}
	if _, ok := up.(*s3store.Store); !ok {
		t.Fatalf("uploader: want *s3store.Store got=%T", up)
	}
	again, _ := a.Uploader(context.Background())
	if again != up {
		t.Fatalf("uploader should be resolved once")
	}

	if _, err := a.Pipeline(context.Background(), migration.Options{Export: true}); err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
}

func TestNewMissingCredentialIsConfigError(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PG_PASSWORD", "")
	_, err := New(context.Background(), config.EnvironmentDev)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := migration.ExitCode(err); got != migration.ExitConfig {
		t.Fatalf("exit code: want=%d got=%d", migration.ExitConfig, got)
	}
}

func TestUploaderInvalidProviderIsConfigError(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OBJECT_STORAGE_PROVIDER", "azure")
	a, err := New(context.Background(), config.EnvironmentDev)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if _, err := a.Uploader(context.Background()); migration.ExitCode(err) != migration.ExitConfig {
		t.Fatalf("exit code: want=%d got=%d (%v)", migration.ExitConfig, migration.ExitCode(err), err)
	}
	// Export setup failures leave the pipeline usable.
	if _, err := a.Pipeline(context.Background(), migration.Options{Export: true}); err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
}
