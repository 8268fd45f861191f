package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

var errNoPostgres = errors.New("no postgres available")

// startPostgres runs a throwaway Postgres and returns its DSN. The container is
// shared by every test in the binary and reaped by Ryuk when the process exits.
func startPostgres() (dsn string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := dockerHealthy(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", errNoPostgres, err)
	}

	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("passages"),
		tcpostgres.WithUsername("migrate"),
		tcpostgres.WithPassword("migrate"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		if ctr != nil {
			_ = testcontainers.TerminateContainer(ctr)
		}
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return "", fmt.Errorf("postgres connection string: %w", err)
	}
	return dsn, nil
}

// dockerHealthy reports whether a Docker daemon is reachable. Provider lookup
// panics on hosts without any Docker configuration.
func dockerHealthy(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker provider: %v", r)
		}
	}()
	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return err
	}
	defer provider.Close()
	return provider.Health(ctx)
}
