package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/passage-migration/internal/data/db"
	repos "github.com/yungbote/passage-migration/internal/data/repos/content"
	"github.com/yungbote/passage-migration/internal/destination"
	"github.com/yungbote/passage-migration/internal/export"
	"github.com/yungbote/passage-migration/internal/migration"
	"github.com/yungbote/passage-migration/internal/platform/awsx"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/envutil"
	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/platform/objectstore"
)

var _ migration.Exporter = (*export.Exporter)(nil)

// App holds the clients shared by the commands of one run.
type App struct {
	Log    *logger.Logger
	Cfg    config.Config
	AWS    *awsx.Clients
	Tables *destination.Tables

	uploader objectstore.Uploader
	closers  []func() error
}

// New builds the logger, loads configuration for env and creates the AWS clients.
// The relational connection is opened per run through OpenSource.
func New(ctx context.Context, env config.Environment) (*App, error) {
	mode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(mode)
	if err != nil {
		return nil, migration.Wrap(migration.KindOther, "init logger", err)
	}

	log.Info("Loading configuration...", "environment", env)
	cfg, err := config.Load(env, log)
	if err != nil {
		log.Sync()
		return nil, migration.Wrap(migration.KindConfig, "load config", err)
	}
	// LOG_MODE may come from the env file loaded with the config.
	if cfg.LogMode != "" && cfg.LogMode != mode {
		if l, lerr := logger.New(cfg.LogMode); lerr == nil {
			log.Sync()
			log = l
		}
	}

	clients, err := awsx.New(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, migration.Wrap(migration.KindConfig, "init aws clients", err)
	}

	return &App{
		Log:    log,
		Cfg:    cfg,
		AWS:    clients,
		Tables: destination.New(clients.DynamoDB, log),
	}, nil
}

// OpenSource connects to the configured Postgres database.
func (a *App) OpenSource(ctx context.Context) (migration.Session, error) {
	// One connection per question worker plus the listing query.
	pg, err := db.NewPostgresService(ctx, a.Cfg.Postgres, a.Cfg.Migration.QuestionConcurrency+1, a.Log)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// Uploader resolves the export backend on first use.
func (a *App) Uploader(ctx context.Context) (objectstore.Uploader, error) {
	if a.uploader != nil {
		return a.uploader, nil
	}
	up, closeFn, err := resolveUploader(ctx, a.Log, a.Cfg.ObjectStorage, a.AWS.S3)
	if err != nil {
		return nil, migration.Wrap(migration.KindConfig, "resolve object storage", err)
	}
	a.uploader = up
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}
	return up, nil
}

func (a *App) Exporter(ctx context.Context) (*export.Exporter, error) {
	up, err := a.Uploader(ctx)
	if err != nil {
		return nil, err
	}
	return export.New(up, a.Cfg.Environment, a.Cfg.ObjectStorage.PublicRead, a.Log), nil
}

// Pipeline wires a migration run from the loaded configuration.
func (a *App) Pipeline(ctx context.Context, opts migration.Options) (*migration.Pipeline, error) {
	deps := migration.Deps{
		Open: a.OpenSource,
		Source: repos.Options{
			Schema:      a.Cfg.Postgres.Schema,
			RowCap:      a.Cfg.Migration.RowCap,
			Concurrency: a.Cfg.Migration.QuestionConcurrency,
		},
		Loader:   migration.NewBulkLoader(a.AWS.DynamoDB, a.Cfg.Migration.BatchSize, a.Log),
		Metadata: migration.NewMetadataWriter(a.AWS.DynamoDB, a.Log),
		Tables:   a.Cfg.Dynamo.Tables,
		Ensurer:  a.Tables,
		Log:      a.Log,
	}
	if opts.Export {
		exp, err := a.Exporter(ctx)
		if err != nil {
			// Exports never fail a run.
			a.Log.Warn("Export disabled", "error", err)
		} else {
			deps.Exporter = exp
		}
	}
	return migration.NewPipeline(deps, opts)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.Log != nil {
		if err := errors.Join(errs...); err != nil {
			a.Log.Warn("Closing clients failed", "error", fmt.Sprint(err))
		}
		a.Log.Sync()
	}
}
