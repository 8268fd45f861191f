package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

// PostgresService owns the single relational connection of a run.
type PostgresService struct {
	db        *gorm.DB
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

func NewPostgresService(ctx context.Context, cfg config.PostgresConfig, maxOpen int, logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService", "pg_host", cfg.Host, "pg_database", cfg.Database)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             5 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	svc, err := NewFromGorm(db, serviceLog)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		sqlDB, _ := db.DB()
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, err
	}
	serviceLog.Info("Connected to Postgres")
	return svc, nil
}

// NewFromGorm wraps an already opened connection; tests use it with sqlite.
func NewFromGorm(db *gorm.DB, logg *logger.Logger) (*PostgresService, error) {
	if db == nil {
		return nil, fmt.Errorf("nil gorm db")
	}
	return &PostgresService{db: db, log: logg}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("postgres handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the connection pool. It is safe to call more than once.
func (s *PostgresService) Close() error {
	s.closeOnce.Do(func() {
		sqlDB, err := s.db.DB()
		if err != nil {
			s.closeErr = err
			return
		}
		s.closeErr = sqlDB.Close()
		if s.log != nil {
			s.log.Debug("Postgres connection closed")
		}
	})
	return s.closeErr
}
