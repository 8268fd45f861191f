package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/yungbote/passage-migration/internal/platform/envutil"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

var (
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrMissingCredential  = errors.New("missing required credential")
	ErrInvalidValue       = errors.New("invalid config value")
)

type Environment string

const (
	EnvironmentDev  Environment = "dev"
	EnvironmentProd Environment = "prod"
)

func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(raw))) {
	case EnvironmentDev:
		return EnvironmentDev, nil
	case EnvironmentProd:
		return EnvironmentProd, nil
	default:
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidEnvironment, raw, EnvironmentDev, EnvironmentProd)
	}
}

// DatabaseName is the relational database each environment reads from.
func (e Environment) DatabaseName() string {
	if e == EnvironmentProd {
		return "prod"
	}
	return "genaicoe_postgresql"
}

// Region is the destination AWS region each environment writes to.
func (e Environment) Region() string {
	if e == EnvironmentProd {
		return "eu-west-1"
	}
	return "us-east-1"
}

const (
	DefaultSchema         = "practise_improve_pilot"
	DefaultRowCap         = 50
	MaxBatchSize          = 25
	DefaultFetchWorkers   = 8
	DefaultProfileSection = "postgres-creds"
	DefaultBucket         = "pi-app-data"
)

type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Schema   string
	SSLMode  string
}

// DSN renders a postgres URL with the credentials escaped.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type TableNames struct {
	Passages      string
	Topics        string
	CacheMetadata string
}

type DynamoConfig struct {
	Region   string
	Profile  string
	Endpoint string
	Tables   TableNames
}

type ObjectStorageConfig struct {
	// Provider is one of "s3", "gcs" or "gcs_emulator".
	Provider     string
	Bucket       string
	EmulatorHost string
	PublicRead   bool
	Region       string
}

type MigrationConfig struct {
	// RowCap bounds the aggregation result set; 0 disables the cap.
	RowCap              int
	BatchSize           int
	QuestionConcurrency int
}

type Config struct {
	Environment   Environment
	LogMode       string
	Postgres      PostgresConfig
	Dynamo        DynamoConfig
	ObjectStorage ObjectStorageConfig
	Migration     MigrationConfig
}

// Load assembles the run configuration for env. Values come from, in increasing
// precedence: built-in defaults, the ini credentials profile, a .env file, and the
// process environment.
func Load(env Environment, log *logger.Logger) (Config, error) {
	if log == nil {
		log = logger.Nop()
	}
	if env != EnvironmentDev && env != EnvironmentProd {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidEnvironment, env)
	}

	if err := loadDotEnv(log); err != nil {
		return Config{}, err
	}

	profile, err := loadProfile(log)
	if err != nil {
		return Config{}, err
	}

	pg := PostgresConfig{
		Host:     firstNonEmpty(envutil.String("PG_HOST", ""), profile.Host),
		User:     firstNonEmpty(envutil.String("PG_USER", ""), profile.User),
		Password: firstNonEmpty(os.Getenv("PG_PASSWORD"), profile.Password),
		Database: envutil.String("PG_DATABASE", env.DatabaseName()),
		Schema:   envutil.String("PG_SCHEMA", DefaultSchema),
		SSLMode:  envutil.String("PG_SSLMODE", "prefer"),
	}
	rawPort := firstNonEmpty(envutil.String("PG_PORT", ""), profile.Port, "5432")
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 {
		return Config{}, fmt.Errorf("%w: PG_PORT=%q", ErrInvalidValue, rawPort)
	}
	pg.Port = port

	for _, req := range []struct{ name, val string }{
		{"PG_HOST", pg.Host},
		{"PG_USER", pg.User},
		{"PG_PASSWORD", pg.Password},
	} {
		if strings.TrimSpace(req.val) == "" {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingCredential, req.name)
		}
	}

	region := envutil.String("AWS_REGION", env.Region())
	cfg := Config{
		Environment: env,
		LogMode:     envutil.String("LOG_MODE", "development"),
		Postgres:    pg,
		Dynamo: DynamoConfig{
			Region:   region,
			Profile:  envutil.String("AWS_PROFILE", ""),
			Endpoint: envutil.String("DYNAMODB_ENDPOINT", ""),
			Tables: TableNames{
				Passages:      envutil.String("PASSAGES_TABLE", "pni-passages"),
				Topics:        envutil.String("TOPICS_TABLE", "pni-topics"),
				CacheMetadata: envutil.String("CACHE_METADATA_TABLE", "pni-cache-metadata"),
			},
		},
		ObjectStorage: ObjectStorageConfig{
			Provider:     strings.ToLower(envutil.String("OBJECT_STORAGE_PROVIDER", "s3")),
			Bucket:       firstNonEmpty(envutil.String("S3_BUCKET", ""), envutil.String("EXPORT_GCS_BUCKET_NAME", ""), DefaultBucket),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			PublicRead:   envutil.Bool("EXPORT_PUBLIC_READ", true),
			Region:       region,
		},
		Migration: MigrationConfig{
			RowCap:              envutil.Int("PASSAGE_ROW_CAP", DefaultRowCap),
			BatchSize:           clampBatchSize(envutil.Int("BATCH_SIZE", MaxBatchSize)),
			QuestionConcurrency: envutil.Int("QUESTION_FETCH_CONCURRENCY", DefaultFetchWorkers),
		},
	}
	if cfg.Migration.RowCap < 0 {
		return Config{}, fmt.Errorf("%w: PASSAGE_ROW_CAP=%d", ErrInvalidValue, cfg.Migration.RowCap)
	}
	if cfg.Migration.QuestionConcurrency <= 0 {
		cfg.Migration.QuestionConcurrency = DefaultFetchWorkers
	}

	log.Info("Config loaded",
		"environment", env,
		"pg_host", pg.Host,
		"pg_database", pg.Database,
		"pg_schema", pg.Schema,
		"region", region,
		"passages_table", cfg.Dynamo.Tables.Passages,
		"topics_table", cfg.Dynamo.Tables.Topics,
		"row_cap", cfg.Migration.RowCap,
		"batch_size", cfg.Migration.BatchSize,
	)
	return cfg, nil
}

func clampBatchSize(n int) int {
	if n <= 0 || n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// loadDotEnv reads ENV_FILE (default ".env") when present. Existing process
// variables are never overwritten.
func loadDotEnv(log *logger.Logger) error {
	path := envutil.String("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: load env file %s: %v", ErrInvalidValue, path, err)
	}
	log.Debug("Loaded env file", "path", path)
	return nil
}

type profileCreds struct {
	Host     string
	Port     string
	User     string
	Password string
}

// loadProfile reads postgres credentials from an ini credentials file section.
// A missing file or section yields empty credentials.
func loadProfile(log *logger.Logger) (profileCreds, error) {
	path := envutil.String("PG_CREDENTIALS_FILE", "")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return profileCreds{}, nil
		}
		path = filepath.Join(home, ".aws", "credentials")
	}
	if _, err := os.Stat(path); err != nil {
		return profileCreds{}, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return profileCreds{}, fmt.Errorf("%w: parse credentials file %s: %v", ErrInvalidValue, path, err)
	}
	name := envutil.String("PG_AWS_PROFILE", DefaultProfileSection)
	sec, err := f.GetSection(name)
	if err != nil {
		log.Debug("Credentials profile not found", "path", path, "profile", name)
		return profileCreds{}, nil
	}
	log.Debug("Loaded credentials profile", "path", path, "profile", name)
	return profileCreds{
		Host:     strings.TrimSpace(sec.Key("pg_host").String()),
		Port:     strings.TrimSpace(sec.Key("pg_port").String()),
		User:     strings.TrimSpace(sec.Key("pg_user").String()),
		Password: sec.Key("pg_password").String(),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
