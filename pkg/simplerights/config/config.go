package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/repo/memory"
	repopg "github.com/tendant/simple-rights/pkg/simplerights/repo/postgres"
	fsstorage "github.com/tendant/simple-rights/pkg/simplerights/storage/fs"
	memorystorage "github.com/tendant/simple-rights/pkg/simplerights/storage/memory"
	s3storage "github.com/tendant/simple-rights/pkg/simplerights/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		DBSchema:              "rights",
		ArchiveStorage:        StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}},
		QuotaWarningThreshold: simplerights.DefaultQuotaWarningThreshold,
		ExpiringWindowDays:    simplerights.DefaultExpiryWindowDays,
		EnableEventLogging:    true,
		SweepInterval:         time.Hour,
	}
}

// ServerConfig represents configuration for the simple-rights service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: rights)
	AutoMigrate  bool   // Apply the rights schema on startup

	// Report archive; Type "" disables archiving
	ArchiveStorage StorageBackendConfig

	// Rights engine parameters
	QuotaWarningThreshold float64
	ExpiringWindowDays    int

	// Server options
	EnableEventLogging bool
	SweepInterval      time.Duration // 0 disables the background expiry sweep
	APIKeySHA256       string        // Optional; enables API key middleware
}

// StorageBackendConfig represents configuration for the report archive backend
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.ArchiveStorage.Type {
	case "", "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported archive storage type: %s", c.ArchiveStorage.Type)
	}

	if c.QuotaWarningThreshold <= 0 || c.QuotaWarningThreshold > 1 {
		return fmt.Errorf("quota_warning_threshold must be in (0, 1], got %v", c.QuotaWarningThreshold)
	}

	if c.ExpiringWindowDays <= 0 {
		return fmt.Errorf("expiring_window_days must be positive, got %d", c.ExpiringWindowDays)
	}

	if c.SweepInterval < 0 {
		return errors.New("sweep_interval cannot be negative")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (simplerights.Service, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	options := []simplerights.Option{
		simplerights.WithRepository(repo),
		simplerights.WithQuotaThreshold(c.QuotaWarningThreshold),
		simplerights.WithExpiringWindow(c.ExpiringWindowDays),
		simplerights.WithLogger(slog.Default()),
	}

	if c.ArchiveStorage.Type != "" {
		store, err := c.buildArchiveStorage()
		if err != nil {
			return nil, fmt.Errorf("failed to build archive storage %s: %w", c.ArchiveStorage.Type, err)
		}
		options = append(options, simplerights.WithArchive(store))
	}

	options = append(options, simplerights.WithEventSink(c.BuildEventSink()))

	return simplerights.New(options...)
}

// BuildEventSink returns the sink rights events are delivered to. With event
// logging disabled every event is dropped.
func (c *ServerConfig) BuildEventSink() simplerights.EventSink {
	if !c.EnableEventLogging {
		return simplerights.NewNoopEventSink()
	}
	return simplerights.NewLogEventSink(slog.Default())
}

// BuildRepository creates a Repository based on the configuration
func (c *ServerConfig) BuildRepository(ctx context.Context) (simplerights.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.newPool(ctx)
		if err != nil {
			return nil, err
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate rights schema: %w", err)
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) newPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	setSearchPath(cfg, c.DBSchema)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

func setSearchPath(cfg *pgxpool.Config, schema string) {
	if schema == "" {
		return
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
}

// PingPostgres verifies connectivity to Postgres with the schema as search_path.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	setSearchPath(cfg, schema)
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildArchiveStorage creates a BlobStore based on the archive configuration
func (c *ServerConfig) buildArchiveStorage() (simplerights.BlobStore, error) {
	config := c.ArchiveStorage.Config
	switch c.ArchiveStorage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config, "base_dir", "./data/archive"),
			URLPrefix: getString(config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config, "region", "us-east-1"),
			Bucket:                 getString(config, "bucket", ""),
			AccessKeyID:            getString(config, "access_key_id", ""),
			SecretAccessKey:        getString(config, "secret_access_key", ""),
			Endpoint:               getString(config, "endpoint", ""),
			UsePathStyle:           getBool(config, "use_path_style", false),
			PresignDuration:        getInt(config, "presign_duration", 3600),
			EnableSSE:              getBool(config, "enable_sse", false),
			SSEAlgorithm:           getString(config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported archive storage type: %s", c.ArchiveStorage.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
