package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate applies the rights schema when the repository is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithArchiveStorage configures the report archive backend directly
func WithArchiveStorage(storageType string, config map[string]interface{}) Option {
	return func(c *ServerConfig) error {
		switch storageType {
		case "memory", "fs", "s3":
		default:
			return fmt.Errorf("unsupported archive storage type: %s", storageType)
		}
		if config == nil {
			config = map[string]interface{}{}
		}
		c.ArchiveStorage = StorageBackendConfig{Type: storageType, Config: config}
		return nil
	}
}

// WithMemoryArchive stores archived reports in memory
func WithMemoryArchive() Option {
	return func(c *ServerConfig) error {
		c.ArchiveStorage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemArchive stores archived reports under baseDir
func WithFilesystemArchive(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.ArchiveStorage = StorageBackendConfig{
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir":   baseDir,
				"url_prefix": urlPrefix,
			},
		}
		return nil
	}
}

// WithS3Archive stores archived reports in an S3 bucket
func WithS3Archive(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.ArchiveStorage = StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithS3Credentials sets static credentials on the S3 archive
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if c.ArchiveStorage.Type != "s3" {
			return fmt.Errorf("S3 archive must be configured before credentials")
		}
		c.ArchiveStorage.Config["access_key_id"] = accessKeyID
		c.ArchiveStorage.Config["secret_access_key"] = secretAccessKey
		return nil
	}
}

// WithS3Endpoint points the S3 archive at an S3-compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.ArchiveStorage.Type != "s3" {
			return fmt.Errorf("S3 archive must be configured before endpoint")
		}
		c.ArchiveStorage.Config["endpoint"] = endpoint
		c.ArchiveStorage.Config["use_path_style"] = usePathStyle
		return nil
	}
}

// WithoutArchive disables report archiving
func WithoutArchive() Option {
	return func(c *ServerConfig) error {
		c.ArchiveStorage = StorageBackendConfig{}
		return nil
	}
}

// WithQuotaWarningThreshold sets the quota fraction that raises a warning
func WithQuotaWarningThreshold(threshold float64) Option {
	return func(c *ServerConfig) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("quota warning threshold must be in (0, 1], got %v", threshold)
		}
		c.QuotaWarningThreshold = threshold
		return nil
	}
}

// WithExpiringWindowDays sets the expiry lookahead
func WithExpiringWindowDays(days int) Option {
	return func(c *ServerConfig) error {
		if days <= 0 {
			return fmt.Errorf("expiring window must be positive, got %d", days)
		}
		c.ExpiringWindowDays = days
		return nil
	}
}

// WithEventLogging enables or disables the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithSweepInterval sets the background expiry sweep period; 0 disables it
func WithSweepInterval(interval time.Duration) Option {
	return func(c *ServerConfig) error {
		if interval < 0 {
			return fmt.Errorf("sweep interval cannot be negative")
		}
		c.SweepInterval = interval
		return nil
	}
}

// WithAPIKeySHA256 enables API key authentication with the given key hash
func WithAPIKeySHA256(hash string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = hash
		return nil
	}
}
