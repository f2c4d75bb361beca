package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envVars is the process environment understood by WithEnv. Unset
// variables leave the corresponding ServerConfig field untouched.
type envVars struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA"`
	AutoMigrate string `env:"AUTO_MIGRATE"`

	ArchiveURL         string `env:"ARCHIVE_URL"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`

	QuotaWarningThreshold float64       `env:"QUOTA_WARNING_THRESHOLD"`
	ExpiringWindowDays    int           `env:"EXPIRING_WINDOW_DAYS"`
	EventLogging          string        `env:"EVENT_LOGGING"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL"`
	APIKeySHA256          string        `env:"API_KEY_SHA256"`
}

// WithEnv applies environment variable overrides.
//
//	PORT, ENVIRONMENT           - server settings
//	DATABASE_URL                - "memory" (default) or "postgres://..." / "postgresql://..."
//	DB_SCHEMA, AUTO_MIGRATE     - Postgres schema and startup migration
//	ARCHIVE_URL                 - "none", "memory://" (default), "file:///path"
//	                              or "s3://bucket?region=..&endpoint=..&path_style=true"
//	QUOTA_WARNING_THRESHOLD     - fraction of max downloads that warns (default 0.9)
//	EXPIRING_WINDOW_DAYS        - expiry lookahead in days (default 30)
//	EVENT_LOGGING               - log rights events (default true)
//	SWEEP_INTERVAL              - background expiry sweep period, e.g. "1h"; "0s" disables
//	API_KEY_SHA256              - enables API key authentication on the server
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envVars
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.DBSchema != "" {
			c.DBSchema = env.DBSchema
		}
		if env.APIKeySHA256 != "" {
			c.APIKeySHA256 = env.APIKeySHA256
		}
		if env.QuotaWarningThreshold != 0 {
			c.QuotaWarningThreshold = env.QuotaWarningThreshold
		}
		if env.ExpiringWindowDays != 0 {
			c.ExpiringWindowDays = env.ExpiringWindowDays
		}
		if env.SweepInterval != 0 || isSet("SWEEP_INTERVAL") {
			c.SweepInterval = env.SweepInterval
		}

		if err := parseBool("AUTO_MIGRATE", env.AutoMigrate, &c.AutoMigrate); err != nil {
			return err
		}
		if err := parseBool("EVENT_LOGGING", env.EventLogging, &c.EnableEventLogging); err != nil {
			return err
		}
		if err := applyDatabaseEnv(env.DatabaseURL, c); err != nil {
			return err
		}
		return applyArchiveEnv(env, c)
	}
}

// applyDatabaseEnv configures the repository from DATABASE_URL
func applyDatabaseEnv(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

// applyArchiveEnv configures the report archive from ARCHIVE_URL
func applyArchiveEnv(env envVars, c *ServerConfig) error {
	raw := env.ArchiveURL
	switch {
	case raw == "":
		return nil
	case raw == "none":
		c.ArchiveStorage = StorageBackendConfig{}
		return nil
	case raw == "memory" || raw == "memory://":
		c.ArchiveStorage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in ARCHIVE_URL")
		}
		c.ArchiveStorage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": path},
		}
		return nil
	case strings.HasPrefix(raw, "s3://"):
		return applyS3Archive(raw, env, c)
	}
	return fmt.Errorf("unsupported ARCHIVE_URL format: %s (use 'none', 'memory://', 'file://...', or 's3://...')", raw)
}

// applyS3Archive parses s3://bucket?region=us-east-1&endpoint=http://localhost:9000
func applyS3Archive(raw string, env envVars, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid ARCHIVE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in ARCHIVE_URL")
	}

	cfg := map[string]interface{}{
		"bucket": u.Host,
		"region": "us-east-1",
	}
	q := u.Query()
	for param, key := range map[string]string{
		"region":         "region",
		"endpoint":       "endpoint",
		"path_style":     "use_path_style",
		"create_bucket":  "create_bucket_if_not_exist",
		"sse":            "sse_algorithm",
		"presign_expiry": "presign_duration",
	} {
		if v := q.Get(param); v != "" {
			cfg[key] = v
		}
	}
	if _, ok := cfg["sse_algorithm"]; ok {
		cfg["enable_sse"] = true
	}
	if env.AWSRegion != "" && q.Get("region") == "" {
		cfg["region"] = env.AWSRegion
	}
	if env.AWSAccessKeyID != "" {
		cfg["access_key_id"] = env.AWSAccessKeyID
	}
	if env.AWSSecretAccessKey != "" {
		cfg["secret_access_key"] = env.AWSSecretAccessKey
	}

	c.ArchiveStorage = StorageBackendConfig{Type: "s3", Config: cfg}
	return nil
}

func parseBool(key, raw string, dst *bool) error {
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func isSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}
