package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"

	"github.com/posts-project/posts/internal/platform/cache"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":4500"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost    string `envconfig:"DB_HOST" default:"localhost"`
	DBPort    int    `envconfig:"DB_PORT" default:"5432"`
	DBName    string `envconfig:"DB_NAME" default:"postsdb"`
	DBUser    string `envconfig:"DB_USER" default:"posts"`
	DBPass    string `envconfig:"DB_PASS" default:"posts"`
	DBSSLMode string `envconfig:"DB_SSLMODE" default:"disable"`
	// PGDSN overrides the DB_* settings when set.
	PGDSN     string `envconfig:"PG_DSN"`
	DBMigrate bool   `envconfig:"DB_MIGRATE" default:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SecretKey          string        `envconfig:"SECRET_KEY"`
	Algorithm          string        `envconfig:"ALGO" default:"HS256"`
	AccessTokenTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`
	StrictSessionMatch bool          `envconfig:"AUTH_STRICT_SESSION_MATCH" default:"false"`
	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"10"`

	PostsCacheTTL  time.Duration `envconfig:"POSTS_CACHE_TTL" default:"300s"`
	PostsCacheSize int           `envconfig:"POSTS_CACHE_SIZE" default:"1024"`

	SessionPurgeCron string `envconfig:"SESSION_PURGE_CRON" default:"*/15 * * * *"`

	// GeneratedSecret reports that SecretKey was filled with a random
	// per-process value because SECRET_KEY was unset.
	GeneratedSecret bool `ignored:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = uuid.NewString()
		cfg.GeneratedSecret = true
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	if cfg.PostsCacheSize <= 0 {
		return nil, errors.New("posts cache size must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DatabaseDSN returns PGDSN when provided, otherwise a postgres URL built
// from the individual DB_* settings.
func (c *Config) DatabaseDSN() string {
	if c.PGDSN != "" {
		return c.PGDSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPass),
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBSSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.DBSSLMode)
	}
	return u.String()
}

// RedisOptions returns the connection settings for the posts cache client.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c != nil && strings.TrimSpace(c.RedisAddr) != ""
}

// String renders the non-secret parts of the configuration for start-up logs.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s addr=%s db=%s:%d/%s redis=%t algo=%s ttl=%s",
		c.AppEnv, c.AppAddr, c.DBHost, c.DBPort, c.DBName, c.RedisEnabled(), c.Algorithm, c.AccessTokenTTL)
}
