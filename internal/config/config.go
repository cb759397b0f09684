// Package config loads configuration from an optional TOML file and
// environment variables. Environment values override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fruitsalade/slackfiles/internal/dataset"
	"github.com/fruitsalade/slackfiles/internal/paging"
	"github.com/fruitsalade/slackfiles/internal/session"
	"github.com/fruitsalade/slackfiles/internal/store/factory"
	"github.com/fruitsalade/slackfiles/internal/store/local"
	"github.com/fruitsalade/slackfiles/internal/store/minio"
	"github.com/fruitsalade/slackfiles/internal/store/redis"
	s3backend "github.com/fruitsalade/slackfiles/internal/store/s3"
	"github.com/fruitsalade/slackfiles/internal/store/sqlstore"
	"github.com/fruitsalade/slackfiles/pkg/client"
)

// ErrNoToken is returned when no API token could be found.
var ErrNoToken = errors.New("no Slack API token: set SLACK_TOKEN, -token or a token file")

// DefaultTokenFile is read when no token is configured directly.
const DefaultTokenFile = ".slack-token"

// Config holds all slackfiles configuration.
type Config struct {
	// Slack API
	Token     string `toml:"token"`
	TokenFile string `toml:"token_file"`
	APIURL    string `toml:"api_url"`

	// Fetching
	PageSize     int           `toml:"page_size"`
	RetryDelay   time.Duration `toml:"retry_delay"`
	AbandonAfter time.Duration `toml:"abandon_after"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogOutput string `toml:"log_output"` // file path; empty means stderr

	// Observability (empty disables)
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects the session store.
type CacheConfig struct {
	Backend string           `toml:"backend"` // local, s3, minio, redis, postgres, mysql
	Key     string           `toml:"key"`
	Local   local.Config     `toml:"local"`
	S3      s3backend.Config `toml:"s3"`
	Minio   minio.Config     `toml:"minio"`
	Redis   redis.Config     `toml:"redis"`
	SQL     sqlstore.Config  `toml:"sql"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TokenFile:    DefaultTokenFile,
		APIURL:       client.DefaultBaseURL,
		PageSize:     paging.DefaultPageSize,
		RetryDelay:   paging.DefaultRetryDelay,
		AbandonAfter: dataset.DefaultMaxAge,
		LogLevel:     "info",
		LogFormat:    "console",
		Cache: CacheConfig{
			Backend: "local",
			Key:     session.DefaultKey,
			Local:   local.Config{RootPath: ".", CreateDirs: true},
			S3:      s3backend.Config{Bucket: "slackfiles", Region: "us-east-1"},
			Minio:   minio.Config{Endpoint: "localhost:9000", Bucket: "slackfiles", Region: "us-east-1"},
			Redis:   redis.Config{Addr: "localhost:6379", KeyPrefix: "slackfiles:"},
			SQL:     sqlstore.Config{Table: sqlstore.DefaultTable},
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (or $SLACKFILES_CONFIG when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SLACKFILES_CONFIG")
	}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Token = envOr("SLACK_TOKEN", c.Token)
	c.TokenFile = envOr("SLACK_TOKEN_FILE", c.TokenFile)
	c.APIURL = envOr("SLACK_API_URL", c.APIURL)
	c.PageSize = envInt("PAGE_SIZE", c.PageSize)
	c.RetryDelay = envDuration("RETRY_DELAY", c.RetryDelay)
	c.AbandonAfter = envDuration("ABANDON_AFTER", c.AbandonAfter)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.LogOutput = envOr("LOG_OUTPUT", c.LogOutput)
	c.MetricsAddr = envOr("METRICS_ADDR", c.MetricsAddr)
	c.OTLPEndpoint = envOr("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	cc := &c.Cache
	cc.Backend = envOr("CACHE_BACKEND", cc.Backend)
	cc.Key = envOr("CACHE_KEY", cc.Key)
	cc.Local.RootPath = envOr("CACHE_DIR", cc.Local.RootPath)

	cc.S3.Endpoint = envOr("S3_ENDPOINT", cc.S3.Endpoint)
	cc.S3.Bucket = envOr("S3_BUCKET", cc.S3.Bucket)
	cc.S3.Prefix = envOr("S3_PREFIX", cc.S3.Prefix)
	cc.S3.AccessKey = envOr("S3_ACCESS_KEY", cc.S3.AccessKey)
	cc.S3.SecretKey = envOr("S3_SECRET_KEY", cc.S3.SecretKey)
	cc.S3.Region = envOr("S3_REGION", cc.S3.Region)

	cc.Minio.Endpoint = envOr("MINIO_ENDPOINT", cc.Minio.Endpoint)
	cc.Minio.Bucket = envOr("MINIO_BUCKET", cc.Minio.Bucket)
	cc.Minio.AccessKey = envOr("MINIO_ACCESS_KEY", cc.Minio.AccessKey)
	cc.Minio.SecretKey = envOr("MINIO_SECRET_KEY", cc.Minio.SecretKey)
	cc.Minio.Region = envOr("MINIO_REGION", cc.Minio.Region)
	cc.Minio.UseSSL = envBool("MINIO_USE_SSL", cc.Minio.UseSSL)

	cc.Redis.Addr = envOr("REDIS_ADDR", cc.Redis.Addr)
	cc.Redis.Password = envOr("REDIS_PASSWORD", cc.Redis.Password)
	cc.Redis.DB = envInt("REDIS_DB", cc.Redis.DB)
	cc.Redis.KeyPrefix = envOr("REDIS_KEY_PREFIX", cc.Redis.KeyPrefix)
	cc.Redis.TTL = envDuration("REDIS_TTL", cc.Redis.TTL)

	cc.SQL.DSN = envOr("DATABASE_URL", cc.SQL.DSN)
	cc.SQL.Table = envOr("CACHE_TABLE", cc.SQL.Table)
}

// Validate checks settings that do not depend on the token.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY must not be negative, got %s", c.RetryDelay)
	}
	if c.AbandonAfter <= 0 {
		return fmt.Errorf("ABANDON_AFTER must be positive, got %s", c.AbandonAfter)
	}
	switch c.Cache.Backend {
	case "local", "s3", "minio", "redis":
	case "postgres", "mysql":
		if c.Cache.SQL.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s cache backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	return nil
}

// ResolveToken fills Token from TokenFile when it is not set directly.
// It returns ErrNoToken when neither yields a token.
func (c *Config) ResolveToken() error {
	c.Token = strings.TrimSpace(c.Token)
	if c.Token != "" {
		return nil
	}
	if c.TokenFile == "" {
		return ErrNoToken
	}
	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoToken
	}
	if err != nil {
		return fmt.Errorf("read token file %s: %w", c.TokenFile, err)
	}
	c.Token = strings.TrimSpace(string(data))
	if c.Token == "" {
		return ErrNoToken
	}
	return nil
}

// Store returns the store factory settings.
func (c *Config) Store() factory.Config {
	return factory.Config{
		Backend: c.Cache.Backend,
		Local:   c.Cache.Local,
		S3:      c.Cache.S3,
		Minio:   c.Cache.Minio,
		Redis:   c.Cache.Redis,
		SQL:     c.Cache.SQL,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
