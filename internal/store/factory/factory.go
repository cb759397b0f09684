// Package factory builds a session store backend from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/fruitsalade/slackfiles/internal/store"
	"github.com/fruitsalade/slackfiles/internal/store/local"
	"github.com/fruitsalade/slackfiles/internal/store/minio"
	"github.com/fruitsalade/slackfiles/internal/store/redis"
	s3backend "github.com/fruitsalade/slackfiles/internal/store/s3"
	"github.com/fruitsalade/slackfiles/internal/store/sqlstore"
)

// Config selects a backend and carries the settings for each type.
type Config struct {
	Backend string // local, s3, minio, redis, postgres, mysql
	Local   local.Config
	S3      s3backend.Config
	Minio   minio.Config
	Redis   redis.Config
	SQL     sqlstore.Config
}

// New creates the configured backend wrapped with metrics and tracing.
func New(ctx context.Context, cfg Config) (store.Backend, error) {
	var (
		b   store.Backend
		err error
	)
	switch cfg.Backend {
	case "", "local":
		b, err = local.New(cfg.Local)
	case "s3":
		b, err = s3backend.New(ctx, cfg.S3)
	case "minio":
		b, err = minio.New(ctx, cfg.Minio)
	case "redis":
		b, err = redis.New(ctx, cfg.Redis)
	case "postgres", "mysql":
		sqlCfg := cfg.SQL
		sqlCfg.Driver = cfg.Backend
		b, err = sqlstore.New(ctx, sqlCfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return store.Instrument(b), nil
}
