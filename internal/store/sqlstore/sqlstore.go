// Package sqlstore provides a session store backend on PostgreSQL or MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/fruitsalade/slackfiles/internal/store"
)

// Config holds SQL backend settings.
type Config struct {
	Driver string `toml:"driver"` // "postgres" or "mysql"
	DSN    string `toml:"dsn"`
	Table  string `toml:"table"`
}

// dialect holds the driver-specific statements.
type dialect struct {
	create string
	get    string
	put    string
	delete string
}

func dialectFor(driver, table string) (dialect, error) {
	switch driver {
	case "postgres":
		return dialect{
			create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
				cache_key  VARCHAR(255) PRIMARY KEY,
				data       BYTEA NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			get: `SELECT data FROM ` + table + ` WHERE cache_key = $1`,
			put: `INSERT INTO ` + table + ` (cache_key, data, updated_at) VALUES ($1, $2, NOW())
				ON CONFLICT (cache_key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
			delete: `DELETE FROM ` + table + ` WHERE cache_key = $1`,
		}, nil
	case "mysql":
		return dialect{
			create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
				cache_key  VARCHAR(255) PRIMARY KEY,
				data       LONGBLOB NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			get: `SELECT data FROM ` + table + ` WHERE cache_key = ?`,
			put: `INSERT INTO ` + table + ` (cache_key, data, updated_at) VALUES (?, ?, NOW())
				ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = NOW()`,
			delete: `DELETE FROM ` + table + ` WHERE cache_key = ?`,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver: %s", driver)
	}
}

// SQLBackend implements store.Backend with one row per key.
type SQLBackend struct {
	db      *sql.DB
	driver  string
	dialect dialect
}

// DefaultTable holds session blobs when Config.Table is empty.
const DefaultTable = "slackfiles_sessions"

// New opens the database, pings it and creates the blob table if needed.
func New(ctx context.Context, cfg Config) (*SQLBackend, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	d, err := dialectFor(cfg.Driver, cfg.Table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	b := &SQLBackend{db: db, driver: cfg.Driver, dialect: d}
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	return b, nil
}

// GetObject returns the blob stored under key.
func (b *SQLBackend) GetObject(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, b.dialect.get, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// PutObject upserts the blob under key.
func (b *SQLBackend) PutObject(ctx context.Context, key string, data []byte) error {
	if _, err := b.db.ExecContext(ctx, b.dialect.put, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// DeleteObject removes the row for key.
func (b *SQLBackend) DeleteObject(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, b.dialect.delete, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Type returns the driver name ("postgres" or "mysql").
func (b *SQLBackend) Type() string { return b.driver }

// Close closes the database pool.
func (b *SQLBackend) Close() error { return b.db.Close() }
