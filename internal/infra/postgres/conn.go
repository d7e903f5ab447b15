package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults for a back office with a handful of operators. Statement
// fetches do not touch the database, so the pool stays small.
const (
	defaultMaxConns        int32 = 10
	defaultMinConns        int32 = 2
	defaultMaxConnLifetime       = time.Hour
	defaultMaxConnIdleTime       = 15 * time.Minute
)

// DB is the shared pgx pool behind every repository
type DB struct {
	*pgxpool.Pool
}

// Config is the pool configuration. Zero values fall back to the defaults.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// poolConfig parses the URL and applies the limits
func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = orDefault(c.MaxConns, defaultMaxConns)
	pc.MinConns = orDefault(c.MinConns, defaultMinConns)
	if pc.MinConns > pc.MaxConns {
		pc.MinConns = pc.MaxConns
	}
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, defaultMaxConnLifetime)
	pc.MaxConnIdleTime = orDefault(c.MaxConnIdleTime, defaultMaxConnIdleTime)
	return pc, nil
}

func orDefault[T int32 | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// NewPool opens the pool and checks that the database answers
func NewPool(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases every connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health backs the readiness check
func (db *DB) Health(ctx context.Context) error {
	return db.Ping(ctx)
}
