// Package database manages the PostgreSQL pool that backs the question bank
// and the quiz event log.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaMissing is returned by HealthCheck when migrations have not run.
var ErrSchemaMissing = errors.New("questions table missing, run migrations")

// Options configures Open.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	Migrate         bool          // apply embedded migrations before connecting
	ConnectAttempts int           // default 1
	RetryDelay      time.Duration // between attempts, default 2s
}

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// Open migrates the schema when asked and connects, retrying while the
// server is still starting.
func Open(ctx context.Context, opts Options) (*DB, error) {
	poolCfg, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = int32(opts.MinConns)
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	attempts := max(opts.ConnectAttempts, 1)
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			slog.Warn("database not reachable, retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if opts.Migrate {
			if lastErr = Migrate(opts.URL); lastErr != nil {
				continue
			}
		}
		var db *DB
		if db, lastErr = connect(ctx, poolCfg); lastErr == nil {
			return db, nil
		}
	}
	return nil, lastErr
}

func connect(ctx context.Context, cfg *pgxpool.Config) (*DB, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the connection and that the quiz schema is in place.
func (db *DB) HealthCheck(ctx context.Context) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'questions')`,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}
