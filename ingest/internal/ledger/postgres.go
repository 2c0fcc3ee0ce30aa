package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 5 * time.Second

// An existing row only blocks admission while it is unexpired; an expired row
// is overwritten as if it had already been reclaimed.
const checkAndMarkSQL = `
	INSERT INTO ingest_ledger (dedup_key, seen_at, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (dedup_key) DO UPDATE
		SET seen_at = EXCLUDED.seen_at, expires_at = EXCLUDED.expires_at
		WHERE ingest_ledger.expires_at <= $4
`

// PostgresLedger stores entries in the ingest_ledger table.
type PostgresLedger struct {
	pool *pgxpool.Pool
	opts Options
}

// NewPostgresLedger connects to PostgreSQL and verifies the connection.
func NewPostgresLedger(ctx context.Context, connString string, opts Options) (*PostgresLedger, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresLedger{pool: pool, opts: opts.withDefaults()}, nil
}

func (l *PostgresLedger) Close() {
	l.pool.Close()
}

// Ping checks that the database is reachable.
func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *PostgresLedger) CheckAndMark(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := l.opts.Now()
	entry := newEntry(key, now, l.opts.TTL)

	tag, err := l.pool.Exec(ctx, checkAndMarkSQL, entry.Key, entry.SeenAt, entry.ExpiresAt, now.Unix())
	if err != nil {
		return false, &StorageError{Backend: "postgres", Key: key, Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// Sweep deletes expired rows and returns how many were removed. It plays the
// part of a storage TTL and is never called from CheckAndMark.
func (l *PostgresLedger) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := l.pool.Exec(ctx, `DELETE FROM ingest_ledger WHERE expires_at <= $1`, l.opts.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired ledger entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (l *PostgresLedger) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(n int64, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Sweep(ctx)
			if onSweep != nil {
				onSweep(n, err)
			}
		}
	}
}

// Migrate applies the ledger schema from sourceURL (e.g. "file://migrations").
func Migrate(sourceURL, connString string) error {
	m, err := migrate.New(sourceURL, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
