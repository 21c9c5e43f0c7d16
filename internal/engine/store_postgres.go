package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgCacheSchema = `CREATE TABLE IF NOT EXISTS transcript_cache (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps cache entries in a single table. Expired rows are invisible to Get
// and are removed on the next write of the same key or by PurgeExpired.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the cache table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgCacheSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create transcript_cache: %w", err)
	}
	slog.Info("cache: L2 postgres connected")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	var (
		data    []byte
		seconds float64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, EXTRACT(EPOCH FROM (expires_at - now()))::float8
		 FROM transcript_cache WHERE key = $1 AND expires_at > now()`, key,
	).Scan(&data, &seconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrCacheMiss
	}
	if err != nil {
		return nil, 0, err
	}
	return data, time.Duration(seconds * float64(time.Second)), nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcript_cache (key, data, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		key, string(data), time.Now().Add(ttl),
	)
	return err
}

// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcript_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
