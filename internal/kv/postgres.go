package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvSchema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		k TEXT PRIMARY KEY,
		v JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresStore keeps values in the kv_store table on its own connection pool,
// separate from the entity store.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu    sync.Mutex
	ready bool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres creates a pool for dsn and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open kv pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping kv pool: %w", err)
	}
	return NewPostgres(pool), nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ensureReady creates kv_store on first use. A failed attempt is retried on
// the next call.
func (s *PostgresStore) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := s.pool.Exec(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	s.ready = true
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	if err := s.ensureReady(ctx); err != nil {
		return false, err
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT v FROM kv_store WHERE k = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get kv %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode kv value %q: %w", key, err)
	}
	return true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode kv value %q: %w", key, err)
	}
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO kv_store (k, v, updated_at)
		VALUES ($1, $2::jsonb, clock_timestamp())
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = clock_timestamp()
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("set kv %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE k = $1`, key); err != nil {
		return fmt.Errorf("delete kv %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT k FROM kv_store
		WHERE k LIKE $1 ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT $2
	`, escapeLike(prefix)+"%", effectiveLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list kv keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan kv keys: %w", err)
	}
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
