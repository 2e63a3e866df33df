package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps import responses in the idempotency_keys table. A zero ttl keeps rows forever.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

// cutoff returns the oldest created_at still considered live.
func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-s.ttl)
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body
		FROM idempotency_keys
		WHERE key = $1 AND created_at > $2
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key, s.cutoff()).Scan(
		&resp.StatusCode,
		&resp.Body,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

// Save stores the response unless a live one already exists for key.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET status_code = EXCLUDED.status_code,
		    body = EXCLUDED.body,
		    created_at = EXCLUDED.created_at
		WHERE idempotency_keys.created_at <= $5
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, time.Now().UTC(), s.cutoff())
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}

	return nil
}

// DeleteExpired removes rows older than the ttl.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at <= $1`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}

	return result.RowsAffected(), nil
}
