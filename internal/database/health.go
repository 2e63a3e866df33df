package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pingTimeout       = 2 * time.Second
	undefinedTableErr = "42P01"
)

// ErrDirtySchema means a migration failed half-way and needs manual repair.
var ErrDirtySchema = errors.New("database schema is dirty")

// CheckHealth pings the pool and reports a schema left dirty by a failed migration.
// A database that was never migrated counts as healthy.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var dirty bool
	err := pool.QueryRow(ctx, `SELECT dirty FROM schema_migrations LIMIT 1`).Scan(&dirty)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case errors.As(err, &pgErr) && pgErr.Code == undefinedTableErr:
		return nil
	case err != nil:
		return fmt.Errorf("read migration state: %w", err)
	case dirty:
		return ErrDirtySchema
	}
	return nil
}
