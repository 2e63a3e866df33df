package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// InsertCustomers queues one INSERT ... RETURNING per draft in a single batch.
// Batch results come back in queue order, so each id is read back into its own draft.
func (r *CustomerRepository) InsertCustomers(ctx context.Context, drafts []domain.CustomerDraft) ([]domain.CustomerDraft, error) {
	if len(drafts) == 0 {
		return []domain.CustomerDraft{}, nil
	}

	query := `
		INSERT INTO customers (name, address, city, postcode, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, draft := range drafts {
		c := draft.Customer
		batch.Queue(query, c.Name, c.Address, c.City, c.Postcode, c.Country, c.CreatedAt, c.UpdatedAt)
	}

	results := conn(ctx, r.pool).SendBatch(ctx, batch)

	persisted := make([]domain.CustomerDraft, 0, len(drafts))
	for _, draft := range drafts {
		if err := results.QueryRow().Scan(&draft.Customer.ID); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("insert customer for order %d: %w", draft.OrderID, err)
		}
		persisted = append(persisted, draft)
	}

	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close customer batch: %w", err)
	}

	return persisted, nil
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) InsertOrders(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{o.ID, o.Customer.ID, o.Amount, o.Status, o.Deleted, o.CreatedAt, o.UpdatedAt})
	}

	_, err := conn(ctx, r.pool).CopyFrom(ctx,
		pgx.Identifier{"orders"},
		[]string{"id", "customer_id", "amount", "status", "deleted", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("insert orders: %w", domain.ErrDuplicateBatch)
		case isForeignKeyViolation(err):
			return fmt.Errorf("insert orders: %w: %v", domain.ErrInternalInconsistency, err)
		}
		return fmt.Errorf("insert orders: %w", err)
	}

	return nil
}

func (r *OrderRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id FROM orders WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect existing ids: %w", err)
	}

	return existing, nil
}

const selectOrders = `
	SELECT o.id, o.amount, o.status, o.deleted, o.created_at, o.updated_at,
	       c.id, c.name, c.address, c.city, c.postcode, c.country, c.created_at, c.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, selectOrders+` WHERE o.id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return &order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := conn(ctx, r.pool).Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	where, args := whereClause(filter)
	args = append(args, ports.PageSize, filter.Offset())

	query := fmt.Sprintf("%s %s ORDER BY o.id LIMIT $%d OFFSET $%d", selectOrders, where, len(args)-1, len(args))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) Count(ctx context.Context, filter ports.ListFilter) (int, error) {
	where, args := whereClause(filter)
	query := `SELECT COUNT(*) FROM orders o JOIN customers c ON c.id = o.customer_id ` + where

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}

	return total, nil
}

func whereClause(filter ports.ListFilter) (string, []any) {
	switch filter.Field {
	case ports.FilterCustomerName:
		return `WHERE c.name LIKE $1 ESCAPE '\'`, []any{likePattern(filter.Term)}
	case ports.FilterStatus:
		return `WHERE o.status LIKE $1 ESCAPE '\'`, []any{likePattern(filter.Term)}
	default:
		return "", nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches term as a literal substring.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.Amount,
		&o.Status,
		&o.Deleted,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Customer.ID,
		&o.Customer.Name,
		&o.Customer.Address,
		&o.Customer.City,
		&o.Customer.Postcode,
		&o.Customer.Country,
		&o.Customer.CreatedAt,
		&o.Customer.UpdatedAt,
	)
	return o, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
