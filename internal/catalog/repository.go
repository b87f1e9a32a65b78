package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/productsheet/internal/platform/db"
)

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, draft Draft) (Product, error)
	Update(ctx context.Context, id int64, patch Patch) (Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	// Acquire pins one store connection for a batch of creates. Callers must
	// Release the returned session.
	Acquire(ctx context.Context) (Session, error)
}

// Session is a store handle scoped to one batch of writes.
type Session interface {
	Create(ctx context.Context, draft Draft) (Product, error)
	Release()
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, brand, price, attributes, created_at, updated_at`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	brand      TEXT NOT NULL,
	price      NUMERIC(14,2) NOT NULL CHECK (price >= 0),
	attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS products_created_at_idx ON products (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS products_attributes_idx ON products USING GIN (attributes);`

// EnsureSchema creates the products table when it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("catalog: ensure schema: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Product, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return products, nil
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
func buildWhere(filter Filter) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + search + "%")
		conds = append(conds, `(name ILIKE `+p+` OR brand ILIKE `+p+
			` OR EXISTS (SELECT 1 FROM jsonb_each_text(attributes) AS attr(key, value) WHERE attr.value ILIKE `+p+`))`)
	}
	if filter.Brand != "" {
		conds = append(conds, `brand = `+next(filter.Brand))
	}
	if len(filter.Attributes) > 0 {
		conds = append(conds, `attributes @> `+next(filter.Attributes))
	}
	if filter.MinPrice != nil {
		conds = append(conds, `price >= `+next(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, `price <= `+next(*filter.MaxPrice))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapError("get", err)
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, draft Draft) (Product, error) {
	return create(ctx, r.pool, draft)
}

func create(ctx context.Context, q querier, draft Draft) (Product, error) {
	attrs := draft.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	row := q.QueryRow(ctx,
		`INSERT INTO products (name, brand, price, attributes) VALUES ($1, $2, $3, $4) RETURNING `+productColumns,
		draft.Name, draft.Brand, *draft.Price, attrs,
	)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapError("create", err)
	}
	return p, nil
}

func (r *repository) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	attrs := patch.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	row := r.pool.QueryRow(ctx, `UPDATE products SET
		name = COALESCE($1, name),
		brand = COALESCE($2, brand),
		price = COALESCE($3, price),
		attributes = $4,
		updated_at = now()
		WHERE id = $5
		RETURNING `+productColumns,
		patch.Name, patch.Brand, patch.Price, attrs, id,
	)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapError("update", err)
	}
	return p, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("catalog: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

func (r *repository) Acquire(ctx context.Context) (Session, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquire connection: %w", err)
	}
	return &connSession{conn: conn}, nil
}

type connSession struct {
	conn *pgxpool.Conn
}

func (s *connSession) Create(ctx context.Context, draft Draft) (Product, error) {
	return create(ctx, s.conn, draft)
}

func (s *connSession) Release() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.Attributes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if p.Attributes == nil {
		p.Attributes = map[string]string{}
	}
	return p, nil
}

func mapError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("catalog: %s: %w", op, err)
	}
}
