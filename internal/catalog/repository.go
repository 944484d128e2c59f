package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

const productColumns = `id, name, brand, category_id, avg_cost, sale_price, stock, min_stock, created_at, updated_at`

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

func (r *repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
		return c, err
	})
}

func (r *repo) CreateCategory(ctx context.Context, category Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at`, category.Name).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return Category{}, db.MapError(err, "category")
	}
	return category, nil
}

func (r *repo) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err, "category")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repo) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(contact, ''), created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Supplier, error) {
		var s Supplier
		err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.CreatedAt)
		return s, err
	})
}

func (r *repo) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, contact) VALUES ($1, NULLIF($2, '')) RETURNING id, created_at`,
		supplier.Name, supplier.Contact).Scan(&supplier.ID, &supplier.CreatedAt)
	if err != nil {
		return Supplier{}, db.MapError(err, "supplier")
	}
	return supplier, nil
}

func (r *repo) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err, "supplier")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filters.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR brand ILIKE $%d)", len(args), len(args)))
	}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filters.LowStock {
		where = append(where, "stock <= min_stock")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.Limit, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY name, brand LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return Product{}, db.MapError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (r *repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, brand, category_id, avg_cost, sale_price, stock, min_stock)
		VALUES ($1, $2, $3, $4, $5, 0, $6) RETURNING id, created_at, updated_at`,
		p.Name, p.Brand, p.CategoryID, p.AvgCost, p.SalePrice, p.MinStock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, db.MapError(err, "product")
	}
	p.Stock = 0
	return p, nil
}

func (r *repo) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name = $1, brand = $2, category_id = $3, sale_price = $4,
		min_stock = $5, updated_at = NOW() WHERE id = $6`,
		p.Name, p.Brand, p.CategoryID, p.SalePrice, p.MinStock, p.ID)
	if err != nil {
		return db.MapError(err, "product")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", p.ID, shared.ErrNotFound)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.CategoryID, &p.AvgCost, &p.SalePrice,
		&p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
