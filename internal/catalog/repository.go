package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velvetcask/velvetcask/internal/platform/httpx"
)

const uniqueViolation = "23505"

// ListFilters narrows product listing.
type ListFilters struct {
	Search     string
	CategoryID int64
	IsActive   *bool
	Page       int
	PageSize   int
}

// Repository is the persistence contract for the catalog.
type Repository interface {
	ListProducts(ctx context.Context, f ListFilters) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, id int64, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const productColumns = `id, sku, name, distillery, region, category_id, abv, volume_ml, price, stock_quantity, is_active, created_at, updated_at`

func (r *pgRepository) ListProducts(ctx context.Context, f ListFilters) ([]Product, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM products
WHERE ($1::text IS NULL OR name ILIKE '%%' || $1 || '%%' OR sku ILIKE '%%' || $1 || '%%')
  AND ($2::bigint IS NULL OR category_id = $2)
  AND ($3::boolean IS NULL OR is_active = $3)
ORDER BY name ASC
LIMIT $4 OFFSET $5`, productColumns)

	var search *string
	if f.Search != "" {
		search = &f.Search
	}
	var categoryID *int64
	if f.CategoryID > 0 {
		categoryID = &f.CategoryID
	}
	rows, err := r.pool.Query(ctx, query, search, categoryID, f.IsActive, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *pgRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, httpx.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *pgRepository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	query := fmt.Sprintf(`INSERT INTO products (sku, name, distillery, region, category_id, abv, volume_ml, price, stock_quantity, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING %s`, productColumns)
	created, err := scanProduct(r.pool.QueryRow(ctx, query,
		p.SKU, p.Name, p.Distillery, p.Region, p.CategoryID, p.ABV, p.VolumeML, p.Price, p.StockQuantity, p.IsActive))
	if err != nil {
		return Product{}, translateError(err)
	}
	return created, nil
}

func (r *pgRepository) UpdateProduct(ctx context.Context, id int64, p Product) (Product, error) {
	query := fmt.Sprintf(`UPDATE products
SET sku = $2, name = $3, distillery = $4, region = $5, category_id = $6, abv = $7, volume_ml = $8, price = $9, stock_quantity = $10, is_active = $11, updated_at = NOW()
WHERE id = $1
RETURNING %s`, productColumns)
	updated, err := scanProduct(r.pool.QueryRow(ctx, query,
		id, p.SKU, p.Name, p.Distillery, p.Region, p.CategoryID, p.ABV, p.VolumeML, p.Price, p.StockQuantity, p.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, httpx.ErrNotFound
		}
		return Product{}, translateError(err)
	}
	return updated, nil
}

func (r *pgRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *pgRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgRepository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, httpx.ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

func (r *pgRepository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	var created Category
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2)
RETURNING id, name, description, created_at, updated_at`, c.Name, c.Description).
		Scan(&created.ID, &created.Name, &created.Description, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return Category{}, translateError(err)
	}
	return created, nil
}

func (r *pgRepository) UpdateCategory(ctx context.Context, id int64, c Category) (Category, error) {
	var updated Category
	err := r.pool.QueryRow(ctx, `UPDATE categories SET name = $2, description = $3, updated_at = NOW() WHERE id = $1
RETURNING id, name, description, created_at, updated_at`, id, c.Name, c.Description).
		Scan(&updated.ID, &updated.Name, &updated.Description, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, httpx.ErrNotFound
		}
		return Category{}, translateError(err)
	}
	return updated, nil
}

func (r *pgRepository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Distillery, &p.Region, &p.CategoryID,
		&p.ABV, &p.VolumeML, &p.Price, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
