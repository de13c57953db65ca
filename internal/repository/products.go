package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/bakeshop-system/internal/model"
)

const productColumns = `id, name, slug, description, price, sale_price, stock, flavor,
	category_id, image, avg_rating, review_count,
	is_flash_sale, flash_sale_price, flash_sale_total, flash_sale_sold,
	flash_sale_start, flash_sale_end, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.SalePrice, &p.Stock, &p.Flavor,
		&p.CategoryID, &p.Image, &p.AvgRating, &p.ReviewCount,
		&p.IsFlashSale, &p.FlashSalePrice, &p.FlashSaleTotal, &p.FlashSaleSold,
		&p.FlashSaleStart, &p.FlashSaleEnd, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct сохраняет новый товар и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, slug, description, price, sale_price, stock, flavor,
			category_id, image, is_flash_sale, flash_sale_price, flash_sale_total,
			flash_sale_start, flash_sale_end)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+productColumns,
		p.Name, p.Slug, p.Description, p.Price, p.SalePrice, p.Stock, p.Flavor,
		p.CategoryID, p.Image, p.IsFlashSale, p.FlashSalePrice, p.FlashSaleTotal,
		p.FlashSaleStart, p.FlashSaleEnd,
	)

	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// UpdateProduct перезаписывает редактируемые поля товара. Счётчик flash_sale_sold
// административный путь не трогает: его увеличивает только оформление заказа.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE products SET
			name = $2, slug = $3, description = $4, price = $5, sale_price = $6,
			stock = $7, flavor = $8, category_id = $9, image = $10,
			is_flash_sale = $11, flash_sale_price = $12, flash_sale_total = $13,
			flash_sale_start = $14, flash_sale_end = $15, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID,
		p.Name, p.Slug, p.Description, p.Price, p.SalePrice,
		p.Stock, p.Flavor, p.CategoryID, p.Image,
		p.IsFlashSale, p.FlashSalePrice, p.FlashSaleTotal,
		p.FlashSaleStart, p.FlashSaleEnd,
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, p.ID)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// DeleteProduct удаляет товар каталога. Снимки в заказах при этом не меняются.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
	}
	return nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetProductBySlug возвращает товар по слагу.
func (r *PostgresRepository) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: slug=%s", ErrProductNotFound, slug)
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

// ProductFilter задаёт параметры выборки каталога.
type ProductFilter struct {
	Query      string
	CategoryID *int64
	MinPrice   *int64
	MaxPrice   *int64
	Flavor     string
	Featured   bool
	FlashSale  bool
	Sort       string // newest (по умолчанию) | oldest | rating
	Page       int
	Limit      int
}

// ListProducts возвращает страницу каталога и общее число товаров под фильтром.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Query != "" {
		add(`name ILIKE $%d`, "%"+f.Query+"%")
	}
	if f.CategoryID != nil {
		add(`category_id = $%d`, *f.CategoryID)
	}
	if f.MinPrice != nil {
		add(`price >= $%d`, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(`price <= $%d`, *f.MaxPrice)
	}
	if f.Flavor != "" {
		add(`flavor = $%d`, f.Flavor)
	}
	if f.Featured {
		conds = append(conds, `avg_rating >= 4`)
	}
	if f.FlashSale {
		conds = append(conds, `is_flash_sale`)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order := `created_at DESC`
	switch f.Sort {
	case "oldest":
		order = `created_at ASC`
	case "rating":
		order = `avg_rating DESC`
	default:
		if f.Featured {
			order = `avg_rating DESC`
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+
			fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var items []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return items, total, nil
}

// ListCategories возвращает все категории каталога.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCategory создаёт категорию каталога.
func (r *PostgresRepository) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	var c model.Category
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, name, slug`,
		name, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &c, nil
}

// CategoryExists проверяет существование категории.
func (r *PostgresRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("category exists: %w", err)
	}
	return exists, nil
}
