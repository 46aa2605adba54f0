package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// ProductStore ------------------------------------------------------------

const productColumns = `p.id, p.name, p.category_id, p.image,
	p.cost_price, p.sale_price, p.specifications, p.description, p.status,
	p.is_deleted, p.created_at, p.updated_at,
	COALESCE(c.name, '') AS category_name`

const productFrom = ` FROM catalog_product p
	LEFT JOIN catalog_category c ON c.id = p.category_id AND NOT c.is_deleted`

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO catalog_product (name, category_id, image, cost_price, sale_price,
			specifications, description, status, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)
		RETURNING id
	`, p.Name, p.CategoryID, p.Image, p.CostPrice, p.SalePrice,
		nullJSON(p.Specifications), p.Description, p.Status,
		p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return product.Product{}, mapErr(err, "product", p.Name)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_product
		SET name = $2, category_id = $3, image = $4, cost_price = $5, sale_price = $6,
			specifications = $7, description = $8, status = $9, updated_at = $10
		WHERE id = $1 AND NOT is_deleted
	`, p.ID, p.Name, p.CategoryID, p.Image, p.CostPrice, p.SalePrice,
		nullJSON(p.Specifications), p.Description, p.Status, p.UpdatedAt)
	if err != nil {
		return product.Product{}, mapErr(err, "product", p.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return product.Product{}, fmt.Errorf("product %d: %w", p.ID, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := s.db.GetContext(ctx, &p,
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND NOT p.is_deleted`, id)
	if err != nil {
		return product.Product{}, mapErr(err, "product", id)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, f storage.ProductFilter) ([]product.Product, int, error) {
	where := []string{"NOT p.is_deleted"}
	var args []any
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM catalog_product p WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	pg := f.PageArgs.Normalized()
	args = append(args, pg.PageSize, f.PageArgs.Offset())
	products := []product.Product{}
	err := s.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+productFrom+` WHERE `+cond+
			fmt.Sprintf(` ORDER BY p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_product SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetProductStatus(ctx context.Context, id int64, status bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_product SET status = $2, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id, status)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM catalog_product
		WHERE category_id = $1 AND NOT is_deleted
	`, categoryID)
	return n, err
}

// CategoryStore ----------------------------------------------------------

const categoryColumns = `c.id, c.name, c.description, c.sort_order, c.is_deleted,
	c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM catalog_product p
		WHERE p.category_id = c.id AND NOT p.is_deleted) AS product_count`

func (s *Store) CreateCategory(ctx context.Context, c product.Category) (product.Category, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO catalog_category (name, description, sort_order, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)
		RETURNING id
	`, c.Name, c.Description, c.Order, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return product.Category{}, mapErr(err, "category", c.Name)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c product.Category) (product.Category, error) {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_category
		SET name = $2, description = $3, sort_order = $4, updated_at = $5
		WHERE id = $1 AND NOT is_deleted
	`, c.ID, c.Name, c.Description, c.Order, c.UpdatedAt)
	if err != nil {
		return product.Category{}, mapErr(err, "category", c.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return product.Category{}, fmt.Errorf("category %d: %w", c.ID, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (product.Category, error) {
	var c product.Category
	err := s.db.GetContext(ctx, &c,
		`SELECT `+categoryColumns+` FROM catalog_category c WHERE c.id = $1 AND NOT c.is_deleted`, id)
	if err != nil {
		return product.Category{}, mapErr(err, "category", id)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (product.Category, error) {
	var c product.Category
	err := s.db.GetContext(ctx, &c,
		`SELECT `+categoryColumns+` FROM catalog_category c
		WHERE lower(c.name) = lower($1) AND NOT c.is_deleted`, name)
	if err != nil {
		return product.Category{}, mapErr(err, "category", name)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, f storage.CategoryFilter) ([]product.Category, int, error) {
	where := "NOT c.is_deleted"
	var args []any
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where += fmt.Sprintf(" AND c.name ILIKE $%d", len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM catalog_category c WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	pg := f.PageArgs.Normalized()
	args = append(args, pg.PageSize, f.PageArgs.Offset())
	categories := []product.Category{}
	err := s.db.SelectContext(ctx, &categories,
		`SELECT `+categoryColumns+` FROM catalog_category c WHERE `+where+
			fmt.Sprintf(` ORDER BY c.sort_order, c.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (s *Store) SoftDeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_category SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
