// Package products manages the catalog: products and their categories.
package products

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /products and /categories operations.
type Service struct {
	store storage.ProductStore
	log   zerolog.Logger
}

// New constructs a catalog service.
func New(store storage.ProductStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "products").Logger(),
	}
}

// ListProducts returns a filtered page, newest first.
func (s *Service) ListProducts(ctx context.Context, f storage.ProductFilter) ([]product.Product, int, error) {
	return s.store.ListProducts(ctx, f)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (product.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// CreateProduct validates and stores a new product. The name identifies the
// product and must be unique among live records.
func (s *Service) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if err := s.validateProduct(ctx, &p); err != nil {
		return product.Product{}, err
	}
	if err := s.checkProductName(ctx, p.Name, 0); err != nil {
		return product.Product{}, err
	}
	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return product.Product{}, err
	}
	s.log.Info().Int64("product_id", created.ID).Str("name", created.Name).Msg("product created")
	return created, nil
}

// UpdateProduct validates and stores the changed product.
func (s *Service) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if err := s.validateProduct(ctx, &p); err != nil {
		return product.Product{}, err
	}
	if err := s.checkProductName(ctx, p.Name, p.ID); err != nil {
		return product.Product{}, err
	}
	return s.store.UpdateProduct(ctx, p)
}

// DeleteProduct soft-deletes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.SoftDeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

// SetProductStatus toggles a product on or off sale.
func (s *Service) SetProductStatus(ctx context.Context, id int64, status bool) (product.Product, error) {
	if err := s.store.SetProductStatus(ctx, id, status); err != nil {
		return product.Product{}, err
	}
	return s.store.GetProduct(ctx, id)
}

func (s *Service) validateProduct(ctx context.Context, p *product.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errdefs.Business("product name is required")
	}
	if p.CostPrice < 0 || p.SalePrice < 0 {
		return errdefs.Business("prices cannot be negative")
	}
	if p.CategoryID == 0 {
		return errdefs.Business("category is required")
	}
	if _, err := s.store.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errdefs.Businessf("category %d does not exist", p.CategoryID)
		}
		return err
	}
	return nil
}

// checkProductName rejects a live duplicate name. selfID skips the record
// being updated.
func (s *Service) checkProductName(ctx context.Context, name string, selfID int64) error {
	matches, _, err := s.store.ListProducts(ctx, storage.ProductFilter{
		Name:     name,
		PageArgs: storage.PageArgs{Page: 1, PageSize: 100},
	})
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ID != selfID && strings.EqualFold(m.Name, name) {
			return errdefs.Conflict("product name already exists")
		}
	}
	return nil
}

// Categories ----------------------------------------------------------------

// ListCategories returns a filtered page with product counts attached.
func (s *Service) ListCategories(ctx context.Context, f storage.CategoryFilter) ([]product.Category, int, error) {
	return s.store.ListCategories(ctx, f)
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (product.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c product.Category) (product.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return product.Category{}, errdefs.Business("category name is required")
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return product.Category{}, err
	}
	s.log.Info().Int64("category_id", created.ID).Str("name", created.Name).Msg("category created")
	return created, nil
}

// UpdateCategory stores the changed category.
func (s *Service) UpdateCategory(ctx context.Context, c product.Category) (product.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return product.Category{}, errdefs.Business("category name is required")
	}
	return s.store.UpdateCategory(ctx, c)
}

// DeleteCategory soft-deletes a category. Categories still referenced by
// live products are refused.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	n, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errdefs.Businessf("category still has %d products", n)
	}
	if err := s.store.SoftDeleteCategory(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}
