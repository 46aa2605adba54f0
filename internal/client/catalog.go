package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
)

// ProductsService manages the product catalog.
type ProductsService struct {
	c *Client
}

// ProductListOptions filter and page the product list. IsActive nil means
// any status.
type ProductListOptions struct {
	Keyword    string
	CategoryID int64
	IsActive   *bool
	Page       int
	PageSize   int
}

// List returns a page of products matching the filter.
func (s *ProductsService) List(ctx context.Context, opts ProductListOptions) ([]product.Product, Page, error) {
	q := url.Values{}
	setIf(q, "keyword", opts.Keyword)
	setInt64If(q, "category_id", opts.CategoryID)
	if opts.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*opts.IsActive))
	}
	setPaging(q, opts.Page, opts.PageSize)

	var list []product.Product
	page, err := s.c.getPage(ctx, "/products/", q, &list)
	return list, page, err
}

// Get fetches one product by id.
func (s *ProductsService) Get(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := s.c.get(ctx, productPath(id), nil, &p)
	return p, err
}

// Create registers a product. in.ID is ignored.
func (s *ProductsService) Create(ctx context.Context, in product.Product) (product.Product, error) {
	var p product.Product
	err := s.c.post(ctx, "/products/", in, &p)
	return p, err
}

// Update rewrites the product with the given id.
func (s *ProductsService) Update(ctx context.Context, id int64, in product.Product) (product.Product, error) {
	var p product.Product
	err := s.c.put(ctx, productPath(id), in, &p)
	return p, err
}

// Delete removes a product by id.
func (s *ProductsService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, productPath(id), nil, nil, nil)
}

// SetStatus flips a product's active flag without touching other fields.
func (s *ProductsService) SetStatus(ctx context.Context, id int64, active bool) (product.Product, error) {
	var p product.Product
	err := s.c.put(ctx, productPath(id)+"/status", map[string]bool{"status": active}, &p)
	return p, err
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

// CategoriesService manages product categories.
type CategoriesService struct {
	c *Client
}

// CategoryListOptions filter and page the category list.
type CategoryListOptions struct {
	Keyword  string
	Page     int
	PageSize int
}

// List returns a page of categories matching the filter.
func (s *CategoriesService) List(ctx context.Context, opts CategoryListOptions) ([]product.Category, Page, error) {
	q := url.Values{}
	setIf(q, "keyword", opts.Keyword)
	setPaging(q, opts.Page, opts.PageSize)

	var list []product.Category
	page, err := s.c.getPage(ctx, "/categories/", q, &list)
	return list, page, err
}

// Get fetches one category by id.
func (s *CategoriesService) Get(ctx context.Context, id int64) (product.Category, error) {
	var c product.Category
	err := s.c.get(ctx, categoryPath(id), nil, &c)
	return c, err
}

// Create registers a category. in.ID is ignored.
func (s *CategoriesService) Create(ctx context.Context, in product.Category) (product.Category, error) {
	var c product.Category
	err := s.c.post(ctx, "/categories/", in, &c)
	return c, err
}

// Update rewrites the category with the given id.
func (s *CategoriesService) Update(ctx context.Context, id int64, in product.Category) (product.Category, error) {
	var c product.Category
	err := s.c.put(ctx, categoryPath(id), in, &c)
	return c, err
}

// Delete removes an empty category by id.
func (s *CategoriesService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, categoryPath(id), nil, nil, nil)
}

func categoryPath(id int64) string {
	return "/categories/" + strconv.FormatInt(id, 10)
}
