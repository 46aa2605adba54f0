package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// ProductStore implementation ------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = s.nextIDLocked()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	p.CategoryName = s.categoryNameLocked(p.CategoryID)
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID]
	if !ok || current.IsDeleted {
		return product.Product{}, fmt.Errorf("product %d: %w", p.ID, storage.ErrNotFound)
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	p.CategoryName = s.categoryNameLocked(p.CategoryID)
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return product.Product{}, fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	p.CategoryName = s.categoryNameLocked(p.CategoryID)
	return p, nil
}

func (s *Store) ListProducts(_ context.Context, f storage.ProductFilter) ([]product.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []product.Product
	for _, p := range s.products {
		if p.IsDeleted {
			continue
		}
		if !containsFold(p.Name, f.Name) {
			continue
		}
		if f.CategoryID > 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		p.CategoryName = s.categoryNameLocked(p.CategoryID)
		matched = append(matched, p)
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) SoftDeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	p.IsDeleted = true
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) SetProductStatus(_ context.Context, id int64, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) CountProductsInCategory(_ context.Context, categoryID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.products {
		if !p.IsDeleted && p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (s *Store) categoryNameLocked(id int64) string {
	if c, ok := s.categories[id]; ok {
		return c.Name
	}
	return ""
}

// Category methods -----------------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, c product.Category) (product.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if !existing.IsDeleted && strings.EqualFold(existing.Name, c.Name) {
			return product.Category{}, fmt.Errorf("category %s: %w", c.Name, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	c.ID = s.nextIDLocked()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c product.Category) (product.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.categories[c.ID]
	if !ok || current.IsDeleted {
		return product.Category{}, fmt.Errorf("category %d: %w", c.ID, storage.ErrNotFound)
	}
	for id, existing := range s.categories {
		if id != c.ID && !existing.IsDeleted && strings.EqualFold(existing.Name, c.Name) {
			return product.Category{}, fmt.Errorf("category %s: %w", c.Name, storage.ErrConflict)
		}
	}
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (product.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok || c.IsDeleted {
		return product.Category{}, fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (product.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if !c.IsDeleted && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return product.Category{}, fmt.Errorf("category %s: %w", name, storage.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context, f storage.CategoryFilter) ([]product.Category, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []product.Category
	for _, c := range s.categories {
		if c.IsDeleted || !containsFold(c.Name, f.Name) {
			continue
		}
		count := 0
		for _, p := range s.products {
			if !p.IsDeleted && p.CategoryID == c.ID {
				count++
			}
		}
		c.ProductCount = count
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Order != matched[j].Order {
			return matched[i].Order < matched[j].Order
		}
		return matched[i].ID < matched[j].ID
	})
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) SoftDeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.IsDeleted {
		return fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
	}
	c.IsDeleted = true
	c.UpdatedAt = time.Now().UTC()
	s.categories[id] = c
	return nil
}
