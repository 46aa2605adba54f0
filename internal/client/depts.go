package client

import (
	"context"
	"net/url"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// DeptsService manages the department tree.
type DeptsService struct {
	c *Client
}

// List returns the department tree, optionally filtered by name. Matching
// nodes keep their ancestors so the tree stays connected.
func (s *DeptsService) List(ctx context.Context, name string) ([]admin.Dept, error) {
	q := url.Values{}
	setIf(q, "name", name)

	var tree []admin.Dept
	err := s.c.get(ctx, "/dept/list", q, &tree)
	return tree, err
}

// Get fetches one department by id.
func (s *DeptsService) Get(ctx context.Context, id int64) (admin.Dept, error) {
	var d admin.Dept
	err := s.c.get(ctx, "/dept/get", idQuery("id", id), &d)
	return d, err
}

// Create registers a department. in.ID is ignored.
func (s *DeptsService) Create(ctx context.Context, in admin.Dept) (admin.Dept, error) {
	var d admin.Dept
	err := s.c.post(ctx, "/dept/create", in, &d)
	return d, err
}

// Update rewrites a department; in.ID selects it.
func (s *DeptsService) Update(ctx context.Context, in admin.Dept) (admin.Dept, error) {
	var d admin.Dept
	err := s.c.post(ctx, "/dept/update", in, &d)
	return d, err
}

// Delete removes a department and its descendants.
func (s *DeptsService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/dept/delete", idQuery("dept_id", id), nil, nil)
}
