package client

import (
	"context"
	"net/url"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// MenusService manages the navigation menu catalog. List and Get return
// menus with their Children populated.
type MenusService struct {
	c *Client
}

// List returns a page of top-level menus, each carrying its subtree.
func (s *MenusService) List(ctx context.Context, page, pageSize int) ([]admin.Menu, Page, error) {
	q := url.Values{}
	setPaging(q, page, pageSize)

	var list []admin.Menu
	p, err := s.c.getPage(ctx, "/menu/list", q, &list)
	return list, p, err
}

// Get fetches one menu by id.
func (s *MenusService) Get(ctx context.Context, id int64) (admin.Menu, error) {
	var m admin.Menu
	err := s.c.get(ctx, "/menu/get", idQuery("menu_id", id), &m)
	return m, err
}

// Create registers a new menu node. in.ID is ignored.
func (s *MenusService) Create(ctx context.Context, in admin.Menu) (admin.Menu, error) {
	var m admin.Menu
	err := s.c.post(ctx, "/menu/create", in, &m)
	return m, err
}

// Update rewrites a menu node; in.ID selects it.
func (s *MenusService) Update(ctx context.Context, in admin.Menu) (admin.Menu, error) {
	var m admin.Menu
	err := s.c.post(ctx, "/menu/update", in, &m)
	return m, err
}

// Delete removes a childless menu by id.
func (s *MenusService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/menu/delete", idQuery("id", id), nil, nil)
}
