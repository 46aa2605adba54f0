package client

import (
	"context"
	"net/url"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// RolesService manages roles and their menu/API grants.
type RolesService struct {
	c *Client
}

// RoleListOptions filter and page the role list.
type RoleListOptions struct {
	Name     string
	Page     int
	PageSize int
}

// List returns a page of roles matching the filter.
func (s *RolesService) List(ctx context.Context, opts RoleListOptions) ([]admin.Role, Page, error) {
	q := url.Values{}
	setIf(q, "role_name", opts.Name)
	setPaging(q, opts.Page, opts.PageSize)

	var list []admin.Role
	page, err := s.c.getPage(ctx, "/role/list", q, &list)
	return list, page, err
}

// Get fetches one role by id.
func (s *RolesService) Get(ctx context.Context, id int64) (admin.Role, error) {
	var role admin.Role
	err := s.c.get(ctx, "/role/get", idQuery("role_id", id), &role)
	return role, err
}

// Create registers a new role.
func (s *RolesService) Create(ctx context.Context, name, desc string) (admin.Role, error) {
	var role admin.Role
	err := s.c.post(ctx, "/role/create", map[string]string{
		"name": name,
		"desc": desc,
	}, &role)
	return role, err
}

// Update renames or re-describes a role.
func (s *RolesService) Update(ctx context.Context, id int64, name, desc string) (admin.Role, error) {
	var role admin.Role
	err := s.c.post(ctx, "/role/update", map[string]any{
		"id":   id,
		"name": name,
		"desc": desc,
	}, &role)
	return role, err
}

// Delete removes a role by id.
func (s *RolesService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/role/delete", idQuery("role_id", id), nil, nil)
}

// Authorized returns the role with its menu and API grants attached.
func (s *RolesService) Authorized(ctx context.Context, id int64) (admin.Role, error) {
	var role admin.Role
	err := s.c.get(ctx, "/role/authorized", idQuery("id", id), &role)
	return role, err
}

// SetAuthorized replaces the role's grants with the given menu and API ids.
func (s *RolesService) SetAuthorized(ctx context.Context, id int64, menuIDs, apiIDs []int64) error {
	return s.c.post(ctx, "/role/authorized", map[string]any{
		"id":       id,
		"menu_ids": menuIDs,
		"api_ids":  apiIDs,
	}, nil)
}
