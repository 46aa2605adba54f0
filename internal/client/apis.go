package client

import (
	"context"
	"net/url"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// ApisService manages the grantable endpoint catalog.
type ApisService struct {
	c *Client
}

// ApiListOptions filter and page the endpoint list.
type ApiListOptions struct {
	Path     string
	Summary  string
	Tags     string
	Page     int
	PageSize int
}

// ApiInput is the create/update payload for an endpoint row.
type ApiInput struct {
	ID      int64  `json:"id,omitempty"`
	Path    string `json:"path"`
	Method  string `json:"method"`
	Summary string `json:"summary,omitempty"`
	Tags    string `json:"tags,omitempty"`
}

// List returns a page of endpoints matching the filter.
func (s *ApisService) List(ctx context.Context, opts ApiListOptions) ([]admin.Api, Page, error) {
	q := url.Values{}
	setIf(q, "path", opts.Path)
	setIf(q, "summary", opts.Summary)
	setIf(q, "tags", opts.Tags)
	setPaging(q, opts.Page, opts.PageSize)

	var list []admin.Api
	page, err := s.c.getPage(ctx, "/api/list", q, &list)
	return list, page, err
}

// Get fetches one endpoint by id.
func (s *ApisService) Get(ctx context.Context, id int64) (admin.Api, error) {
	var a admin.Api
	err := s.c.get(ctx, "/api/get", idQuery("id", id), &a)
	return a, err
}

// Create registers an endpoint row by hand.
func (s *ApisService) Create(ctx context.Context, in ApiInput) (admin.Api, error) {
	var a admin.Api
	err := s.c.post(ctx, "/api/create", in, &a)
	return a, err
}

// Update rewrites an endpoint row; in.ID selects it.
func (s *ApisService) Update(ctx context.Context, in ApiInput) (admin.Api, error) {
	var a admin.Api
	err := s.c.post(ctx, "/api/update", in, &a)
	return a, err
}

// Delete removes an endpoint row by id.
func (s *ApisService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/api/delete", idQuery("api_id", id), nil, nil)
}

// Refresh reconciles the endpoint table against the server's live routes
// and reports how many rows were added and removed.
func (s *ApisService) Refresh(ctx context.Context) (added, removed int, err error) {
	var out struct {
		Added   int `json:"added"`
		Removed int `json:"removed"`
	}
	err = s.c.post(ctx, "/api/refresh", nil, &out)
	return out.Added, out.Removed, err
}

// Tags returns the distinct endpoint tags.
func (s *ApisService) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	err := s.c.get(ctx, "/api/tags", nil, &tags)
	return tags, err
}
