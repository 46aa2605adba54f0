package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// UsersService manages user accounts.
type UsersService struct {
	c *Client
}

// UserListOptions filter and page the user list.
type UserListOptions struct {
	Username string
	Email    string
	DeptID   int64
	Page     int
	PageSize int
}

// UserInput is the create/update payload. RoleIDs left nil keeps the
// current assignments on update; an empty non-nil slice clears them.
type UserInput struct {
	ID          int64   `json:"id,omitempty"`
	Username    string  `json:"username"`
	Nickname    string  `json:"nickname,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Password    string  `json:"password,omitempty"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	DeptID      int64   `json:"dept_id,omitempty"`
	RoleIDs     []int64 `json:"role_ids,omitempty"`
}

// List returns a page of users matching the filter.
func (s *UsersService) List(ctx context.Context, opts UserListOptions) ([]admin.User, Page, error) {
	q := url.Values{}
	setIf(q, "username", opts.Username)
	setIf(q, "email", opts.Email)
	setInt64If(q, "dept_id", opts.DeptID)
	setPaging(q, opts.Page, opts.PageSize)

	var list []admin.User
	page, err := s.c.getPage(ctx, "/user/list", q, &list)
	return list, page, err
}

// Get fetches one user by id.
func (s *UsersService) Get(ctx context.Context, id int64) (admin.User, error) {
	var u admin.User
	err := s.c.get(ctx, "/user/get", idQuery("user_id", id), &u)
	return u, err
}

// Create registers a new user.
func (s *UsersService) Create(ctx context.Context, in UserInput) (admin.User, error) {
	var u admin.User
	err := s.c.post(ctx, "/user/create", in, &u)
	return u, err
}

// Update rewrites an existing user; in.ID selects it.
func (s *UsersService) Update(ctx context.Context, in UserInput) (admin.User, error) {
	var u admin.User
	err := s.c.post(ctx, "/user/update", in, &u)
	return u, err
}

// Delete removes a user by id.
func (s *UsersService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/user/delete", idQuery("user_id", id), nil, nil)
}

// ResetPassword issues a fresh random password for the user and returns it.
func (s *UsersService) ResetPassword(ctx context.Context, id int64) (string, error) {
	var out struct {
		Password string `json:"password"`
	}
	err := s.c.post(ctx, "/user/reset_password", map[string]int64{"user_id": id}, &out)
	return out.Password, err
}

func setIf(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func setInt64If(q url.Values, key string, val int64) {
	if val != 0 {
		q.Set(key, strconv.FormatInt(val, 10))
	}
}

func setPaging(q url.Values, page, pageSize int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
}

func idQuery(key string, id int64) url.Values {
	q := url.Values{}
	q.Set(key, strconv.FormatInt(id, 10))
	return q
}
