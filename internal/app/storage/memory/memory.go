// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is primarily intended for tests and
// local development without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// Store holds every aggregate behind one lock. Relation tables are plain ID
// slices keyed by owner.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users     map[int64]admin.User
	userRoles map[int64][]int64

	roles     map[int64]admin.Role
	roleMenus map[int64][]int64
	roleApis  map[int64][]int64

	menus map[int64]admin.Menu
	apis  map[int64]admin.Api

	depts    map[int64]admin.Dept
	closures []admin.DeptClosure

	auditLogs map[int64]admin.AuditLog

	products   map[int64]product.Product
	categories map[int64]product.Category
}

var (
	_ storage.UserStore     = (*Store)(nil)
	_ storage.RoleStore     = (*Store)(nil)
	_ storage.MenuStore     = (*Store)(nil)
	_ storage.ApiStore      = (*Store)(nil)
	_ storage.DeptStore     = (*Store)(nil)
	_ storage.AuditLogStore = (*Store)(nil)
	_ storage.ProductStore  = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		users:      make(map[int64]admin.User),
		userRoles:  make(map[int64][]int64),
		roles:      make(map[int64]admin.Role),
		roleMenus:  make(map[int64][]int64),
		roleApis:   make(map[int64][]int64),
		menus:      make(map[int64]admin.Menu),
		apis:       make(map[int64]admin.Api),
		depts:      make(map[int64]admin.Dept),
		auditLogs:  make(map[int64]admin.AuditLog),
		products:   make(map[int64]product.Product),
		categories: make(map[int64]product.Category),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func pageSlice[T any](items []T, p storage.PageArgs) []T {
	n := p.Normalized()
	off := n.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + n.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func cloneIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u admin.User) (admin.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return admin.User{}, fmt.Errorf("username %s: %w", u.Username, storage.ErrConflict)
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return admin.User{}, fmt.Errorf("email %s: %w", u.Email, storage.ErrConflict)
		}
	}

	now := time.Now().UTC()
	u.ID = s.nextIDLocked()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Roles = nil
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u admin.User) (admin.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return admin.User{}, fmt.Errorf("user %d: %w", u.ID, storage.ErrNotFound)
	}
	for id, existing := range s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return admin.User{}, fmt.Errorf("username %s: %w", u.Username, storage.ErrConflict)
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return admin.User{}, fmt.Errorf("email %s: %w", u.Email, storage.ErrConflict)
		}
	}

	u.Password = current.Password
	u.LastLogin = current.LastLogin
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Roles = nil
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (admin.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return admin.User{}, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (admin.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return admin.User{}, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (admin.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return admin.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context, f storage.UserFilter) ([]admin.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []admin.User
	for _, u := range s.users {
		if !containsFold(u.Username, f.Username) {
			continue
		}
		if !containsFold(u.Email, f.Email) {
			continue
		}
		if f.DeptID > 0 && u.DeptID != f.DeptID {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	delete(s.users, id)
	delete(s.userRoles, id)
	return nil
}

func (s *Store) SetUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	for _, id := range roleIDs {
		if _, ok := s.roles[id]; !ok {
			return fmt.Errorf("role %d: %w", id, storage.ErrNotFound)
		}
	}
	s.userRoles[userID] = cloneIDs(roleIDs)
	return nil
}

func (s *Store) ListUserRoles(_ context.Context, userID int64) ([]admin.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	roles := make([]admin.Role, 0, len(s.userRoles[userID]))
	for _, id := range s.userRoles[userID] {
		if r, ok := s.roles[id]; ok {
			roles = append(roles, r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (s *Store) SetLastLogin(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	at = at.UTC()
	u.LastLogin = &at
	s.users[userID] = u
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	u.Password = hash
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}
