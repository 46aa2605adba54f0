package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// RoleStore implementation ---------------------------------------------------

func (s *Store) CreateRole(_ context.Context, r admin.Role) (admin.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.roles {
		if strings.EqualFold(existing.Name, r.Name) {
			return admin.Role{}, fmt.Errorf("role %s: %w", r.Name, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	r.ID = s.nextIDLocked()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Menus, r.Apis = nil, nil
	s.roles[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRole(_ context.Context, r admin.Role) (admin.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.roles[r.ID]
	if !ok {
		return admin.Role{}, fmt.Errorf("role %d: %w", r.ID, storage.ErrNotFound)
	}
	for id, existing := range s.roles {
		if id != r.ID && strings.EqualFold(existing.Name, r.Name) {
			return admin.Role{}, fmt.Errorf("role %s: %w", r.Name, storage.ErrConflict)
		}
	}
	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	r.Menus, r.Apis = nil, nil
	s.roles[r.ID] = r
	return r, nil
}

func (s *Store) GetRole(_ context.Context, id int64) (admin.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return admin.Role{}, fmt.Errorf("role %d: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (admin.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return admin.Role{}, fmt.Errorf("role %s: %w", name, storage.ErrNotFound)
}

func (s *Store) ListRoles(_ context.Context, f storage.RoleFilter) ([]admin.Role, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []admin.Role
	for _, r := range s.roles {
		if containsFold(r.Name, f.Name) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) DeleteRole(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return fmt.Errorf("role %d: %w", id, storage.ErrNotFound)
	}
	delete(s.roles, id)
	delete(s.roleMenus, id)
	delete(s.roleApis, id)
	for userID, ids := range s.userRoles {
		out := ids[:0]
		for _, rid := range ids {
			if rid != id {
				out = append(out, rid)
			}
		}
		s.userRoles[userID] = out
	}
	return nil
}

func (s *Store) SetRoleMenus(_ context.Context, roleID int64, menuIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return fmt.Errorf("role %d: %w", roleID, storage.ErrNotFound)
	}
	for _, id := range menuIDs {
		if _, ok := s.menus[id]; !ok {
			return fmt.Errorf("menu %d: %w", id, storage.ErrNotFound)
		}
	}
	s.roleMenus[roleID] = cloneIDs(menuIDs)
	return nil
}

func (s *Store) SetRoleApis(_ context.Context, roleID int64, apiIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return fmt.Errorf("role %d: %w", roleID, storage.ErrNotFound)
	}
	for _, id := range apiIDs {
		if _, ok := s.apis[id]; !ok {
			return fmt.Errorf("api %d: %w", id, storage.ErrNotFound)
		}
	}
	s.roleApis[roleID] = cloneIDs(apiIDs)
	return nil
}

func (s *Store) ListRoleMenus(_ context.Context, roleID int64) ([]admin.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, fmt.Errorf("role %d: %w", roleID, storage.ErrNotFound)
	}
	menus := make([]admin.Menu, 0, len(s.roleMenus[roleID]))
	for _, id := range s.roleMenus[roleID] {
		if m, ok := s.menus[id]; ok {
			menus = append(menus, m)
		}
	}
	sortMenus(menus)
	return menus, nil
}

func (s *Store) ListRoleApis(_ context.Context, roleID int64) ([]admin.Api, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, fmt.Errorf("role %d: %w", roleID, storage.ErrNotFound)
	}
	apis := make([]admin.Api, 0, len(s.roleApis[roleID]))
	for _, id := range s.roleApis[roleID] {
		if a, ok := s.apis[id]; ok {
			apis = append(apis, a)
		}
	}
	sort.Slice(apis, func(i, j int) bool { return apis[i].ID < apis[j].ID })
	return apis, nil
}

// MenuStore implementation ---------------------------------------------------

func sortMenus(menus []admin.Menu) {
	sort.Slice(menus, func(i, j int) bool {
		if menus[i].Order != menus[j].Order {
			return menus[i].Order < menus[j].Order
		}
		return menus[i].ID < menus[j].ID
	})
}

func (s *Store) CreateMenu(_ context.Context, m admin.Menu) (admin.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	m.ID = s.nextIDLocked()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Children = nil
	s.menus[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMenu(_ context.Context, m admin.Menu) (admin.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.menus[m.ID]
	if !ok {
		return admin.Menu{}, fmt.Errorf("menu %d: %w", m.ID, storage.ErrNotFound)
	}
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	m.Children = nil
	s.menus[m.ID] = m
	return m, nil
}

func (s *Store) GetMenu(_ context.Context, id int64) (admin.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[id]
	if !ok {
		return admin.Menu{}, fmt.Errorf("menu %d: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListMenus(_ context.Context) ([]admin.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	menus := make([]admin.Menu, 0, len(s.menus))
	for _, m := range s.menus {
		menus = append(menus, m)
	}
	sortMenus(menus)
	return menus, nil
}

func (s *Store) CountMenuChildren(_ context.Context, parentID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.menus {
		if m.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteMenu(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menus[id]; !ok {
		return fmt.Errorf("menu %d: %w", id, storage.ErrNotFound)
	}
	delete(s.menus, id)
	for roleID, ids := range s.roleMenus {
		out := ids[:0]
		for _, mid := range ids {
			if mid != id {
				out = append(out, mid)
			}
		}
		s.roleMenus[roleID] = out
	}
	return nil
}

// ApiStore implementation ----------------------------------------------------

func (s *Store) CreateApi(_ context.Context, a admin.Api) (admin.Api, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apis {
		if strings.EqualFold(existing.Method, a.Method) && existing.Path == a.Path {
			return admin.Api{}, fmt.Errorf("api %s %s: %w", a.Method, a.Path, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	a.ID = s.nextIDLocked()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.apis[a.ID] = a
	return a, nil
}

func (s *Store) UpdateApi(_ context.Context, a admin.Api) (admin.Api, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.apis[a.ID]
	if !ok {
		return admin.Api{}, fmt.Errorf("api %d: %w", a.ID, storage.ErrNotFound)
	}
	for id, existing := range s.apis {
		if id != a.ID && strings.EqualFold(existing.Method, a.Method) && existing.Path == a.Path {
			return admin.Api{}, fmt.Errorf("api %s %s: %w", a.Method, a.Path, storage.ErrConflict)
		}
	}
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.apis[a.ID] = a
	return a, nil
}

func (s *Store) GetApi(_ context.Context, id int64) (admin.Api, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apis[id]
	if !ok {
		return admin.Api{}, fmt.Errorf("api %d: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetApiByRoute(_ context.Context, method, path string) (admin.Api, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.apis {
		if strings.EqualFold(a.Method, method) && a.Path == path {
			return a, nil
		}
	}
	return admin.Api{}, fmt.Errorf("api %s %s: %w", method, path, storage.ErrNotFound)
}

func (s *Store) ListApis(_ context.Context, f storage.ApiFilter) ([]admin.Api, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []admin.Api
	for _, a := range s.apis {
		if !containsFold(a.Path, f.Path) {
			continue
		}
		if !containsFold(a.Summary, f.Summary) {
			continue
		}
		if !containsFold(a.Tags, f.Tags) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) ListAllApis(_ context.Context) ([]admin.Api, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apis := make([]admin.Api, 0, len(s.apis))
	for _, a := range s.apis {
		apis = append(apis, a)
	}
	sort.Slice(apis, func(i, j int) bool { return apis[i].ID < apis[j].ID })
	return apis, nil
}

func (s *Store) ListApiTags(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var tags []string
	for _, a := range s.apis {
		if a.Tags == "" || seen[a.Tags] {
			continue
		}
		seen[a.Tags] = true
		tags = append(tags, a.Tags)
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) DeleteApi(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apis[id]; !ok {
		return fmt.Errorf("api %d: %w", id, storage.ErrNotFound)
	}
	delete(s.apis, id)
	for roleID, ids := range s.roleApis {
		out := ids[:0]
		for _, aid := range ids {
			if aid != id {
				out = append(out, aid)
			}
		}
		s.roleApis[roleID] = out
	}
	return nil
}
