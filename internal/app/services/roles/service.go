// Package roles manages roles and their menu/API grants.
package roles

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /role operations.
type Service struct {
	store storage.RoleStore
	log   zerolog.Logger
}

// New constructs a role service.
func New(store storage.RoleStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "roles").Logger(),
	}
}

// List returns a page of roles.
func (s *Service) List(ctx context.Context, f storage.RoleFilter) ([]admin.Role, int, error) {
	return s.store.ListRoles(ctx, f)
}

// Get returns one role.
func (s *Service) Get(ctx context.Context, id int64) (admin.Role, error) {
	return s.store.GetRole(ctx, id)
}

// Create stores a new role.
func (s *Service) Create(ctx context.Context, name, desc string) (admin.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return admin.Role{}, errdefs.Business("role name is required")
	}
	r, err := s.store.CreateRole(ctx, admin.Role{Name: name, Desc: desc})
	if err != nil {
		return admin.Role{}, err
	}
	s.log.Info().Int64("role_id", r.ID).Str("name", r.Name).Msg("role created")
	return r, nil
}

// Update renames a role.
func (s *Service) Update(ctx context.Context, id int64, name, desc string) (admin.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return admin.Role{}, errdefs.Business("role name is required")
	}
	return s.store.UpdateRole(ctx, admin.Role{ID: id, Name: name, Desc: desc})
}

// Delete removes the role. Grants and user assignments cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("role_id", id).Msg("role deleted")
	return nil
}

// Authorized returns the role with its menu and API grants attached.
func (s *Service) Authorized(ctx context.Context, roleID int64) (admin.Role, error) {
	r, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return admin.Role{}, err
	}
	menus, err := s.store.ListRoleMenus(ctx, roleID)
	if err != nil {
		return admin.Role{}, err
	}
	apis, err := s.store.ListRoleApis(ctx, roleID)
	if err != nil {
		return admin.Role{}, err
	}
	r.Menus = menus
	r.Apis = apis
	return r, nil
}

// SetAuthorized replaces the role's menu and API grants.
func (s *Service) SetAuthorized(ctx context.Context, roleID int64, menuIDs, apiIDs []int64) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.SetRoleMenus(ctx, roleID, menuIDs); err != nil {
		return err
	}
	if err := s.store.SetRoleApis(ctx, roleID, apiIDs); err != nil {
		return err
	}
	s.log.Info().Int64("role_id", roleID).
		Int("menus", len(menuIDs)).
		Int("apis", len(apiIDs)).
		Msg("role grants replaced")
	return nil
}
