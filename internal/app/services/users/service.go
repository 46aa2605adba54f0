// Package users manages operator accounts and their role assignments.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /user operations.
type Service struct {
	store storage.UserStore
	depts storage.DeptStore
	log   zerolog.Logger
}

// New constructs a user service.
func New(store storage.UserStore, depts storage.DeptStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		depts: depts,
		log:   log.With().Str("component", "users").Logger(),
	}
}

// CreateParams carries the user creation payload.
type CreateParams struct {
	Username    string
	Nickname    string
	Email       string
	Phone       string
	Password    string
	IsActive    bool
	IsSuperuser bool
	DeptID      int64
	RoleIDs     []int64
}

// UpdateParams carries the user update payload. Password changes go through
// the auth service or ResetPassword, never here.
type UpdateParams struct {
	ID          int64
	Username    string
	Nickname    string
	Email       string
	Phone       string
	IsActive    bool
	IsSuperuser bool
	DeptID      int64
	RoleIDs     []int64
}

// List returns a page of users with their roles attached.
func (s *Service) List(ctx context.Context, f storage.UserFilter) ([]admin.User, int, error) {
	users, total, err := s.store.ListUsers(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		roles, err := s.store.ListUserRoles(ctx, users[i].ID)
		if err != nil {
			return nil, 0, err
		}
		users[i].Roles = roles
	}
	return users, total, nil
}

// Get returns one user with roles.
func (s *Service) Get(ctx context.Context, id int64) (admin.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return admin.User{}, err
	}
	roles, err := s.store.ListUserRoles(ctx, id)
	if err != nil {
		return admin.User{}, err
	}
	u.Roles = roles
	return u, nil
}

// Create validates the payload, hashes the password and stores the account
// with its role assignments.
func (s *Service) Create(ctx context.Context, p CreateParams) (admin.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	if p.Username == "" {
		return admin.User{}, errdefs.Business("username is required")
	}
	if p.Password == "" {
		return admin.User{}, errdefs.Business("password is required")
	}
	if err := auth.CheckPasswordStrength(p.Password); err != nil {
		return admin.User{}, errdefs.Business(err.Error())
	}
	if err := s.checkDept(ctx, p.DeptID); err != nil {
		return admin.User{}, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return admin.User{}, err
	}
	u, err := s.store.CreateUser(ctx, admin.User{
		Username:    p.Username,
		Nickname:    p.Nickname,
		Email:       p.Email,
		Phone:       p.Phone,
		Password:    hash,
		IsActive:    p.IsActive,
		IsSuperuser: p.IsSuperuser,
		DeptID:      p.DeptID,
	})
	if err != nil {
		return admin.User{}, err
	}
	if len(p.RoleIDs) > 0 {
		if err := s.store.SetUserRoles(ctx, u.ID, p.RoleIDs); err != nil {
			return admin.User{}, err
		}
	}
	s.log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user created")
	return s.Get(ctx, u.ID)
}

// Update stores the changed profile fields and replaces role assignments.
func (s *Service) Update(ctx context.Context, p UpdateParams) (admin.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return admin.User{}, errdefs.Business("username is required")
	}
	if err := s.checkDept(ctx, p.DeptID); err != nil {
		return admin.User{}, err
	}

	_, err := s.store.UpdateUser(ctx, admin.User{
		ID:          p.ID,
		Username:    p.Username,
		Nickname:    p.Nickname,
		Email:       strings.TrimSpace(p.Email),
		Phone:       p.Phone,
		IsActive:    p.IsActive,
		IsSuperuser: p.IsSuperuser,
		DeptID:      p.DeptID,
	})
	if err != nil {
		return admin.User{}, err
	}
	if p.RoleIDs != nil {
		if err := s.store.SetUserRoles(ctx, p.ID, p.RoleIDs); err != nil {
			return admin.User{}, err
		}
	}
	return s.Get(ctx, p.ID)
}

// Delete removes the account and its role assignments.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// ResetPassword sets a fresh random password and returns it in plaintext,
// once, so the operator can hand it over. It is never stored unhashed.
func (s *Service) ResetPassword(ctx context.Context, id int64) (string, error) {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return "", err
	}
	plain := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return "", err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return "", err
	}
	s.log.Info().Int64("user_id", id).Msg("password reset")
	return plain, nil
}

func (s *Service) checkDept(ctx context.Context, deptID int64) error {
	if deptID == 0 || s.depts == nil {
		return nil
	}
	if _, err := s.depts.GetDept(ctx, deptID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errdefs.Businessf("department %d does not exist", deptID)
		}
		return err
	}
	return nil
}
