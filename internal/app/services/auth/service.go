// Package auth issues and validates the tokens behind /base, checks
// credentials and answers the identity lookups (userinfo, usermenu, userapi)
// the console needs after login.
package auth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Config carries the signing material and token lifetimes.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service implements credential auth and token lifecycle.
type Service struct {
	users storage.UserStore
	roles storage.RoleStore
	menus storage.MenuStore
	apis  storage.ApiStore

	blacklist  Blacklist
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        zerolog.Logger
}

// New constructs the auth service. A nil blacklist falls back to the
// in-memory implementation; zero TTLs take the defaults.
func New(users storage.UserStore, roles storage.RoleStore, menus storage.MenuStore, apis storage.ApiStore, blacklist Blacklist, cfg Config, log zerolog.Logger) *Service {
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Service{
		users:      users,
		roles:      roles,
		menus:      menus,
		apis:       apis,
		blacklist:  blacklist,
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// Blacklist exposes the revocation store so the composition root can manage
// its lifecycle.
func (s *Service) Blacklist() Blacklist { return s.blacklist }

// Login checks the credentials and issues a token pair. The failure message
// never reveals whether the username exists.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, errdefs.Business("username and password are required")
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, errdefs.Auth("invalid username or password")
		}
		return TokenPair{}, err
	}
	if !VerifyPassword(u.Password, password) {
		return TokenPair{}, errdefs.Auth("invalid username or password")
	}
	if !u.IsActive {
		return TokenPair{}, errdefs.Forbidden("user is disabled")
	}

	if err := s.users.SetLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("record last login failed")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("login")
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user must
// still exist and be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, errdefs.Auth("user no longer exists")
		}
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, errdefs.Forbidden("user is disabled")
	}
	return s.issuePair(u)
}

// Logout revokes the presented access token until its natural expiry.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parseAccess(token)
	if err != nil {
		return err
	}
	until := time.Now().Add(s.accessTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Revoke(ctx, token, until); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", claims.UserID).Msg("logout")
	return nil
}

// Authenticate validates an access token, including the revocation check.
// The auth middleware calls this on every guarded request.
func (s *Service) Authenticate(ctx context.Context, token string) (*AccessClaims, error) {
	claims, err := s.parseAccess(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blacklist.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errdefs.Auth("token has been revoked")
	}
	return claims, nil
}

// Can reports whether the identity may call method+path. Superusers bypass
// the grant table; everyone else needs the permission on one of their roles.
func (s *Service) Can(ctx context.Context, claims *AccessClaims, method, path string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.IsSuperuser {
		return true, nil
	}
	perms, err := s.UserApi(ctx, claims.UserID)
	if err != nil {
		return false, err
	}
	want := admin.PermString(method, path)
	for _, p := range perms {
		if p == want {
			return true, nil
		}
	}
	return false, nil
}

// UserInfo returns the account with roles attached.
func (s *Service) UserInfo(ctx context.Context, userID int64) (admin.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return admin.User{}, err
	}
	roles, err := s.users.ListUserRoles(ctx, userID)
	if err != nil {
		return admin.User{}, err
	}
	u.Roles = roles
	return u, nil
}

// UserMenu returns the menu records visible to the user, nested. Superusers
// see everything; others the union of their role grants.
func (s *Service) UserMenu(ctx context.Context, userID int64) ([]admin.Menu, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsSuperuser {
		all, err := s.menus.ListMenus(ctx)
		if err != nil {
			return nil, err
		}
		return admin.MenuTree(all), nil
	}

	roles, err := s.users.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var visible []admin.Menu
	for _, role := range roles {
		menus, err := s.roles.ListRoleMenus(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range menus {
			if !seen[m.ID] {
				seen[m.ID] = true
				visible = append(visible, m)
			}
		}
	}
	return admin.MenuTree(visible), nil
}

// UserApi returns the sorted permission strings the user holds.
func (s *Service) UserApi(ctx context.Context, userID int64) ([]string, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var perms []string
	collect := func(apis []admin.Api) {
		for _, a := range apis {
			p := a.Perm()
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}

	if u.IsSuperuser {
		all, err := s.apis.ListAllApis(ctx)
		if err != nil {
			return nil, err
		}
		collect(all)
	} else {
		roles, err := s.users.ListUserRoles(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			apis, err := s.roles.ListRoleApis(ctx, role.ID)
			if err != nil {
				return nil, err
			}
			collect(apis)
		}
	}
	sort.Strings(perms)
	return perms, nil
}

// UpdatePassword verifies the old password and stores the new hash.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(u.Password, oldPassword) {
		return errdefs.Business("old password is incorrect")
	}
	if newPassword == oldPassword {
		return errdefs.Business("new password must differ from the old one")
	}
	if err := CheckPasswordStrength(newPassword); err != nil {
		return errdefs.Business(err.Error())
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("password updated")
	return nil
}

func (s *Service) issuePair(u admin.User) (TokenPair, error) {
	now := time.Now().UTC()
	access, expires, err := s.signAccess(u, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signRefresh(u, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		Username:     u.Username,
		ExpiresAt:    expires,
	}, nil
}
