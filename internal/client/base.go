package client

import (
	"context"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
)

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HealthStats describes the server host as reported by the health endpoint.
type HealthStats struct {
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
}

// BaseService covers authentication and the caller's own identity.
type BaseService struct {
	c *Client
}

// Login exchanges credentials for a token pair. Storing the pair is the
// caller's business.
func (s *BaseService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	err := s.c.post(ctx, "/base/access_token", map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	return pair, err
}

// RefreshToken trades a refresh token for a fresh pair.
func (s *BaseService) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := s.c.post(ctx, "/base/refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, &pair)
	return pair, err
}

// UserInfo returns the authenticated user's profile.
func (s *BaseService) UserInfo(ctx context.Context) (admin.User, error) {
	var u admin.User
	err := s.c.get(ctx, "/base/userinfo", nil, &u)
	return u, err
}

// UserMenu returns the menu tree visible to the authenticated user.
func (s *BaseService) UserMenu(ctx context.Context) ([]admin.Menu, error) {
	var menus []admin.Menu
	err := s.c.get(ctx, "/base/usermenu", nil, &menus)
	return menus, err
}

// UserApi returns the authenticated user's permission strings.
func (s *BaseService) UserApi(ctx context.Context) ([]string, error) {
	var perms []string
	err := s.c.get(ctx, "/base/userapi", nil, &perms)
	return perms, err
}

// UpdatePassword changes the authenticated user's password.
func (s *BaseService) UpdatePassword(ctx context.Context, oldPassword, newPassword string) error {
	return s.c.post(ctx, "/base/update_password", map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}, nil)
}

// Logout revokes the bearer token used for the call.
func (s *BaseService) Logout(ctx context.Context) error {
	return s.c.post(ctx, "/base/logout", nil, nil)
}

// Health reports server host statistics.
func (s *BaseService) Health(ctx context.Context) (HealthStats, error) {
	var stats HealthStats
	err := s.c.get(ctx, "/base/health", nil, &stats)
	return stats, err
}
