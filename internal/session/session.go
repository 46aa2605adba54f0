// Package session persists console auth state between invocations: the
// issued tokens and the cached user profile. Clearing is idempotent so that
// concurrent auth failures trigger the re-login flow exactly once.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

// UserInfo is the cached profile of the logged-in operator.
type UserInfo struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Avatar      string   `json:"avatar"`
	IsSuperuser bool     `json:"is_superuser"`
	Roles       []string `json:"roles"`
}

// State is the on-disk session file layout.
type State struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Store owns the session file. All methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "backoffice", "session.json"), nil
}

// Open loads the session store at path, or an empty one when no file exists
// yet. An empty path selects DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		// a corrupt session file is treated as logged out, not fatal
		s.state = State{}
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Token returns the stored access token, empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RefreshToken
}

// SetTokens stores a fresh token pair and persists the state.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = access
	if refresh != "" {
		s.state.RefreshToken = refresh
	}
	return s.persistLocked()
}

// User returns the cached profile and whether one is present.
func (s *Store) User() (UserInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return UserInfo{}, false
	}
	return *s.state.User, true
}

// SetUser caches the profile and persists the state.
func (s *Store) SetUser(u UserInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = &u
	return s.persistLocked()
}

// Clear wipes tokens and profile and removes the session file. It reports
// whether this call performed the wipe: with many concurrent callers exactly
// one sees true, so the re-login prompt fires once.
func (s *Store) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := s.state.AccessToken == "" && s.state.RefreshToken == "" && s.state.User == nil
	if empty {
		return false, nil
	}
	s.state = State{}

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, fmt.Errorf("remove session file: %w", err)
	}
	return true, nil
}

// Guard denies access when no token is stored. Token validity is not checked
// here: an expired token surfaces as an auth error from the server and is
// handled reactively.
func (s *Store) Guard() error {
	if s.Token() == "" {
		return errdefs.Auth("not logged in, run login first")
	}
	return nil
}

func (s *Store) persistLocked() error {
	s.state.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
