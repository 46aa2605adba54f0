// Package middleware provides the HTTP middleware stack for the backoffice
// server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

// Authenticator checks the bearer token on every request and rejects access
// with an auth-kind envelope before the handler runs.
type Authenticator struct {
	auth      *auth.Service
	log       zerolog.Logger
	skipPaths map[string]bool
}

// NewAuthenticator builds the middleware. Requests to skipPaths pass through
// unauthenticated.
func NewAuthenticator(authSvc *auth.Service, log zerolog.Logger, skipPaths []string) *Authenticator {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &Authenticator{
		auth:      authSvc,
		log:       log.With().Str("component", "authmw").Logger(),
		skipPaths: skip,
	}
}

// Handler returns the middleware handler.
func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := BearerToken(r)
		if token == "" {
			httputil.Error(w, errdefs.Auth("missing or malformed Authorization header"))
			return
		}

		claims, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.log.Warn().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			httputil.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), claims)))
	})
}

// BearerToken extracts the token from the Authorization header, empty when
// the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Permission enforces the RBAC table: the authenticated user must hold a
// grant matching the request method and path. Superusers bypass the check
// inside auth.Can.
type Permission struct {
	auth      *auth.Service
	log       zerolog.Logger
	skipPaths map[string]bool
}

// NewPermission builds the middleware. skipPaths lists routes any
// authenticated user may call, such as userinfo and logout.
func NewPermission(authSvc *auth.Service, log zerolog.Logger, skipPaths []string) *Permission {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &Permission{
		auth:      authSvc,
		log:       log.With().Str("component", "permmw").Logger(),
		skipPaths: skip,
	}
}

// Handler returns the middleware handler. It must sit behind Authenticator;
// requests without an identity are rejected.
func (m *Permission) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := auth.Identity(r.Context())
		if !ok {
			httputil.Error(w, errdefs.Auth("not authenticated"))
			return
		}

		path := GrantPath(r)
		allowed, err := m.auth.Can(r.Context(), claims, r.Method, path)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if !allowed {
			m.log.Warn().
				Str("username", claims.Username).
				Str("method", r.Method).
				Str("path", path).
				Msg("permission denied")
			httputil.Error(w, errdefs.Forbidden("permission denied"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GrantPath is the path form grants are stored under: the matched route
// template when the router provides one (/api/v1/products/{id}), else the raw
// URL path. Trailing slashes are stripped so both collection spellings check
// the same grant.
func GrantPath(r *http.Request) string {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil && tpl != "" {
			path = tpl
		}
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
