package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/metrics"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/app/system"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
	"github.com/opsdeck/backoffice/internal/middleware"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	pair, err := h.app.Auth.Login(r.Context(), payload.Username, payload.Password)
	metrics.RecordLogin(err == nil)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, pair)
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	pair, err := h.app.Auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, pair)
}

func (h *Handler) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.Identity(r.Context())
	if !ok {
		httputil.Error(w, errdefs.Auth("not authenticated"))
		return
	}
	u, err := h.app.Auth.UserInfo(r.Context(), claims.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, u)
}

func (h *Handler) handleUserMenu(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.Identity(r.Context())
	if !ok {
		httputil.Error(w, errdefs.Auth("not authenticated"))
		return
	}
	menus, err := h.app.Auth.UserMenu(r.Context(), claims.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, menus)
}

func (h *Handler) handleUserApi(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.Identity(r.Context())
	if !ok {
		httputil.Error(w, errdefs.Auth("not authenticated"))
		return
	}
	perms, err := h.app.Auth.UserApi(r.Context(), claims.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, perms)
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.Identity(r.Context())
	if !ok {
		httputil.Error(w, errdefs.Auth("not authenticated"))
		return
	}

	var payload struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.app.Auth.UpdatePassword(r.Context(), claims.UserID, payload.OldPassword, payload.NewPassword); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if err := h.app.Auth.Logout(r.Context(), token); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

// handleHealth reports host statistics. Collection is best effort; fields the
// platform refuses stay zero.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, system.CollectHostStats(r.Context()))
}
