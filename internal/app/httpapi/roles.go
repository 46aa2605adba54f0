package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

func (h *Handler) handleRoleList(w http.ResponseWriter, r *http.Request) {
	f := storage.RoleFilter{
		Name:     r.URL.Query().Get("role_name"),
		PageArgs: httputil.PageFromQuery(r),
	}
	list, total, err := h.app.Roles.List(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleRoleGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "role_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("role_id is required"))
		return
	}
	role, err := h.app.Roles.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, role)
}

func (h *Handler) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name" validate:"required"`
		Desc string `json:"desc"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	role, err := h.app.Roles.Create(r.Context(), payload.Name, payload.Desc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, role)
}

func (h *Handler) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID   int64  `json:"id" validate:"required"`
		Name string `json:"name" validate:"required"`
		Desc string `json:"desc"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	role, err := h.app.Roles.Update(r.Context(), payload.ID, payload.Name, payload.Desc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, role)
}

func (h *Handler) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "role_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("role_id is required"))
		return
	}
	if err := h.app.Roles.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

// handleRoleAuthorizedGet returns the role with its menu and API grants
// attached.
func (h *Handler) handleRoleAuthorizedGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}
	role, err := h.app.Roles.Authorized(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, role)
}

// handleRoleAuthorizedSet replaces the role's grants wholesale.
func (h *Handler) handleRoleAuthorizedSet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID      int64   `json:"id" validate:"required"`
		MenuIDs []int64 `json:"menu_ids"`
		ApiIDs  []int64 `json:"api_ids"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.app.Roles.SetAuthorized(r.Context(), payload.ID, payload.MenuIDs, payload.ApiIDs); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}
