package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

// handleMenuList pages the top-level records; children ride along nested.
func (h *Handler) handleMenuList(w http.ResponseWriter, r *http.Request) {
	page := httputil.PageFromQuery(r)
	tree, total, err := h.app.Menus.List(r.Context(), page)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, tree, total, page)
}

func (h *Handler) handleMenuGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "menu_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("menu_id is required"))
		return
	}
	m, err := h.app.Menus.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, m)
}

func (h *Handler) handleMenuCreate(w http.ResponseWriter, r *http.Request) {
	var payload admin.Menu
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = 0

	m, err := h.app.Menus.Create(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, m)
}

func (h *Handler) handleMenuUpdate(w http.ResponseWriter, r *http.Request) {
	var payload admin.Menu
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	if payload.ID == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}

	m, err := h.app.Menus.Update(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, m)
}

func (h *Handler) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}
	if err := h.app.Menus.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}
