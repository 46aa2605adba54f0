package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

// handleDeptList returns the nested department tree, optionally filtered by
// name substring.
func (h *Handler) handleDeptList(w http.ResponseWriter, r *http.Request) {
	tree, err := h.app.Depts.List(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, tree)
}

func (h *Handler) handleDeptGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}
	d, err := h.app.Depts.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, d)
}

func (h *Handler) handleDeptCreate(w http.ResponseWriter, r *http.Request) {
	var payload admin.Dept
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = 0

	d, err := h.app.Depts.Create(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, d)
}

func (h *Handler) handleDeptUpdate(w http.ResponseWriter, r *http.Request) {
	var payload admin.Dept
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	if payload.ID == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}

	d, err := h.app.Depts.Update(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, d)
}

func (h *Handler) handleDeptDelete(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "dept_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("dept_id is required"))
		return
	}
	if err := h.app.Depts.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}
