package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

func (h *Handler) handleApiList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ApiFilter{
		Path:     q.Get("path"),
		Summary:  q.Get("summary"),
		Tags:     q.Get("tags"),
		PageArgs: httputil.PageFromQuery(r),
	}
	list, total, err := h.app.Apis.List(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleApiGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}
	a, err := h.app.Apis.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, a)
}

func (h *Handler) handleApiCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path    string `json:"path" validate:"required"`
		Method  string `json:"method" validate:"required"`
		Summary string `json:"summary"`
		Tags    string `json:"tags"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	a, err := h.app.Apis.Create(r.Context(), admin.Api{
		Path:    payload.Path,
		Method:  payload.Method,
		Summary: payload.Summary,
		Tags:    payload.Tags,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, a)
}

func (h *Handler) handleApiUpdate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID      int64  `json:"id" validate:"required"`
		Path    string `json:"path" validate:"required"`
		Method  string `json:"method" validate:"required"`
		Summary string `json:"summary"`
		Tags    string `json:"tags"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	a, err := h.app.Apis.Update(r.Context(), admin.Api{
		ID:      payload.ID,
		Path:    payload.Path,
		Method:  payload.Method,
		Summary: payload.Summary,
		Tags:    payload.Tags,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, a)
}

func (h *Handler) handleApiDelete(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "api_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("api_id is required"))
		return
	}
	if err := h.app.Apis.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

// handleApiRefresh reconciles the grant table against the running route
// table: unknown routes are inserted, vanished ones removed, summaries and
// tags refreshed.
func (h *Handler) handleApiRefresh(w http.ResponseWriter, r *http.Request) {
	added, removed, err := h.app.Apis.Refresh(r.Context(), h.LiveApis())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, map[string]int{"added": added, "removed": removed})
}

func (h *Handler) handleApiTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.app.Apis.Tags(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, tags)
}
