package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
	"github.com/opsdeck/backoffice/internal/middleware"
)

// auditFilterFromQuery reads the shared list/export filter parameters.
func auditFilterFromQuery(r *http.Request) storage.AuditLogFilter {
	q := r.URL.Query()
	return storage.AuditLogFilter{
		Username:      q.Get("username"),
		Module:        q.Get("module"),
		Method:        q.Get("method"),
		Summary:       q.Get("summary"),
		Status:        int(httputil.QueryInt64(r, "status")),
		OperationType: q.Get("operation_type"),
		LogLevel:      q.Get("log_level"),
		StartTime:     parseTime(q.Get("start_time")),
		EndTime:       parseTime(q.Get("end_time")),
	}
}

func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) {
	f := auditFilterFromQuery(r)
	f.PageArgs = httputil.PageFromQuery(r)
	list, total, err := h.app.AuditLogs.List(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleAuditDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		httputil.Error(w, errdefs.Business("invalid audit log id"))
		return
	}
	if err := h.app.AuditLogs.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

func (h *Handler) handleAuditBatchDelete(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	deleted, err := h.app.AuditLogs.BatchDelete(r.Context(), payload.IDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, map[string]int{"deleted": deleted})
}

func (h *Handler) handleAuditClear(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.app.AuditLogs.Clear(r.Context(), int(httputil.QueryInt64(r, "days")))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, map[string]int{"cleared": cleared})
}

// handleAuditExport streams the matching entries as a CSV attachment. Once
// the body is underway an error can only be logged, not reported.
func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("auditlog_export_%s.csv", time.Now().UTC().Format("20060102150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := h.app.AuditLogs.Export(r.Context(), auditFilterFromQuery(r), w); err != nil {
		h.log.Error().Err(err).Msg("audit export aborted")
	}
}

func (h *Handler) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.AuditLogs.Stats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, stats)
}

// handleAuditWS upgrades to a websocket streaming new audit entries. Browsers
// cannot set Authorization on websocket dials, so the token also travels as a
// query parameter; it is checked before the upgrade.
func (h *Handler) handleAuditWS(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if _, err := h.app.Auth.Authenticate(r.Context(), token); err != nil {
		httputil.Error(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.serveWS(conn)
}

// parseTime accepts RFC3339 or the console's second-resolution formats; the
// zero time stands for an unset bound.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
