// Package httpapi exposes the application services over the REST surface the
// console consumes. Every response is the {code, msg, data} envelope.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	app "github.com/opsdeck/backoffice/internal/app"
	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/metrics"
	"github.com/opsdeck/backoffice/internal/httputil"
	"github.com/opsdeck/backoffice/internal/middleware"
)

const (
	basePath     = "/api/v1"
	staticPrefix = "/static/uploads/"
)

// Config tunes the HTTP surface.
type Config struct {
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
	// RateLimit is requests per second per client, RateBurst the bucket size.
	RateLimit int
	RateBurst int
}

// Handler bundles the HTTP endpoints over the application services.
type Handler struct {
	app     *app.Application
	hub     *auditHub
	limiter *middleware.RateLimiter
	cfg     Config
	log     zerolog.Logger
}

// New builds the handler and attaches the hub and rate limiter lifecycles to
// the application manager.
func New(application *app.Application, cfg Config, log zerolog.Logger) (*Handler, error) {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 2 * cfg.RateLimit
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	h := &Handler{
		app:     application,
		hub:     newAuditHub(log),
		limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, log),
		cfg:     cfg,
		log:     log.With().Str("component", "httpapi").Logger(),
	}
	if err := application.Attach(h.hub); err != nil {
		return nil, err
	}
	if err := application.Attach(h.limiter); err != nil {
		return nil, err
	}
	return h, nil
}

// routeSpec is one REST endpoint. Paths are mux templates relative to
// basePath. Open routes need no token; free routes need a token but no grant.
type routeSpec struct {
	method  string
	path    string
	summary string
	tags    string
	handler http.HandlerFunc
	open    bool
	free    bool
}

func (h *Handler) routes() []routeSpec {
	return []routeSpec{
		{http.MethodPost, "/base/access_token", "User login", "Base", h.handleLogin, true, false},
		{http.MethodPost, "/base/refresh_token", "Refresh access token", "Base", h.handleRefreshToken, true, false},
		{http.MethodGet, "/base/userinfo", "Current user info", "Base", h.handleUserInfo, false, true},
		{http.MethodGet, "/base/usermenu", "Current user menu tree", "Base", h.handleUserMenu, false, true},
		{http.MethodGet, "/base/userapi", "Current user API grants", "Base", h.handleUserApi, false, true},
		{http.MethodPost, "/base/update_password", "Change own password", "Base", h.handleUpdatePassword, false, true},
		{http.MethodPost, "/base/logout", "Logout and revoke token", "Base", h.handleLogout, false, true},
		{http.MethodGet, "/base/health", "Host health statistics", "Base", h.handleHealth, false, true},

		{http.MethodGet, "/user/list", "List users", "User", h.handleUserList, false, false},
		{http.MethodGet, "/user/get", "Get user", "User", h.handleUserGet, false, false},
		{http.MethodPost, "/user/create", "Create user", "User", h.handleUserCreate, false, false},
		{http.MethodPost, "/user/update", "Update user", "User", h.handleUserUpdate, false, false},
		{http.MethodDelete, "/user/delete", "Delete user", "User", h.handleUserDelete, false, false},
		{http.MethodPost, "/user/reset_password", "Reset user password", "User", h.handleUserResetPassword, false, false},

		{http.MethodGet, "/role/list", "List roles", "Role", h.handleRoleList, false, false},
		{http.MethodGet, "/role/get", "Get role", "Role", h.handleRoleGet, false, false},
		{http.MethodPost, "/role/create", "Create role", "Role", h.handleRoleCreate, false, false},
		{http.MethodPost, "/role/update", "Update role", "Role", h.handleRoleUpdate, false, false},
		{http.MethodDelete, "/role/delete", "Delete role", "Role", h.handleRoleDelete, false, false},
		{http.MethodGet, "/role/authorized", "Get role grants", "Role", h.handleRoleAuthorizedGet, false, false},
		{http.MethodPost, "/role/authorized", "Set role grants", "Role", h.handleRoleAuthorizedSet, false, false},

		{http.MethodGet, "/menu/list", "List menu tree", "Menu", h.handleMenuList, false, false},
		{http.MethodGet, "/menu/get", "Get menu", "Menu", h.handleMenuGet, false, false},
		{http.MethodPost, "/menu/create", "Create menu", "Menu", h.handleMenuCreate, false, false},
		{http.MethodPost, "/menu/update", "Update menu", "Menu", h.handleMenuUpdate, false, false},
		{http.MethodDelete, "/menu/delete", "Delete menu", "Menu", h.handleMenuDelete, false, false},

		{http.MethodGet, "/api/list", "List APIs", "Api", h.handleApiList, false, false},
		{http.MethodGet, "/api/get", "Get API", "Api", h.handleApiGet, false, false},
		{http.MethodPost, "/api/create", "Create API", "Api", h.handleApiCreate, false, false},
		{http.MethodPost, "/api/update", "Update API", "Api", h.handleApiUpdate, false, false},
		{http.MethodDelete, "/api/delete", "Delete API", "Api", h.handleApiDelete, false, false},
		{http.MethodPost, "/api/refresh", "Sync grantable route table", "Api", h.handleApiRefresh, false, false},
		{http.MethodGet, "/api/tags", "List API tags", "Api", h.handleApiTags, false, false},

		{http.MethodGet, "/dept/list", "List department tree", "Dept", h.handleDeptList, false, false},
		{http.MethodGet, "/dept/get", "Get department", "Dept", h.handleDeptGet, false, false},
		{http.MethodPost, "/dept/create", "Create department", "Dept", h.handleDeptCreate, false, false},
		{http.MethodPost, "/dept/update", "Update department", "Dept", h.handleDeptUpdate, false, false},
		{http.MethodDelete, "/dept/delete", "Delete department", "Dept", h.handleDeptDelete, false, false},

		{http.MethodGet, "/auditlog/list", "List audit trail", "AuditLog", h.handleAuditList, false, false},
		{http.MethodDelete, "/auditlog/delete/{id}", "Delete audit entry", "AuditLog", h.handleAuditDelete, false, false},
		{http.MethodDelete, "/auditlog/batch_delete", "Batch delete audit entries", "AuditLog", h.handleAuditBatchDelete, false, false},
		{http.MethodDelete, "/auditlog/clear", "Clear audit trail", "AuditLog", h.handleAuditClear, false, false},
		{http.MethodGet, "/auditlog/export", "Export audit trail as CSV", "AuditLog", h.handleAuditExport, false, false},
		{http.MethodGet, "/auditlog/statistics", "Audit trail statistics", "AuditLog", h.handleAuditStats, false, false},
		{http.MethodGet, "/auditlog/ws", "Audit trail live tail", "AuditLog", h.handleAuditWS, true, true},

		{http.MethodPost, "/products", "Create product", "Product", h.handleProductCreate, false, false},
		{http.MethodGet, "/products", "List products", "Product", h.handleProductList, false, false},
		{http.MethodGet, "/products/{id}", "Get product", "Product", h.handleProductGet, false, false},
		{http.MethodPut, "/products/{id}", "Update product", "Product", h.handleProductUpdate, false, false},
		{http.MethodDelete, "/products/{id}", "Delete product", "Product", h.handleProductDelete, false, false},
		{http.MethodPut, "/products/{id}/status", "Toggle product status", "Product", h.handleProductStatus, false, false},

		{http.MethodPost, "/categories", "Create category", "Category", h.handleCategoryCreate, false, false},
		{http.MethodGet, "/categories", "List categories", "Category", h.handleCategoryList, false, false},
		{http.MethodGet, "/categories/{id}", "Get category", "Category", h.handleCategoryGet, false, false},
		{http.MethodPut, "/categories/{id}", "Update category", "Category", h.handleCategoryUpdate, false, false},
		{http.MethodDelete, "/categories/{id}", "Delete category", "Category", h.handleCategoryDelete, false, false},

		{http.MethodPost, "/upload/image", "Upload image", "Upload", h.handleUploadImage, false, false},
	}
}

// LiveApis renders the grantable subset of the route table, the source the
// refresh endpoint reconciles against and the seeder loads on first run.
func (h *Handler) LiveApis() []admin.Api {
	var out []admin.Api
	for _, rt := range h.routes() {
		if rt.open || rt.free {
			continue
		}
		out = append(out, admin.Api{
			Method:  rt.method,
			Path:    basePath + rt.path,
			Summary: rt.summary,
			Tags:    rt.tags,
		})
	}
	return out
}

// Router assembles the full middleware chain around the route table.
//
// Outside the router: tracing, metrics, CORS (handles preflight), rate
// limiting. Inside the API subrouter, where the matched template is known:
// authentication, permission, audit.
func (h *Handler) Router() http.Handler {
	summaries := make(map[string]string)
	var openPaths, freePaths []string
	for _, rt := range h.routes() {
		full := basePath + rt.path
		summaries[rt.method+" "+full] = rt.summary
		if rt.open {
			openPaths = append(openPaths, full)
		}
		if rt.open || rt.free {
			freePaths = append(freePaths, full)
		}
	}

	root := mux.NewRouter()
	root.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	root.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	root.PathPrefix(staticPrefix).Handler(
		http.StripPrefix(staticPrefix, http.FileServer(http.Dir(h.app.Uploads.Dir()))),
	).Methods(http.MethodGet)

	api := root.PathPrefix(basePath).Subrouter()
	authn := middleware.NewAuthenticator(h.app.Auth, h.log, openPaths)
	perm := middleware.NewPermission(h.app.Auth, h.log, freePaths)
	audit := newAuditRecorder(h.app.AuditLogs, h.hub, summaries, []string{
		basePath + "/base/access_token",
		basePath + "/base/refresh_token",
		basePath + "/auditlog",
	}, h.log)
	// The limiter sits after authentication so signed-in callers are keyed
	// by username rather than sharing an address bucket.
	api.Use(authn.Handler, h.limiter.Handler, perm.Handler, audit.Handler)

	for _, rt := range h.routes() {
		api.HandleFunc(rt.path, rt.handler).Methods(rt.method)
		// Collection endpoints answer both spellings.
		if rt.path == "/products" || rt.path == "/categories" {
			api.HandleFunc(rt.path+"/", rt.handler).Methods(rt.method)
		}
	}

	tracing := middleware.NewTracing(h.log)
	cors := middleware.NewCORS(h.cfg.AllowedOrigins)
	var handler http.Handler = root
	handler = cors.Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = tracing.Handler(handler)
	return handler
}

// handleHealthz is the bare liveness probe; /base/health carries host stats.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
