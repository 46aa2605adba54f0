package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/metrics"
	"github.com/opsdeck/backoffice/internal/app/services/auditlogs"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/middleware"
)

// Body capture caps. Anything beyond is truncated, never buffered in full.
const (
	auditArgsCap = 4 << 10
	auditRespCap = 2 << 10
)

// auditRecorder persists every handled request into the audit trail and
// streams new entries to websocket subscribers. Recording failures never fail
// the audited request.
type auditRecorder struct {
	svc          *auditlogs.Service
	hub          *auditHub
	summaries    map[string]string // "METHOD /template" → route summary
	skipPrefixes []string
	log          zerolog.Logger
}

func newAuditRecorder(svc *auditlogs.Service, hub *auditHub, summaries map[string]string, skipPrefixes []string, log zerolog.Logger) *auditRecorder {
	return &auditRecorder{
		svc:          svc,
		hub:          hub,
		summaries:    summaries,
		skipPrefixes: skipPrefixes,
		log:          log.With().Str("component", "audit").Logger(),
	}
}

func (a *auditRecorder) skips(path string) bool {
	for _, p := range a.skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Handler returns the audit middleware handler.
func (a *auditRecorder) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || a.skips(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		var reqBuf bytes.Buffer
		if r.Body != nil && r.Method != http.MethodGet {
			r.Body = readCloser{
				Reader: io.TeeReader(r.Body, capWriter{&reqBuf, auditArgsCap}),
				Closer: r.Body,
			}
		}

		rec := &auditWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		entry := admin.AuditLog{
			Module:        moduleOf(r.URL.Path),
			Summary:       a.summaries[r.Method+" "+middleware.GrantPath(r)],
			Method:        r.Method,
			Path:          r.URL.Path,
			Status:        rec.status,
			ResponseTime:  int(time.Since(start).Milliseconds()),
			RequestArgs:   requestArgs(r, reqBuf.Bytes()),
			IPAddress:     clientIP(r),
			UserAgent:     r.UserAgent(),
			OperationType: operationType(r.Method, r.URL.Path),
		}
		if claims, ok := auth.Identity(r.Context()); ok {
			entry.UserID = claims.UserID
			entry.Username = claims.Username
		}
		if rec.status >= 400 {
			entry.ResponseBody = rawJSON(rec.body.Bytes())
		}

		stored, err := a.svc.Record(r.Context(), entry)
		if err != nil {
			a.log.Warn().Err(err).Str("path", r.URL.Path).Msg("audit record failed")
			return
		}
		metrics.RecordAuditEntry(stored.Module, stored.LogLevel)
		if a.hub != nil {
			a.hub.broadcast(stored)
		}
	})
}

// auditWriter captures the status and the first auditRespCap bytes of the
// response body.
type auditWriter struct {
	http.ResponseWriter
	status  int
	written bool
	body    bytes.Buffer
}

func (w *auditWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *auditWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if room := auditRespCap - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// capWriter keeps the first n bytes and silently discards the rest.
type capWriter struct {
	buf *bytes.Buffer
	n   int
}

func (c capWriter) Write(p []byte) (int, error) {
	if room := c.n - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

// requestArgs renders what the caller sent: query parameters for reads, the
// JSON body for mutations. Password-bearing fields are redacted.
func requestArgs(r *http.Request, body []byte) json.RawMessage {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		if len(q) == 0 {
			return nil
		}
		args := make(map[string]string, len(q))
		for k := range q {
			args[k] = q.Get(k)
		}
		b, err := json.Marshal(args)
		if err != nil {
			return nil
		}
		return b
	}
	return redactArgs(body)
}

func redactArgs(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		// Not a JSON object (multipart upload, truncated capture). Drop it
		// rather than store garbage.
		return nil
	}
	for k := range m {
		if strings.Contains(strings.ToLower(k), "password") {
			m[k] = "***"
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

func rawJSON(b []byte) json.RawMessage {
	if !json.Valid(b) {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// moduleOf extracts the resource segment: /api/v1/user/list → user.
func moduleOf(path string) string {
	trimmed := strings.TrimPrefix(path, basePath)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "base"
	}
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}

func operationType(method, path string) string {
	switch method {
	case http.MethodGet:
		return admin.OpQuery
	case http.MethodDelete:
		return admin.OpDelete
	case http.MethodPut, http.MethodPatch:
		return admin.OpUpdate
	}
	// POST endpoints carry the verb in the path.
	switch {
	case strings.HasSuffix(path, "/access_token"):
		return admin.OpLogin
	case strings.Contains(path, "create"):
		return admin.OpCreate
	case strings.Contains(path, "update"),
		strings.Contains(path, "authorized"),
		strings.Contains(path, "reset_password"),
		strings.Contains(path, "refresh"):
		return admin.OpUpdate
	case strings.Contains(path, "delete"):
		return admin.OpDelete
	case strings.HasSuffix(strings.TrimRight(path, "/"), "/products"),
		strings.HasSuffix(strings.TrimRight(path, "/"), "/categories"):
		return admin.OpCreate
	default:
		return admin.OpOther
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
