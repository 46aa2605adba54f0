package client

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// AuditLogsService reads and prunes the audit trail.
type AuditLogsService struct {
	c *Client
}

// AuditListOptions filter and page the audit trail. Zero time bounds are
// ignored.
type AuditListOptions struct {
	Username      string
	Module        string
	Method        string
	Summary       string
	Status        int
	OperationType string
	LogLevel      string
	StartTime     time.Time
	EndTime       time.Time
	Page          int
	PageSize      int
}

// AuditStats summarizes the audit trail.
type AuditStats struct {
	Total          int64            `json:"total"`
	ByMethod       map[string]int64 `json:"by_method"`
	ByModule       map[string]int64 `json:"by_module"`
	ByLogLevel     map[string]int64 `json:"by_log_level"`
	AvgResponseMs  float64          `json:"avg_response_ms"`
	ErrorCount     int64            `json:"error_count"`
	Last24hEntries int64            `json:"last_24h_entries"`
}

// query renders the filter fields; paging is added by List alone.
func (o AuditListOptions) query() url.Values {
	q := url.Values{}
	setIf(q, "username", o.Username)
	setIf(q, "module", o.Module)
	setIf(q, "method", o.Method)
	setIf(q, "summary", o.Summary)
	if o.Status != 0 {
		q.Set("status", strconv.Itoa(o.Status))
	}
	setIf(q, "operation_type", o.OperationType)
	setIf(q, "log_level", o.LogLevel)
	if !o.StartTime.IsZero() {
		q.Set("start_time", o.StartTime.Format(time.RFC3339))
	}
	if !o.EndTime.IsZero() {
		q.Set("end_time", o.EndTime.Format(time.RFC3339))
	}
	return q
}

// List returns a page of audit entries matching the filter, newest first.
func (s *AuditLogsService) List(ctx context.Context, opts AuditListOptions) ([]admin.AuditLog, Page, error) {
	q := opts.query()
	setPaging(q, opts.Page, opts.PageSize)

	var list []admin.AuditLog
	page, err := s.c.getPage(ctx, "/auditlog/list", q, &list)
	return list, page, err
}

// Delete removes one audit entry by id.
func (s *AuditLogsService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, "/auditlog/delete/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// BatchDelete removes several entries and reports how many existed.
func (s *AuditLogsService) BatchDelete(ctx context.Context, ids []int64) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := s.c.del(ctx, "/auditlog/batch_delete", nil, map[string][]int64{"ids": ids}, &out)
	return out.Deleted, err
}

// Clear prunes the trail and reports how many entries were removed. days > 0
// keeps everything newer than that many days; zero clears the whole trail.
func (s *AuditLogsService) Clear(ctx context.Context, days int) (int, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out struct {
		Cleared int `json:"cleared"`
	}
	err := s.c.del(ctx, "/auditlog/clear", q, nil, &out)
	return out.Cleared, err
}

// Export streams the matching entries as CSV into w, ignoring the paging
// fields, and returns the server-suggested file name.
func (s *AuditLogsService) Export(ctx context.Context, opts AuditListOptions, w io.Writer) (string, error) {
	return s.c.download(ctx, "/auditlog/export", opts.query(), w)
}

// Stats summarizes the audit trail.
func (s *AuditLogsService) Stats(ctx context.Context) (AuditStats, error) {
	var stats AuditStats
	err := s.c.get(ctx, "/auditlog/statistics", nil, &stats)
	return stats, err
}

// AuditTail is a live feed of audit entries over a websocket.
type AuditTail struct {
	conn *websocket.Conn
}

// Tail opens a live audit feed. The bearer token travels as a query
// parameter because websocket dials cannot carry headers from a browser,
// and the server honors the same convention here.
func (s *AuditLogsService) Tail(ctx context.Context) (*AuditTail, error) {
	wsURL, err := s.c.websocketURL("/auditlog/ws")
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, s.c.dispatch(errdefs.Classify(resp, nil, nil))
		}
		return nil, s.c.dispatch(errdefs.Network("dial audit feed", err))
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &AuditTail{conn: conn}, nil
}

// Next blocks until the server pushes the next entry.
func (t *AuditTail) Next() (admin.AuditLog, error) {
	var entry admin.AuditLog
	if err := t.conn.ReadJSON(&entry); err != nil {
		return admin.AuditLog{}, errdefs.Network("read audit feed", err)
	}
	return entry, nil
}

// Close shuts the feed down.
func (t *AuditTail) Close() error {
	return t.conn.Close()
}

// websocketURL rewrites the base URL onto the ws scheme and attaches the
// bearer token as a query parameter.
func (c *Client) websocketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1" + path)
	if err != nil {
		return "", errdefs.System("parse base url: " + err.Error())
	}
	switch {
	case strings.EqualFold(u.Scheme, "https"):
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if c.tokens != nil {
		if tok := c.tokens(); tok != "" {
			q := u.Query()
			q.Set("token", tok)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}
