// Package auditlogs manages the request audit trail: recording, filtered
// listing, statistics and soft deletion.
package auditlogs

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /auditlog operations.
type Service struct {
	store storage.AuditLogStore
	log   zerolog.Logger
}

// New constructs an audit log service.
func New(store storage.AuditLogStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "auditlogs").Logger(),
	}
}

// Record persists one entry. The audit middleware is the main caller; a
// failure here must never fail the request being audited, so callers log and
// move on.
func (s *Service) Record(ctx context.Context, e admin.AuditLog) (admin.AuditLog, error) {
	if e.LogLevel == "" {
		if e.Status >= 500 {
			e.LogLevel = "error"
		} else if e.Status >= 400 {
			e.LogLevel = "warning"
		} else {
			e.LogLevel = "info"
		}
	}
	return s.store.CreateAuditLog(ctx, e)
}

// List returns a filtered page, newest first.
func (s *Service) List(ctx context.Context, f storage.AuditLogFilter) ([]admin.AuditLog, int, error) {
	return s.store.ListAuditLogs(ctx, f)
}

// Delete soft-deletes one entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.SoftDeleteAuditLog(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("audit_id", id).Msg("audit log deleted")
	return nil
}

// BatchDelete soft-deletes the given entries and reports how many actually
// changed. Unknown IDs are skipped, not errors.
func (s *Service) BatchDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, errdefs.Business("ids are required")
	}
	n, err := s.store.SoftDeleteAuditLogs(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("requested", len(ids)).Int("deleted", n).Msg("audit logs batch deleted")
	return n, nil
}

// Clear soft-deletes retained entries. days > 0 restricts the sweep to
// entries older than that many days; zero clears the whole trail.
func (s *Service) Clear(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, errdefs.Business("days must not be negative")
	}
	var before time.Time
	if days > 0 {
		before = time.Now().UTC().AddDate(0, 0, -days)
	}
	n, err := s.store.ClearAuditLogs(ctx, before)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("days", days).Int("cleared", n).Msg("audit trail cleared")
	return n, nil
}

// exportPageSize bounds how much of the trail is held in memory at once
// while streaming an export.
const exportPageSize = 500

var exportHeader = []string{"id", "user_id", "username", "module", "summary",
	"method", "path", "status", "response_time_ms", "ip_address",
	"operation_type", "log_level", "created_at"}

// Export streams every entry matching the filter as CSV, newest first, and
// reports how many rows were written. Paging fields on the filter are
// ignored; the export walks the whole result set.
func (s *Service) Export(ctx context.Context, f storage.AuditLogFilter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	written := 0
	f.PageArgs = storage.PageArgs{Page: 1, PageSize: exportPageSize}
	for {
		entries, total, err := s.store.ListAuditLogs(ctx, f)
		if err != nil {
			return written, err
		}
		for _, e := range entries {
			row := []string{
				strconv.FormatInt(e.ID, 10),
				strconv.FormatInt(e.UserID, 10),
				e.Username, e.Module, e.Summary, e.Method, e.Path,
				strconv.Itoa(e.Status),
				strconv.Itoa(e.ResponseTime),
				e.IPAddress, e.OperationType, e.LogLevel,
				e.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return written, err
			}
			written++
		}
		if len(entries) == 0 || written >= total {
			break
		}
		f.PageArgs.Page++
	}
	cw.Flush()
	return written, cw.Error()
}

// Stats summarizes the retained trail.
func (s *Service) Stats(ctx context.Context) (storage.AuditLogStats, error) {
	return s.store.AuditLogStats(ctx)
}
