package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// DeptStore implementation ---------------------------------------------------

func (s *Store) CreateDept(_ context.Context, d admin.Dept) (admin.Dept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.depts {
		if !existing.IsDeleted && strings.EqualFold(existing.Name, d.Name) {
			return admin.Dept{}, fmt.Errorf("dept %s: %w", d.Name, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	d.ID = s.nextIDLocked()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Children = nil
	s.depts[d.ID] = d
	return d, nil
}

func (s *Store) UpdateDept(_ context.Context, d admin.Dept) (admin.Dept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.depts[d.ID]
	if !ok {
		return admin.Dept{}, fmt.Errorf("dept %d: %w", d.ID, storage.ErrNotFound)
	}
	for id, existing := range s.depts {
		if id != d.ID && !existing.IsDeleted && strings.EqualFold(existing.Name, d.Name) {
			return admin.Dept{}, fmt.Errorf("dept %s: %w", d.Name, storage.ErrConflict)
		}
	}
	d.CreatedAt = current.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	d.Children = nil
	s.depts[d.ID] = d
	return d, nil
}

func (s *Store) GetDept(_ context.Context, id int64) (admin.Dept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depts[id]
	if !ok || d.IsDeleted {
		return admin.Dept{}, fmt.Errorf("dept %d: %w", id, storage.ErrNotFound)
	}
	return d, nil
}

// GetDeptByName also returns soft-deleted rows so the service can apply its
// restore-on-recreate rule.
func (s *Store) GetDeptByName(_ context.Context, name string) (admin.Dept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.depts {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return admin.Dept{}, fmt.Errorf("dept %s: %w", name, storage.ErrNotFound)
}

func (s *Store) ListDepts(_ context.Context, name string) ([]admin.Dept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var depts []admin.Dept
	for _, d := range s.depts {
		if d.IsDeleted || !containsFold(d.Name, name) {
			continue
		}
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool {
		if depts[i].Order != depts[j].Order {
			return depts[i].Order < depts[j].Order
		}
		return depts[i].ID < depts[j].ID
	})
	return depts, nil
}

func (s *Store) SoftDeleteDept(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depts[id]
	if !ok {
		return fmt.Errorf("dept %d: %w", id, storage.ErrNotFound)
	}
	d.IsDeleted = true
	d.UpdatedAt = time.Now().UTC()
	s.depts[id] = d
	return nil
}

func (s *Store) HardDeleteDept(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.depts[id]; !ok {
		return fmt.Errorf("dept %d: %w", id, storage.ErrNotFound)
	}
	delete(s.depts, id)
	return nil
}

func (s *Store) ListClosuresTo(_ context.Context, descendant int64) ([]admin.DeptClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []admin.DeptClosure
	for _, c := range s.closures {
		if c.Descendant == descendant {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Level < rows[j].Level })
	return rows, nil
}

func (s *Store) InsertClosures(_ context.Context, rows []admin.DeptClosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row.ID = s.nextIDLocked()
		s.closures = append(s.closures, row)
	}
	return nil
}

// DeleteClosures removes every edge touching the department, in either
// direction.
func (s *Store) DeleteClosures(_ context.Context, deptID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.closures[:0]
	for _, c := range s.closures {
		if c.Ancestor == deptID || c.Descendant == deptID {
			continue
		}
		out = append(out, c)
	}
	s.closures = out
	return nil
}

func (s *Store) ListDescendantIDs(_ context.Context, ancestor int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, c := range s.closures {
		if c.Ancestor == ancestor && c.Descendant != ancestor {
			ids = append(ids, c.Descendant)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// AuditLogStore implementation -----------------------------------------------

func (s *Store) CreateAuditLog(_ context.Context, e admin.AuditLog) (admin.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e.ID = s.nextIDLocked()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.LogLevel == "" {
		e.LogLevel = "info"
	}
	s.auditLogs[e.ID] = e
	return e, nil
}

func (s *Store) ListAuditLogs(_ context.Context, f storage.AuditLogFilter) ([]admin.AuditLog, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []admin.AuditLog
	for _, e := range s.auditLogs {
		if e.IsDeleted {
			continue
		}
		if !containsFold(e.Username, f.Username) ||
			!containsFold(e.Module, f.Module) ||
			!containsFold(e.Summary, f.Summary) {
			continue
		}
		if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
			continue
		}
		if f.Status != 0 && e.Status != f.Status {
			continue
		}
		if f.OperationType != "" && e.OperationType != f.OperationType {
			continue
		}
		if f.LogLevel != "" && e.LogLevel != f.LogLevel {
			continue
		}
		if !f.StartTime.IsZero() && e.CreatedAt.Before(f.StartTime) {
			continue
		}
		if !f.EndTime.IsZero() && e.CreatedAt.After(f.EndTime) {
			continue
		}
		matched = append(matched, e)
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageSlice(matched, f.PageArgs), len(matched), nil
}

func (s *Store) SoftDeleteAuditLog(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.auditLogs[id]
	if !ok || e.IsDeleted {
		return fmt.Errorf("audit log %d: %w", id, storage.ErrNotFound)
	}
	e.IsDeleted = true
	e.UpdatedAt = time.Now().UTC()
	s.auditLogs[id] = e
	return nil
}

func (s *Store) SoftDeleteAuditLogs(ctx context.Context, ids []int64) (int, error) {
	count := 0
	for _, id := range ids {
		if err := s.SoftDeleteAuditLog(ctx, id); err == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) ClearAuditLogs(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for id, e := range s.auditLogs {
		if e.IsDeleted {
			continue
		}
		if !before.IsZero() && !e.CreatedAt.Before(before) {
			continue
		}
		e.IsDeleted = true
		e.UpdatedAt = now
		s.auditLogs[id] = e
		count++
	}
	return count, nil
}

func (s *Store) AuditLogStats(_ context.Context) (storage.AuditLogStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.AuditLogStats{
		ByMethod:   make(map[string]int64),
		ByModule:   make(map[string]int64),
		ByLogLevel: make(map[string]int64),
	}
	var totalMs int64
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	for _, e := range s.auditLogs {
		if e.IsDeleted {
			continue
		}
		stats.Total++
		stats.ByMethod[e.Method]++
		if e.Module != "" {
			stats.ByModule[e.Module]++
		}
		stats.ByLogLevel[e.LogLevel]++
		totalMs += int64(e.ResponseTime)
		if e.Status >= 400 {
			stats.ErrorCount++
		}
		if e.CreatedAt.After(dayAgo) {
			stats.Last24hEntries++
		}
	}
	if stats.Total > 0 {
		stats.AvgResponseMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}
