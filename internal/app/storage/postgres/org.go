package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// DeptStore ------------------------------------------------------------------

const deptColumns = `id, name, "desc", sort_order, parent_id, is_deleted, created_at, updated_at`

func (s *Store) CreateDept(ctx context.Context, d admin.Dept) (admin.Dept, error) {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_dept (name, "desc", sort_order, parent_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		RETURNING id
	`, d.Name, d.Desc, d.Order, d.ParentID, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return admin.Dept{}, mapErr(err, "dept", d.Name)
	}
	d.Children = nil
	return d, nil
}

func (s *Store) UpdateDept(ctx context.Context, d admin.Dept) (admin.Dept, error) {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_dept
		SET name = $2, "desc" = $3, sort_order = $4, parent_id = $5,
			is_deleted = $6, updated_at = $7
		WHERE id = $1
	`, d.ID, d.Name, d.Desc, d.Order, d.ParentID, d.IsDeleted, d.UpdatedAt)
	if err != nil {
		return admin.Dept{}, mapErr(err, "dept", d.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return admin.Dept{}, fmt.Errorf("dept %d: %w", d.ID, storage.ErrNotFound)
	}
	return d, nil
}

func (s *Store) GetDept(ctx context.Context, id int64) (admin.Dept, error) {
	var d admin.Dept
	err := s.db.GetContext(ctx, &d,
		`SELECT `+deptColumns+` FROM admin_dept WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return admin.Dept{}, mapErr(err, "dept", id)
	}
	return d, nil
}

// GetDeptByName also returns soft-deleted rows so the service can apply its
// restore-on-recreate rule.
func (s *Store) GetDeptByName(ctx context.Context, name string) (admin.Dept, error) {
	var d admin.Dept
	err := s.db.GetContext(ctx, &d,
		`SELECT `+deptColumns+` FROM admin_dept WHERE lower(name) = lower($1) ORDER BY is_deleted LIMIT 1`, name)
	if err != nil {
		return admin.Dept{}, mapErr(err, "dept", name)
	}
	return d, nil
}

func (s *Store) ListDepts(ctx context.Context, name string) ([]admin.Dept, error) {
	where := "NOT is_deleted"
	var args []any
	if name != "" {
		args = append(args, "%"+name+"%")
		where += " AND name ILIKE $1"
	}
	depts := []admin.Dept{}
	err := s.db.SelectContext(ctx, &depts,
		`SELECT `+deptColumns+` FROM admin_dept WHERE `+where+` ORDER BY sort_order, id`,
		args...)
	if err != nil {
		return nil, err
	}
	return depts, nil
}

func (s *Store) SoftDeleteDept(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admin_dept SET is_deleted = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("dept %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) HardDeleteDept(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_dept WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("dept %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListClosuresTo(ctx context.Context, descendant int64) ([]admin.DeptClosure, error) {
	rows := []admin.DeptClosure{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, ancestor, descendant, level
		FROM admin_dept_closure
		WHERE descendant = $1
		ORDER BY level
	`, descendant)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) InsertClosures(ctx context.Context, rows []admin.DeptClosure) error {
	if len(rows) == 0 {
		return nil
	}
	ancestors := make([]int64, len(rows))
	descendants := make([]int64, len(rows))
	levels := make([]int64, len(rows))
	for i, r := range rows {
		ancestors[i] = r.Ancestor
		descendants[i] = r.Descendant
		levels[i] = int64(r.Level)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_dept_closure (ancestor, descendant, level)
		SELECT * FROM unnest($1::bigint[], $2::bigint[], $3::bigint[])
	`, pq.Array(ancestors), pq.Array(descendants), pq.Array(levels))
	return err
}

func (s *Store) DeleteClosures(ctx context.Context, deptID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM admin_dept_closure WHERE ancestor = $1 OR descendant = $1`, deptID)
	return err
}

func (s *Store) ListDescendantIDs(ctx context.Context, ancestor int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT descendant FROM admin_dept_closure
		WHERE ancestor = $1 AND descendant <> $1
		ORDER BY descendant
	`, ancestor)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AuditLogStore ----------------------------------------------------------

const auditColumns = `id, user_id, username, module, summary, method, path, status,
	response_time, request_args, response_body, ip_address, user_agent,
	operation_type, log_level, is_deleted, created_at, updated_at`

func (s *Store) CreateAuditLog(ctx context.Context, e admin.AuditLog) (admin.AuditLog, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UpdatedAt = time.Now().UTC()
	if e.LogLevel == "" {
		e.LogLevel = "info"
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_audit_log (user_id, username, module, summary, method, path,
			status, response_time, request_args, response_body, ip_address,
			user_agent, operation_type, log_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, e.UserID, e.Username, e.Module, e.Summary, e.Method, e.Path,
		e.Status, e.ResponseTime, nullJSON(e.RequestArgs), nullJSON(e.ResponseBody),
		e.IPAddress, e.UserAgent, e.OperationType, e.LogLevel,
		e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		return admin.AuditLog{}, err
	}
	return e, nil
}

func (s *Store) ListAuditLogs(ctx context.Context, f storage.AuditLogFilter) ([]admin.AuditLog, int, error) {
	where := []string{"NOT is_deleted"}
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Username != "" {
		add("username ILIKE $%d", "%"+f.Username+"%")
	}
	if f.Module != "" {
		add("module ILIKE $%d", "%"+f.Module+"%")
	}
	if f.Summary != "" {
		add("summary ILIKE $%d", "%"+f.Summary+"%")
	}
	if f.Method != "" {
		add("method = $%d", strings.ToUpper(f.Method))
	}
	if f.Status != 0 {
		add("status = $%d", f.Status)
	}
	if f.OperationType != "" {
		add("operation_type = $%d", f.OperationType)
	}
	if f.LogLevel != "" {
		add("log_level = $%d", f.LogLevel)
	}
	if !f.StartTime.IsZero() {
		add("created_at >= $%d", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		add("created_at <= $%d", f.EndTime)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM admin_audit_log WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	p := f.PageArgs.Normalized()
	args = append(args, p.PageSize, f.PageArgs.Offset())
	logs := []admin.AuditLog{}
	err := s.db.SelectContext(ctx, &logs,
		`SELECT `+auditColumns+` FROM admin_audit_log WHERE `+cond+
			fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (s *Store) SoftDeleteAuditLog(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_audit_log SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("audit log %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SoftDeleteAuditLogs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_audit_log SET is_deleted = TRUE, updated_at = now()
		WHERE id = ANY($1) AND NOT is_deleted
	`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	rows, _ := res.RowsAffected()
	return int(rows), nil
}

func (s *Store) ClearAuditLogs(ctx context.Context, before time.Time) (int, error) {
	query := `UPDATE admin_audit_log SET is_deleted = TRUE, updated_at = now() WHERE NOT is_deleted`
	var args []any
	if !before.IsZero() {
		query += ` AND created_at < $1`
		args = append(args, before)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	rows, _ := res.RowsAffected()
	return int(rows), nil
}

func (s *Store) AuditLogStats(ctx context.Context) (storage.AuditLogStats, error) {
	stats := storage.AuditLogStats{
		ByMethod:   make(map[string]int64),
		ByModule:   make(map[string]int64),
		ByLogLevel: make(map[string]int64),
	}

	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(response_time), 0),
			COUNT(*) FILTER (WHERE status >= 400),
			COUNT(*) FILTER (WHERE created_at > now() - interval '24 hours')
		FROM admin_audit_log WHERE NOT is_deleted
	`).Scan(&stats.Total, &stats.AvgResponseMs, &stats.ErrorCount, &stats.Last24hEntries)
	if err != nil {
		return storage.AuditLogStats{}, err
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int64  `db:"count"`
	}
	fill := func(query string, dst map[string]int64) error {
		var rows []bucket
		if err := s.db.SelectContext(ctx, &rows, query); err != nil {
			return err
		}
		for _, b := range rows {
			dst[b.Key] = b.Count
		}
		return nil
	}
	if err := fill(`SELECT method AS key, COUNT(*) AS count FROM admin_audit_log
		WHERE NOT is_deleted GROUP BY method`, stats.ByMethod); err != nil {
		return storage.AuditLogStats{}, err
	}
	if err := fill(`SELECT module AS key, COUNT(*) AS count FROM admin_audit_log
		WHERE NOT is_deleted AND module <> '' GROUP BY module`, stats.ByModule); err != nil {
		return storage.AuditLogStats{}, err
	}
	if err := fill(`SELECT log_level AS key, COUNT(*) AS count FROM admin_audit_log
		WHERE NOT is_deleted GROUP BY log_level`, stats.ByLogLevel); err != nil {
		return storage.AuditLogStats{}, err
	}
	return stats, nil
}
