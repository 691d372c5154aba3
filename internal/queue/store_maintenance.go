package queue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// UpdateHeartbeat marks a processing run as alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	placeholders := makePlaceholders(len(processingOrder))
	args := []any{now, now, id}
	for _, status := range processingOrder {
		args = append(args, status)
	}
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE scan_runs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
}

// UpdateProgress persists status and progress fields without touching the
// heartbeat, so concurrent heartbeat writes from the monitor are not
// clobbered by a stale read-modify-write.
func (s *Store) UpdateProgress(ctx context.Context, run *Run) error {
	if run == nil {
		return errRunNil
	}
	run.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE scan_runs
         SET status = ?, progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		run.Status,
		nullableString(run.ProgressStage),
		run.ProgressPercent,
		nullableString(run.ProgressMessage),
		run.UpdatedAt.Format(time.RFC3339Nano),
		run.ID,
	); err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// rollbackCase builds the CASE expression that maps each in-flight status to
// the start of its stage, restricted to the given statuses.
func rollbackCase(statuses []Status) (string, string) {
	requested := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		requested[status] = struct{}{}
	}
	var caseExpr strings.Builder
	caseExpr.WriteString("CASE status")
	quoted := make([]string, 0, len(statuses))
	for _, transition := range stageRollbackTransitions {
		if _, ok := requested[transition.from]; !ok {
			continue
		}
		fmt.Fprintf(&caseExpr, " WHEN '%s' THEN '%s'", transition.from, transition.to)
		quoted = append(quoted, "'"+string(transition.from)+"'")
	}
	caseExpr.WriteString(" ELSE status END")
	return caseExpr.String(), strings.Join(quoted, ",")
}

// ReclaimStaleProcessing rolls back processing runs whose heartbeat is older
// than the cutoff. Runs that never wrote a heartbeat are judged by their
// updated_at instead. With no statuses given, all processing statuses are
// eligible.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	targets := statuses
	if len(targets) == 0 {
		targets = processingOrder
	}
	caseExpr, statusList := rollbackCase(targets)
	if statusList == "" {
		return 0, nil
	}

	cutoffStr := cutoff.UTC().Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := `UPDATE scan_runs
        SET status = ` + caseExpr + `,
            progress_stage = NULL,
            progress_percent = 0,
            progress_message = NULL,
            last_heartbeat = NULL,
            updated_at = ?
        WHERE status IN (` + statusList + `)
          AND ((last_heartbeat IS NOT NULL AND last_heartbeat < ?)
               OR (last_heartbeat IS NULL AND updated_at < ?))`

	res, err := s.execWithRetry(ctx, query, now, cutoffStr, cutoffStr)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale runs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing rolls back every processing run regardless of
// heartbeat age. Called on daemon startup when no worker can be running.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	caseExpr, statusList := rollbackCase(processingOrder)

	query := `UPDATE scan_runs
        SET status = ` + caseExpr + `,
            progress_stage = NULL,
            progress_percent = 0,
            progress_message = NULL,
            last_heartbeat = NULL,
            updated_at = ?
        WHERE status IN (` + statusList + `)`

	res, err := s.execWithRetry(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("reset stuck runs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed and review runs back to pending. With ids it
// retries only those runs; otherwise every failed or review run is reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE scan_runs
         SET status = ?, error_message = NULL,
             progress_stage = NULL, progress_percent = 0, progress_message = NULL,
             last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?)`
	args := []any{StatusPending, now, StatusFailed, StatusReview}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed runs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a run unless it is currently processing.
func (s *Store) Remove(ctx context.Context, id int64) error {
	run, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}
	if run.IsProcessing() {
		return fmt.Errorf("run %d is processing; stop the daemon before removing it", id)
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM scan_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove run: %w", err)
	}
	return nil
}

// Clear deletes all runs that are not currently processing.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	placeholders := makePlaceholders(len(processingOrder))
	args := make([]any, len(processingOrder))
	for i, status := range processingOrder {
		args[i] = status
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM scan_runs WHERE status NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted deletes completed runs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM scan_runs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed runs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed deletes failed and review runs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM scan_runs WHERE status IN (?, ?)`, StatusFailed, StatusReview)
	if err != nil {
		return 0, fmt.Errorf("clear failed runs: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes run counts by lifecycle bucket.
func (s *Store) Stats(ctx context.Context) (*HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM scan_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	summary := &HealthSummary{}
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		status := Status(statusStr)
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusReview:
			summary.Review += count
		case status == StatusCompleted:
			summary.Completed += count
		case IsProcessingStatus(status):
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

var expectedRunColumns = []string{
	"id", "origin", "status", "error_message", "created_at", "updated_at",
	"progress_stage", "progress_percent", "progress_message",
	"snapshot_json", "quality_json", "selection_json",
	"sources_loaded", "raw_entries", "channels", "endpoints",
	"alive_endpoints", "selected_channels",
	"playlist_path", "report_path", "last_heartbeat",
}

// CheckHealth inspects the database file, schema, and integrity.
func (s *Store) CheckHealth(ctx context.Context) *DatabaseHealth {
	health := &DatabaseHealth{DBPath: s.path}

	if _, err := os.Stat(s.path); err != nil {
		health.Error = fmt.Sprintf("database file: %v", err)
		return health
	}
	health.DatabaseExists = true

	if err := s.db.PingContext(ctx); err != nil {
		health.Error = fmt.Sprintf("database unreachable: %v", err)
		return health
	}
	health.DatabaseReadable = true

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		health.Error = fmt.Sprintf("schema version: %v", err)
		return health
	}
	health.SchemaVersion = strconv.Itoa(version)

	var tableName string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='scan_runs'`).Scan(&tableName)
	if err == sql.ErrNoRows {
		health.Error = "scan_runs table missing"
		return health
	}
	if err != nil {
		health.Error = fmt.Sprintf("table lookup: %v", err)
		return health
	}
	health.TableExists = true

	present := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(scan_runs)`)
	if err != nil {
		health.Error = fmt.Sprintf("table info: %v", err)
		return health
	}
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &primaryKey); err != nil {
			rows.Close()
			health.Error = fmt.Sprintf("table info scan: %v", err)
			return health
		}
		present[name] = true
	}
	rows.Close()

	for _, column := range expectedRunColumns {
		if present[column] {
			health.ColumnsPresent = append(health.ColumnsPresent, column)
		} else {
			health.MissingColumns = append(health.MissingColumns, column)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	health.IntegrityCheck = integrity == "ok"

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_runs`).Scan(&health.TotalRuns); err != nil {
		health.Error = fmt.Sprintf("count runs: %v", err)
		return health
	}

	return health
}
