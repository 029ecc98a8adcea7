package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordRun writes one finished run and its per-task outcomes in a single
// transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run, tasks []TaskOutcome) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, title, success, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Title, boolToInt(run.Success), run.Started.UTC(), run.Finished.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, task := range tasks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, name, status, error, duration_ms, output_bytes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, task.Name, task.Status, task.Error,
			task.Duration.Milliseconds(), task.OutputBytes)
		if err != nil {
			return fmt.Errorf("failed to insert task %q: %w", task.Name, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, success, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var success int
		if err := rows.Scan(&r.ID, &r.Title, &success, &r.Started, &r.Finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Success = success != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunTasks returns the task outcomes of one run in name order.
func (s *SQLiteStore) RunTasks(ctx context.Context, runID string) ([]TaskOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, name, status, error, duration_ms, output_bytes
		FROM run_tasks WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskOutcome
	for rows.Next() {
		var t TaskOutcome
		var durationMS int64
		if err := rows.Scan(&t.RunID, &t.Name, &t.Status, &t.Error, &durationMS, &t.OutputBytes); err != nil {
			return nil, fmt.Errorf("failed to scan task outcome: %w", err)
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
