package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateJob inserts a new pending job and returns it.
func (s *Store) CreateJob(ctx context.Context, jobType string, query map[string]any) (*Job, error) {
	j := &Job{
		ID:        uuid.NewString(),
		JobType:   jobType,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	var queryJSON any
	if len(query) > 0 {
		b, err := json.Marshal(query)
		if err != nil {
			return nil, fmt.Errorf("encode job query: %w", err)
		}
		queryJSON = string(b)
		j.Query = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, job_type, status, query, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, j.ID, j.JobType, j.Status, queryJSON, j.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return j, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_type, status, query, progress, results_count, error, started_at, completed_at, created_at
		FROM jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

// GetJobs lists jobs newest-first, optionally filtered by status
// (empty status means all).
func (s *Store) GetJobs(ctx context.Context, status Status) ([]*Job, error) {
	q := `
		SELECT id, job_type, status, query, progress, results_count, error, started_at, completed_at, created_at
		FROM jobs`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row scanner) (*Job, error) {
	j := &Job{}
	var query, progress sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&j.ID, &j.JobType, &j.Status, &query, &progress,
		&j.ResultsCount, &j.Error, &startedAt, &completedAt, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if query.Valid {
		j.Query = []byte(query.String)
	}
	if progress.Valid {
		j.Progress = []byte(progress.String)
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return j, nil
}

// UpdateJobStatus transitions a job's status. started_at is stamped on
// the first transition into running, completed_at and error on the
// transition into a terminal status; neither is ever overwritten.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status Status, errMsg string) error {
	now := time.Now().UTC()

	var err error
	switch {
	case status == StatusRunning:
		_, err = s.db.ExecContext(ctx, `
			UPDATE jobs SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?
		`, status, now, id)
	case status.IsTerminal():
		_, err = s.db.ExecContext(ctx, `
			UPDATE jobs SET status = ?, completed_at = COALESCE(completed_at, ?), error = ? WHERE id = ?
		`, status, now, errMsg, id)
	default:
		_, err = s.db.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update status for job %s: %w", id, err)
	}
	return nil
}

// UpdateJobProgress stores the job's latest progress snapshot. A
// negative resultsCount leaves the current count untouched.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress map[string]any, resultsCount int) error {
	var err error
	if resultsCount >= 0 {
		_, err = s.db.ExecContext(ctx, `
			UPDATE jobs SET progress = ?, results_count = ? WHERE id = ?
		`, jsonText(progress), resultsCount, id)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE jobs SET progress = ? WHERE id = ?`, jsonText(progress), id)
	}
	if err != nil {
		return fmt.Errorf("update progress for job %s: %w", id, err)
	}
	return nil
}

// AddJobResult appends one result row to a job.
func (s *Store) AddJobResult(ctx context.Context, jobID, resultType string, data map[string]any) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_results (job_id, result_type, result_data) VALUES (?, ?, ?)
	`, jobID, resultType, jsonText(data))
	if err != nil {
		return 0, fmt.Errorf("add result for job %s: %w", jobID, err)
	}
	return res.LastInsertId()
}

// GetJobResults returns a job's results oldest-first.
func (s *Store) GetJobResults(ctx context.Context, jobID string, limit int) ([]*JobResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, result_type, result_data, created_at
		FROM job_results WHERE job_id = ? ORDER BY id LIMIT ?
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []*JobResult
	for rows.Next() {
		r := &JobResult{}
		var data sql.NullString
		if err := rows.Scan(&r.ID, &r.JobID, &r.ResultType, &data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job result: %w", err)
		}
		if data.Valid {
			r.ResultData = []byte(data.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// JournalEvent appends one event to the journal. An empty jobID records
// a process-level event not tied to any job.
func (s *Store) JournalEvent(ctx context.Context, eventType string, data map[string]any, jobID string) error {
	var job any
	if jobID != "" {
		job = jobID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (job_id, event_type, event_data, created_at) VALUES (?, ?, ?, ?)
	`, job, eventType, jsonText(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("journal %s event: %w", eventType, err)
	}
	return nil
}

// GetJournal returns journal events newest-first. Rowid order is the
// append order, which DATETIME's one-second resolution cannot provide.
func (s *Store) GetJournal(ctx context.Context, jobID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, job_id, event_type, event_data, created_at FROM journal`
	args := []any{}
	if jobID != "" {
		q += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		var job, data sql.NullString
		if err := rows.Scan(&e.ID, &job, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		if job.Valid {
			e.JobID = job.String
		}
		if data.Valid {
			e.EventData = []byte(data.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteJournalBefore bulk-deletes events older than the cutoff and
// returns the number of rows removed. Administrative only; never called
// during job execution.
func (s *Store) DeleteJournalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("trim journal: %w", err)
	}
	return res.RowsAffected()
}
