package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue persists jobs in the shared SQLite database. The entity store owns
// the schema; the queue only reads and writes the jobs table.
type Queue struct {
	db *sql.DB
}

// NewQueue wraps the shared database connection.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

const jobColumns = `id, stage, entity_id, state, current_step, total_steps, status_text,
	result_json, error_message, suppressed_failures, created_at, updated_at,
	started_at, finished_at, last_heartbeat`

// Enqueue creates a pending job and returns its handle.
func (q *Queue) Enqueue(ctx context.Context, stage Stage, entityID int64) (string, error) {
	handle := uuid.NewString()
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `INSERT INTO jobs (
		id, stage, entity_id, state, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		handle,
		string(stage),
		entityID,
		string(StatePending),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s job: %w", stage, err)
	}
	return handle, nil
}

// Get returns the job with the given handle, or nil when it does not exist.
func (q *Queue) Get(ctx context.Context, handle string) (*Job, error) {
	row := q.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM jobs WHERE id = ?", jobColumns), handle)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", handle, err)
	}
	return job, nil
}

// List returns jobs ordered by creation time, optionally filtered by state.
func (q *Queue) List(ctx context.Context, states ...State) ([]*Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs", jobColumns)
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += " WHERE state IN ("
		for i, state := range states {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args = append(args, string(state))
		}
		query += ")"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobList []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobList = append(jobList, job)
	}
	return jobList, rows.Err()
}

// Claim atomically moves the oldest pending job to in_progress and returns
// it. Returns nil when no pending work exists. Racing workers resolve
// through the conditional UPDATE: only one observes a row flip.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	for {
		var handle string
		err := q.db.QueryRowContext(ctx,
			"SELECT id FROM jobs WHERE state = ? ORDER BY created_at ASC, id ASC LIMIT 1",
			string(StatePending)).Scan(&handle)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find pending job: %w", err)
		}

		now := formatTime(time.Now().UTC())
		result, err := q.db.ExecContext(ctx, `UPDATE jobs SET
			state = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
			string(StateInProgress), now, now, now, handle, string(StatePending))
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", handle, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the flip. Look again.
			continue
		}
		return q.Get(ctx, handle)
	}
}

// UpdateProgress persists a progress triple. Regressing updates are dropped
// so a slow write arriving after a later step cannot move progress backward.
func (q *Queue) UpdateProgress(ctx context.Context, handle string, current, total int, statusText string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE jobs SET
		current_step = ?, total_steps = ?, status_text = ?, updated_at = ?
	WHERE id = ? AND state = ? AND current_step <= ?`,
		current, total, statusText, formatTime(time.Now().UTC()),
		handle, string(StateInProgress), current)
	if err != nil {
		return fmt.Errorf("update progress for job %s: %w", handle, err)
	}
	return nil
}

// RecordSuppressedFailure increments the count of per-item failures the
// executor absorbed without failing the job.
func (q *Queue) RecordSuppressedFailure(ctx context.Context, handle string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE jobs SET
		suppressed_failures = suppressed_failures + 1, updated_at = ?
	WHERE id = ?`,
		formatTime(time.Now().UTC()), handle)
	if err != nil {
		return fmt.Errorf("record suppressed failure for job %s: %w", handle, err)
	}
	return nil
}

// Heartbeat refreshes the liveness timestamp of a running job.
func (q *Queue) Heartbeat(ctx context.Context, handle string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND state = ?",
		formatTime(time.Now().UTC()), formatTime(time.Now().UTC()),
		handle, string(StateInProgress))
	if err != nil {
		return fmt.Errorf("heartbeat job %s: %w", handle, err)
	}
	return nil
}

// MarkSucceeded finishes a job with its result payload.
func (q *Queue) MarkSucceeded(ctx context.Context, handle string, result map[string]any) error {
	var resultJSON any
	if len(result) > 0 {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode result for job %s: %w", handle, err)
		}
		resultJSON = string(data)
	}
	now := formatTime(time.Now().UTC())
	_, err := q.db.ExecContext(ctx, `UPDATE jobs SET
		state = ?, result_json = ?, finished_at = ?, updated_at = ?
	WHERE id = ? AND state = ?`,
		string(StateSucceeded), resultJSON, now, now,
		handle, string(StateInProgress))
	if err != nil {
		return fmt.Errorf("mark job %s succeeded: %w", handle, err)
	}
	return nil
}

// MarkFailed finishes a job with an error message.
func (q *Queue) MarkFailed(ctx context.Context, handle string, message string) error {
	now := formatTime(time.Now().UTC())
	_, err := q.db.ExecContext(ctx, `UPDATE jobs SET
		state = ?, error_message = ?, finished_at = ?, updated_at = ?
	WHERE id = ? AND state = ?`,
		string(StateFailed), message, now, now,
		handle, string(StateInProgress))
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", handle, err)
	}
	return nil
}

// ReclaimStale fails in_progress jobs whose heartbeat is older than the
// timeout. Jobs orphaned by a crashed worker surface as failed rather than
// hanging in_progress forever. Returns the handles of reclaimed jobs.
func (q *Queue) ReclaimStale(ctx context.Context, timeout time.Duration) ([]string, error) {
	cutoff := formatTime(time.Now().UTC().Add(-timeout))
	rows, err := q.db.QueryContext(ctx,
		"SELECT id FROM jobs WHERE state = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?",
		string(StateInProgress), cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale jobs: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		handles = append(handles, handle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, handle := range handles {
		if err := q.MarkFailed(ctx, handle, "worker heartbeat lost"); err != nil {
			return handles, err
		}
	}
	return handles, nil
}

// Stats returns job counts per state.
func (q *Queue) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM jobs GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("count jobs by state: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		stats[State(state)] = count
	}
	return stats, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job           Job
		stage         string
		state         string
		statusText    sql.NullString
		resultJSON    sql.NullString
		errorMessage  sql.NullString
		createdAt     string
		updatedAt     string
		startedAt     sql.NullString
		finishedAt    sql.NullString
		lastHeartbeat sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&stage,
		&job.EntityID,
		&state,
		&job.CurrentStep,
		&job.TotalSteps,
		&statusText,
		&resultJSON,
		&errorMessage,
		&job.SuppressedFailures,
		&createdAt,
		&updatedAt,
		&startedAt,
		&finishedAt,
		&lastHeartbeat,
	); err != nil {
		return nil, err
	}
	job.Stage = Stage(stage)
	job.State = State(state)
	job.StatusText = statusText.String
	job.ResultJSON = resultJSON.String
	job.ErrorMessage = errorMessage.String
	if t, err := parseTime(createdAt); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		job.UpdatedAt = t
	}
	job.StartedAt = parseNullableTime(startedAt)
	job.FinishedAt = parseNullableTime(finishedAt)
	job.LastHeartbeat = parseNullableTime(lastHeartbeat)
	return &job, nil
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil
	}
	return &t
}
