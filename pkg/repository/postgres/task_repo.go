package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvflow/pkg/queue"
)

// TaskRepository implements queue.Repository. Claims are a single
// UPDATE over a SKIP LOCKED subselect, so concurrent workers never see the same row.
type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// querier is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const taskColumns = `id, cv_id, job_id, user_id, s3_key, status, attempts, max_retries, priority,
	worker_id, lease_expires_at, last_error, created_at, updated_at`

func scanTask(row rowScanner) (queue.Task, error) {
	var t queue.Task
	var status string
	var workerID, lastError *string
	var created, updated time.Time
	err := row.Scan(&t.ID, &t.CVID, &t.JobID, &t.UserID, &t.S3Key, &status, &t.Attempts, &t.MaxRetries, &t.Priority,
		&workerID, &t.LeaseExpiresAt, &lastError, &created, &updated)
	if err != nil {
		return queue.Task{}, err
	}
	t.Status = queue.Status(status)
	t.WorkerID = deref(workerID)
	t.LastError = deref(lastError)
	t.LeaseExpiresAt = utcPtr(t.LeaseExpiresAt)
	t.CreatedAt, t.UpdatedAt = created.UTC(), updated.UTC()
	return t, nil
}

func insertTask(ctx context.Context, q querier, t queue.Task) (queue.Task, error) {
	return scanTask(q.QueryRow(ctx, `
INSERT INTO cv_tasks (id, cv_id, job_id, user_id, s3_key, status, attempts, max_retries, priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+taskColumns,
		t.ID, t.CVID, t.JobID, t.UserID, t.S3Key, string(t.Status), t.Attempts, t.MaxRetries, t.Priority, t.CreatedAt, t.UpdatedAt))
}

func taskByCV(ctx context.Context, q querier, cvID uuid.UUID) (queue.Task, error) {
	t, err := scanTask(q.QueryRow(ctx, `SELECT `+taskColumns+` FROM cv_tasks WHERE cv_id = $1`, cvID))
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.Task{}, queue.ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) Enqueue(ctx context.Context, t queue.Task) (queue.Task, error) {
	out, err := insertTask(ctx, r.pool, t)
	if isUniqueViolation(err) {
		return queue.Task{}, fmt.Errorf("%w: cv already has a task", queue.ErrInvalidTransition)
	}
	return out, err
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (queue.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM cv_tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.Task{}, queue.ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) GetByCV(ctx context.Context, cvID uuid.UUID) (queue.Task, error) {
	return taskByCV(ctx, r.pool, cvID)
}

func (r *TaskRepository) ClaimNext(ctx context.Context, workerID string, now time.Time, lease time.Duration) (queue.Task, bool, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
UPDATE cv_tasks SET status = 'processing', attempts = attempts + 1, worker_id = $1,
	lease_expires_at = $3, updated_at = $2
WHERE id = (
	SELECT id FROM cv_tasks
	WHERE status = 'pending'
	   OR (status = 'processing' AND lease_expires_at < $2 AND attempts < max_retries)
	ORDER BY priority DESC, created_at ASC
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING `+taskColumns, workerID, now, now.Add(lease)))
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.Task{}, false, nil
	}
	if err != nil {
		return queue.Task{}, false, err
	}
	return t, true, nil
}

func (r *TaskRepository) Heartbeat(ctx context.Context, id uuid.UUID, workerID string, leaseUntil time.Time) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE cv_tasks SET lease_expires_at = $3, updated_at = now()
WHERE id = $1 AND status = 'processing' AND worker_id = $2
`, id, workerID, leaseUntil)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: heartbeat from %s", queue.ErrInvalidTransition, workerID)
	}
	return nil
}

// rejected loads the current row to explain why a conditional write matched nothing.
func (r *TaskRepository) rejected(ctx context.Context, id uuid.UUID, workerID string, to queue.Status) (queue.Task, error) {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return queue.Task{}, err
	}
	return cur, queue.Rejected(cur, workerID, to)
}

func (r *TaskRepository) Complete(ctx context.Context, id uuid.UUID, workerID string) (queue.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
UPDATE cv_tasks SET status = 'completed', worker_id = NULL, lease_expires_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'processing' AND worker_id = $2
RETURNING `+taskColumns, id, workerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.rejected(ctx, id, workerID, queue.StatusCompleted)
	}
	return t, err
}

func (r *TaskRepository) Fail(ctx context.Context, id uuid.UUID, workerID string, retriable bool, lastError string) (queue.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
UPDATE cv_tasks SET
	status = CASE WHEN $3::boolean AND attempts < max_retries THEN 'pending' ELSE 'failed' END,
	worker_id = NULL, lease_expires_at = NULL, last_error = $4, updated_at = now()
WHERE id = $1 AND status = 'processing' AND worker_id = $2
RETURNING `+taskColumns, id, workerID, retriable, lastError))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.rejected(ctx, id, workerID, queue.StatusFailed)
	}
	return t, err
}

func (r *TaskRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time, lastError string) (queue.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
UPDATE cv_tasks SET status = 'failed', worker_id = NULL, lease_expires_at = NULL, last_error = $3, updated_at = $2
WHERE id = $1 AND status = 'processing' AND lease_expires_at < $2 AND attempts >= max_retries
RETURNING `+taskColumns, id, now, lastError))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, gerr := r.Get(ctx, id)
		if gerr != nil {
			return queue.Task{}, gerr
		}
		return cur, fmt.Errorf("%w: task %s is not abandoned", queue.ErrInvalidTransition, id)
	}
	return t, err
}

func (r *TaskRepository) Requeue(ctx context.Context, id uuid.UUID) (queue.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
UPDATE cv_tasks SET status = 'pending', worker_id = NULL, lease_expires_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'failed'
RETURNING `+taskColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.rejected(ctx, id, "", queue.StatusPending)
	}
	return t, err
}

func (r *TaskRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]queue.Task, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+taskColumns+` FROM cv_tasks
WHERE status = 'processing' AND lease_expires_at < $1
ORDER BY lease_expires_at
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []queue.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
