package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/queue"
)

// TaskStore implements queue.Repository.
type TaskStore struct{ *Store }

func (s *Store) Tasks() TaskStore { return TaskStore{s} }

func (q TaskStore) Enqueue(ctx context.Context, t queue.Task) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.taskByCV(t.CVID); ok {
		return queue.Task{}, fmt.Errorf("%w: cv already has a task", queue.ErrInvalidTransition)
	}
	q.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (q TaskStore) Get(ctx context.Context, id uuid.UUID) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return queue.Task{}, queue.ErrNotFound
	}
	return cloneTask(t), nil
}

func (q TaskStore) GetByCV(ctx context.Context, cvID uuid.UUID) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.taskByCV(cvID)
	if !ok {
		return queue.Task{}, queue.ErrNotFound
	}
	return cloneTask(t), nil
}

func claimable(t queue.Task, now time.Time) bool {
	switch t.Status {
	case queue.StatusPending:
		return true
	case queue.StatusProcessing:
		return t.LeaseExpiresAt != nil && t.LeaseExpiresAt.Before(now) && t.CanRetry()
	}
	return false
}

func (q TaskStore) ClaimNext(ctx context.Context, workerID string, now time.Time, lease time.Duration) (queue.Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var candidates []queue.Task
	for _, t := range q.tasks {
		if claimable(t, now) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return queue.Task{}, false, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	t := candidates[0]
	until := now.Add(lease)
	t.Status = queue.StatusProcessing
	t.Attempts++
	t.WorkerID = workerID
	t.LeaseExpiresAt = &until
	t.UpdatedAt = now
	q.tasks[t.ID] = t
	return cloneTask(t), true, nil
}

func (q TaskStore) Heartbeat(ctx context.Context, id uuid.UUID, workerID string, leaseUntil time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return queue.ErrNotFound
	}
	if t.Status != queue.StatusProcessing || t.WorkerID != workerID {
		return fmt.Errorf("%w: heartbeat from %s", queue.ErrInvalidTransition, workerID)
	}
	t.LeaseExpiresAt = &leaseUntil
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t
	return nil
}

// end finishes a claim held by workerID. to is computed from the current row.
func (q TaskStore) end(id uuid.UUID, workerID string, to func(queue.Task) queue.Status, lastError *string) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return queue.Task{}, queue.ErrNotFound
	}
	next := to(t)
	if t.Status != queue.StatusProcessing || t.WorkerID != workerID {
		return cloneTask(t), queue.Rejected(t, workerID, next)
	}
	t.Status = next
	t.WorkerID = ""
	t.LeaseExpiresAt = nil
	t.UpdatedAt = time.Now().UTC()
	if lastError != nil {
		t.LastError = *lastError
	}
	q.tasks[id] = t
	return cloneTask(t), nil
}

func (q TaskStore) Complete(ctx context.Context, id uuid.UUID, workerID string) (queue.Task, error) {
	return q.end(id, workerID, func(queue.Task) queue.Status { return queue.StatusCompleted }, nil)
}

func (q TaskStore) Fail(ctx context.Context, id uuid.UUID, workerID string, retriable bool, lastError string) (queue.Task, error) {
	return q.end(id, workerID, func(t queue.Task) queue.Status {
		if retriable && t.CanRetry() {
			return queue.StatusPending
		}
		return queue.StatusFailed
	}, &lastError)
}

func (q TaskStore) Expire(ctx context.Context, id uuid.UUID, now time.Time, lastError string) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return queue.Task{}, queue.ErrNotFound
	}
	if t.Status != queue.StatusProcessing || t.LeaseExpiresAt == nil || !t.LeaseExpiresAt.Before(now) || t.CanRetry() {
		return cloneTask(t), fmt.Errorf("%w: task %s is not abandoned", queue.ErrInvalidTransition, id)
	}
	t.Status = queue.StatusFailed
	t.WorkerID = ""
	t.LeaseExpiresAt = nil
	t.LastError = lastError
	t.UpdatedAt = now
	q.tasks[id] = t
	return cloneTask(t), nil
}

func (q TaskStore) Requeue(ctx context.Context, id uuid.UUID) (queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return queue.Task{}, queue.ErrNotFound
	}
	if t.Status != queue.StatusFailed {
		return cloneTask(t), fmt.Errorf("%w: %s -> %s", queue.ErrInvalidTransition, t.Status, queue.StatusPending)
	}
	t.Status = queue.StatusPending
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t
	return cloneTask(t), nil
}

func (q TaskStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queue.Task
	for _, t := range q.tasks {
		if t.Status == queue.StatusProcessing && t.LeaseExpiresAt != nil && t.LeaseExpiresAt.Before(now) {
			out = append(out, cloneTask(t))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
