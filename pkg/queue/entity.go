package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

const (
	DefaultMaxRetries = 3
	DefaultPriority   = 0
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrLeaseLost means another worker owns the claim now. It wraps ErrInvalidTransition.
	ErrLeaseLost = fmt.Errorf("%w: lease lost", ErrInvalidTransition)
)

// Rejected explains why a fenced write by workerID did not apply to cur.
func Rejected(cur Task, workerID string, to Status) error {
	if cur.Status == StatusProcessing && cur.WorkerID != workerID {
		return fmt.Errorf("%w: %s holds the claim", ErrLeaseLost, cur.WorkerID)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
}

// Task is one unit of processing work bound to a CV document.
// JobID, UserID and S3Key are denormalized so the worker does not need extra reads.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	CVID           uuid.UUID  `json:"cvId"`
	JobID          uuid.UUID  `json:"jobId"`
	UserID         uuid.UUID  `json:"userId"`
	S3Key          string     `json:"s3Key"`
	Status         Status     `json:"status"`
	Attempts       int        `json:"attempts"`
	MaxRetries     int        `json:"maxRetries"`
	Priority       int        `json:"priority"`
	WorkerID       string     `json:"workerId,omitempty"`
	LeaseExpiresAt *time.Time `json:"leaseExpiresAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CanRetry reports whether another claim is allowed after a retriable failure.
func (t Task) CanRetry() bool { return t.Attempts < t.MaxRetries }

// NewTask fills defaults for a freshly enqueued task.
func NewTask(cvID, jobID, userID uuid.UUID, key string, priority, maxRetries int) Task {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := time.Now().UTC()
	return Task{
		ID:         uuid.New(),
		CVID:       cvID,
		JobID:      jobID,
		UserID:     userID,
		S3Key:      key,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Repository is the persistence port of the queue.
// ClaimNext must be a single atomic conditional write.
type Repository interface {
	Enqueue(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id uuid.UUID) (Task, error)
	GetByCV(ctx context.Context, cvID uuid.UUID) (Task, error)
	// ClaimNext picks the best PENDING task (or an abandoned PROCESSING one whose
	// lease expired and which still has attempts left), flips it to PROCESSING and
	// increments attempts. ok is false when nothing is claimable.
	ClaimNext(ctx context.Context, workerID string, now time.Time, lease time.Duration) (t Task, ok bool, err error)
	Heartbeat(ctx context.Context, id uuid.UUID, workerID string, leaseUntil time.Time) error
	// Complete and Fail apply only while workerID still holds the claim.
	Complete(ctx context.Context, id uuid.UUID, workerID string) (Task, error)
	// Fail ends the claim in one conditional write: back to PENDING when
	// retriable and attempts < max_retries, FAILED otherwise.
	Fail(ctx context.Context, id uuid.UUID, workerID string, retriable bool, lastError string) (Task, error)
	// Expire fails an abandoned PROCESSING task whose lease ended before now
	// and which has no attempts left.
	Expire(ctx context.Context, id uuid.UUID, now time.Time, lastError string) (Task, error)
	// Requeue is the operator retry: FAILED -> PENDING, attempts preserved.
	Requeue(ctx context.Context, id uuid.UUID) (Task, error)
	// ListExpired returns PROCESSING tasks whose lease ended before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Task, error)
}
