package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Reason describes why a task failed. Kind is a stable machine-readable
// classification, Message is shown to end users.
type Reason struct {
	Kind    string
	Message string
}

// TerminalFailureHandler is notified once a task reaches FAILED for good.
// permanent is true when the failure was classified as non-retriable.
type TerminalFailureHandler interface {
	HandleTerminalFailure(ctx context.Context, t Task, r Reason, permanent bool) error
}

type Service struct {
	repo     Repository
	lease    time.Duration
	onFailed TerminalFailureHandler
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, lease time.Duration, log *slog.Logger) *Service {
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &Service{repo: repo, lease: lease, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// OnTerminalFailure registers the document-side handler. It is set after
// construction because the document service itself depends on the queue.
func (s *Service) OnTerminalFailure(h TerminalFailureHandler) { s.onFailed = h }

func (s *Service) Lease() time.Duration { return s.lease }

func (s *Service) Enqueue(ctx context.Context, cvID, jobID, userID uuid.UUID, key string, priority, maxRetries int) (Task, error) {
	return s.repo.Enqueue(ctx, NewTask(cvID, jobID, userID, key, priority, maxRetries))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Task, error) { return s.repo.Get(ctx, id) }

func (s *Service) GetByCV(ctx context.Context, cvID uuid.UUID) (Task, error) {
	return s.repo.GetByCV(ctx, cvID)
}

func (s *Service) ClaimNext(ctx context.Context, workerID string) (Task, bool, error) {
	return s.repo.ClaimNext(ctx, workerID, s.now(), s.lease)
}

func (s *Service) Heartbeat(ctx context.Context, id uuid.UUID, workerID string) error {
	return s.repo.Heartbeat(ctx, id, workerID, s.now().Add(s.lease))
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, workerID string) (Task, error) {
	t, err := s.repo.Complete(ctx, id, workerID)
	if errors.Is(err, ErrInvalidTransition) {
		s.log.Warn("complete rejected", "task_id", id, "worker_id", workerID, "error", err)
	}
	return t, err
}

// Fail records a failed attempt. A retriable failure with attempts left puts the
// task back to PENDING; anything else is terminal and the registered handler
// marks the document FAILED. terminal reports which branch was taken.
// A worker that lost its lease gets ErrLeaseLost and changes nothing.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, workerID string, retriable bool, r Reason) (t Task, terminal bool, err error) {
	t, err = s.repo.Fail(ctx, id, workerID, retriable, r.Message)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Warn("fail rejected", "task_id", id, "worker_id", workerID, "error", err)
		}
		return t, false, err
	}
	if t.Status == StatusPending {
		s.log.Warn("task released for retry", "task_id", id, "cv_id", t.CVID, "attempts", t.Attempts, "max_retries", t.MaxRetries, "reason", r.Message)
		return t, false, nil
	}
	s.log.Warn("task failed", "task_id", id, "cv_id", t.CVID, "attempts", t.Attempts, "permanent", !retriable, "reason", r.Message)
	if s.onFailed != nil {
		if herr := s.onFailed.HandleTerminalFailure(ctx, t, r, !retriable); herr != nil {
			return t, true, fmt.Errorf("handle terminal failure: %w", herr)
		}
	}
	return t, true, nil
}

// ReclaimExpired finalizes abandoned tasks that have no attempts left. Abandoned
// tasks with attempts left are picked up directly by ClaimNext.
func (s *Service) ReclaimExpired(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.repo.ListExpired(ctx, now, 100)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range expired {
		if t.CanRetry() {
			continue
		}
		ft, err := s.repo.Expire(ctx, t.ID, now, "processing timed out")
		if err != nil {
			// heartbeat renewed the lease or another sweep got there first
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return n, err
		}
		n++
		s.log.Warn("abandoned task exhausted retries", "task_id", t.ID, "cv_id", t.CVID, "attempts", t.Attempts)
		if s.onFailed != nil {
			if err := s.onFailed.HandleTerminalFailure(ctx, ft, Reason{Kind: "timeout", Message: "analysis failed"}, false); err != nil {
				s.log.Error("terminal failure handler", "task_id", t.ID, "error", err)
			}
		}
	}
	return n, nil
}

// Retry is the operator-triggered requeue. Attempts are not reset: a task past
// its cap gets exactly one more claim, and its next failure is terminal again.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (Task, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if cur.Status != StatusFailed {
		return cur, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, cur.Status)
	}
	return s.repo.Requeue(ctx, id)
}
