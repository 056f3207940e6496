package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/logging"
	"github.com/artem13815/cvflow/pkg/queue"
	"github.com/artem13815/cvflow/pkg/repository/memory"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls []queue.Reason
	perm  []bool
}

func (h *recordingHandler) HandleTerminalFailure(ctx context.Context, t queue.Task, r queue.Reason, permanent bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, r)
	h.perm = append(h.perm, permanent)
	return nil
}

func newService(t *testing.T, lease time.Duration) (*queue.Service, *recordingHandler) {
	t.Helper()
	svc := queue.NewService(memory.New().Tasks(), lease, logging.Discard())
	h := &recordingHandler{}
	svc.OnTerminalFailure(h)
	return svc, h
}

func enqueue(t *testing.T, svc *queue.Service, priority, maxRetries int) queue.Task {
	t.Helper()
	task, err := svc.Enqueue(context.Background(), uuid.New(), uuid.New(), uuid.New(), "users/u/batches/b/cvs/"+uuid.NewString(), priority, maxRetries)
	require.NoError(t, err)
	return task
}

func TestClaimOrderAndAttempts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Minute)
	low := enqueue(t, svc, 0, 3)
	time.Sleep(time.Millisecond)
	high := enqueue(t, svc, 5, 3)

	got, ok, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, high.ID, got.ID)
	assert.Equal(t, queue.StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "w1", got.WorkerID)
	require.NotNil(t, got.LeaseExpiresAt)

	got, ok, err = svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, low.ID, got.ID)

	_, ok, err = svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentClaimIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 3)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner []string
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			got, ok, err := svc.ClaimNext(ctx, id)
			if err != nil || !ok {
				return
			}
			mu.Lock()
			winner = append(winner, id)
			mu.Unlock()
			assert.Equal(t, task.ID, got.ID)
		}(uuid.NewString())
	}
	wg.Wait()
	assert.Len(t, winner, 1)
}

func TestFailRetriesUntilCap(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 2)
	reason := queue.Reason{Kind: "analysis_failed", Message: "analysis failed"}

	claimed, ok, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	got, terminal, err := svc.Fail(ctx, claimed.ID, "w1", true, reason)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, queue.StatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)

	_, ok, err = svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	got, terminal, err = svc.Fail(ctx, task.ID, "w1", true, reason)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, queue.StatusFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)
	require.Len(t, h.calls, 1)
	assert.False(t, h.perm[0])
}

func TestPermanentFailureSkipsRetry(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 3)
	_, _, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)

	got, terminal, err := svc.Fail(ctx, task.ID, "w1", false, queue.Reason{Kind: "empty", Message: "no text"})
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, queue.StatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.Len(t, h.perm, 1)
	assert.True(t, h.perm[0])
}

func TestFailOnPendingIsRejected(t *testing.T) {
	svc, _ := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 3)
	_, _, err := svc.Fail(context.Background(), task.ID, "w1", true, queue.Reason{Message: "x"})
	assert.ErrorIs(t, err, queue.ErrInvalidTransition)
}

// A worker crashes mid-task: once the lease expires the task is claimable again
// and attempts move by exactly one.
func TestExpiredLeaseIsReclaimed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, 20*time.Millisecond)
	task := enqueue(t, svc, 0, 3)

	first, ok, err := svc.ClaimNext(ctx, "crashed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, first.Attempts)

	_, ok, err = svc.ClaimNext(ctx, "w2")
	require.NoError(t, err)
	assert.False(t, ok, "lease still held")

	time.Sleep(40 * time.Millisecond)
	second, ok, err := svc.ClaimNext(ctx, "w2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.ID, second.ID)
	assert.Equal(t, 2, second.Attempts)
	assert.Equal(t, "w2", second.WorkerID)

	assert.ErrorIs(t, svc.Heartbeat(ctx, task.ID, "crashed"), queue.ErrInvalidTransition)
	require.NoError(t, svc.Heartbeat(ctx, task.ID, "w2"))
}

func TestReclaimExpiredFinalizesExhaustedTasks(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, 10*time.Millisecond)
	task := enqueue(t, svc, 0, 1)
	_, ok, err := svc.ClaimNext(ctx, "crashed")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok, err = svc.ClaimNext(ctx, "w2")
	require.NoError(t, err)
	assert.False(t, ok, "no attempts left")

	n, err := svc.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, got.Status)
	require.Len(t, h.calls, 1)
	assert.Equal(t, "timeout", h.calls[0].Kind)
}

func TestRetryGrantsOneMoreClaim(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 1)
	_, _, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, terminal, err := svc.Fail(ctx, task.ID, "w1", true, queue.Reason{Message: "boom"})
	require.NoError(t, err)
	require.True(t, terminal)

	_, err = svc.Retry(ctx, task.ID)
	require.NoError(t, err)
	got, ok, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Attempts)

	_, terminal, err = svc.Fail(ctx, task.ID, "w1", true, queue.Reason{Message: "boom"})
	require.NoError(t, err)
	assert.True(t, terminal)

	_, err = svc.Retry(ctx, uuid.New())
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestCompleteTwiceIsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Minute)
	task := enqueue(t, svc, 0, 3)
	_, _, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, task.ID, "w1")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, task.ID, "w1")
	assert.ErrorIs(t, err, queue.ErrInvalidTransition)
}

// A worker whose lease expired comes back after another worker reclaimed the
// task. None of its writes may touch the new claim.
func TestStaleWorkerCannotEndReclaimedTask(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, 20*time.Millisecond)
	task := enqueue(t, svc, 0, 5)

	_, ok, err := svc.ClaimNext(ctx, "slow")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)
	owner, ok, err := svc.ClaimNext(ctx, "w2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "w2", owner.WorkerID)

	_, terminal, err := svc.Fail(ctx, task.ID, "slow", true, queue.Reason{Message: "boom"})
	assert.ErrorIs(t, err, queue.ErrLeaseLost)
	assert.ErrorIs(t, err, queue.ErrInvalidTransition)
	assert.False(t, terminal)

	_, terminal, err = svc.Fail(ctx, task.ID, "slow", false, queue.Reason{Message: "boom"})
	assert.ErrorIs(t, err, queue.ErrLeaseLost)
	assert.False(t, terminal)
	assert.Empty(t, h.calls, "stale failure must not reach the document")

	_, err = svc.Complete(ctx, task.ID, "slow")
	assert.ErrorIs(t, err, queue.ErrLeaseLost)

	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusProcessing, got.Status)
	assert.Equal(t, "w2", got.WorkerID)
	assert.Equal(t, 2, got.Attempts)

	_, ok, err = svc.ClaimNext(ctx, "w3")
	require.NoError(t, err)
	assert.False(t, ok, "w2 still holds the lease")

	done, err := svc.Complete(ctx, task.ID, "w2")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, done.Status)
}

func TestReclaimExpiredSkipsRenewedLease(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, 20*time.Millisecond)
	task := enqueue(t, svc, 0, 1)
	_, ok, err := svc.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, svc.Heartbeat(ctx, task.ID, "w1"))
	n, err := svc.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, h.calls)

	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusProcessing, got.Status)
}
