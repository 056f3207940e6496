package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/auth"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/credits"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/extract"
	"github.com/artem13815/cvflow/pkg/llm"
	"github.com/artem13815/cvflow/pkg/logging"
	"github.com/artem13815/cvflow/pkg/progress"
	"github.com/artem13815/cvflow/pkg/queue"
	"github.com/artem13815/cvflow/pkg/repository/memory"
	"github.com/artem13815/cvflow/pkg/scoring"
	"github.com/artem13815/cvflow/pkg/worker"
)

const validOutput = `{"score": 72, "breakdown": {"skills": 80, "experience": 60, "qualifications": 100, "projects": 40},
"matched_skills": ["go", "postgresql"], "missing_skills": ["kubernetes"], "reasoning": "solid backend profile"}`

const resume = "Backend engineer. Five years of Go, PostgreSQL and Redis in production payment systems."

type objects struct {
	mu    sync.Mutex
	data  map[string][]byte
	max   int
	delay time.Duration
}

func (o *objects) Fetch(ctx context.Context, key string) ([]byte, error) {
	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.data[key]
	if !ok {
		return nil, blob.ErrObjectNotFound
	}
	if o.max > 0 && len(b) > o.max {
		return nil, blob.ErrTooLarge
	}
	return b, nil
}

func (o *objects) UploadSlot(ctx context.Context, key, contentType string) (blob.Slot, error) {
	return blob.Slot{}, nil
}

func (o *objects) DownloadSlot(ctx context.Context, key string) (blob.Slot, error) {
	return blob.Slot{}, nil
}

func (o *objects) Ping(ctx context.Context) error { return nil }

func (o *objects) Remove(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.data, key)
	return nil
}

type model struct {
	mu      sync.Mutex
	replies []string
	calls   int
	onAsk   func()
}

func (m *model) Ask(ctx context.Context, system, user string) (llm.Reply, error) {
	m.mu.Lock()
	i := m.calls
	m.calls++
	hook := m.onAsk
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if i >= len(m.replies) {
		return llm.Reply{}, errors.New("no scripted reply")
	}
	return llm.Reply{Content: m.replies[i], Model: "gpt-4o-mini", Provider: "openai", InputTokens: 900, OutputTokens: 120}, nil
}

type env struct {
	store   *memory.Store
	queue   *queue.Service
	docs    cv.UseCase
	credits *credits.Service
	objects *objects
	model   *model
	hub     *progress.Hub
	pool    *worker.Pool
	deps    worker.Deps
	user    uuid.UUID
	job     uuid.UUID
}

func newEnv(t *testing.T, maxRetries int, lease time.Duration, replies ...string) *env {
	t.Helper()
	ctx := context.Background()
	log := logging.Discard()
	e := &env{
		store:   memory.New(),
		objects: &objects{data: map[string][]byte{}},
		model:   &model{replies: replies},
		hub:     progress.NewHub(),
		user:    uuid.New(),
		job:     uuid.New(),
	}
	require.NoError(t, e.store.Users().Create(ctx, auth.User{ID: e.user, Email: "hr@example.com"}))
	require.NoError(t, e.store.Batches().Create(ctx, batch.Batch{
		ID: e.job, OwnerID: e.user, Title: "Go developer",
		Description: "Go, PostgreSQL, Kubernetes", Weights: cv.DefaultWeights,
	}))
	e.credits = credits.NewService(e.store.Ledger(), log)
	require.NoError(t, e.credits.Grant(ctx, e.user, 5))
	e.queue = queue.NewService(e.store.Tasks(), lease, log)
	e.docs = cv.NewService(e.store.Documents(), e.queue, e.credits, e.objects, cv.Options{
		MaxRetries: maxRetries, CreditsPerCV: 1,
	}, log)
	e.queue.OnTerminalFailure(e.docs)
	e.deps = worker.Deps{
		Tasks:     e.queue,
		Docs:      e.docs,
		Batches:   e.store.Batches(),
		Blob:      e.objects,
		Extractor: extract.New(20),
		Scorer:    scoring.NewInvoker(e.model, nil, e.store.Calls(), log),
		Events:    e.hub,
		Log:       log,
	}
	e.pool = worker.NewPool(e.deps, worker.Options{Workers: 2, PollInterval: 5 * time.Millisecond, Name: "test"})
	return e
}

// upload creates and confirms a document whose bytes are body; a nil body
// leaves the object missing.
func (e *env) upload(t *testing.T, name string, body []byte) cv.Document {
	t.Helper()
	ctx := context.Background()
	key := blob.NewKey(e.user, e.job, name)
	d, err := e.docs.CreatePendingDocument(ctx, cv.PendingInput{
		JobID: e.job, UserID: e.user, Filename: name, ContentType: "text/plain", SizeBytes: 100, Key: key,
	})
	require.NoError(t, err)
	if body != nil {
		e.objects.data[key] = body
	}
	d, _, err = e.docs.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	return d
}

func (e *env) doc(t *testing.T, id uuid.UUID) cv.Document {
	t.Helper()
	d, err := e.store.Documents().Get(context.Background(), id)
	require.NoError(t, err)
	return d
}

func (e *env) task(t *testing.T, cvID uuid.UUID) queue.Task {
	t.Helper()
	tk, err := e.queue.GetByCV(context.Background(), cvID)
	require.NoError(t, err)
	return tk
}

func (e *env) balance(t *testing.T) int {
	t.Helper()
	b, err := e.credits.Balance(context.Background(), e.user)
	require.NoError(t, err)
	return b
}

func drain(sub *progress.Subscription) []progress.Event {
	var out []progress.Event
	for {
		select {
		case ev := <-sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPipelineScoresDocument(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	sub := e.hub.Subscribe(e.job, 32)
	defer sub.Close()
	d := e.upload(t, "anna.txt", []byte(resume))

	worked, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, worked)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusCompleted, got.Status)
	require.NotNil(t, got.Match)
	assert.Equal(t, 72.0, got.Match.Score)
	assert.Equal(t, []string{"go", "postgresql"}, got.Match.MatchedSkills)
	assert.Equal(t, resume, got.ParsedText)
	require.NotNil(t, got.ProcessedAt)

	tk := e.task(t, d.ID)
	assert.Equal(t, queue.StatusCompleted, tk.Status)
	assert.Equal(t, 1, tk.Attempts)

	b, err := e.store.Batches().Get(context.Background(), e.job)
	require.NoError(t, err)
	assert.Equal(t, 1, b.TotalCVs)
	assert.Equal(t, 1, b.ProcessedCVs)
	assert.Equal(t, 4, e.balance(t))

	calls := e.store.Calls().Recorded()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Success)
	assert.Equal(t, d.ID, calls[0].CVID)

	events := drain(sub)
	require.NotEmpty(t, events)
	var pct []int
	for _, ev := range events {
		assert.Equal(t, progress.TypeCVProgress, ev.Type)
		assert.Equal(t, d.ID, ev.CVID)
		pct = append(pct, ev.Progress)
	}
	assert.Equal(t, []int{10, 25, 50, 90, 100}, pct)
	assert.Equal(t, "completed", events[len(events)-1].Status)

	worked, err = e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)
	assert.False(t, worked, "queue must be empty")
}

func TestEmptyFileFailsPermanently(t *testing.T) {
	e := newEnv(t, 3, time.Minute)
	d := e.upload(t, "empty.txt", []byte{})
	require.Equal(t, 4, e.balance(t))

	_, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureEmpty, got.FailureKind)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.False(t, got.Retriable())

	tk := e.task(t, d.ID)
	assert.Equal(t, queue.StatusFailed, tk.Status)
	assert.Equal(t, 1, tk.Attempts)
	assert.Equal(t, 5, e.balance(t), "permanent failure refunds the credit")
	assert.Zero(t, e.model.calls, "model must not be asked")
}

func TestMissingObjectIsUnreadable(t *testing.T) {
	e := newEnv(t, 3, time.Minute)
	d := e.upload(t, "ghost.txt", nil)

	_, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureUnreadable, got.FailureKind)
	assert.Equal(t, "file unreadable", got.ErrorMessage)
}

func TestInvalidModelOutputRetriesUntilSuccess(t *testing.T) {
	e := newEnv(t, 3, time.Minute, "not json at all", `{"score": "high"}`, validOutput)
	d := e.upload(t, "anna.txt", []byte(resume))

	for i := 0; i < 3; i++ {
		worked, err := e.pool.Tick(context.Background(), "w1")
		require.NoError(t, err)
		require.True(t, worked, "attempt %d", i+1)
		if i < 2 {
			assert.Equal(t, cv.StatusProcessing, e.doc(t, d.ID).Status)
			assert.Equal(t, queue.StatusPending, e.task(t, d.ID).Status)
		}
	}

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusCompleted, got.Status)
	assert.Equal(t, 72.0, got.Match.Score)
	tk := e.task(t, d.ID)
	assert.Equal(t, queue.StatusCompleted, tk.Status)
	assert.Equal(t, 3, tk.Attempts)

	calls := e.store.Calls().Recorded()
	require.Len(t, calls, 3)
	assert.False(t, calls[0].Success)
	assert.False(t, calls[1].Success)
	assert.True(t, calls[2].Success)
}

func TestTransientFailureExhaustsRetries(t *testing.T) {
	e := newEnv(t, 2, time.Minute, "nope", "still nope")
	d := e.upload(t, "anna.txt", []byte(resume))

	for i := 0; i < 2; i++ {
		_, err := e.pool.Tick(context.Background(), "w1")
		require.NoError(t, err)
	}

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureAnalysisFailed, got.FailureKind)
	assert.Equal(t, "analysis failed", got.ErrorMessage)
	assert.True(t, got.Retriable())
	assert.Equal(t, 4, e.balance(t), "transient failures keep the charge")

	b, err := e.store.Batches().Get(context.Background(), e.job)
	require.NoError(t, err)
	assert.Equal(t, 1, b.FailedCVs)
}

func TestDeletedBeforeClaimIsSkipped(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	sub := e.hub.Subscribe(e.job, 32)
	defer sub.Close()
	d := e.upload(t, "anna.txt", []byte(resume))
	require.NoError(t, e.docs.Delete(context.Background(), d.ID))

	worked, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, worked)

	assert.Equal(t, queue.StatusCompleted, e.task(t, d.ID).Status)
	assert.Empty(t, drain(sub))
	assert.Zero(t, e.model.calls)

	janitor := worker.NewJanitor(e.queue, e.docs, time.Minute, logging.Discard())
	_, purged := janitor.Sweep(context.Background())
	assert.Equal(t, 1, purged)
	_, err = e.store.Documents().Get(context.Background(), d.ID)
	assert.ErrorIs(t, err, cv.ErrNotFound)
	_, err = e.objects.Fetch(context.Background(), d.S3Key)
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)
}

func TestJanitorPurgesDeletedBatch(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	ctx := context.Background()
	d := e.upload(t, "anna.txt", []byte(resume))
	batches := batch.NewService(e.store.Batches(), e.docs, cv.DefaultWeights, logging.Discard())
	require.NoError(t, batches.Delete(ctx, batch.Actor{UserID: e.user}, e.job))

	janitor := worker.NewJanitor(e.queue, e.docs, time.Minute, logging.Discard()).WithBatches(batches)
	_, purged := janitor.Sweep(ctx)
	assert.Zero(t, purged, "task still pending")
	_, err := e.store.Batches().Get(ctx, e.job)
	require.NoError(t, err)

	worked, err := e.pool.Tick(ctx, "w1")
	require.NoError(t, err)
	require.True(t, worked)
	assert.Zero(t, e.model.calls)

	_, purged = janitor.Sweep(ctx)
	assert.Equal(t, 1, purged)
	_, err = e.store.Documents().Get(ctx, d.ID)
	assert.ErrorIs(t, err, cv.ErrNotFound)
	_, err = e.store.Batches().Get(ctx, e.job)
	assert.ErrorIs(t, err, batch.ErrNotFound)
}

func TestDeleteDuringScoringWins(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	sub := e.hub.Subscribe(e.job, 32)
	defer sub.Close()
	d := e.upload(t, "anna.txt", []byte(resume))
	e.model.onAsk = func() {
		require.NoError(t, e.docs.Delete(context.Background(), d.ID))
	}

	_, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)

	got := e.doc(t, d.ID)
	assert.True(t, got.Deleted())
	assert.Equal(t, cv.StatusProcessing, got.Status)
	assert.Equal(t, queue.StatusCompleted, e.task(t, d.ID).Status)
	for _, ev := range drain(sub) {
		assert.Less(t, ev.Progress, 90, "no events once the deletion is observed")
	}
}

func TestOperatorDecisionDuringScoringWins(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	d := e.upload(t, "anna.txt", []byte(resume))
	e.model.onAsk = func() {
		_, err := e.docs.UpdateStatus(context.Background(), d.ID, cv.StatusShortlisted)
		require.NoError(t, err)
	}

	_, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusShortlisted, got.Status)
	assert.Equal(t, queue.StatusCompleted, e.task(t, d.ID).Status)
}

func TestJanitorFailsAbandonedTask(t *testing.T) {
	e := newEnv(t, 1, 10*time.Millisecond)
	d := e.upload(t, "anna.txt", []byte(resume))

	_, ok, err := e.queue.ClaimNext(context.Background(), "crashed")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)

	reclaimed, _ := worker.NewJanitor(e.queue, e.docs, time.Minute, logging.Discard()).Sweep(context.Background())
	assert.Equal(t, 1, reclaimed)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureTimeout, got.FailureKind)
	assert.True(t, got.Retriable())
	assert.Equal(t, queue.StatusFailed, e.task(t, d.ID).Status)
}

func TestPoolDrainsQueueConcurrently(t *testing.T) {
	replies := make([]string, 6)
	for i := range replies {
		replies[i] = validOutput
	}
	e := newEnv(t, 3, time.Minute, replies...)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		ids = append(ids, e.upload(t, strings.Repeat("x", i+1)+".txt", []byte(resume)).ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.pool.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		for _, id := range ids {
			if e.doc(t, id).Status != cv.StatusCompleted {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	for _, id := range ids {
		assert.Equal(t, 1, e.task(t, id).Attempts)
	}
	assert.Equal(t, 4, e.model.calls)
}

// stalledTasks stops renewing leases while paused, as a worker stuck in a long GC pause would.
type stalledTasks struct {
	*queue.Service
	paused atomic.Bool
}

func (s *stalledTasks) Heartbeat(ctx context.Context, id uuid.UUID, workerID string) error {
	if s.paused.Load() {
		return nil
	}
	return s.Service.Heartbeat(ctx, id, workerID)
}

func TestLostLeaseDropsResult(t *testing.T) {
	e := newEnv(t, 3, 20*time.Millisecond, validOutput)
	tasks := &stalledTasks{Service: e.queue}
	tasks.paused.Store(true)
	deps := e.deps
	deps.Tasks = tasks
	pool := worker.NewPool(deps, worker.Options{Workers: 1, Name: "test"})
	d := e.upload(t, "anna.txt", []byte(resume))

	var rescued queue.Task
	e.model.onAsk = func() {
		time.Sleep(40 * time.Millisecond)
		tk, ok, err := e.queue.ClaimNext(context.Background(), "rescuer")
		require.NoError(t, err)
		require.True(t, ok)
		rescued = tk
		tasks.paused.Store(false)
	}

	worked, err := pool.Tick(context.Background(), "slow")
	require.NoError(t, err)
	require.True(t, worked)
	assert.Equal(t, 2, rescued.Attempts)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusProcessing, got.Status, "stale worker must not write its result")
	assert.Nil(t, got.Match)
	tk := e.task(t, d.ID)
	assert.Equal(t, queue.StatusProcessing, tk.Status)
	assert.Equal(t, "rescuer", tk.WorkerID)
}

func TestOversizedObjectFailsPermanently(t *testing.T) {
	e := newEnv(t, 3, time.Minute)
	e.objects.max = 16
	d := e.upload(t, "huge.txt", []byte(resume))

	_, err := e.pool.Tick(context.Background(), "w1")
	require.NoError(t, err)

	got := e.doc(t, d.ID)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureTooLarge, got.FailureKind)
	assert.Equal(t, "file too large", got.ErrorMessage)
	assert.False(t, got.Retriable())
	assert.Equal(t, 5, e.balance(t))
	assert.Zero(t, e.model.calls)
}

// A download slower than the slot-issuance bound still completes.
func TestSlowFetchIsNotCutByMetadataTimeout(t *testing.T) {
	e := newEnv(t, 3, time.Minute, validOutput)
	e.objects.delay = 30 * time.Millisecond
	deps := e.deps
	deps.Blob = blob.Bounded(e.objects, 5*time.Millisecond, time.Second)
	pool := worker.NewPool(deps, worker.Options{Workers: 1, Name: "test"})
	d := e.upload(t, "anna.txt", []byte(resume))

	_, err := pool.Tick(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, cv.StatusCompleted, e.doc(t, d.ID).Status)
}
