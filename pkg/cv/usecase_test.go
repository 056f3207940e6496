package cv_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/auth"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/credits"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/logging"
	"github.com/artem13815/cvflow/pkg/queue"
	"github.com/artem13815/cvflow/pkg/repository/memory"
)

type removed struct{ keys []string }

func (r *removed) Remove(ctx context.Context, key string) error {
	r.keys = append(r.keys, key)
	return nil
}

type fixture struct {
	store   *memory.Store
	svc     cv.UseCase
	queue   *queue.Service
	credits *credits.Service
	objects *removed
	user    uuid.UUID
	job     uuid.UUID
}

func newFixture(t *testing.T, balance int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	log := logging.Discard()
	f := &fixture{store: store, user: uuid.New(), job: uuid.New(), objects: &removed{}}
	require.NoError(t, store.Users().Create(ctx, auth.User{ID: f.user, Email: "hr@example.com"}))
	require.NoError(t, store.Batches().Create(ctx, batch.Batch{ID: f.job, OwnerID: f.user, Title: "Go dev", Weights: cv.DefaultWeights}))
	f.credits = credits.NewService(store.Ledger(), log)
	require.NoError(t, f.credits.Grant(ctx, f.user, balance))
	f.queue = queue.NewService(store.Tasks(), time.Minute, log)
	f.svc = cv.NewService(store.Documents(), f.queue, f.credits, f.objects, cv.Options{
		MaxUploadBytes: 1 << 20,
		MaxRetries:     3,
		CreditsPerCV:   1,
		RequestedTTL:   time.Hour,
	}, log)
	f.queue.OnTerminalFailure(f.svc)
	return f
}

func (f *fixture) pending(t *testing.T, name string) cv.Document {
	t.Helper()
	d, err := f.svc.CreatePendingDocument(context.Background(), cv.PendingInput{
		JobID:     f.job,
		UserID:    f.user,
		Filename:  name,
		SizeBytes: 1024,
		Key:       "users/" + f.user.String() + "/batches/" + f.job.String() + "/cvs/" + uuid.NewString() + "_" + name,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) batch(t *testing.T) batch.Batch {
	t.Helper()
	b, err := f.store.Batches().Get(context.Background(), f.job)
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	b, err := f.credits.Balance(context.Background(), f.user)
	require.NoError(t, err)
	return b
}

func TestCreatePendingValidates(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	_, err := f.svc.CreatePendingDocument(ctx, cv.PendingInput{Filename: "a.pdf", SizeBytes: 0, Key: "k"})
	var verr cv.ErrValidation
	assert.ErrorAs(t, err, &verr)
	_, err = f.svc.CreatePendingDocument(ctx, cv.PendingInput{Filename: "a.pdf", SizeBytes: 2 << 20, Key: "k"})
	assert.ErrorAs(t, err, &verr)

	d := f.pending(t, "a.pdf")
	assert.Equal(t, cv.StatusRequested, d.Status)
	assert.Equal(t, cv.SourceManualUpload, d.Source)
	_, err = f.svc.CreatePendingDocument(ctx, cv.PendingInput{Filename: "b.pdf", SizeBytes: 10, Key: d.S3Key})
	assert.ErrorIs(t, err, cv.ErrDuplicateKey)
}

func TestConfirmUploadIsIdempotent(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")

	got, task, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusQueued, got.Status)
	assert.Equal(t, queue.StatusPending, task.Status)
	assert.Equal(t, d.ID, task.CVID)

	again, task2, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusQueued, again.Status)
	assert.Equal(t, task.ID, task2.ID)

	assert.Equal(t, 4, f.balance(t), "charged once")
	assert.Equal(t, 1, f.batch(t).TotalCVs)
}

func TestConfirmUploadErrors(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, _, err := f.svc.ConfirmUpload(ctx, uuid.New())
	assert.ErrorIs(t, err, cv.ErrNotFound)

	d := f.pending(t, "cv.pdf")
	_, _, err = f.svc.ConfirmUpload(ctx, d.ID)
	assert.ErrorIs(t, err, credits.ErrQuotaExceeded)
	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusRequested, got.Status)
	_, err = f.queue.GetByCV(ctx, d.ID)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestConfirmAfterProcessingStarted(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, _, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkProcessing(ctx, d.ID)
	require.NoError(t, err)

	_, _, err = f.svc.ConfirmUpload(ctx, d.ID)
	assert.ErrorIs(t, err, cv.ErrAlreadyProcessed)
}

func TestGuardedTransitionsAndCounters(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, _, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkCompleted(ctx, d.ID, cv.MatchData{Score: 80}, "text")
	assert.ErrorIs(t, err, cv.ErrInvalidTransition, "queued cannot complete")

	_, err = f.svc.MarkProcessing(ctx, d.ID)
	require.NoError(t, err)
	done, err := f.svc.MarkCompleted(ctx, d.ID, cv.MatchData{Score: 80, MatchedSkills: []string{"go"}}, "parsed text")
	require.NoError(t, err)
	assert.Equal(t, cv.StatusCompleted, done.Status)
	require.NotNil(t, done.Match)
	assert.Equal(t, 80.0, done.Match.Score)
	assert.Equal(t, "parsed text", done.ParsedText)
	require.NotNil(t, done.ProcessedAt)

	_, err = f.svc.MarkFailed(ctx, d.ID, cv.FailureAnalysisFailed, "late")
	assert.ErrorIs(t, err, cv.ErrInvalidTransition)

	b := f.batch(t)
	assert.Equal(t, 1, b.TotalCVs)
	assert.Equal(t, 1, b.ProcessedCVs)
	assert.Equal(t, 0, b.FailedCVs)
}

func TestOperatorOverrideAttachesEmptyMatch(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, _, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkFailed(ctx, d.ID, cv.FailureEmpty, "no text extracted")
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, d.ID, cv.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusRejected, got.Status)
	require.NotNil(t, got.Match)
	assert.Zero(t, got.Match.Score)
	assert.Empty(t, got.ErrorMessage)

	got, err = f.svc.UpdateStatus(ctx, d.ID, cv.StatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusShortlisted, got.Status)

	_, err = f.svc.UpdateStatus(ctx, d.ID, cv.StatusProcessing)
	var verr cv.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteWinsOverWorker(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, task, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, d.ID))
	_, err = f.svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, cv.ErrNotFound)
	assert.Empty(t, f.objects.keys, "task still pending, purge deferred")

	_, err = f.svc.MarkProcessing(ctx, d.ID)
	assert.ErrorIs(t, err, cv.ErrDeleted)

	_, _, err = f.queue.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, err = f.queue.Complete(ctx, task.ID, "w1")
	require.NoError(t, err)

	n, err := f.svc.PurgeStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{d.S3Key}, f.objects.keys)
	assert.Equal(t, 0, f.batch(t).TotalCVs)
}

func TestDeleteRequestedPurgesImmediately(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	require.NoError(t, f.svc.Delete(ctx, d.ID))
	assert.Equal(t, []string{d.S3Key}, f.objects.keys)
	assert.ErrorIs(t, f.svc.Delete(ctx, d.ID), cv.ErrNotFound)
}

func TestPurgeStaleRequested(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	old := f.pending(t, "old.pdf")

	n, err := f.svc.PurgeStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.PurgeStale(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, cv.ErrNotFound)
}

func TestTerminalFailureRefundsPermanent(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, task, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.balance(t))

	_, _, err = f.queue.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, err = f.svc.MarkProcessing(ctx, d.ID)
	require.NoError(t, err)
	_, terminal, err := f.queue.Fail(ctx, task.ID, "w1", false, queue.Reason{Kind: string(cv.FailureEmpty), Message: "no text extracted"})
	require.NoError(t, err)
	require.True(t, terminal)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusFailed, got.Status)
	assert.Equal(t, cv.FailureEmpty, got.FailureKind)
	assert.Equal(t, "no text extracted", got.ErrorMessage)
	assert.Equal(t, 5, f.balance(t))
	assert.Equal(t, 1, f.batch(t).FailedCVs)

	_, _, err = f.svc.RetryFailed(ctx, d.ID)
	assert.ErrorIs(t, err, cv.ErrNotRetriable)
}

func TestRetryTransientFailure(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	_, task, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	_, _, err = f.queue.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, err = f.store.Tasks().Fail(ctx, task.ID, "w1", false, "analysis failed")
	require.NoError(t, err)
	_, err = f.svc.MarkFailed(ctx, d.ID, cv.FailureAnalysisFailed, "analysis failed")
	require.NoError(t, err)
	assert.Equal(t, 1, f.batch(t).FailedCVs)

	got, retried, err := f.svc.RetryFailed(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.StatusQueued, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, queue.StatusPending, retried.Status)
	assert.Equal(t, 1, retried.Attempts)
	assert.Equal(t, 0, f.batch(t).FailedCVs)
	assert.Equal(t, 4, f.balance(t), "retry is free")
}

func TestListFiltersAndPages(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	for _, name := range []string{"alice.pdf", "bob.docx", "alice-2.pdf"} {
		f.pending(t, name)
		time.Sleep(time.Millisecond)
	}
	items, total, err := f.svc.List(ctx, cv.Filter{JobID: f.job, Search: "ALICE", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "alice-2.pdf", items[0].Filename)

	items, total, err = f.svc.List(ctx, cv.Filter{JobID: f.job, Status: cv.StatusQueued})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

// The janitor lists a stale requested row, the client confirms it and the
// task finishes before the purge runs. The row must survive.
func TestHardDeleteRechecksConfirmedRow(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	d := f.pending(t, "cv.pdf")
	stale, err := f.store.Documents().ListPurgeable(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	_, task, err := f.svc.ConfirmUpload(ctx, d.ID)
	require.NoError(t, err)
	_, _, err = f.queue.ClaimNext(ctx, "w1")
	require.NoError(t, err)
	_, err = f.queue.Complete(ctx, task.ID, "w1")
	require.NoError(t, err)

	ok, err := f.store.Documents().HardDelete(ctx, stale[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.batch(t).TotalCVs)
}
