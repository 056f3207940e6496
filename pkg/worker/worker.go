package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/extract"
	"github.com/artem13815/cvflow/pkg/progress"
	"github.com/artem13815/cvflow/pkg/queue"
	"github.com/artem13815/cvflow/pkg/scoring"
)

type Tasks interface {
	ClaimNext(ctx context.Context, workerID string) (queue.Task, bool, error)
	Heartbeat(ctx context.Context, id uuid.UUID, workerID string) error
	Complete(ctx context.Context, id uuid.UUID, workerID string) (queue.Task, error)
	Fail(ctx context.Context, id uuid.UUID, workerID string, retriable bool, r queue.Reason) (queue.Task, bool, error)
	Lease() time.Duration
}

type Documents interface {
	Get(ctx context.Context, id uuid.UUID) (cv.Document, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (cv.Document, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, m cv.MatchData, parsedText string) (cv.Document, error)
}

type Batches interface {
	Get(ctx context.Context, id uuid.UUID) (batch.Batch, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type Extractor interface {
	Extract(filename, contentType string, data []byte) (string, error)
}

type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (cv.MatchData, error)
}

type Deps struct {
	Tasks     Tasks
	Docs      Documents
	Batches   Batches
	Blob      Fetcher
	Extractor Extractor
	Scorer    Scorer
	Events    progress.Publisher
	Log       *slog.Logger
}

type Options struct {
	Workers      int
	PollInterval time.Duration
	// Name prefixes worker ids; defaults to the host name.
	Name string
}

const genericFailure = "analysis failed"

// Pool runs independent claim loops. The claim is the only coordination point
// between workers, in this process or any other.
type Pool struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func NewPool(deps Deps, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Name == "" {
		opts.Name, _ = os.Hostname()
	}
	return &Pool{deps: deps, opts: opts, log: deps.Log}
}

// Run blocks until ctx is cancelled and every loop has returned.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		id := fmt.Sprintf("%s-%d-%s", p.opts.Name, i, uuid.NewString()[:8])
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx, id)
		}()
	}
	p.log.Info("worker pool started", "workers", p.opts.Workers)
	wg.Wait()
	p.log.Info("worker pool stopped")
	return nil
}

func (p *Pool) loop(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}
		worked, err := p.Tick(ctx, workerID)
		if err != nil && ctx.Err() == nil {
			p.log.Error("worker tick", "worker_id", workerID, "error", err)
		}
		if worked && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// Tick claims and processes at most one task. worked is false when the queue was empty.
func (p *Pool) Tick(ctx context.Context, workerID string) (worked bool, err error) {
	task, ok, err := p.deps.Tasks.ClaimNext(ctx, workerID)
	if err != nil || !ok {
		return false, err
	}
	log := p.log.With("worker_id", workerID, "task_id", task.ID, "cv_id", task.CVID, "attempt", task.Attempts)
	log.Info("task claimed")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		p.heartbeat(hbCtx, task, workerID, log)
	}()
	defer func() {
		stopHeartbeat()
		hb.Wait()
	}()

	return true, p.process(ctx, task, log)
}

func (p *Pool) heartbeat(ctx context.Context, task queue.Task, workerID string, log *slog.Logger) {
	every := p.deps.Tasks.Lease() / 3
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := p.deps.Tasks.Heartbeat(ctx, task.ID, workerID); err != nil && ctx.Err() == nil {
				log.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

func (p *Pool) process(ctx context.Context, task queue.Task, log *slog.Logger) error {
	doc, err := p.deps.Docs.Get(ctx, task.CVID)
	if errors.Is(err, cv.ErrNotFound) {
		return p.skip(ctx, task, log, "document deleted")
	}
	if err != nil {
		return p.fail(ctx, task, log, true, queue.Reason{Kind: string(cv.FailureAnalysisFailed), Message: genericFailure}, err)
	}
	switch doc.Status {
	case cv.StatusQueued:
		if doc, err = p.deps.Docs.MarkProcessing(ctx, task.CVID); err != nil {
			if errors.Is(err, cv.ErrDeleted) || errors.Is(err, cv.ErrInvalidTransition) {
				return p.skip(ctx, task, log, err.Error())
			}
			return p.fail(ctx, task, log, true, queue.Reason{Kind: string(cv.FailureAnalysisFailed), Message: genericFailure}, err)
		}
	case cv.StatusProcessing:
		// reclaimed after a crash or released for retry
	default:
		return p.skip(ctx, task, log, "document already "+string(doc.Status))
	}

	p.emit(ctx, doc, 10, "processing", "Downloading CV")
	data, err := p.deps.Blob.Fetch(ctx, task.S3Key)
	if err != nil {
		// отсутствие объекта и таймаут хранилища одинаково окончательны
		kind, msg := cv.FailureUnreadable, "file unreadable"
		switch {
		case errors.Is(err, blob.ErrTooLarge):
			kind, msg = cv.FailureTooLarge, "file too large"
		case errors.Is(err, blob.ErrUnavailable):
			msg = "file unreadable: storage did not respond"
		}
		return p.fail(ctx, task, log, false, queue.Reason{Kind: string(kind), Message: msg}, err)
	}

	p.emit(ctx, doc, 25, "processing", "Extracting text")
	text, err := p.deps.Extractor.Extract(doc.Filename, doc.ContentType, data)
	if err != nil {
		var pe *extract.PermanentError
		if errors.As(err, &pe) {
			return p.fail(ctx, task, log, false, queue.Reason{Kind: string(pe.Kind), Message: pe.Message}, err)
		}
		return p.fail(ctx, task, log, false, queue.Reason{Kind: string(cv.FailureUnreadable), Message: "file unreadable"}, err)
	}

	p.emit(ctx, doc, 50, "processing", "Scoring against job description")
	req := scoring.Request{CandidateText: text, Weights: cv.DefaultWeights, CVID: doc.ID, UserID: doc.UserID, JobID: doc.JobID}
	if b, err := p.deps.Batches.Get(ctx, doc.JobID); err == nil {
		req.JobTitle, req.JobDescription, req.Weights = b.Title, b.Description, b.Weights
	} else {
		log.Warn("batch lookup failed, scoring with defaults", "job_id", doc.JobID, "error", err)
	}
	match, err := p.deps.Scorer.Score(ctx, req)
	if err != nil {
		return p.fail(ctx, task, log, true, queue.Reason{Kind: string(cv.FailureAnalysisFailed), Message: genericFailure}, err)
	}

	// результат пишем только пока claim ещё наш
	if err := p.deps.Tasks.Heartbeat(ctx, task.ID, task.WorkerID); errors.Is(err, queue.ErrInvalidTransition) {
		return p.leaseLost(log, err)
	}

	p.emit(ctx, doc, 90, "processing", "Saving results")
	if _, err := p.deps.Docs.MarkCompleted(ctx, doc.ID, match, text); err != nil {
		if errors.Is(err, cv.ErrDeleted) || errors.Is(err, cv.ErrInvalidTransition) {
			return p.skip(ctx, task, log, err.Error())
		}
		return p.fail(ctx, task, log, true, queue.Reason{Kind: string(cv.FailureAnalysisFailed), Message: genericFailure}, err)
	}
	if _, err := p.deps.Tasks.Complete(ctx, task.ID, task.WorkerID); err != nil {
		if errors.Is(err, queue.ErrInvalidTransition) {
			return p.leaseLost(log, err)
		}
		return fmt.Errorf("complete task: %w", err)
	}
	p.emit(ctx, doc, 100, "completed", "Completed")
	log.Info("cv scored", "score", match.Score)
	return nil
}

// skip finishes the task without touching the document.
func (p *Pool) skip(ctx context.Context, task queue.Task, log *slog.Logger, why string) error {
	log.Info("task skipped", "reason", why)
	if _, err := p.deps.Tasks.Complete(ctx, task.ID, task.WorkerID); err != nil {
		if errors.Is(err, queue.ErrInvalidTransition) {
			return p.leaseLost(log, err)
		}
		return fmt.Errorf("complete skipped task: %w", err)
	}
	return nil
}

// leaseLost drops a task another worker has reclaimed. Its outcome belongs to the new owner.
func (p *Pool) leaseLost(log *slog.Logger, err error) error {
	log.Warn("lease lost, dropping task", "error", err)
	return nil
}

func (p *Pool) fail(ctx context.Context, task queue.Task, log *slog.Logger, retriable bool, r queue.Reason, cause error) error {
	log.Warn("task attempt failed", "retriable", retriable, "kind", r.Kind, "error", cause)
	_, terminal, err := p.deps.Tasks.Fail(ctx, task.ID, task.WorkerID, retriable, r)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidTransition) {
			return p.leaseLost(log, err)
		}
		return fmt.Errorf("fail task: %w", err)
	}
	e := progress.NewEvent(task.CVID, task.JobID, 0, "queued", "Retrying")
	if terminal {
		e = progress.NewEvent(task.CVID, task.JobID, 100, "failed", r.Message)
	}
	p.publish(ctx, e)
	return nil
}

func (p *Pool) emit(ctx context.Context, d cv.Document, pct int, status, msg string) {
	p.publish(ctx, progress.NewEvent(d.ID, d.JobID, pct, status, msg))
}

func (p *Pool) publish(ctx context.Context, e progress.Event) {
	if p.deps.Events == nil {
		return
	}
	if err := p.deps.Events.Publish(ctx, e); err != nil {
		p.log.Debug("publish progress", "cv_id", e.CVID, "error", err)
	}
}
