package cv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/queue"
)

// Credits is the billing boundary used on confirm and on permanent failures.
// charged is false when the same reference was already debited.
type Credits interface {
	Debit(ctx context.Context, userID uuid.UUID, amount int, ref uuid.UUID) (charged bool, err error)
	Refund(ctx context.Context, userID uuid.UUID, amount int, ref uuid.UUID) error
}

// Tasks is the part of the queue the document service drives.
type Tasks interface {
	GetByCV(ctx context.Context, cvID uuid.UUID) (queue.Task, error)
	Retry(ctx context.Context, id uuid.UUID) (queue.Task, error)
}

// ObjectRemover deletes stored bytes once a document is purged.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

type PendingInput struct {
	JobID       uuid.UUID
	UserID      uuid.UUID
	Filename    string
	ContentType string
	SizeBytes   int64
	Key         string
	Source      Source
}

type UseCase interface {
	CreatePendingDocument(ctx context.Context, in PendingInput) (Document, error)
	ConfirmUpload(ctx context.Context, id uuid.UUID) (Document, queue.Task, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (Document, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, m MatchData, parsedText string) (Document, error)
	MarkFailed(ctx context.Context, id uuid.UUID, kind FailureKind, message string) (Document, error)
	GetDownloadReference(ctx context.Context, id uuid.UUID) (string, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, f Filter) ([]Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByJob(ctx context.Context, jobID uuid.UUID) (int, error)
	RetryFailed(ctx context.Context, id uuid.UUID) (Document, queue.Task, error)
	PurgeStale(ctx context.Context, now time.Time) (int, error)
	HandleTerminalFailure(ctx context.Context, t queue.Task, r queue.Reason, permanent bool) error
}

type Options struct {
	MaxUploadBytes int64
	MaxRetries     int
	CreditsPerCV   int
	RequestedTTL   time.Duration
}

type service struct {
	repo    Repository
	tasks   Tasks
	credits Credits
	objects ObjectRemover
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, tasks Tasks, credits Credits, objects ObjectRemover, opts Options, log *slog.Logger) UseCase {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RequestedTTL <= 0 {
		opts.RequestedTTL = 24 * time.Hour
	}
	return &service{
		repo:    repo,
		tasks:   tasks,
		credits: credits,
		objects: objects,
		opts:    opts,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreatePendingDocument(ctx context.Context, in PendingInput) (Document, error) {
	in.Filename = strings.TrimSpace(in.Filename)
	switch {
	case in.Filename == "":
		return Document{}, ErrValidation("filename is required")
	case in.SizeBytes <= 0:
		return Document{}, ErrValidation("file size must be positive")
	case in.SizeBytes > s.opts.MaxUploadBytes:
		return Document{}, ErrValidation(fmt.Sprintf("file too large: limit is %d bytes", s.opts.MaxUploadBytes))
	case in.Key == "":
		return Document{}, ErrValidation("storage key is required")
	}
	if in.Source == "" {
		in.Source = SourceManualUpload
	}
	now := s.now()
	d := Document{
		ID:          uuid.New(),
		JobID:       in.JobID,
		UserID:      in.UserID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		S3Key:       in.Key,
		SizeBytes:   in.SizeBytes,
		Status:      StatusRequested,
		Source:      in.Source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Document{}, err
	}
	return d, nil
}

func (s *service) ConfirmUpload(ctx context.Context, id uuid.UUID) (Document, queue.Task, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, queue.Task{}, err
	}
	switch d.Status {
	case StatusRequested:
	case StatusQueued:
		// повторное подтверждение: вернуть существующую задачу без списания
		d, t, _, err := s.repo.ConfirmUpload(ctx, id, queue.Task{})
		return d, t, err
	default:
		return d, queue.Task{}, ErrAlreadyProcessed
	}

	charged := false
	if s.credits != nil && s.opts.CreditsPerCV > 0 {
		charged, err = s.credits.Debit(ctx, d.UserID, s.opts.CreditsPerCV, d.ID)
		if err != nil {
			return d, queue.Task{}, err
		}
	}
	t := queue.NewTask(d.ID, d.JobID, d.UserID, d.S3Key, queue.DefaultPriority, s.opts.MaxRetries)
	userID := d.UserID
	d, t, created, err := s.repo.ConfirmUpload(ctx, id, t)
	if err != nil {
		// списание привязано к документу: возвращаем его, только если задачи так и нет
		if charged && !s.hasTask(ctx, id) {
			if rerr := s.credits.Refund(ctx, userID, s.opts.CreditsPerCV, id); rerr != nil {
				s.log.Error("refund after failed confirm", "cv_id", id, "error", rerr)
			}
		}
		return d, t, err
	}
	if !created {
		return d, t, nil
	}
	s.log.Info("cv queued", "cv_id", d.ID, "job_id", d.JobID, "task_id", t.ID)
	return d, t, nil
}

func (s *service) hasTask(ctx context.Context, id uuid.UUID) bool {
	if s.tasks == nil {
		return false
	}
	_, err := s.tasks.GetByCV(ctx, id)
	return err == nil
}

func (s *service) MarkProcessing(ctx context.Context, id uuid.UUID) (Document, error) {
	return s.transition(ctx, id, []Status{StatusQueued}, Update{To: StatusProcessing})
}

func (s *service) MarkCompleted(ctx context.Context, id uuid.UUID, m MatchData, parsedText string) (Document, error) {
	return s.transition(ctx, id, []Status{StatusProcessing}, Update{
		To:         StatusCompleted,
		Match:      &m,
		ParsedText: &parsedText,
	})
}

func (s *service) MarkFailed(ctx context.Context, id uuid.UUID, kind FailureKind, message string) (Document, error) {
	if strings.TrimSpace(message) == "" {
		message = string(kind)
	}
	return s.transition(ctx, id, []Status{StatusQueued, StatusProcessing}, Update{
		To:           StatusFailed,
		FailureKind:  kind,
		ErrorMessage: message,
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from []Status, upd Update) (Document, error) {
	upd.At = s.now()
	d, err := s.repo.Transition(ctx, id, from, upd)
	if errors.Is(err, ErrInvalidTransition) {
		s.log.Error("cv transition rejected", "cv_id", id, "to", upd.To, "error", err)
	}
	return d, err
}

func (s *service) GetDownloadReference(ctx context.Context, id uuid.UUID) (string, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return d.S3Key, nil
}

// Get hides tombstoned documents.
func (s *service) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if d.Deleted() {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (s *service) List(ctx context.Context, f Filter) ([]Document, int, error) {
	return s.repo.List(ctx, f.Normalize())
}

// UpdateStatus is the operator override. It is legal from any state; a document
// without match data gets an empty record so status and match data stay consistent.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Document, error) {
	if status != StatusShortlisted && status != StatusRejected {
		return Document{}, ErrValidation("status must be shortlisted or rejected")
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	upd := Update{To: status}
	if cur.Match == nil {
		upd.Match = &MatchData{MatchedSkills: []string{}, MissingSkills: []string{}}
	}
	return s.transition(ctx, id, []Status{cur.Status}, upd)
}

// Delete tombstones the document and purges it right away when no worker can
// still touch it; otherwise the janitor finishes the job.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.MarkDeleted(ctx, id, s.now())
	if err != nil {
		return err
	}
	if _, err := s.purge(ctx, d); err != nil {
		s.log.Warn("deferred cv purge", "cv_id", id, "error", err)
	}
	return nil
}

// DeleteByJob applies Delete to every document of a batch.
func (s *service) DeleteByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	docs, err := s.repo.MarkDeletedByJob(ctx, jobID, s.now())
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		if _, err := s.purge(ctx, d); err != nil {
			s.log.Warn("deferred cv purge", "cv_id", d.ID, "error", err)
		}
	}
	return len(docs), nil
}

func (s *service) purge(ctx context.Context, d Document) (bool, error) {
	ok, err := s.repo.HardDelete(ctx, d.ID)
	if err != nil || !ok {
		return false, err
	}
	if s.objects != nil && d.S3Key != "" {
		if err := s.objects.Remove(ctx, d.S3Key); err != nil {
			s.log.Warn("remove cv object", "cv_id", d.ID, "key", d.S3Key, "error", err)
		}
	}
	return true, nil
}

func (s *service) RetryFailed(ctx context.Context, id uuid.UUID) (Document, queue.Task, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, queue.Task{}, err
	}
	if d.Status != StatusFailed {
		return d, queue.Task{}, ErrInvalidTransition
	}
	if !d.Retriable() {
		return d, queue.Task{}, ErrNotRetriable
	}
	t, err := s.tasks.GetByCV(ctx, id)
	if err != nil {
		return d, queue.Task{}, err
	}
	kind, msg := d.FailureKind, d.ErrorMessage
	d, err = s.transition(ctx, id, []Status{StatusFailed}, Update{To: StatusQueued})
	if err != nil {
		return d, queue.Task{}, err
	}
	t, err = s.tasks.Retry(ctx, t.ID)
	if err != nil {
		// задача не вернулась в очередь: откатываем документ
		if _, rerr := s.repo.Transition(ctx, id, []Status{StatusQueued}, Update{
			To: StatusFailed, FailureKind: kind, ErrorMessage: msg, At: s.now(),
		}); rerr != nil {
			s.log.Error("rollback cv retry", "cv_id", id, "error", rerr)
		}
		return d, queue.Task{}, err
	}
	s.log.Info("cv retried", "cv_id", id, "task_id", t.ID, "attempts", t.Attempts)
	return d, t, nil
}

// PurgeStale hard-deletes tombstones whose tasks are terminal and requested
// documents that were never confirmed within RequestedTTL.
func (s *service) PurgeStale(ctx context.Context, now time.Time) (int, error) {
	docs, err := s.repo.ListPurgeable(ctx, now.Add(-s.opts.RequestedTTL), 100)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		ok, err := s.purge(ctx, d)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// HandleTerminalFailure implements queue.TerminalFailureHandler.
func (s *service) HandleTerminalFailure(ctx context.Context, t queue.Task, r queue.Reason, permanent bool) error {
	kind := FailureKind(r.Kind)
	if kind == "" {
		kind = FailureAnalysisFailed
	}
	_, err := s.MarkFailed(ctx, t.CVID, kind, r.Message)
	if errors.Is(err, ErrDeleted) || errors.Is(err, ErrInvalidTransition) {
		// удалён или оператор уже вынес решение
		return nil
	}
	if err != nil {
		return err
	}
	if permanent && s.credits != nil && s.opts.CreditsPerCV > 0 {
		if err := s.credits.Refund(ctx, t.UserID, s.opts.CreditsPerCV, t.CVID); err != nil {
			s.log.Error("refund failed cv", "cv_id", t.CVID, "error", err)
		}
	}
	return nil
}
