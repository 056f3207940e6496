package batch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/cv"
)

// UseCase инкапсулирует работу с пачками. Чужая пачка для не-админа выглядит как несуществующая.
type UseCase interface {
	Create(ctx context.Context, actor Actor, title, description string, w *cv.Weights) (Batch, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (Batch, error)
	List(ctx context.Context, actor Actor, archived bool, limit, offset int) ([]Batch, error)
	UpdateWeights(ctx context.Context, actor Actor, id uuid.UUID, w cv.Weights) (Batch, error)
	SetArchived(ctx context.Context, actor Actor, id uuid.UUID, archived bool) (Batch, error)
	// Delete скрывает пачку сразу и помечает все её резюме удалёнными.
	// Строки физически удаляет уборщик, когда задачи завершатся.
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	QueueStatus(ctx context.Context, actor Actor, id uuid.UUID) (QueueStatus, error)
	PurgeDeleted(ctx context.Context) (int, error)
}

// Documents удаляет резюме пачки тем же путём, что и одиночное удаление.
type Documents interface {
	DeleteByJob(ctx context.Context, jobID uuid.UUID) (int, error)
}

type service struct {
	repo     Repository
	docs     Documents
	defaults cv.Weights
	log      *slog.Logger
}

func NewService(repo Repository, docs Documents, defaults cv.Weights, log *slog.Logger) UseCase {
	if defaults.Validate() != nil {
		defaults = cv.DefaultWeights
	}
	return &service{repo: repo, docs: docs, defaults: defaults, log: log}
}

func (s *service) Create(ctx context.Context, actor Actor, title, description string, w *cv.Weights) (Batch, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Batch{}, cv.ErrValidation("title is required")
	}
	weights := s.defaults
	if w != nil {
		if err := w.Validate(); err != nil {
			return Batch{}, err
		}
		weights = *w
	}
	now := time.Now().UTC()
	b := Batch{
		ID:          uuid.New(),
		OwnerID:     actor.UserID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Weights:     weights,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (Batch, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Deleted() || !actor.CanAccess(b.OwnerID) {
		return Batch{}, ErrNotFound
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor Actor, archived bool, limit, offset int) ([]Batch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if actor.IsAdmin {
		return s.repo.ListAll(ctx, archived, limit, offset)
	}
	return s.repo.ListByOwner(ctx, actor.UserID, archived, limit, offset)
}

func (s *service) UpdateWeights(ctx context.Context, actor Actor, id uuid.UUID, w cv.Weights) (Batch, error) {
	if err := w.Validate(); err != nil {
		return Batch{}, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return Batch{}, err
	}
	if err := s.repo.UpdateWeights(ctx, id, w); err != nil {
		return Batch{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *service) SetArchived(ctx context.Context, actor Actor, id uuid.UUID, archived bool) (Batch, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return Batch{}, err
	}
	if err := s.repo.SetArchived(ctx, id, archived); err != nil {
		return Batch{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.MarkDeleted(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	n, err := s.docs.DeleteByJob(ctx, id)
	if err != nil {
		// надгробие уже стоит, уборщик дочистит
		s.log.Warn("delete batch cvs", "job_id", id, "error", err)
	}
	s.log.Info("batch deleted", "job_id", id, "cvs", n)
	return nil
}

// PurgeDeleted физически удаляет помеченные пачки. Резюме, пропущенные при
// Delete, помечаются повторно; пачка ждёт, пока их задачи не завершатся.
func (s *service) PurgeDeleted(ctx context.Context) (int, error) {
	ids, err := s.repo.ListDeleted(ctx, 100)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, err := s.docs.DeleteByJob(ctx, id); err != nil {
			return n, err
		}
		ok, err := s.repo.Purge(ctx, id)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *service) QueueStatus(ctx context.Context, actor Actor, id uuid.UUID) (QueueStatus, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return QueueStatus{}, err
	}
	counts, err := s.repo.StatusCounts(ctx, id)
	if err != nil {
		return QueueStatus{}, err
	}
	return Summarize(id, counts), nil
}

// Summarize сворачивает счётчики по статусам. Неподтверждённые загрузки не считаются.
func Summarize(id uuid.UUID, counts map[cv.Status]int) QueueStatus {
	qs := QueueStatus{
		JobID:      id,
		Queued:     counts[cv.StatusQueued],
		Processing: counts[cv.StatusProcessing],
		Completed:  counts[cv.StatusCompleted] + counts[cv.StatusShortlisted] + counts[cv.StatusRejected],
		Failed:     counts[cv.StatusFailed],
	}
	qs.Total = qs.Queued + qs.Processing + qs.Completed + qs.Failed
	if qs.Total > 0 {
		qs.ProgressPercent = float64(qs.Completed+qs.Failed) * 100 / float64(qs.Total)
	}
	qs.EstimatedSeconds = (qs.Queued + qs.Processing) * SecondsPerCV
	return qs
}
