package batch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/cv"
)

// Batch — вакансия, под которую загружается пачка резюме.
// Счётчики двигает хранилище документов в той же транзакции, что и переход статуса.
type Batch struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Weights      cv.Weights `json:"weights"`
	TotalCVs     int        `json:"totalCvs"`
	ProcessedCVs int        `json:"processedCvs"`
	FailedCVs    int        `json:"failedCvs"`
	// Архивная пачка скрыта из списка по умолчанию и не принимает загрузки.
	Archived  bool       `json:"isArchived"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (b Batch) Deleted() bool { return b.DeletedAt != nil }

// QueueStatus — сводка по обработке пачки.
type QueueStatus struct {
	JobID            uuid.UUID `json:"jobId"`
	Total            int       `json:"total"`
	Queued           int       `json:"queued"`
	Processing       int       `json:"processing"`
	Completed        int       `json:"completed"`
	Failed           int       `json:"failed"`
	ProgressPercent  float64   `json:"progressPercent"`
	EstimatedSeconds int       `json:"estimatedSecondsRemaining"`
}

// SecondsPerCV — грубая оценка времени обработки одного резюме.
const SecondsPerCV = 30

// Actor — кто выполняет запрос.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func (a Actor) CanAccess(ownerID uuid.UUID) bool { return a.IsAdmin || a.UserID == ownerID }

var (
	ErrNotFound = errors.New("batch not found")
	ErrArchived = errors.New("batch is archived")
)

// Repository — порт для работы с пачками.
type Repository interface {
	Create(ctx context.Context, b Batch) error
	// Get возвращает и удалённые пачки: воркеру и уборщику они ещё нужны.
	Get(ctx context.Context, id uuid.UUID) (Batch, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, archived bool, limit, offset int) ([]Batch, error)
	// Админ-доступ без фильтра владельца
	ListAll(ctx context.Context, archived bool, limit, offset int) ([]Batch, error)
	UpdateWeights(ctx context.Context, id uuid.UUID, w cv.Weights) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	// MarkDeleted ставит надгробие. Повторный вызов возвращает ErrNotFound.
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	ListDeleted(ctx context.Context, limit int) ([]uuid.UUID, error)
	// Purge удаляет помеченную пачку, только если в ней не осталось документов.
	Purge(ctx context.Context, id uuid.UUID) (bool, error)
	// StatusCounts считает документы пачки по статусам (без надгробий).
	StatusCounts(ctx context.Context, id uuid.UUID) (map[cv.Status]int, error)
}
