package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/cv"
)

// BatchRepository хранит вакансии-пачки и их счётчики.
type BatchRepository struct {
	pool *pgxpool.Pool
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

const batchColumns = `id, owner_id, title, description,
	weight_skills, weight_experience, weight_qualifications, weight_projects,
	total_cvs, processed_cvs, failed_cvs, is_archived, deleted_at, created_at, updated_at`

func scanBatch(row rowScanner) (batch.Batch, error) {
	var b batch.Batch
	var created, updated time.Time
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description,
		&b.Weights.Skills, &b.Weights.Experience, &b.Weights.Qualifications, &b.Weights.Projects,
		&b.TotalCVs, &b.ProcessedCVs, &b.FailedCVs, &b.Archived, &b.DeletedAt, &created, &updated)
	if err != nil {
		return batch.Batch{}, err
	}
	b.DeletedAt = utcPtr(b.DeletedAt)
	b.CreatedAt, b.UpdatedAt = created.UTC(), updated.UTC()
	return b, nil
}

func (r *BatchRepository) Create(ctx context.Context, b batch.Batch) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO batches (id, owner_id, title, description,
	weight_skills, weight_experience, weight_qualifications, weight_projects,
	total_cvs, processed_cvs, failed_cvs, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, $9, $10)
`, b.ID, b.OwnerID, strings.TrimSpace(b.Title), b.Description,
		b.Weights.Skills, b.Weights.Experience, b.Weights.Qualifications, b.Weights.Projects,
		b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BatchRepository) Get(ctx context.Context, id uuid.UUID) (batch.Batch, error) {
	b, err := scanBatch(r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return batch.Batch{}, batch.ErrNotFound
	}
	return b, err
}

func (r *BatchRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, archived bool, limit, offset int) ([]batch.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
WHERE owner_id = $3 AND is_archived = $4 AND deleted_at IS NULL
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset, ownerID, archived)
}

func (r *BatchRepository) ListAll(ctx context.Context, archived bool, limit, offset int) ([]batch.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
WHERE is_archived = $3 AND deleted_at IS NULL
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset, archived)
}

func (r *BatchRepository) list(ctx context.Context, query string, limit, offset int, args ...any) ([]batch.Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, query, append([]any{limit, offset}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []batch.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r *BatchRepository) UpdateWeights(ctx context.Context, id uuid.UUID, w cv.Weights) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE batches SET weight_skills = $2, weight_experience = $3, weight_qualifications = $4, weight_projects = $5,
	updated_at = $6
WHERE id = $1
`, id, w.Skills, w.Experience, w.Qualifications, w.Projects, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (r *BatchRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE batches SET is_archived = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL
`, id, archived, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (r *BatchRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE batches SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (r *BatchRepository) ListDeleted(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id FROM batches WHERE deleted_at IS NOT NULL ORDER BY deleted_at LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Purge не трогает пачку, пока в ней есть хоть один документ: каскад снёс бы
// строки с незавершёнными задачами.
func (r *BatchRepository) Purge(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM batches b
WHERE b.id = $1 AND b.deleted_at IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM cv_documents d WHERE d.job_id = b.id)
`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BatchRepository) StatusCounts(ctx context.Context, id uuid.UUID) (map[cv.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*) FROM cv_documents
WHERE job_id = $1 AND deleted_at IS NULL
GROUP BY status
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[cv.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[cv.Status(status)] = n
	}
	return counts, rows.Err()
}
