package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/queue"
)

// CVRepository implements cv.Repository. Every status change locks the
// document row and moves the batch counters in the same transaction.
type CVRepository struct {
	pool *pgxpool.Pool
}

func NewCVRepository(pool *pgxpool.Pool) *CVRepository {
	return &CVRepository{pool: pool}
}

const cvColumns = `id, job_id, user_id, filename, content_type, s3_key, file_size_bytes, status,
	parsed_text, match_data, error_message, failure_kind, source,
	deleted_at, created_at, updated_at, processed_at`

func scanCV(row rowScanner) (cv.Document, error) {
	var d cv.Document
	var status, source string
	var parsed, errMsg, kind *string
	var match []byte
	var created, updated time.Time
	err := row.Scan(&d.ID, &d.JobID, &d.UserID, &d.Filename, &d.ContentType, &d.S3Key, &d.SizeBytes, &status,
		&parsed, &match, &errMsg, &kind, &source,
		&d.DeletedAt, &created, &updated, &d.ProcessedAt)
	if err != nil {
		return cv.Document{}, err
	}
	d.Status = cv.Status(status)
	d.Source = cv.Source(source)
	d.ParsedText = deref(parsed)
	d.ErrorMessage = deref(errMsg)
	d.FailureKind = cv.FailureKind(deref(kind))
	if len(match) > 0 {
		var m cv.MatchData
		if err := json.Unmarshal(match, &m); err != nil {
			return cv.Document{}, fmt.Errorf("decode match_data of %s: %w", d.ID, err)
		}
		d.Match = &m
	}
	d.DeletedAt = utcPtr(d.DeletedAt)
	d.ProcessedAt = utcPtr(d.ProcessedAt)
	d.CreatedAt, d.UpdatedAt = created.UTC(), updated.UTC()
	return d, nil
}

func (r *CVRepository) Create(ctx context.Context, d cv.Document) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO cv_documents (id, job_id, user_id, filename, content_type, s3_key, file_size_bytes, status, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, d.ID, d.JobID, d.UserID, d.Filename, d.ContentType, d.S3Key, d.SizeBytes, string(d.Status), string(d.Source), d.CreatedAt, d.UpdatedAt)
	if isUniqueViolation(err) {
		return cv.ErrDuplicateKey
	}
	return err
}

func (r *CVRepository) Get(ctx context.Context, id uuid.UUID) (cv.Document, error) {
	return getCV(ctx, r.pool, id, false)
}

func getCV(ctx context.Context, q querier, id uuid.UUID, lock bool) (cv.Document, error) {
	query := `SELECT ` + cvColumns + ` FROM cv_documents WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	d, err := scanCV(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return cv.Document{}, cv.ErrNotFound
	}
	return d, err
}

func (r *CVRepository) List(ctx context.Context, f cv.Filter) ([]cv.Document, int, error) {
	f = f.Normalize()
	where := `WHERE job_id = $1 AND deleted_at IS NULL
	AND ($2 = '' OR status = $2)
	AND ($3 = '' OR filename ILIKE '%' || $3 || '%')`
	search := strings.TrimSpace(f.Search)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cv_documents `+where, f.JobID, string(f.Status), search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+cvColumns+` FROM cv_documents `+where+`
ORDER BY created_at DESC, id
LIMIT $4 OFFSET $5`, f.JobID, string(f.Status), search, f.PageSize, f.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []cv.Document
	for rows.Next() {
		d, err := scanCV(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *CVRepository) ConfirmUpload(ctx context.Context, id uuid.UUID, t queue.Task) (cv.Document, queue.Task, bool, error) {
	var (
		doc     cv.Document
		task    queue.Task
		created bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		d, err := getCV(ctx, tx, id, true)
		if err != nil {
			return err
		}
		doc = d
		if d.Deleted() {
			return cv.ErrDeleted
		}
		switch d.Status {
		case cv.StatusRequested:
		case cv.StatusQueued:
			task, err = taskByCV(ctx, tx, id)
			if errors.Is(err, queue.ErrNotFound) {
				return fmt.Errorf("%w: queued cv without task", cv.ErrInvalidTransition)
			}
			return err
		default:
			return cv.ErrAlreadyProcessed
		}
		if existing, err := taskByCV(ctx, tx, id); err == nil {
			task = existing
			return nil
		} else if !errors.Is(err, queue.ErrNotFound) {
			return err
		}

		t.CVID = id
		if task, err = insertTask(ctx, tx, t); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE cv_documents SET status = 'queued', updated_at = $2 WHERE id = $1`, id, t.CreatedAt); err != nil {
			return err
		}
		if err := bumpBatch(ctx, tx, d.JobID, 1, 0, 0); err != nil {
			return err
		}
		doc.Status = cv.StatusQueued
		doc.UpdatedAt = t.CreatedAt
		created = true
		return nil
	})
	return doc, task, created, err
}

func (r *CVRepository) Transition(ctx context.Context, id uuid.UUID, from []cv.Status, upd cv.Update) (cv.Document, error) {
	var doc cv.Document
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		d, err := getCV(ctx, tx, id, true)
		if err != nil {
			return err
		}
		doc = d
		if d.Deleted() {
			return cv.ErrDeleted
		}
		if !slices.Contains(from, d.Status) {
			return fmt.Errorf("%w: %s -> %s", cv.ErrInvalidTransition, d.Status, upd.To)
		}
		if err := cv.CheckUpdate(d, upd); err != nil {
			return fmt.Errorf("%w: %v", cv.ErrInvalidTransition, err)
		}
		processed, failed := cv.CounterDeltas(d.Status, upd.To)
		d.Apply(upd)

		var match []byte
		if d.Match != nil {
			if match, err = json.Marshal(d.Match); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
UPDATE cv_documents SET status = $2, parsed_text = $3, match_data = $4, error_message = $5,
	failure_kind = $6, updated_at = $7, processed_at = $8
WHERE id = $1
`, id, string(d.Status), nullString(d.ParsedText), match, nullString(d.ErrorMessage),
			nullString(string(d.FailureKind)), d.UpdatedAt, d.ProcessedAt)
		if err != nil {
			return err
		}
		if err := bumpBatch(ctx, tx, d.JobID, 0, processed, failed); err != nil {
			return err
		}
		doc = d
		return nil
	})
	return doc, err
}

func bumpBatch(ctx context.Context, q querier, jobID uuid.UUID, total, processed, failed int) error {
	if total == 0 && processed == 0 && failed == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
UPDATE batches SET total_cvs = total_cvs + $2, processed_cvs = processed_cvs + $3,
	failed_cvs = failed_cvs + $4, updated_at = now()
WHERE id = $1
`, jobID, total, processed, failed)
	return err
}

func (r *CVRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) (cv.Document, error) {
	d, err := scanCV(r.pool.QueryRow(ctx, `
UPDATE cv_documents SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
RETURNING `+cvColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return cv.Document{}, cv.ErrNotFound
	}
	return d, err
}

func (r *CVRepository) MarkDeletedByJob(ctx context.Context, jobID uuid.UUID, at time.Time) ([]cv.Document, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE cv_documents SET deleted_at = $2, updated_at = $2
WHERE job_id = $1 AND deleted_at IS NULL
RETURNING `+cvColumns, jobID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []cv.Document
	for rows.Next() {
		d, err := scanCV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *CVRepository) HardDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		d, err := getCV(ctx, tx, id, true)
		if errors.Is(err, cv.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// строка могла быть подтверждена после ListPurgeable
		if !cv.Purgeable(d) {
			return nil
		}
		var busy bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM cv_tasks WHERE cv_id = $1 AND status IN ('pending', 'processing'))
`, id).Scan(&busy); err != nil {
			return err
		}
		if busy {
			return nil
		}
		// задача удаляется каскадом
		if _, err := tx.Exec(ctx, `DELETE FROM cv_documents WHERE id = $1`, id); err != nil {
			return err
		}
		if d.Status != cv.StatusRequested {
			if err := bumpBatch(ctx, tx, d.JobID, -1, 0, 0); err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *CVRepository) ListPurgeable(ctx context.Context, requestedBefore time.Time, limit int) ([]cv.Document, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+cvColumns+` FROM cv_documents d
WHERE (d.deleted_at IS NOT NULL OR (d.status = 'requested' AND d.created_at < $1))
  AND NOT EXISTS (
	SELECT 1 FROM cv_tasks t WHERE t.cv_id = d.id AND t.status IN ('pending', 'processing')
  )
ORDER BY d.created_at
LIMIT $2
`, requestedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []cv.Document
	for rows.Next() {
		d, err := scanCV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
