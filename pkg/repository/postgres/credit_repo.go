package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvflow/pkg/credits"
)

// CreditRepository implements credits.Repository: a ledger row and the
// balance update commit together or not at all.
type CreditRepository struct {
	pool *pgxpool.Pool
}

func NewCreditRepository(pool *pgxpool.Pool) *CreditRepository {
	return &CreditRepository{pool: pool}
}

func (r *CreditRepository) Apply(ctx context.Context, t credits.Transaction) (int, error) {
	var balance int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
INSERT INTO credit_transactions (id, user_id, amount, kind, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (ref_id, kind) DO NOTHING
`, t.ID, t.UserID, t.Amount, string(t.Kind), t.RefID, t.CreatedAt)
		if isForeignKeyViolation(err) {
			return credits.ErrUnknownUser
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return credits.ErrDuplicate
		}
		// условное списание: баланс не уходит в минус
		err = tx.QueryRow(ctx, `
UPDATE users SET credits = credits + $2
WHERE id = $1 AND credits + $2 >= 0
RETURNING credits
`, t.UserID, t.Amount).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return credits.ErrQuotaExceeded
		}
		return err
	})
	return balance, err
}

func (r *CreditRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, credits.ErrUnknownUser
	}
	return balance, err
}

func (r *CreditRepository) History(ctx context.Context, userID uuid.UUID, limit int) ([]credits.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, amount, kind, ref_id, created_at
FROM credit_transactions WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []credits.Transaction
	for rows.Next() {
		var t credits.Transaction
		var kind string
		var created time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &t.RefID, &created); err != nil {
			return nil, err
		}
		t.Kind = credits.Kind(kind)
		t.CreatedAt = created.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
