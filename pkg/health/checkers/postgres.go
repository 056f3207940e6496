package checkers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresChecker pings the pool and makes sure migrations created the queue table.
type PostgresChecker struct {
	pool *pgxpool.Pool
}

func NewPostgresChecker(pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{pool: pool}
}

func (c *PostgresChecker) Name() string { return "postgres" }

func (c *PostgresChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.pool.Ping(ctx); err != nil {
		return err
	}
	if _, err := c.pool.Exec(ctx, `SELECT 1 FROM cv_tasks LIMIT 1`); err != nil {
		return fmt.Errorf("schema not ready: %w", err)
	}
	return nil
}
