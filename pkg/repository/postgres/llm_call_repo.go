package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/cvflow/pkg/scoring"
)

// LLMCallRepository implements scoring.Recorder.
type LLMCallRepository struct {
	pool *pgxpool.Pool
}

func NewLLMCallRepository(pool *pgxpool.Pool) *LLMCallRepository {
	return &LLMCallRepository{pool: pool}
}

func (r *LLMCallRepository) RecordCall(ctx context.Context, c scoring.Call) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO llm_calls (id, model, provider, call_type, input_tokens, output_tokens, total_tokens,
	input_cost, output_cost, total_cost, prompt_chars, response_chars, latency_ms,
	success, error, cv_id, user_id, job_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`, c.ID, c.Model, c.Provider, c.CallType, c.InputTokens, c.OutputTokens, c.TotalTokens,
		c.InputCost, c.OutputCost, c.TotalCost, c.PromptChars, c.ResponseChars, c.LatencyMS,
		c.Success, nullString(c.Error), c.CVID, c.UserID, c.JobID, c.CreatedAt)
	return err
}
