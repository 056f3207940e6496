package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/llm"
	"github.com/artem13815/cvflow/pkg/nlp"
)

const CallTypeCVScoring = "cv_scoring"

// TransientError is a model call or output failure. The worker retries it up
// to the task cap.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("scoring %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

type Request struct {
	JobTitle       string
	JobDescription string
	CandidateText  string
	Weights        cv.Weights
	CVID           uuid.UUID
	UserID         uuid.UUID
	JobID          uuid.UUID
}

// Call is one usage record for cost accounting.
type Call struct {
	ID            uuid.UUID `json:"id"`
	Model         string    `json:"model"`
	Provider      string    `json:"provider"`
	CallType      string    `json:"callType"`
	InputTokens   int       `json:"inputTokens"`
	OutputTokens  int       `json:"outputTokens"`
	TotalTokens   int       `json:"totalTokens"`
	InputCost     float64   `json:"inputCost"`
	OutputCost    float64   `json:"outputCost"`
	TotalCost     float64   `json:"totalCost"`
	PromptChars   int       `json:"promptChars"`
	ResponseChars int       `json:"responseChars"`
	LatencyMS     int64     `json:"latencyMs"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CVID          uuid.UUID `json:"cvId"`
	UserID        uuid.UUID `json:"userId"`
	JobID         uuid.UUID `json:"jobId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Recorder interface {
	RecordCall(ctx context.Context, c Call) error
}

type Invoker struct {
	model          llm.ChatModel
	pricing        llm.Pricing
	rec            Recorder
	log            *slog.Logger
	maxPromptChars int
	recordTimeout  time.Duration
	now            func() time.Time
}

func NewInvoker(model llm.ChatModel, pricing llm.Pricing, rec Recorder, log *slog.Logger) *Invoker {
	if pricing == nil {
		pricing = llm.DefaultPricing()
	}
	return &Invoker{
		model:          model,
		pricing:        pricing,
		rec:            rec,
		log:            log,
		maxPromptChars: 12_000,
		recordTimeout:  2 * time.Second,
		now:            time.Now,
	}
}

const systemPrompt = `You are a strict technical recruiter scoring how well a CV matches a job description.
Score each component from 0 to 100:
- skills: overlap between required and demonstrated technical skills
- experience: relevance and length of work experience
- qualifications: education and certifications
- projects: relevance of projects and achievements
Return ONLY a JSON object, no markdown, with exactly these keys:
{"score": number, "breakdown": {"skills": number, "experience": number, "qualifications": number, "projects": number},
 "matched_skills": [string], "missing_skills": [string], "reasoning": string}`

func (i *Invoker) prompt(req Request) string {
	text := clip(req.CandidateText, i.maxPromptChars)
	jd := clip(req.JobDescription, i.maxPromptChars/2)
	w := req.Weights
	return fmt.Sprintf(
		"Job title: %s\nJob description between markers:\n<<<\n%s\n>>>\nCandidate CV between markers:\n<<<\n%s\n>>>\nWeights (percent): skills %d, experience %d, qualifications %d, projects %d.\nscore must equal the weighted sum of the breakdown.",
		req.JobTitle, jd, text, w.Skills, w.Experience, w.Qualifications, w.Projects,
	)
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Score asks the model once and returns validated match data. Any call or
// validation failure is a *TransientError; the score is always recomputed from
// the clamped breakdown and the request weights.
func (i *Invoker) Score(ctx context.Context, req Request) (cv.MatchData, error) {
	if req.Weights.Validate() != nil {
		req.Weights = cv.DefaultWeights
	}
	userPrompt := i.prompt(req)
	started := i.now()
	reply, err := i.model.Ask(ctx, systemPrompt, userPrompt)
	call := Call{
		ID:            uuid.New(),
		Model:         reply.Model,
		Provider:      reply.Provider,
		CallType:      CallTypeCVScoring,
		InputTokens:   reply.InputTokens,
		OutputTokens:  reply.OutputTokens,
		TotalTokens:   reply.InputTokens + reply.OutputTokens,
		PromptChars:   len(systemPrompt) + len(userPrompt),
		ResponseChars: len(reply.Content),
		LatencyMS:     i.now().Sub(started).Milliseconds(),
		CVID:          req.CVID,
		UserID:        req.UserID,
		JobID:         req.JobID,
		CreatedAt:     started.UTC(),
	}
	call.InputCost, call.OutputCost = i.pricing.Cost(reply.Model, reply.InputTokens, reply.OutputTokens)
	call.TotalCost = call.InputCost + call.OutputCost

	var match cv.MatchData
	if err != nil {
		err = &TransientError{Op: "call", Err: err}
	} else if match, err = i.toMatch(reply, req.Weights); err != nil {
		err = &TransientError{Op: "parse", Err: err}
	}
	call.Success = err == nil
	if err != nil {
		call.Error = err.Error()
	}
	i.record(ctx, call)
	if err != nil {
		return cv.MatchData{}, err
	}
	return match, nil
}

func (i *Invoker) toMatch(reply llm.Reply, w cv.Weights) (cv.MatchData, error) {
	out, err := parseOutput(reply.Content)
	if err != nil {
		return cv.MatchData{}, err
	}
	b := cv.Breakdown{
		Skills:         Clamp(*out.Breakdown.Skills),
		Experience:     Clamp(*out.Breakdown.Experience),
		Qualifications: Clamp(*out.Breakdown.Qualifications),
		Projects:       Clamp(*out.Breakdown.Projects),
	}
	score := FinalScore(b, w)
	if reported := Clamp(*out.Score); reported-score > 1 || score-reported > 1 {
		i.log.Debug("model score differs from weighted breakdown", "reported", reported, "computed", score)
	}
	matched := nlp.DedupeSkills(*out.MatchedSkills)
	return cv.MatchData{
		Score:         score,
		MatchedSkills: matched,
		MissingSkills: nlp.Subtract(nlp.DedupeSkills(*out.MissingSkills), matched),
		Reasoning:     strings.TrimSpace(*out.Reasoning),
		Breakdown:     b,
		Weights:       w,
		Model:         reply.Model,
	}, nil
}

// record never fails scoring: telemetry errors are logged and dropped.
func (i *Invoker) record(ctx context.Context, c Call) {
	if i.rec == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.recordTimeout)
	defer cancel()
	if err := i.rec.RecordCall(rctx, c); err != nil {
		i.log.Warn("record llm call", "cv_id", c.CVID, "model", c.Model, "error", err)
	}
}
