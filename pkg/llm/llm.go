package llm

import (
	"context"
	"errors"
)

// ChatModel is a minimal abstraction for chat-based LLMs used by the domain.
// It intentionally hides concrete providers to preserve dependency direction.
type ChatModel interface {
	Ask(ctx context.Context, systemPrompt, userPrompt string) (Reply, error)
}

// Reply carries the model answer together with the usage the provider reported.
type Reply struct {
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
}

// ErrTransient marks failures worth retrying: rate limits, provider 5xx, network errors.
var ErrTransient = errors.New("transient llm failure")
