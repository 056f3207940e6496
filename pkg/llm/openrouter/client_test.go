package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/llm"
)

func TestAskParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req chatCompletionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		_, _ = w.Write([]byte(`{"model":"openai/gpt-4o","choices":[{"message":{"role":"assistant","content":"{}"}}],"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}}`))
	}))
	defer srv.Close()

	c := New("key", srv.URL, "openai/gpt-4o", "cvflow", "")
	reply, err := c.Ask(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "{}", reply.Content)
	assert.Equal(t, 120, reply.InputTokens)
	assert.Equal(t, 30, reply.OutputTokens)
	assert.Equal(t, "openrouter", reply.Provider)
}

func TestAskClassifiesErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()
	c := New("key", srv.URL, "", "", "")

	_, err := c.Ask(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, llm.ErrTransient)

	status.Store(http.StatusBadRequest)
	_, err = c.Ask(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrTransient)

	_, err = New("", srv.URL, "", "", "").Ask(context.Background(), "sys", "user")
	assert.Error(t, err)
}
