package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "local-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSendsOptions(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, "  Alice works at TechCorp.  ", &body)
	c, err := New(Config{BaseURL: srv.URL, APIKey: "lm-studio", Model: "local-model"}, nil)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "who?", CompletionOptions{MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, "Alice works at TechCorp.", out)
	assert.Equal(t, "local-model", body["model"])
}

func TestCompleteEmptyAnswer(t *testing.T) {
	srv := chatServer(t, "   ", nil)
	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "q", CompletionOptions{})
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(Config{BaseURL: "http://localhost:1234/v1"}, nil)
	assert.Error(t, err)
}
