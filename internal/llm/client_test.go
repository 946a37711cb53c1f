package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/actuallystonmai/course-recommender/internal/config"
	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, mutate func(*config.LLMConfig)) *Client {
	t.Helper()
	cfg := config.LLMConfig{
		BaseURL:         url,
		APIKey:          "secret",
		Model:           "gpt-5-mini",
		ProviderModel:   "openai/gpt-5-mini",
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		BreakerFailures: 10,
		BreakerTimeout:  time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := NewClient(cfg, logger.NewNop())
	c.backoff = time.Millisecond
	return c
}

func TestCompleteJSONSendsSchemaRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, chatBody(`{"is_decisive":true}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(t, srv.URL, nil).CompleteJSON(context.Background(), "hello", FilterSchema)
	require.NoError(t, err)

	assert.JSONEq(t, `{"is_decisive":true}`, string(raw))
	assert.Equal(t, "openai/gpt-5-mini", got.Model)
	assert.Equal(t, "json_schema", got.ResponseFormat.Type)
	assert.Equal(t, "course_filter", got.ResponseFormat.JSONSchema.Name)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, chatBody(`{"courses":[]}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(t, srv.URL, nil).CompleteJSON(context.Background(), "rank", RankingSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"courses":[]}`, string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteJSONRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).CompleteJSON(context.Background(), "rank", RankingSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletionUnavailable))
	assert.True(t, IsCompletionError(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad schema", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).CompleteJSON(context.Background(), "rank", RankingSchema)
	require.Error(t, err)

	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusBadRequest, cerr.StatusCode)
	assert.Contains(t, cerr.Body, "bad schema")
	assert.False(t, errors.Is(err, domain.ErrCompletionUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteJSONBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.LLMConfig) {
		cfg.MaxRetries = 0
		cfg.BreakerFailures = 2
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.CompleteJSON(ctx, "rank", RankingSchema)
		require.Error(t, err)
	}
	_, err := c.CompleteJSON(ctx, "rank", RankingSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletionUnavailable))
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteJSONInvalidAnswersDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"refusal":"no"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.LLMConfig) { cfg.BreakerFailures = 1 })
	for i := 0; i < 3; i++ {
		_, err := c.CompleteJSON(context.Background(), "rank", RankingSchema)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidCompletion))
	}
}

func TestCompleteJSONDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.LLMConfig) { cfg.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := c.CompleteJSON(context.Background(), "rank", RankingSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCompleteJSONStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chatBody("```json\n{\"courses\":[]}\n```"))
	}))
	defer srv.Close()

	raw, err := newTestClient(t, srv.URL, nil).CompleteJSON(context.Background(), "rank", RankingSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"courses":[]}`, string(raw))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, "", stripCodeFence("   "))
}
