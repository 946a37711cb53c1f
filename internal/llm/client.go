package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/actuallystonmai/course-recommender/internal/config"
	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBackoff         = 500 * time.Millisecond
	defaultBreakerFailures = 5
	maxErrorBody           = 1024
)

// Client talks to an OpenAI-compatible chat completions endpoint and asks for
// JSON constrained by a schema.
type Client struct {
	log         *logger.Logger
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	backoff     time.Duration
	breaker     *gobreaker.CircuitBreaker[[]byte]
}

var _ StructuredCompleter = (*Client)(nil)

func NewClient(cfg config.LLMConfig, log *logger.Logger) *Client {
	c := &Client{
		log:         log.With("service", "CompletionClient"),
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.ProviderModel,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoff:     defaultBackoff,
	}
	if c.model == "" {
		c.model = cfg.Model
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "completion",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// only an unreachable service trips the breaker, not a bad answer
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrCompletionUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// CompleteJSON sends prompt and returns the raw JSON text produced for schema.
// The whole call, retries included, is bounded by the configured timeout.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   schema.Name,
				Schema: schema.Definition,
				Strict: schema.Strict,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.completeWithRetry(ctx, body, schema.Name)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit %s", domain.ErrCompletionUnavailable, c.breaker.State())
	}
	return raw, err
}

func (c *Client) completeWithRetry(ctx context.Context, body []byte, schemaName string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		raw, err := c.doOnce(ctx, body)
		if err == nil {
			return raw, nil
		}
		if !isRetryable(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			return nil, err
		}

		wait := time.Duration(attempt+1) * c.backoff
		c.log.Warn("Completion failed, retrying",
			"schema", schemaName,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"wait", wait.String(),
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
}

func (c *Client) doOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CompletionError{Retryable: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &CompletionError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &CompletionError{Retryable: ctx.Err() == nil, Err: fmt.Errorf("decode completion envelope: %w", err)}
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrInvalidCompletion)
	}

	msg := out.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", domain.ErrInvalidCompletion, msg.Refusal)
	}
	content := stripCodeFence(msg.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content (finish_reason=%s)", domain.ErrInvalidCompletion, out.Choices[0].FinishReason)
	}
	return []byte(content), nil
}

// stripCodeFence removes a markdown ```json fence some providers wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
