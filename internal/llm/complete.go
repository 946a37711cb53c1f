package llm

import (
	"context"
	"errors"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

// StructuredCompleter returns raw JSON produced for prompt under schema.
type StructuredCompleter interface {
	CompleteJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error)
}

// Complete runs one structured completion and decodes the validated payload into T.
func Complete[T any](ctx context.Context, c StructuredCompleter, prompt string, schema *Schema) (T, error) {
	var zero T

	raw, err := c.CompleteJSON(ctx, prompt, schema)
	if err != nil {
		metrics.CompletionRequests.WithLabelValues(schema.Name, outcome(err)).Inc()
		return zero, err
	}

	out, err := Decode[T](raw, schema)
	if err != nil {
		metrics.CompletionRequests.WithLabelValues(schema.Name, "invalid").Inc()
		return zero, err
	}

	metrics.CompletionRequests.WithLabelValues(schema.Name, "ok").Inc()
	return out, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCompletionUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrInvalidCompletion):
		return "invalid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
