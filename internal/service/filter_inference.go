package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/llm"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

// FilterInferenceService turns a free-text query into an InferredFilter.
type FilterInferenceService struct {
	llm llm.StructuredCompleter
	log *logger.Logger
}

func NewFilterInferenceService(c llm.StructuredCompleter, log *logger.Logger) *FilterInferenceService {
	return &FilterInferenceService{llm: c, log: log.With("service", "FilterInferenceService")}
}

type filterPromptData struct {
	Query      string
	Categories string
}

func buildFilterPrompt(query string, names domain.CategoryNames) (string, error) {
	categories := noCategoriesMarker
	if len(names) > 0 {
		categories = strings.Join(names.Sorted(), "\n")
	}
	return render(filterPrompt, filterPromptData{Query: query, Categories: categories})
}

// Infer asks the completion service for a filter. Returned category names are not
// checked against names here; retrieval drops the unknown ones.
func (s *FilterInferenceService) Infer(ctx context.Context, query string, names domain.CategoryNames) (domain.InferredFilter, error) {
	ctx, span := tracer.Start(ctx, "infer_filter")
	defer span.End()
	defer metrics.ObserveStage("infer_filter", time.Now())

	prompt, err := buildFilterPrompt(query, names)
	if err != nil {
		return domain.InferredFilter{}, fmt.Errorf("render filter prompt: %w", err)
	}

	filter, err := llm.Complete[domain.InferredFilter](ctx, s.llm, prompt, llm.FilterSchema)
	if err != nil {
		recordSpanError(span, err)
		return domain.InferredFilter{}, fmt.Errorf("infer filter: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("filter.decisive", filter.IsDecisive),
		attribute.Int("filter.categories", len(filter.CategoryNames)),
	)
	s.log.Debug("filter inferred",
		"query", logger.Truncate(query, 200),
		"decisive", filter.IsDecisive,
		"categories", filter.CategoryNames,
	)
	return filter, nil
}
