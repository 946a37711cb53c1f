package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/llm"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

const (
	defaultLimit            = 10
	defaultBatchConcurrency = 4
)

// Service runs the recommendation pipeline: category load, filter inference,
// retrieval with fallback, ranking and pagination.
type Service struct {
	categories       CategoryReader
	inference        *FilterInferenceService
	retrieval        *CourseRetrievalService
	ranking          *CourseRankingService
	batchConcurrency int
	log              *logger.Logger
}

func NewService(
	categories CategoryReader,
	inference *FilterInferenceService,
	retrieval *CourseRetrievalService,
	ranking *CourseRankingService,
	batchConcurrency int,
	log *logger.Logger,
) *Service {
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}
	return &Service{
		categories:       categories,
		inference:        inference,
		retrieval:        retrieval,
		ranking:          ranking,
		batchConcurrency: batchConcurrency,
		log:              log.With("service", "RecommendationService"),
	}
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListCategories(ctx)
}

// Recommend produces one page of ranked courses for req.
//
// The returned Skip is req.Skip plus the number of ranked courses before the
// page was cut to the requested limit. Fallback ranks up to MaxLimit courses,
// so there it can run ahead of what the caller actually received.
func (s *Service) Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResult, error) {
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Skip < 0 {
		req.Skip = 0
	}

	ctx, span := tracer.Start(ctx, "recommend")
	defer span.End()
	span.SetAttributes(
		attribute.Int("request.limit", req.Limit),
		attribute.Int("request.skip", req.Skip),
	)

	result, err := s.recommend(ctx, req)
	if err != nil {
		recordSpanError(span, err)
		metrics.RecommendationsTotal.WithLabelValues(errorOutcome(err)).Inc()
		return nil, err
	}

	metrics.RecommendationsTotal.WithLabelValues("success").Inc()
	for _, n := range result.Notices {
		metrics.RecommendationNotices.WithLabelValues(string(n)).Inc()
	}
	span.SetAttributes(attribute.Int("result.courses", len(result.Courses)))
	return result, nil
}

func (s *Service) recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResult, error) {
	log := s.log.With("query", logger.Truncate(req.Query, 200), "limit", req.Limit, "skip", req.Skip)
	notices := make([]domain.Notice, 0, 3)

	cats, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := domain.NewCategoryNames(cats)

	filter, err := s.inference.Infer(ctx, req.Query, names)
	if err != nil {
		return nil, err
	}

	courses, err := s.retrieval.FilterByInference(ctx, filter, names, req.PageLimit(), req.Skip)
	if err != nil {
		return nil, err
	}

	query := req.Query
	if len(courses) > 0 {
		notices = append(notices, domain.NoticeFiltersInferred)
		log.Info("filters inferred", "count", len(courses))
	} else {
		if !filter.IsDecisive {
			notices = append(notices, domain.NoticeQueryInvalid)
		} else {
			notices = append(notices, domain.NoticeQueryAmbiguous)
		}
		notices = append(notices, domain.NoticeFallbackUsed)
		log.Info("no filtered courses, using fallback", "decisive", filter.IsDecisive)

		query = fallbackRankingQuery
		courses, err = s.retrieval.GetFallbackCourses(ctx, domain.MaxLimit)
		if err != nil {
			return nil, err
		}
	}

	ranked, weak, err := s.ranking.Rank(ctx, query, courses)
	if err != nil {
		return nil, err
	}
	if weak {
		notices = append(notices, domain.NoticeRankingWeak)
		log.Info("ranking is weak", "candidates", len(courses), "ranked", len(ranked))
	}

	page := ranked[:min(req.PageLimit(), len(ranked))]
	log.Info("recommendation ready", "courses", len(page), "notices", notices)

	return &domain.RecommendationResult{
		Notices: notices,
		Courses: page,
		Skip:    req.Skip + len(ranked),
	}, nil
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCompletionUnavailable):
		return "completion_unavailable"
	case errors.Is(err, domain.ErrInvalidCompletion):
		return "completion_invalid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case llm.IsCompletionError(err):
		return "completion_rejected"
	default:
		return "error"
	}
}

// CategorizeError maps a pipeline error onto a stable code and message for callers.
func CategorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrCompletionUnavailable):
		return "completion_unavailable", "completion service is unavailable"
	case errors.Is(err, domain.ErrInvalidCompletion):
		return "completion_invalid", "completion service returned an invalid answer"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out"
	case llm.IsCompletionError(err):
		return "completion_failed", "completion service rejected the request"
	default:
		return "internal_error", "an unexpected error occurred"
	}
}
