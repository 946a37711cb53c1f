package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

// CourseReader is the catalog access retrieval needs.
type CourseReader interface {
	FilterCourses(ctx context.Context, f domain.CourseFilter) ([]domain.Course, error)
	ListCourses(ctx context.Context, limit int) ([]domain.Course, error)
}

// ShuffleFunc permutes n elements through swap.
type ShuffleFunc func(n int, swap func(i, j int))

// CourseRetrievalService loads candidate courses from the catalog.
type CourseRetrievalService struct {
	repo    CourseReader
	shuffle ShuffleFunc
	log     *logger.Logger
}

// NewCourseRetrievalService uses math/rand/v2 for fallback shuffling when shuffle is nil.
func NewCourseRetrievalService(repo CourseReader, shuffle ShuffleFunc, log *logger.Logger) *CourseRetrievalService {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &CourseRetrievalService{repo: repo, shuffle: shuffle, log: log.With("service", "CourseRetrievalService")}
}

// FilterByInference returns visible courses matching filter. It returns nothing
// when the filter is not decisive or carries no usable constraint once unknown
// categories are dropped.
func (s *CourseRetrievalService) FilterByInference(ctx context.Context, filter domain.InferredFilter, names domain.CategoryNames, limit, skip int) ([]domain.Course, error) {
	ctx, span := tracer.Start(ctx, "retrieve")
	defer span.End()
	defer metrics.ObserveStage("retrieve", time.Now())

	if !filter.IsDecisive {
		return nil, nil
	}

	cf, ok := s.courseFilter(filter, names)
	if !ok {
		return nil, nil
	}
	cf.Limit = limit
	cf.Skip = skip

	courses, err := s.repo.FilterCourses(ctx, cf)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("filter courses: %w", err)
	}
	span.SetAttributes(attribute.Int("courses", len(courses)))
	s.log.Debug("filtered courses", "count", len(courses), "course_ids", ids(courses))
	return courses, nil
}

func ids(courses []domain.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.ID.String())
	}
	return out
}

// courseFilter maps an inferred filter onto repository constraints. The second
// result is false when nothing narrows the catalog.
func (s *CourseRetrievalService) courseFilter(filter domain.InferredFilter, names domain.CategoryNames) (domain.CourseFilter, bool) {
	var cf domain.CourseFilter

	seen := make(map[string]struct{}, len(filter.CategoryNames))
	for _, name := range filter.CategoryNames {
		if !names.Has(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cf.Categories = append(cf.Categories, name)
	}
	if len(filter.CategoryNames) > 0 && len(cf.Categories) == 0 {
		s.log.Warn("inferred categories are not in the catalog", "categories", filter.CategoryNames)
	}

	if filter.Format != nil && filter.Format.Valid() {
		cf.Format = filter.Format
	}
	if filter.MaxDurationHours != nil && *filter.MaxDurationHours > 0 {
		cf.MaxDurationHours = filter.MaxDurationHours
	}
	if filter.CertificateRequired != nil && *filter.CertificateRequired {
		cf.CertificateRequired = filter.CertificateRequired
	}

	constrained := len(cf.Categories) > 0 || cf.Format != nil || cf.MaxDurationHours != nil || cf.CertificateRequired != nil
	return cf, constrained
}

// GetFallbackCourses returns up to limit visible courses in shuffled order.
func (s *CourseRetrievalService) GetFallbackCourses(ctx context.Context, limit int) ([]domain.Course, error) {
	ctx, span := tracer.Start(ctx, "fallback")
	defer span.End()
	defer metrics.ObserveStage("fallback", time.Now())

	courses, err := s.repo.ListCourses(ctx, limit)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("list fallback courses: %w", err)
	}
	s.shuffle(len(courses), func(i, j int) {
		courses[i], courses[j] = courses[j], courses[i]
	})
	span.SetAttributes(attribute.Int("courses", len(courses)))
	return courses, nil
}
