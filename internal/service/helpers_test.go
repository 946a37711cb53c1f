package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/llm"
	"github.com/actuallystonmai/course-recommender/internal/logger"
)

type completionFunc func(prompt string) ([]byte, error)

// stubCompleter answers by schema name and records every prompt.
type stubCompleter struct {
	mu      sync.Mutex
	filter  completionFunc
	ranking completionFunc
	prompts map[string][]string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, prompt string, schema *llm.Schema) ([]byte, error) {
	s.mu.Lock()
	if s.prompts == nil {
		s.prompts = map[string][]string{}
	}
	s.prompts[schema.Name] = append(s.prompts[schema.Name], prompt)
	s.mu.Unlock()

	switch schema.Name {
	case llm.FilterSchema.Name:
		if s.filter == nil {
			return nil, errors.New("unexpected filter call")
		}
		return s.filter(prompt)
	case llm.RankingSchema.Name:
		if s.ranking == nil {
			return nil, errors.New("unexpected ranking call")
		}
		return s.ranking(prompt)
	}
	return nil, fmt.Errorf("unknown schema %q", schema.Name)
}

func (s *stubCompleter) calls(schema string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts[schema]...)
}

func fixed(body string) completionFunc {
	return func(string) ([]byte, error) { return []byte(body), nil }
}

// stubRepo serves a fixed catalog and records the queries it saw.
type stubRepo struct {
	mu         sync.Mutex
	categories []domain.Category
	filtered   []domain.Course
	all        []domain.Course
	err        error

	filterCalls   []domain.CourseFilter
	listLimits    []int
	categoryCalls int
}

func (r *stubRepo) ListCategories(context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categoryCalls++
	if r.err != nil {
		return nil, r.err
	}
	return r.categories, nil
}

func (r *stubRepo) FilterCourses(_ context.Context, f domain.CourseFilter) ([]domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filterCalls = append(r.filterCalls, f)
	if r.err != nil {
		return nil, r.err
	}
	out := append([]domain.Course(nil), r.filtered...)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *stubRepo) ListCourses(_ context.Context, limit int) ([]domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listLimits = append(r.listLimits, limit)
	if r.err != nil {
		return nil, r.err
	}
	out := append([]domain.Course(nil), r.all...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func course(name string, categories ...string) domain.Course {
	c := domain.Course{
		ID:     uuid.New(),
		Name:   name,
		Format: domain.FormatOnline,
		Status: domain.StatusActive,
	}
	for _, cat := range categories {
		c.Categories = append(c.Categories, domain.Category{ID: uuid.New(), Name: cat})
	}
	return c
}

func categories(names ...string) []domain.Category {
	out := make([]domain.Category, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Category{ID: uuid.New(), Name: n})
	}
	return out
}

type scored struct {
	id         uuid.UUID
	confidence float64
}

func rankingBody(items ...scored) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf(`{"course_id":%q,"confidence":%g}`, it.id.String(), it.confidence))
	}
	return `{"courses":[` + strings.Join(parts, ",") + `]}`
}

func courseNames(courses []domain.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.Name)
	}
	return out
}

func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func newTestService(repo *stubRepo, completer *stubCompleter, cache CategoryCache) *Service {
	log := logger.NewNop()
	return NewService(
		NewCategoryService(repo, cache, log),
		NewFilterInferenceService(completer, log),
		NewCourseRetrievalService(repo, reverseShuffle, log),
		NewCourseRankingService(completer, log),
		2,
		log,
	)
}
