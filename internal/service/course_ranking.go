package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/llm"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

// CourseRankingService orders candidate courses by relevance to a goal.
type CourseRankingService struct {
	llm llm.StructuredCompleter
	log *logger.Logger
}

func NewCourseRankingService(c llm.StructuredCompleter, log *logger.Logger) *CourseRankingService {
	return &CourseRankingService{llm: c, log: log.With("service", "CourseRankingService")}
}

type rankingPromptData struct {
	Goal    string
	Courses string
}

func buildRankingPrompt(goal string, candidates []domain.Course) (string, error) {
	projected := make([]domain.RankingCandidate, 0, len(candidates))
	for _, c := range candidates {
		projected = append(projected, domain.NewRankingCandidate(c))
	}
	courses, err := json.MarshalIndent(projected, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ranking candidates: %w", err)
	}
	return render(rankingPrompt, rankingPromptData{Goal: goal, Courses: string(courses)})
}

// Rank returns the candidates in the order the completion service chose and
// whether that ranking is weak. Candidates it left out are dropped. When none of
// the returned ids match a candidate, the input is returned unchanged and weak.
func (s *CourseRankingService) Rank(ctx context.Context, goal string, candidates []domain.Course) ([]domain.Course, bool, error) {
	if len(candidates) == 0 {
		return []domain.Course{}, false, nil
	}

	ctx, span := tracer.Start(ctx, "rank")
	defer span.End()
	defer metrics.ObserveStage("rank", time.Now())

	prompt, err := buildRankingPrompt(goal, candidates)
	if err != nil {
		return nil, false, err
	}

	resp, err := llm.Complete[domain.RankingResponse](ctx, s.llm, prompt, llm.RankingSchema)
	if err != nil {
		recordSpanError(span, err)
		return nil, false, fmt.Errorf("rank courses: %w", err)
	}

	byID := make(map[uuid.UUID]domain.Course, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ranked := make([]domain.Course, 0, len(resp.Courses))
	for _, item := range resp.Courses {
		c, ok := byID[item.CourseID]
		if !ok {
			continue
		}
		// a repeated id keeps its first position
		delete(byID, item.CourseID)
		ranked = append(ranked, c)
	}

	if len(ranked) == 0 {
		s.log.Warn("ranking matched no candidate", "candidates", len(candidates), "returned", len(resp.Courses))
		span.SetAttributes(attribute.Bool("ranking.weak", true))
		return candidates, true, nil
	}

	weak := IsRankingWeak(resp.Courses)
	span.SetAttributes(
		attribute.Int("ranking.returned", len(resp.Courses)),
		attribute.Int("ranking.matched", len(ranked)),
		attribute.Bool("ranking.weak", weak),
	)
	return ranked, weak, nil
}

// IsRankingWeak reports whether a ranking response lacks confident matches.
// Up to RankingWeakThreshold items, one confident item is enough; above it,
// more than RankingWeakThreshold confident items are needed.
func IsRankingWeak(items []domain.RankedItem) bool {
	confident := 0
	for _, item := range items {
		if item.Confidence >= domain.MinConfidence {
			confident++
		}
	}
	if len(items) <= domain.RankingWeakThreshold {
		return confident == 0
	}
	return confident <= domain.RankingWeakThreshold
}
