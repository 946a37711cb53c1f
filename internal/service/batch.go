package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/course-recommender/internal/domain"
)

// GetBatchRecommendations runs every request through Recommend with bounded
// concurrency. A failing item is reported in its slot and never stops the rest.
func (s *Service) GetBatchRecommendations(ctx context.Context, reqs []domain.RecommendationRequest) *domain.BatchResponse {
	start := time.Now()

	results := make([]domain.BatchItemResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = s.processBatchItem(gctx, i, req)
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.BatchSummary{}
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			summary.SuccessCount++
		} else {
			summary.FailedCount++
		}
	}
	summary.ProcessingTimeMs = time.Since(start).Milliseconds()

	return &domain.BatchResponse{Results: results, Summary: summary}
}

func (s *Service) processBatchItem(ctx context.Context, idx int, req domain.RecommendationRequest) domain.BatchItemResult {
	result, err := s.Recommend(ctx, req)
	if err != nil {
		s.log.Warn("batch item failed", "index", idx, "error", err)
		code, msg := CategorizeError(err)
		return domain.BatchItemResult{
			Index:   idx,
			Query:   req.Query,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchItemResult{
		Index:  idx,
		Query:  req.Query,
		Status: domain.StatusSuccess,
		Result: result,
	}
}
