package service

import (
	"context"
	"fmt"
	"time"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/metrics"
)

// CategoryReader lists the catalog categories.
type CategoryReader interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// CategoryCache holds a copy of the category list.
type CategoryCache interface {
	GetCategories(ctx context.Context) ([]domain.Category, bool, error)
	SetCategories(ctx context.Context, cats []domain.Category) error
}

// CategoryService reads categories through an optional cache. Cache errors are
// logged and never fail the read.
type CategoryService struct {
	repo  CategoryReader
	cache CategoryCache
	log   *logger.Logger
}

func NewCategoryService(repo CategoryReader, cache CategoryCache, log *logger.Logger) *CategoryService {
	return &CategoryService{repo: repo, cache: cache, log: log.With("service", "CategoryService")}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "load_categories")
	defer span.End()
	defer metrics.ObserveStage("load_categories", time.Now())

	if s.cache != nil {
		cached, found, err := s.cache.GetCategories(ctx)
		if err != nil {
			s.log.Warn("category cache get failed", "error", err)
		}
		if found {
			return cached, nil
		}
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("load categories: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, cats); err != nil {
			s.log.Warn("category cache set failed", "error", err)
		}
	}
	return cats, nil
}
