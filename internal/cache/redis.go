package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = 5 * time.Minute
	categoriesKey = "catalog:categories"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get categories from cache; found is false on a miss
func (c *Cache) GetCategories(ctx context.Context) ([]domain.Category, bool, error) {
	val, err := c.client.Get(ctx, categoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get categories from cache: %w", err)
	}

	var cats []domain.Category
	if err := json.Unmarshal(val, &cats); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal categories %s: %w", categoriesKey, err)
	}
	return cats, true, nil
}

// Store categories in cache
func (c *Cache) SetCategories(ctx context.Context, cats []domain.Category) error {
	val, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	if err := c.client.Set(ctx, categoriesKey, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set categories in cache: %w", err)
	}
	return nil
}

// Drop the cached category list, e.g. after a catalog reseed
func (c *Cache) InvalidateCategories(ctx context.Context) error {
	if err := c.client.Del(ctx, categoriesKey).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", categoriesKey, err)
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
