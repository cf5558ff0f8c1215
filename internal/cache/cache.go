package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adivardh/studyreel/pkg/models"
)

// Cache provides caching functionality using Redis. It only ever holds copies
// of persisted rows: the database stays the source of truth, every entry
// carries a TTL, and writers invalidate or overwrite on upsert.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Video metadata operations

// SetVideo caches video metadata
func (c *Cache) SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	key := fmt.Sprintf("video:%s", video.YoutubeID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetVideo retrieves video metadata from cache. A miss returns (nil, nil).
func (c *Cache) GetVideo(ctx context.Context, youtubeID string) (*models.Video, error) {
	key := fmt.Sprintf("video:%s", youtubeID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get video from cache: %w", err)
	}

	var video models.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}

	return &video, nil
}

// DeleteVideo removes video metadata from cache
func (c *Cache) DeleteVideo(ctx context.Context, youtubeID string) error {
	key := fmt.Sprintf("video:%s", youtubeID)
	return c.client.Del(ctx, key).Err()
}

// Plan operations

// SetPlan caches the resolved plan for a user. The short TTL keeps plan
// resolution from rescanning a year of transactions on every request.
func (c *Cache) SetPlan(ctx context.Context, userID string, plan models.PlanType, ttl time.Duration) error {
	key := fmt.Sprintf("plan:%s", userID)
	return c.client.Set(ctx, key, string(plan), ttl).Err()
}

// GetPlan retrieves a cached plan. A miss returns ("", nil).
func (c *Cache) GetPlan(ctx context.Context, userID string) (models.PlanType, error) {
	key := fmt.Sprintf("plan:%s", userID)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get plan from cache: %w", err)
	}

	return models.PlanType(val), nil
}

// InvalidatePlan drops the cached plan for a user. Called when a transaction
// confirmation is observed so an upgrade takes effect immediately.
func (c *Cache) InvalidatePlan(ctx context.Context, userID string) error {
	key := fmt.Sprintf("plan:%s", userID)
	return c.client.Del(ctx, key).Err()
}
