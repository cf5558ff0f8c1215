package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/adivardh/studyreel/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_VideoOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	video := &models.Video{
		ID:           "11111111-1111-1111-1111-111111111111",
		YoutubeID:    "dQw4w9WgXcQ",
		Title:        "Test video",
		ChannelTitle: "Test Channel",
		ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
	}

	// Miss before set
	got, err := cache.GetVideo(ctx, video.YoutubeID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss before set")
	}

	// Set and get
	if err := cache.SetVideo(ctx, video, 10*time.Minute); err != nil {
		t.Fatalf("SetVideo failed: %v", err)
	}

	got, err = cache.GetVideo(ctx, video.YoutubeID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got == nil || got.Title != video.Title || got.ChannelTitle != video.ChannelTitle {
		t.Errorf("Cached video mismatch: %+v", got)
	}

	// Delete
	if err := cache.DeleteVideo(ctx, video.YoutubeID); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}

	got, err = cache.GetVideo(ctx, video.YoutubeID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss after delete")
	}
}

func TestCache_PlanOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	// Miss returns empty plan
	plan, err := cache.GetPlan(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan != "" {
		t.Errorf("Expected empty plan on miss, got %q", plan)
	}

	if err := cache.SetPlan(ctx, "user-1", models.PlanMonthly, time.Minute); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}

	plan, err = cache.GetPlan(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan != models.PlanMonthly {
		t.Errorf("Expected monthly plan, got %q", plan)
	}

	// TTL expiry
	mr.FastForward(2 * time.Minute)

	plan, err = cache.GetPlan(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan != "" {
		t.Errorf("Expected plan to expire, got %q", plan)
	}

	// Invalidation
	if err := cache.SetPlan(ctx, "user-1", models.PlanYearly, time.Minute); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}
	if err := cache.InvalidatePlan(ctx, "user-1"); err != nil {
		t.Fatalf("InvalidatePlan failed: %v", err)
	}

	plan, err = cache.GetPlan(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan != "" {
		t.Errorf("Expected plan to be invalidated, got %q", plan)
	}
}
