package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adivardh/studyreel/internal/cache"
	"github.com/adivardh/studyreel/internal/config"
	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/middleware"
	"github.com/adivardh/studyreel/internal/pipeline"
	"github.com/adivardh/studyreel/pkg/models"
)

// Submitter runs the video submission pipeline
type Submitter interface {
	Submit(ctx context.Context, userID, rawRef, language string) (*pipeline.SubmitResult, error)
}

// LibraryRepo defines the read operations the handlers need
type LibraryRepo interface {
	ListUserVideos(ctx context.Context, userID string) ([]*models.UserVideo, error)
	GetUserVideo(ctx context.Context, userID, youtubeID string) (*models.UserVideo, error)
	GetVideoByYoutubeID(ctx context.Context, youtubeID string) (*models.Video, error)
	GetTranscriptSegments(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
}

// PlanService resolves the caller's plan and quota state
type PlanService interface {
	CheckQuota(ctx context.Context, userID string) (*models.QuotaDecision, error)
}

// API holds the handler dependencies
type API struct {
	db       *database.DB
	cache    *cache.Cache
	repo     LibraryRepo
	pipeline Submitter
	plans    PlanService
	logger   *logging.Logger
}

func setupRouter(api *API, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go rl.Cleanup()

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.Use(middleware.RateLimit(rl))
	{
		v1.POST("/videos", api.submitVideo)
		v1.GET("/videos", api.listVideos)
		v1.GET("/videos/:id", api.getVideo)
		v1.GET("/videos/:id/transcript", api.getTranscript)
		v1.GET("/plan", api.getPlan)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	status := gin.H{"status": "healthy"}
	if api.cache != nil {
		if err := api.cache.Ping(ctx); err != nil {
			status["cache"] = "unavailable"
		}
	}

	c.JSON(http.StatusOK, status)
}

type submitRequest struct {
	URL      string `json:"url" binding:"required"`
	Language string `json:"language"`
}

// Submit video endpoint
func (api *API) submitVideo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	result, err := api.pipeline.Submit(c.Request.Context(), userID, req.URL, req.Language)
	if err != nil {
		var quotaErr *pipeline.QuotaError
		switch {
		case errors.Is(err, pipeline.ErrInvalidVideoRef):
			c.JSON(http.StatusBadRequest, gin.H{"error": "not a valid YouTube video reference"})
		case errors.As(err, &quotaErr):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "daily video limit reached",
				"quota": quotaErr.Decision,
			})
		default:
			api.logger.WithUserID(userID).ErrorWithErr("video submission failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process video"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List videos endpoint
func (api *API) listVideos(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	videos, err := api.repo.ListUserVideos(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list videos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// Get video endpoint returns the user's entry plus the shared metadata
func (api *API) getVideo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	youtubeID := c.Param("id")

	userVideo, err := api.repo.GetUserVideo(c.Request.Context(), userID, youtubeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load video"})
		return
	}

	video, err := api.repo.GetVideoByYoutubeID(c.Request.Context(), youtubeID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load video"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"video":      video,
		"user_video": userVideo,
	})
}

// Get transcript endpoint
func (api *API) getTranscript(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	youtubeID := c.Param("id")

	if _, err := api.repo.GetUserVideo(c.Request.Context(), userID, youtubeID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}

	video, err := api.repo.GetVideoByYoutubeID(c.Request.Context(), youtubeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}

	segments, err := api.repo.GetTranscriptSegments(c.Request.Context(), video.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"segments":    segments,
		"unavailable": len(segments) == 0,
	})
}

// Get plan endpoint returns the current plan and daily usage counters
func (api *API) getPlan(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	decision, err := api.plans.CheckQuota(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve plan"})
		return
	}

	c.JSON(http.StatusOK, decision)
}
