// Package pipeline orchestrates a video submission end to end: identifier
// extraction, quota gate, metadata and transcript resolution, and content
// generation. Provider and model failures degrade the result; only storage
// faults propagate as errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
	"github.com/adivardh/studyreel/internal/videoid"
	"github.com/adivardh/studyreel/pkg/models"
)

// ErrInvalidVideoRef re-exports the extractor's rejection for callers that
// only import this package.
var ErrInvalidVideoRef = videoid.ErrInvalidVideoRef

// QuotaError carries the structured quota rejection to the HTTP layer.
type QuotaError struct {
	Decision *models.QuotaDecision
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Decision.Reason)
}

// SubmitResult is everything a submission produced
type SubmitResult struct {
	Video                 *models.Video              `json:"video"`
	UserVideo             *models.UserVideo          `json:"user_video"`
	Segments              []models.TranscriptSegment `json:"segments"`
	TranscriptUnavailable bool                       `json:"transcript_unavailable"`
	Quota                 *models.QuotaDecision      `json:"quota,omitempty"`
}

// Repository defines the persistence operations the orchestrator needs
type Repository interface {
	GetUserVideo(ctx context.Context, userID, youtubeID string) (*models.UserVideo, error)
	GetOrCreateUserVideo(ctx context.Context, userID, youtubeID string) (*models.UserVideo, error)
}

// Ingestor resolves metadata and transcripts
type Ingestor interface {
	ResolveMetadata(ctx context.Context, youtubeID string) (*models.Video, error)
	ResolveTranscript(ctx context.Context, video *models.Video) (models.TranscriptResult, error)
}

// QuotaGate decides whether a submission may proceed
type QuotaGate interface {
	CheckQuota(ctx context.Context, userID string) (*models.QuotaDecision, error)
}

// Generator memoizes generated study content
type Generator interface {
	EnsureSummary(ctx context.Context, userID, youtubeID, language, content string) (string, error)
	EnsureQuestions(ctx context.Context, userID, youtubeID, language, content string) ([]string, error)
}

// Service runs the submission pipeline
type Service struct {
	repo   Repository
	ingest Ingestor
	quota  QuotaGate
	gen    Generator
	logger *logging.Logger
}

// NewService creates a new pipeline service
func NewService(repo Repository, ingest Ingestor, quota QuotaGate, gen Generator, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		ingest: ingest,
		quota:  quota,
		gen:    gen,
		logger: logger,
	}
}

// Submit runs the full pipeline for one video reference. Re-submitting a
// video already in the user's library skips the quota gate, so retries never
// burn quota.
func (s *Service) Submit(ctx context.Context, userID, rawRef, language string) (*SubmitResult, error) {
	youtubeID, err := videoid.Extract(rawRef)
	if err != nil {
		metrics.VideoSubmissionsTotal.WithLabelValues("invalid_ref").Inc()
		return nil, err
	}

	log := s.logger.WithUserID(userID).WithVideoID(youtubeID)

	existing, err := s.repo.GetUserVideo(ctx, userID, youtubeID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		decision, err := s.quota.CheckQuota(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !decision.CanAdd {
			metrics.VideoSubmissionsTotal.WithLabelValues("quota_rejected").Inc()
			log.Info("submission rejected by quota gate")
			return nil, &QuotaError{Decision: decision}
		}
	}

	var video *models.Video
	err = s.stage("metadata", func() error {
		video, err = s.ingest.ResolveMetadata(ctx, youtubeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	userVideo, err := s.repo.GetOrCreateUserVideo(ctx, userID, youtubeID)
	if err != nil {
		return nil, err
	}

	var transcript models.TranscriptResult
	err = s.stage("transcript", func() error {
		transcript, err = s.ingest.ResolveTranscript(ctx, video)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !transcript.Unavailable {
		s.generateContent(ctx, userID, language, video, transcript, userVideo)
	} else {
		log.Info("transcript unavailable, skipping generation")
	}

	metrics.VideoSubmissionsTotal.WithLabelValues("accepted").Inc()
	return &SubmitResult{
		Video:                 video,
		UserVideo:             userVideo,
		Segments:              transcript.Segments,
		TranscriptUnavailable: transcript.Unavailable,
	}, nil
}

// generateContent fills in the summary and questions, degrading silently on
// model failure so the submission still returns metadata and transcript.
// Questions are derived from the summary, so they are only attempted once a
// summary exists.
func (s *Service) generateContent(ctx context.Context, userID, language string, video *models.Video, transcript models.TranscriptResult, userVideo *models.UserVideo) {
	log := s.logger.WithUserID(userID).WithVideoID(video.YoutubeID)

	summaryInput := buildSummaryInput(video, transcript)

	var summary string
	err := s.stage("summary", func() error {
		var genErr error
		summary, genErr = s.gen.EnsureSummary(ctx, userID, video.YoutubeID, language, summaryInput)
		return genErr
	})
	if err != nil {
		log.Warnf("summary generation failed, continuing without it: %v", err)
		return
	}
	userVideo.Summary = &summary

	var questions []string
	err = s.stage("questions", func() error {
		var genErr error
		questions, genErr = s.gen.EnsureQuestions(ctx, userID, video.YoutubeID, language, summary)
		return genErr
	})
	if err != nil {
		log.Warnf("question generation failed, continuing without it: %v", err)
		return
	}
	userVideo.QuickStartQuestions = questions
}

// buildSummaryInput assembles the model input from the video context and the
// full transcript text.
func buildSummaryInput(video *models.Video, transcript models.TranscriptResult) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(video.Title)
	if video.Description != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(video.Description)
	}
	b.WriteString("\nTranscript: ")
	b.WriteString(transcript.PlainText())
	return b.String()
}

func (s *Service) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}
