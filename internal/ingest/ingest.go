// Package ingest resolves shared video metadata and transcripts, caching
// both in the database so the expensive provider calls happen once per video
// across all users.
package ingest

import (
	"context"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
	"github.com/adivardh/studyreel/internal/provider"
	"github.com/adivardh/studyreel/pkg/models"
)

// Repository defines the persistence operations ingestion needs
type Repository interface {
	GetVideoByYoutubeID(ctx context.Context, youtubeID string) (*models.Video, error)
	UpsertVideo(ctx context.Context, video *models.Video) error
	InsertVideoIfAbsent(ctx context.Context, video *models.Video) error
	GetTranscriptSegments(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
	ReplaceTranscriptSegments(ctx context.Context, videoID string, segments []models.TranscriptSegment) error
}

// Provider defines the external data provider operations ingestion needs
type Provider interface {
	GetVideo(ctx context.Context, videoID string) (*provider.VideoMetadata, error)
	GetTranscript(ctx context.Context, videoID string) (*provider.TranscriptResponse, error)
}

// MetadataCache is an optional read-through cache for video metadata. It is
// advisory only; the database remains the source of truth.
type MetadataCache interface {
	GetVideo(ctx context.Context, youtubeID string) (*models.Video, error)
	SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error
}

// Service resolves metadata and transcripts
type Service struct {
	repo        Repository
	provider    Provider
	cache       MetadataCache
	metadataTTL time.Duration
	logger      *logging.Logger
}

// NewService creates a new ingestion service. cache may be nil.
func NewService(repo Repository, prov Provider, cache MetadataCache, metadataTTL time.Duration, logger *logging.Logger) *Service {
	return &Service{
		repo:        repo,
		provider:    prov,
		cache:       cache,
		metadataTTL: metadataTTL,
		logger:      logger,
	}
}

// ResolveMetadata returns metadata for a video id, fetching and persisting it
// on first access. Provider failures are recovered with a degraded
// placeholder so the pipeline keeps advancing; only storage failures are
// returned as errors.
func (s *Service) ResolveMetadata(ctx context.Context, youtubeID string) (*models.Video, error) {
	if s.cache != nil {
		cached, err := s.cache.GetVideo(ctx, youtubeID)
		if err != nil {
			s.logger.WithVideoID(youtubeID).Warnf("metadata cache read failed: %v", err)
		}
		if cached != nil && !cached.IsPlaceholder() {
			return cached, nil
		}
	}

	existing, err := s.repo.GetVideoByYoutubeID(ctx, youtubeID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	// A healthy row needs no provider call. Placeholder rows are re-fetched
	// to self-heal once the provider is reachable again.
	if existing != nil && !existing.IsPlaceholder() {
		s.cacheVideo(ctx, existing)
		return existing, nil
	}

	md, provErr := s.provider.GetVideo(ctx, youtubeID)
	if provErr != nil {
		metrics.ProviderFailuresTotal.WithLabelValues("/youtube/video").Inc()
		s.logger.WithVideoID(youtubeID).Warnf("metadata fetch failed, returning placeholder: %v", provErr)

		if existing != nil {
			return existing, nil
		}

		placeholder := models.PlaceholderVideo(youtubeID)
		// Insert-if-absent so a concurrent successful fetch is never
		// overwritten with placeholder data.
		if err := s.repo.InsertVideoIfAbsent(ctx, placeholder); err != nil {
			return nil, err
		}
		return placeholder, nil
	}

	video := &models.Video{
		YoutubeID:    youtubeID,
		Title:        md.Title,
		Description:  md.Description,
		ChannelTitle: md.ChannelTitle,
		PublishedAt:  parsePublishedAt(md.PublishedAt),
		ThumbnailURL: md.Thumbnails.BestURL(),
	}
	if video.ChannelTitle == "" {
		video.ChannelTitle = models.UnknownChannel
	}
	if existing != nil {
		video.ID = existing.ID
	}

	if err := s.repo.UpsertVideo(ctx, video); err != nil {
		return nil, err
	}

	s.cacheVideo(ctx, video)
	return video, nil
}

func (s *Service) cacheVideo(ctx context.Context, video *models.Video) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetVideo(ctx, video, s.metadataTTL); err != nil {
		s.logger.WithVideoID(video.YoutubeID).Warnf("metadata cache write failed: %v", err)
	}
}

// parsePublishedAt tolerates a missing or malformed timestamp; it is
// validated here at the boundary so bad provider data never flows downstream.
func parsePublishedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// ResolveTranscript returns the ordered transcript segments for a video,
// ingesting them from the provider on first access. Provider failures yield
// an empty set with the Unavailable flag instead of an error.
func (s *Service) ResolveTranscript(ctx context.Context, video *models.Video) (models.TranscriptResult, error) {
	existing, err := s.repo.GetTranscriptSegments(ctx, video.ID)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	if len(existing) > 0 {
		return models.TranscriptResult{Segments: existing}, nil
	}

	resp, provErr := s.provider.GetTranscript(ctx, video.YoutubeID)
	if provErr != nil {
		metrics.ProviderFailuresTotal.WithLabelValues("/youtube/transcript").Inc()
		s.logger.WithVideoID(video.YoutubeID).Warnf("transcript fetch failed: %v", provErr)
		return models.TranscriptResult{Unavailable: true}, nil
	}
	if len(resp.Content) == 0 {
		return models.TranscriptResult{Unavailable: true}, nil
	}

	segments, ok := buildSegments(video.ID, resp.Content)
	if !ok {
		// Malformed timestamps are a boundary validation failure, treated
		// the same as an unavailable transcript.
		metrics.ProviderFailuresTotal.WithLabelValues("/youtube/transcript").Inc()
		s.logger.WithVideoID(video.YoutubeID).Warn("transcript payload has invalid timestamps")
		return models.TranscriptResult{Unavailable: true}, nil
	}

	if err := s.repo.ReplaceTranscriptSegments(ctx, video.ID, segments); err != nil {
		return models.TranscriptResult{}, err
	}

	return models.TranscriptResult{Segments: segments}, nil
}

// buildSegments converts provider chunks into ordered segments with the
// chapter-start flag applied.
func buildSegments(videoID string, chunks []provider.TranscriptChunk) ([]models.TranscriptSegment, bool) {
	segments := make([]models.TranscriptSegment, 0, len(chunks))
	for _, chunk := range chunks {
		start, err := chunk.StartSeconds()
		if err != nil {
			return nil, false
		}
		end, err := chunk.EndSeconds()
		if err != nil {
			return nil, false
		}
		segments = append(segments, models.TranscriptSegment{
			VideoID:      videoID,
			StartSeconds: start,
			EndSeconds:   end,
			Text:         chunk.Text,
		})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSeconds < segments[j].StartSeconds
	})

	for i := range segments {
		segments[i].Position = i
		segments[i].IsChapterStart = isChapterStart(i, segments[i].Text)
	}

	return segments, true
}

// placeholderCues are auto-caption filler entries that never mark a chapter.
var placeholderCues = map[string]struct{}{
	"[Music]":    {},
	"[Applause]": {},
	"[Laughter]": {},
	"[Silence]":  {},
}

// isChapterStart flags likely chapter boundaries: short text at the start of
// the video or at every tenth segment.
func isChapterStart(index int, text string) bool {
	if utf8.RuneCountInString(text) >= 30 {
		return false
	}
	if _, ok := placeholderCues[text]; ok {
		return false
	}
	return index == 0 || index%10 == 0
}
