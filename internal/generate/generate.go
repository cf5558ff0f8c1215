// Package generate memoizes generative content per user-video pair. Each
// artifact is produced at most once; concurrent requests for the same pair
// serialize on a per-pair advisory lock so only one of them pays for a model
// call.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
	"github.com/adivardh/studyreel/pkg/models"
)

// Repository defines the persistence operations memoization needs
type Repository interface {
	WithUserVideoLock(ctx context.Context, userID, youtubeID string, fn func(ctx context.Context, tx database.Querier, uv *models.UserVideo) error) error
	SetUserVideoSummary(ctx context.Context, q database.Querier, id, summary string) error
	SetUserVideoQuestions(ctx context.Context, q database.Querier, id string, questions models.QuestionList) error
}

// Telemetry records token usage for each model call
type Telemetry interface {
	Record(ctx context.Context, userVideoID, userID, model, operation string, stats models.UsageStats, duration time.Duration)
}

// Service memoizes generated artifacts
type Service struct {
	repo      Repository
	model     Model
	telemetry Telemetry
	logger    *logging.Logger
}

// NewService creates a new generation service
func NewService(repo Repository, model Model, telemetry Telemetry, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		model:     model,
		telemetry: telemetry,
		logger:    logger,
	}
}

// EnsureSummary returns the stored summary for the pair, generating and
// persisting it first if absent. The advisory lock is held across the model
// call so a concurrent request for the same pair waits and then reads the
// stored value instead of generating again.
func (s *Service) EnsureSummary(ctx context.Context, userID, youtubeID, language, transcript string) (string, error) {
	var summary string
	err := s.repo.WithUserVideoLock(ctx, userID, youtubeID, func(ctx context.Context, tx database.Querier, uv *models.UserVideo) error {
		if uv.HasSummary() {
			summary = *uv.Summary
			return nil
		}
		if transcript == "" {
			return fmt.Errorf("cannot generate summary without a transcript")
		}

		generated, err := s.generateSummary(ctx, uv.ID, userID, language, transcript)
		if err != nil {
			return err
		}
		if err := s.repo.SetUserVideoSummary(ctx, tx, uv.ID, generated); err != nil {
			return err
		}
		summary = generated
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// EnsureQuestions is the quick-start questions counterpart of EnsureSummary.
func (s *Service) EnsureQuestions(ctx context.Context, userID, youtubeID, language, transcript string) ([]string, error) {
	var questions []string
	err := s.repo.WithUserVideoLock(ctx, userID, youtubeID, func(ctx context.Context, tx database.Querier, uv *models.UserVideo) error {
		if uv.HasQuestions() {
			questions = uv.QuickStartQuestions
			return nil
		}
		if transcript == "" {
			return fmt.Errorf("cannot generate questions without a transcript")
		}

		generated, err := s.generateQuestions(ctx, uv.ID, userID, language, transcript)
		if err != nil {
			return err
		}
		if err := s.repo.SetUserVideoQuestions(ctx, tx, uv.ID, generated); err != nil {
			return err
		}
		questions = generated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *Service) generateSummary(ctx context.Context, userVideoID, userID, language, transcript string) (string, error) {
	start := time.Now()
	summary, stats, err := s.model.GenerateSummary(ctx, language, transcript)
	s.observe(ctx, userVideoID, userID, models.OperationSummary, stats, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return summary, nil
}

func (s *Service) generateQuestions(ctx context.Context, userVideoID, userID, language, transcript string) ([]string, error) {
	start := time.Now()
	questions, stats, err := s.model.GenerateQuestions(ctx, language, transcript)
	s.observe(ctx, userVideoID, userID, models.OperationQuestions, stats, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	return questions, nil
}

// observe records metrics, logs, and telemetry for one model call. Telemetry
// is written on success only; failed calls carry no billable usage.
func (s *Service) observe(ctx context.Context, userVideoID, userID, operation string, stats models.UsageStats, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationCallsTotal.WithLabelValues(operation, status).Inc()
	s.logger.LogGenerationCall(operation, s.model.Name(), stats.InputTokens, stats.OutputTokens, duration, err)

	if err == nil && s.telemetry != nil {
		s.telemetry.Record(ctx, userVideoID, userID, s.model.Name(), operation, stats, duration)
	}
}
