// Package plan resolves a user's subscription tier from their payment
// history and enforces the free-tier daily submission quota.
package plan

import (
	"context"
	"time"

	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
	"github.com/adivardh/studyreel/pkg/models"
)

// transactionLookback bounds the payment history scan. No plan window
// exceeds a year, so older transactions cannot be active.
const transactionLookback = 365 * 24 * time.Hour

// Repository defines the persistence operations plan resolution needs
type Repository interface {
	GetConfirmedTransactionsSince(ctx context.Context, userID string, cutoff time.Time) ([]*models.Transaction, error)
	CountUserVideosCreatedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// PlanCache is an optional cache for resolved plans. The short TTL bounds
// staleness after a payment confirmation.
type PlanCache interface {
	GetPlan(ctx context.Context, userID string) (models.PlanType, error)
	SetPlan(ctx context.Context, userID string, plan models.PlanType, ttl time.Duration) error
	InvalidatePlan(ctx context.Context, userID string) error
}

// Service resolves plans and enforces quotas
type Service struct {
	repo           Repository
	cache          PlanCache
	freeDailyLimit int
	cacheTTL       time.Duration
	logger         *logging.Logger
	now            func() time.Time
}

// NewService creates a new plan service. cache may be nil.
func NewService(repo Repository, cache PlanCache, freeDailyLimit int, cacheTTL time.Duration, logger *logging.Logger) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		freeDailyLimit: freeDailyLimit,
		cacheTTL:       cacheTTL,
		logger:         logger,
		now:            time.Now,
	}
}

// CurrentPlan returns the user's plan at this moment. The plan is derived
// from confirmed transactions whose validity window covers now; with no
// active transaction the user is on the free plan.
func (s *Service) CurrentPlan(ctx context.Context, userID string) (models.PlanType, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPlan(ctx, userID)
		if err != nil {
			s.logger.WithUserID(userID).Warnf("plan cache read failed: %v", err)
		}
		if plan, ok := knownPlan(cached); ok {
			return plan, nil
		}
	}

	now := s.now()
	transactions, err := s.repo.GetConfirmedTransactionsSince(ctx, userID, now.Add(-transactionLookback))
	if err != nil {
		return "", err
	}

	plan := models.PlanFree
	for _, tx := range transactions {
		if tx.ActiveAt(now) {
			plan = tx.PlanType
			break
		}
	}

	if s.cache != nil {
		if err := s.cache.SetPlan(ctx, userID, plan, s.cacheTTL); err != nil {
			s.logger.WithUserID(userID).Warnf("plan cache write failed: %v", err)
		}
	}

	return plan, nil
}

// Invalidate drops the cached plan for a user, forcing the next resolution
// to hit the database. Called after a payment confirmation.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePlan(ctx, userID); err != nil {
		s.logger.WithUserID(userID).Warnf("plan cache invalidation failed: %v", err)
	}
}

// CheckQuota decides whether the user may submit another video right now.
// Paid plans are unlimited. Free users are limited per UTC calendar day,
// counted from their library rows regardless of processing outcome.
func (s *Service) CheckQuota(ctx context.Context, userID string) (*models.QuotaDecision, error) {
	plan, err := s.CurrentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	if plan != models.PlanFree {
		return &models.QuotaDecision{CanAdd: true, CurrentPlan: plan}, nil
	}

	dayStart, dayEnd := utcDayBounds(s.now())
	used, err := s.repo.CountUserVideosCreatedBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	decision := &models.QuotaDecision{
		CanAdd:          used < s.freeDailyLimit,
		CurrentPlan:     plan,
		VideosUsedToday: &used,
		DailyLimit:      &s.freeDailyLimit,
	}
	if !decision.CanAdd {
		decision.Reason = models.QuotaReasonDailyLimit
		metrics.QuotaRejectionsTotal.Inc()
	}
	return decision, nil
}

// utcDayBounds returns the half-open [midnight, next midnight) UTC window
// containing t.
func utcDayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func knownPlan(raw models.PlanType) (models.PlanType, bool) {
	switch raw {
	case models.PlanFree, models.PlanMonthly, models.PlanYearly:
		return raw, true
	}
	return "", false
}
