// Package usage records generative token consumption as append-only
// telemetry. Recording is strictly best-effort and never fails the request
// that produced the tokens.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
	"github.com/adivardh/studyreel/pkg/models"
)

// Repository defines the persistence operation telemetry needs
type Repository interface {
	CreateUsageEvent(ctx context.Context, event *models.UsageEvent) error
}

// pricing holds per-million-token dollar rates for a model
type pricing struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// modelPricing maps model names to their published rates. Unknown models
// record a zero cost; token counts are still kept.
var modelPricing = map[string]pricing{
	"gpt-4o":        {inputPerMillion: 2.50, outputPerMillion: 10.00},
	"gpt-4o-mini":   {inputPerMillion: 0.15, outputPerMillion: 0.60},
	"gpt-4-turbo":   {inputPerMillion: 10.00, outputPerMillion: 30.00},
	"gpt-3.5-turbo": {inputPerMillion: 0.50, outputPerMillion: 1.50},
}

// Recorder persists usage events
type Recorder struct {
	repo         Repository
	providerName string
	logger       *logging.Logger

	mu       sync.Mutex
	unpriced map[string]struct{}
}

// NewRecorder creates a new telemetry recorder
func NewRecorder(repo Repository, providerName string, logger *logging.Logger) *Recorder {
	return &Recorder{
		repo:         repo,
		providerName: providerName,
		logger:       logger,
		unpriced:     make(map[string]struct{}),
	}
}

// Record persists one usage event. It has no error return: telemetry
// failures are logged and dropped so they can never fail the generation
// that produced them.
func (r *Recorder) Record(ctx context.Context, userVideoID, userID, model, operation string, stats models.UsageStats, duration time.Duration) {
	cost, priced := CostFor(model, stats)
	if !priced {
		r.warnUnpricedOnce(model)
	}

	// Counters run regardless of the database write outcome.
	metrics.GenerationTokensTotal.WithLabelValues(operation, "input").Add(float64(stats.InputTokens))
	metrics.GenerationTokensTotal.WithLabelValues(operation, "output").Add(float64(stats.OutputTokens))
	metrics.GenerationCostTotal.Add(cost)

	event := &models.UsageEvent{
		Model:        model,
		Provider:     r.providerName,
		Operation:    operation,
		InputTokens:  stats.InputTokens,
		OutputTokens: stats.OutputTokens,
		TotalTokens:  stats.Total(),
		TotalCost:    cost,
		DurationMS:   duration.Milliseconds(),
	}
	if userVideoID != "" {
		event.UserVideoID = &userVideoID
	}
	if userID != "" {
		event.UserID = &userID
	}

	if err := r.repo.CreateUsageEvent(ctx, event); err != nil {
		metrics.TelemetryWriteFailuresTotal.Inc()
		r.logger.WithUserID(userID).WithField("operation", operation).
			ErrorWithErr("failed to record usage event", err)
	}
}

// warnUnpricedOnce logs the first sighting of a model missing from the
// pricing table.
func (r *Recorder) warnUnpricedOnce(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.unpriced[model]; seen {
		return
	}
	r.unpriced[model] = struct{}{}
	r.logger.WithField("model", model).Warn("no pricing for model, recording zero cost")
}

// CostFor computes the dollar cost of a call from the model's per-token
// rates. The second return reports whether the model has a known price;
// unknown models cost zero.
func CostFor(model string, stats models.UsageStats) (float64, bool) {
	p, ok := modelPricing[model]
	if !ok {
		return 0, false
	}
	return float64(stats.InputTokens)/1e6*p.inputPerMillion +
		float64(stats.OutputTokens)/1e6*p.outputPerMillion, true
}
