package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adivardh/studyreel/pkg/models"
)

// CreateUsageEvent appends one usage event. Rows are append-only and never
// updated afterwards.
func (r *Repository) CreateUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `
		INSERT INTO token_usage (id, user_video_id, user_id, model, provider, operation,
		                         input_tokens, output_tokens, total_tokens, total_cost, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.ID, event.UserVideoID, event.UserID, event.Model, event.Provider,
		event.Operation, event.InputTokens, event.OutputTokens, event.TotalTokens,
		event.TotalCost, event.DurationMS,
	).Scan(&event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create usage event: %w", err)
	}

	return nil
}
