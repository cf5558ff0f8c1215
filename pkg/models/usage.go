package models

import (
	"time"
)

// Telemetry operation labels, one per generative call site.
const (
	OperationSummary   = "summary"
	OperationQuestions = "quick_start_questions"
)

// UsageStats holds the token counts reported by the model provider for a
// single generative call.
type UsageStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns the combined token count.
func (u UsageStats) Total() int {
	return u.InputTokens + u.OutputTokens
}

// UsageEvent is an append-only record of one generative call. Rows are never
// mutated after creation.
type UsageEvent struct {
	ID           string    `json:"id" db:"id"`
	UserVideoID  *string   `json:"user_video_id,omitempty" db:"user_video_id"`
	UserID       *string   `json:"user_id,omitempty" db:"user_id"`
	Model        string    `json:"model" db:"model"`
	Provider     string    `json:"provider" db:"provider"`
	Operation    string    `json:"operation" db:"operation"`
	InputTokens  int       `json:"input_tokens" db:"input_tokens"`
	OutputTokens int       `json:"output_tokens" db:"output_tokens"`
	TotalTokens  int       `json:"total_tokens" db:"total_tokens"`
	TotalCost    float64   `json:"total_cost" db:"total_cost"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
