package models

// Quota rejection reasons.
const (
	QuotaReasonDailyLimit = "daily_limit_reached"
)

// QuotaDecision is the structured outcome of a quota check. It is a value,
// not an error, so callers can render an upgrade prompt from it.
type QuotaDecision struct {
	CanAdd          bool     `json:"can_add"`
	CurrentPlan     PlanType `json:"current_plan"`
	Reason          string   `json:"reason,omitempty"`
	VideosUsedToday *int     `json:"videos_used_today,omitempty"`
	DailyLimit      *int     `json:"daily_limit,omitempty"`
}
