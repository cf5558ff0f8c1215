package models

import (
	"time"
)

// PlanType is the subscription tier a transaction pays for, or the resolved
// tier of a user.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
)

// Duration returns the validity window length a confirmed transaction of this
// plan type grants. The free plan grants no window.
func (p PlanType) Duration() time.Duration {
	switch p {
	case PlanMonthly:
		return 30 * 24 * time.Hour
	case PlanYearly:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// ValidUntil computes the expiry of a transaction confirmed at the given time.
// The window is a pure function of plan type and confirmation time.
func (p PlanType) ValidUntil(confirmedAt time.Time) time.Time {
	return confirmedAt.Add(p.Duration())
}

// Transaction statuses. Transactions are owned by the payment collaborator
// and are read-only from this service.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusConfirmed = "confirmed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusExpired   = "expired"
)

// Transaction is a payment record granting a plan for a validity window.
type Transaction struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	PlanType    PlanType   `json:"plan_type" db:"plan_type"`
	Status      string     `json:"status" db:"status"`
	Amount      float64    `json:"amount" db:"amount"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ActiveAt reports whether this transaction grants its plan at the given
// moment. Only confirmed transactions with a confirmation timestamp count.
// An explicit expiry on the row takes precedence over the derived window.
func (t *Transaction) ActiveAt(now time.Time) bool {
	if t.Status != TransactionStatusConfirmed || t.ConfirmedAt == nil {
		return false
	}
	expiry := t.PlanType.ValidUntil(*t.ConfirmedAt)
	if t.ExpiresAt != nil {
		expiry = *t.ExpiresAt
	}
	return now.Before(expiry)
}
