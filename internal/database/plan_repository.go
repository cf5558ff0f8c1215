package database

import (
	"context"
	"fmt"
	"time"

	"github.com/adivardh/studyreel/pkg/models"
)

// Transactions are owned by the payment collaborator; this service only
// reads them to resolve the active plan.

// GetConfirmedTransactionsSince retrieves a user's confirmed transactions
// with a confirmation time at or after the cutoff, most recent first. The
// cutoff bounds the scan to the maximum possible validity window.
func (r *Repository) GetConfirmedTransactionsSince(ctx context.Context, userID string, cutoff time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, plan_type, status, amount, confirmed_at, expires_at, created_at
		FROM transactions
		WHERE user_id = $1
		  AND status = $2
		  AND confirmed_at IS NOT NULL
		  AND confirmed_at >= $3
		ORDER BY confirmed_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, models.TransactionStatusConfirmed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.PlanType, &tx.Status, &tx.Amount,
			&tx.ConfirmedAt, &tx.ExpiresAt, &tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}
