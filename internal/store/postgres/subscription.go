package postgres

import (
	"context"
	"database/sql"

	"billingledger/internal/domain"
)

// SubscriptionRepo implements store.SubscriptionStore.
type SubscriptionRepo struct{}

func (SubscriptionRepo) GetActive(ctx context.Context, tx *sql.Tx) ([]domain.Subscription, error) {
	const q = `
SELECT id, tenant_id, status, plan_name, monthly_credits, start_date, end_date
FROM subscriptions
WHERE status = $1
ORDER BY tenant_id
`
	rows, err := tx.QueryContext(ctx, q, domain.SubscriptionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		var endDate sql.NullTime
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Status, &s.PlanName, &s.MonthlyCredits, &s.StartDate, &endDate); err != nil {
			return nil, err
		}
		if endDate.Valid {
			s.EndDate = &endDate.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
