package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo is the production Repository backing audit_events.
//
// Appends go straight to *sql.DB, outside the caller's unit-of-work
// transaction: an audit write must never roll back (or block on) the
// ledger mutation it describes.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) PostgresRepo {
	return PostgresRepo{DB: db}
}

const insertEventQuery = `
INSERT INTO audit_events (
	id, tenant_id, type, actor_user_id, actor_role, ip_address,
	ledger_id, transaction_id, invoice_id, anomaly_id, message, metadata, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

func (r PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.DB.ExecContext(ctx, insertEventQuery,
		e.ID, e.TenantID, e.Type, nullIfEmpty(e.ActorUserID), nullIfEmpty(e.ActorRole), nullIfEmpty(e.IPAddress),
		nullIfEmpty(e.LedgerID), nullIfEmpty(e.TransactionID), nullIfEmpty(e.InvoiceID), nullIfEmpty(e.AnomalyID),
		nullIfEmpty(e.Message), nullIfEmpty(e.Metadata), e.CreatedAt,
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
