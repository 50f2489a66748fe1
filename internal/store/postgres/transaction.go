package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"

	"github.com/shopspring/decimal"
)

// TransactionRepo implements store.TransactionStore.
type TransactionRepo struct{}

func scanTransaction(row rowScanner) (domain.CreditTransaction, error) {
	var t domain.CreditTransaction
	var referenceType, referenceID, metadata sql.NullString
	if err := row.Scan(
		&t.ID, &t.TenantID, &t.LedgerID, &t.Type, &t.Amount,
		&t.BalanceBefore, &t.BalanceAfter, &referenceType, &referenceID,
		&t.IdempotencyKey, &metadata, &t.CreatedAt,
	); err != nil {
		return domain.CreditTransaction{}, err
	}
	t.ReferenceType = referenceType.String
	t.ReferenceID = referenceID.String
	t.Metadata = metadata.String
	return t, nil
}

func (TransactionRepo) Create(ctx context.Context, tx *sql.Tx, entry domain.CreditTransaction) (domain.CreditTransaction, error) {
	const q = `
INSERT INTO credit_transactions (
  id, tenant_id, ledger_id, transaction_type, amount, balance_before,
  balance_after, reference_type, reference_id, idempotency_key, metadata,
  created_at
) VALUES (
  gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING id, tenant_id, ledger_id, transaction_type, amount, balance_before,
  balance_after, reference_type, reference_id, idempotency_key, metadata, created_at
`
	row := tx.QueryRowContext(ctx, q,
		entry.TenantID, entry.LedgerID, entry.Type, entry.Amount,
		entry.BalanceBefore, entry.BalanceAfter,
		nullIfEmpty(entry.ReferenceType), nullIfEmpty(entry.ReferenceID),
		entry.IdempotencyKey, nullIfEmpty(entry.Metadata), entry.CreatedAt,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.CreditTransaction{}, store.ErrDuplicateIdempotencyKey
		}
		return domain.CreditTransaction{}, err
	}
	return t, nil
}

func (TransactionRepo) GetByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (domain.CreditTransaction, bool, error) {
	const q = `
SELECT id, tenant_id, ledger_id, transaction_type, amount, balance_before,
  balance_after, reference_type, reference_id, idempotency_key, metadata, created_at
FROM credit_transactions
WHERE idempotency_key = $1
`
	t, err := scanTransaction(tx.QueryRowContext(ctx, q, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CreditTransaction{}, false, nil
		}
		return domain.CreditTransaction{}, false, err
	}
	return t, true, nil
}

func (TransactionRepo) GetByTenant(ctx context.Context, db store.DBTX, tenantID string, limit, offset int) (store.Page[domain.CreditTransaction], error) {
	const countQ = `SELECT count(*) FROM credit_transactions WHERE tenant_id = $1`
	var total int
	if err := db.QueryRowContext(ctx, countQ, tenantID).Scan(&total); err != nil {
		return store.Page[domain.CreditTransaction]{}, err
	}

	const q = `
SELECT id, tenant_id, ledger_id, transaction_type, amount, balance_before,
  balance_after, reference_type, reference_id, idempotency_key, metadata, created_at
FROM credit_transactions
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`
	rows, err := db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return store.Page[domain.CreditTransaction]{}, err
	}
	defer rows.Close()

	var items []domain.CreditTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return store.Page[domain.CreditTransaction]{}, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return store.Page[domain.CreditTransaction]{}, err
	}
	return store.Page[domain.CreditTransaction]{Items: items, Total: total}, nil
}

func (TransactionRepo) SumConsumptionByTenant(ctx context.Context, tx *sql.Tx, from, to time.Time) ([]store.TenantSum, error) {
	const q = `
SELECT tenant_id, sum(amount)
FROM credit_transactions
WHERE transaction_type = $1 AND created_at >= $2 AND created_at < $3
GROUP BY tenant_id
`
	rows, err := tx.QueryContext(ctx, q, domain.TransactionConsume, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TenantSum
	for rows.Next() {
		var s store.TenantSum
		if err := rows.Scan(&s.TenantID, &s.Sum); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (TransactionRepo) SumByLedger(ctx context.Context, db store.DBTX, ledgerID string) (decimal.Decimal, error) {
	const q = `
SELECT transaction_type, amount
FROM credit_transactions
WHERE ledger_id = $1
`
	rows, err := db.QueryContext(ctx, q, ledgerID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var typ domain.TransactionType
		var amount decimal.Decimal
		if err := rows.Scan(&typ, &amount); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(domain.LedgerSignForType(typ, amount))
	}
	return sum, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
