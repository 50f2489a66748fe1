// Package postgres is the single concrete backing implementation of the
// internal/store capability interfaces, built on database/sql with the
// pgx/v5 stdlib driver.
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

// LedgerRepo implements store.LedgerStore.
type LedgerRepo struct{}

func scanLedger(row rowScanner) (domain.CreditLedger, error) {
	var l domain.CreditLedger
	var monthlyLimit decimal.NullDecimal
	if err := row.Scan(&l.ID, &l.TenantID, &l.Balance, &monthlyLimit, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return domain.CreditLedger{}, err
	}
	if monthlyLimit.Valid {
		l.MonthlyLimit = &monthlyLimit.Decimal
	}
	return l, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (LedgerRepo) GetByTenant(ctx context.Context, tx *sql.Tx, tenantID string, forUpdate bool) (domain.CreditLedger, error) {
	q := `
SELECT id, tenant_id, balance, monthly_limit, created_at, updated_at
FROM credit_ledgers
WHERE tenant_id = $1
`
	if forUpdate {
		q += "FOR UPDATE\n"
	}
	l, err := scanLedger(tx.QueryRowContext(ctx, q, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CreditLedger{}, store.ErrNotFound
		}
		return domain.CreditLedger{}, err
	}
	return l, nil
}

func (LedgerRepo) Create(ctx context.Context, tx *sql.Tx, tenantID string, startingBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error) {
	const q = `
INSERT INTO credit_ledgers (id, tenant_id, balance, created_at, updated_at)
VALUES (gen_random_uuid(), $1, $2, $3, $3)
RETURNING id, tenant_id, balance, monthly_limit, created_at, updated_at
`
	return scanLedger(tx.QueryRowContext(ctx, q, tenantID, startingBalance, now))
}

func (LedgerRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, ledgerID string, newBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error) {
	const q = `
UPDATE credit_ledgers
SET balance = $2, updated_at = $3
WHERE id = $1
RETURNING id, tenant_id, balance, monthly_limit, created_at, updated_at
`
	l, err := scanLedger(tx.QueryRowContext(ctx, q, ledgerID, newBalance, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CreditLedger{}, store.ErrNotFound
		}
		return domain.CreditLedger{}, err
	}
	return l, nil
}

func (LedgerRepo) GetAll(ctx context.Context, tx *sql.Tx) ([]domain.CreditLedger, error) {
	const q = `
SELECT id, tenant_id, balance, monthly_limit, created_at, updated_at
FROM credit_ledgers
ORDER BY tenant_id
`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CreditLedger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
