package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique-constraint
// conflict. Repositories that expose a duplicate-key contract (the
// transaction idempotency key, the invoice period/number uniques) check
// for it instead of bubbling an opaque driver error.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// uniqueViolationConstraint reports the constraint name of a 23505
// error, for repositories whose table carries more than one unique
// constraint and so can't collapse every 23505 into one error value.
func uniqueViolationConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
