package unitofwork

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// TestRun_Signature is a compile-time smoke test for the helper's
// signature; exercising commit/rollback behavior requires a real
// *sql.DB, which no test in this module opens (the ledger tests run
// against the in-memory store).
func TestRun_Signature(t *testing.T) {
	var _ func(context.Context, *sql.DB, *sql.TxOptions, Func) error = Run
	_ = errors.New("x")
}
