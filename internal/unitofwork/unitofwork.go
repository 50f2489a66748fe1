// Package unitofwork gives the ledger command handlers and the worker
// control loops a named scope for a database transaction: acquired
// explicitly, guaranteed to release on every exit path.
package unitofwork

import (
	"context"
	"database/sql"
)

// Func is the body executed inside a scope. Returning an error rolls the
// scope back; returning nil commits it.
type Func func(ctx context.Context, tx *sql.Tx) error

// UnitOfWork is the collaborator handlers depend on, so that a handler's
// constructor takes an interface rather than a concrete *sql.DB — this is
// what lets the same handler run against Postgres in production and
// against an in-memory store in tests, per the spec's explicit-
// construction/dependency-as-field pattern.
type UnitOfWork interface {
	Run(ctx context.Context, fn Func) error
}

// DB is the production UnitOfWork, backed by a real *sql.DB.
type DB struct {
	Conn *sql.DB
	Opts *sql.TxOptions
}

func NewDB(conn *sql.DB, opts *sql.TxOptions) DB {
	return DB{Conn: conn, Opts: opts}
}

func (d DB) Run(ctx context.Context, fn Func) error {
	return Run(ctx, d.Conn, d.Opts, fn)
}

// Run opens a scope on db, executes fn, and commits or rolls back based
// on the outcome.
//
//   - fn returns an error: the scope is rolled back and the error is
//     returned to the caller.
//   - fn panics: the scope is rolled back and the panic is re-raised.
//   - fn returns nil: the scope is committed; a commit failure is
//     returned to the caller.
//
// Two scopes never share a transaction; callers that need multiple
// repositories to participate in the same scope pass the same *sql.Tx
// to each of them.
func Run(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn Func) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
