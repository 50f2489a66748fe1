// Package store declares the repository abstraction for every entity in
// the domain model: one capability interface per entity, each method
// scoped to the caller's unit-of-work transaction. internal/store/postgres
// holds the single concrete backing implementation; internal/store/memory
// holds linear-scan test doubles used by service unit tests.
package store

import "errors"

// ErrNotFound is returned by single-row lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateIdempotencyKey is returned by TransactionStore.Create when
// another writer has already inserted a row for the same idempotency key.
// Callers treat this as the race-lost signal, not as a failure: they
// re-read the winner's row and return its snapshot.
var ErrDuplicateIdempotencyKey = errors.New("store: duplicate idempotency key")

// ErrDuplicateInvoicePeriod is returned by InvoiceStore.CreateDraft when a
// concurrent writer already inserted an invoice for the same tenant and
// billing period.
var ErrDuplicateInvoicePeriod = errors.New("store: duplicate invoice period")

// ErrDuplicateInvoiceNumber is returned by InvoiceStore.CreateDraft when
// the caller's generated invoice_number lost a uniqueness race against a
// concurrent writer. Callers retry with a freshly generated number
// instead of treating this as "already exists for this period".
var ErrDuplicateInvoiceNumber = errors.New("store: duplicate invoice number")

// Page is the result shape shared by every paginated list query: items
// newest-first, plus the unfiltered row count for the filter in effect.
type Page[T any] struct {
	Items []T
	Total int
}
