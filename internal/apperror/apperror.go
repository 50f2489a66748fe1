// Package apperror is the tagged error value every command handler and
// worker loop returns instead of raising: a stable Code callers can branch
// on, a human Message, and a free-form Reason carrying the underlying
// failure for diagnostics only. The HTTP facade collaborator maps Code to
// a status; nothing below that boundary should ever type-switch on an
// error string.
package apperror

import (
	"errors"
	"fmt"
)

type Code string

const (
	InsufficientCredit        Code = "INSUFFICIENT_CREDIT"
	LedgerNotFound            Code = "LEDGER_NOT_FOUND"
	InvoiceNotFound           Code = "INVOICE_NOT_FOUND"
	InvalidInvoiceStatus      Code = "INVALID_INVOICE_STATUS"
	InvoiceAlreadyExists      Code = "INVOICE_ALREADY_EXISTS"
	AnomalyNotFound           Code = "ANOMALY_NOT_FOUND"
	ConsumeCreditFailed       Code = "CONSUME_CREDIT_FAILED"
	RefundCreditFailed        Code = "REFUND_CREDIT_FAILED"
	AllocateCreditFailed      Code = "ALLOCATE_CREDIT_FAILED"
	DetectionFailed           Code = "DETECTION_FAILED"
	ReconciliationFailed      Code = "RECONCILIATION_FAILED"
	CreateInvoiceFailed       Code = "CREATE_INVOICE_FAILED"
	GenerateProformaFailed    Code = "GENERATE_PROFORMA_FAILED"
	ValidationError           Code = "VALIDATION_ERROR"
	TooManyConcurrentRequests Code = "TOO_MANY_CONCURRENT_REQUESTS"
)

// Error is the discriminated error value of spec §7/§9: "ok(T) / err(kind,
// message, reason)". Reason is diagnostic-only; clients must branch on
// Code, never on Message or Reason.
type Error struct {
	Code    Code
	Message string
	Reason  string

	// Details carries structured, code-specific fields a caller may want
	// to surface (e.g. INSUFFICIENT_CREDIT's available/required amounts).
	// Optional; most codes leave it nil.
	Details map[string]string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Reason)
}

// New builds an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetail attaches a structured field and returns e for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string, 1)
	}
	e.Details[key] = value
	return e
}

// Wrap builds an Error carrying cause's text as Reason, for diagnostics.
// If cause is nil it behaves like New: the Error is still returned, with an
// empty Reason.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Reason: cause.Error()}
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the Code of err if it is an *Error, and ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	e, ok := As(err)
	if !ok {
		return "", false
	}
	return e.Code, true
}
