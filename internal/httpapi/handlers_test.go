package httpapi

import (
	"net/http"
	"testing"

	"billingledger/internal/apperror"
)

func TestErrorStatus_MapsKnownCodes(t *testing.T) {
	cases := []struct {
		code apperror.Code
		want int
	}{
		{apperror.InsufficientCredit, http.StatusPaymentRequired},
		{apperror.LedgerNotFound, http.StatusNotFound},
		{apperror.InvoiceNotFound, http.StatusNotFound},
		{apperror.AnomalyNotFound, http.StatusNotFound},
		{apperror.InvalidInvoiceStatus, http.StatusBadRequest},
		{apperror.InvoiceAlreadyExists, http.StatusBadRequest},
		{apperror.ValidationError, http.StatusUnprocessableEntity},
		{apperror.TooManyConcurrentRequests, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.code); got != tc.want {
			t.Fatalf("errorStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestErrorStatus_DefaultsToInternalError(t *testing.T) {
	if got := errorStatus(apperror.Code("SOMETHING_UNMAPPED")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unmapped code, got %d", got)
	}
}
