package invoice

import (
	"bytes"
	"context"
	"fmt"

	"billingledger/internal/domain"
)

// StubRenderer emits a minimal, syntactically valid single-page PDF. It
// exists so the HTTP facade's proforma endpoints have a concrete
// collaborator to demo against; a real renderer is out of the core's
// scope (spec §1). NewService falls back to it when given a nil renderer,
// which is what cmd/api does.
type StubRenderer struct{}

func (StubRenderer) GenerateProforma(_ context.Context, inv domain.Invoice, lines []domain.InvoiceLine) ([]byte, error) {
	var body bytes.Buffer
	fmt.Fprintf(&body, "Proforma Invoice %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&body, "Tenant: %s\n", inv.TenantID)
	fmt.Fprintf(&body, "Period: %s - %s\n", inv.BillingPeriodStart.Format("2006-01-02"), inv.BillingPeriodEnd.Format("2006-01-02"))
	for _, l := range lines {
		fmt.Fprintf(&body, "%s  qty=%s  unit=%s  total=%s\n", l.Description, l.Quantity.String(), l.UnitPrice.String(), l.TotalPrice.String())
	}
	fmt.Fprintf(&body, "Total: %s %s\n", inv.TotalAmount.String(), inv.Currency)

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escapePDFString(body.String()))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, 5)

	obj := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /MediaBox [0 0 612 792] /Contents 5 0 R >>\nendobj\n")
	obj("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	obj(fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content))

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(offsets)+1, xrefStart)

	return buf.Bytes(), nil
}

func escapePDFString(s string) string {
	out := bytes.Buffer{}
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteRune(r)
		case '\n':
			out.WriteString(" ")
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
