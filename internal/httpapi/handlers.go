// Package httpapi is the thin transport collaborator: parse/validate
// input, delegate to internal services, translate their results (and
// apperror.Error values) into JSON. No business logic lives here.
package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"billingledger/internal/anomaly"
	"billingledger/internal/apperror"
	"billingledger/internal/audit"
	"billingledger/internal/auth"
	"billingledger/internal/domain"
	"billingledger/internal/invoice"
	"billingledger/internal/ledger"
	"billingledger/internal/rbac"
	"billingledger/internal/reporting"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Ledger    *ledger.Service
	Estimator ledger.Estimator
	Anomaly   *anomaly.Service
	Invoice   *invoice.Service
	Reporting *reporting.Service
	Audit     *audit.Service
}

// logManualAdjustment pulls the identity RequireAccessToken put on the
// request context and logs a best-effort audit event. Append errors are
// discarded, never surfaced to the caller: audit must not fail the
// mutation it describes.
func (h Handlers) logManualAdjustment(c *gin.Context, tx domain.CreditTransaction) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	_ = h.Audit.LogManualAdjustment(c.Request.Context(), tx.TenantID, userID, role, c.ClientIP(), tx.LedgerID, tx.ID, "manual credit adjustment", tx.Metadata)
}

func (h Handlers) logAnomalyTriage(c *gin.Context, tenantID, anomalyID, message string) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	_ = h.Audit.LogAnomalyTriage(c.Request.Context(), tenantID, userID, role, c.ClientIP(), anomalyID, message)
}

// requireOwnTenant rejects a request whose target tenantID isn't the
// caller's own JWT tenant, unless the caller is super_admin (the only
// role allowed to act across tenants on these billing routes). Mismatches
// are reported with notFoundCode rather than a 403: a caller should learn
// no more from probing another tenant's ID than it would from a typo.
func requireOwnTenant(c *gin.Context, tenantID string, notFoundCode apperror.Code) bool {
	role, _ := auth.RoleFromGin(c)
	if rbac.IsSuperAdmin(role) {
		return true
	}
	callerTenant, err := auth.TenantIDFromGin(c)
	if err == nil && callerTenant != "" && callerTenant == tenantID {
		return true
	}
	writeError(c, apperror.New(notFoundCode, "not found"))
	return false
}

// --- error envelope ---

// errorStatus maps an apperror.Code to its spec §7 HTTP status.
func errorStatus(code apperror.Code) int {
	switch code {
	case apperror.InsufficientCredit:
		return http.StatusPaymentRequired
	case apperror.LedgerNotFound, apperror.InvoiceNotFound, apperror.AnomalyNotFound:
		return http.StatusNotFound
	case apperror.InvalidInvoiceStatus, apperror.InvoiceAlreadyExists:
		return http.StatusBadRequest
	case apperror.ValidationError:
		return http.StatusUnprocessableEntity
	case apperror.TooManyConcurrentRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	if ae, ok := apperror.As(err); ok {
		c.AbortWithStatusJSON(errorStatus(ae.Code), gin.H{"error": gin.H{
			"code":    string(ae.Code),
			"message": ae.Message,
		}})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "internal error",
	}})
}

func writeValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
		"code":    string(apperror.ValidationError),
		"message": message,
	}})
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Credits: consume / refund / adjust ---

type mutationRequestBody struct {
	TenantID       string `json:"tenant_id"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
	ReferenceType  string `json:"reference_type,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
	Metadata       string `json:"metadata,omitempty"`
}

func (b mutationRequestBody) toRequest() (ledger.MutationRequest, error) {
	amount, err := decimal.NewFromString(b.Amount)
	if err != nil {
		return ledger.MutationRequest{}, errors.New("amount must be a decimal string")
	}
	return ledger.MutationRequest{
		TenantID:       b.TenantID,
		Amount:         amount,
		IdempotencyKey: b.IdempotencyKey,
		ReferenceType:  b.ReferenceType,
		ReferenceID:    b.ReferenceID,
		Metadata:       b.Metadata,
	}, nil
}

func transactionResponse(tx domain.CreditTransaction) gin.H {
	return gin.H{
		"id":               tx.ID,
		"tenant_id":        tx.TenantID,
		"ledger_id":        tx.LedgerID,
		"transaction_type": string(tx.Type),
		"amount":           tx.Amount.String(),
		"balance_before":   tx.BalanceBefore.String(),
		"balance_after":    tx.BalanceAfter.String(),
		"reference_type":   tx.ReferenceType,
		"reference_id":     tx.ReferenceID,
		"idempotency_key":  tx.IdempotencyKey,
		"metadata":         tx.Metadata,
		"created_at":       tx.CreatedAt,
	}
}

// ConsumeCredits handles POST /billing/credits/consume.
func (h Handlers) ConsumeCredits(c *gin.Context) {
	var body mutationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, "invalid request body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeValidationError(c, err.Error())
		return
	}
	if !requireOwnTenant(c, req.TenantID, apperror.LedgerNotFound) {
		return
	}
	tx, err := h.Ledger.Consume(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// RefundCredits handles POST /billing/credits/refund.
func (h Handlers) RefundCredits(c *gin.Context) {
	var body mutationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, "invalid request body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeValidationError(c, err.Error())
		return
	}
	if !requireOwnTenant(c, req.TenantID, apperror.LedgerNotFound) {
		return
	}
	tx, err := h.Ledger.Refund(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// AdjustCredits handles the hidden billing_ops admin path: a signed
// balance correction outside the consume/refund/allocate protocol.
func (h Handlers) AdjustCredits(c *gin.Context) {
	var body mutationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, "invalid request body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeValidationError(c, err.Error())
		return
	}
	tx, err := h.Ledger.Adjust(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logManualAdjustment(c, tx)
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// --- Credits: balance / transactions / estimate ---

// GetBalance handles GET /billing/credits/balance/{tenant_id}.
func (h Handlers) GetBalance(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if tenantID == "" {
		writeValidationError(c, "tenant_id required")
		return
	}
	if !requireOwnTenant(c, tenantID, apperror.LedgerNotFound) {
		return
	}
	snap, err := h.Ledger.GetBalance(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tenant_id":    snap.TenantID,
		"balance":      snap.Balance.String(),
		"last_updated": snap.UpdatedAt,
	})
}

// ListTransactions handles GET /billing/credits/transactions.
func (h Handlers) ListTransactions(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		writeValidationError(c, "tenant_id required")
		return
	}
	if !requireOwnTenant(c, tenantID, apperror.LedgerNotFound) {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.Ledger.ListTransactions(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(page.Items))
	for _, tx := range page.Items {
		items = append(items, transactionResponse(tx))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

type estimateRequestBody struct {
	TaskID        string   `json:"task_id,omitempty"`
	PipelineSteps []string `json:"pipeline_steps"`
}

// EstimateCost handles POST /billing/credits/estimate.
func (h Handlers) EstimateCost(c *gin.Context) {
	var body estimateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, "invalid request body")
		return
	}
	if len(body.PipelineSteps) == 0 {
		writeValidationError(c, "pipeline_steps is required")
		return
	}
	result := h.Estimator.EstimateCost(body.PipelineSteps)
	breakdown := make(gin.H, len(result.Breakdown))
	for step, cost := range result.Breakdown {
		breakdown[step] = cost.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"estimated_credits": result.Total.String(),
		"breakdown":         breakdown,
	})
}

// --- Invoices: proforma ---

// GetProforma handles GET /billing/invoices/{id}/proforma.
func (h Handlers) GetProforma(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeValidationError(c, "invoice id required")
		return
	}
	inv, pdf, err := h.Invoice.Proforma(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !requireOwnTenant(c, inv.TenantID, apperror.InvoiceNotFound) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             inv.ID,
		"tenant_id":      inv.TenantID,
		"invoice_number": inv.InvoiceNumber,
		"status":         string(inv.Status),
		"total_amount":   inv.TotalAmount.String(),
		"currency":       inv.Currency,
		"pdf_base64":     base64.StdEncoding.EncodeToString(pdf),
	})
}

// GetProformaPDF handles GET /billing/invoices/{id}/proforma/pdf.
func (h Handlers) GetProformaPDF(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeValidationError(c, "invoice id required")
		return
	}
	inv, pdf, err := h.Invoice.Proforma(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !requireOwnTenant(c, inv.TenantID, apperror.InvoiceNotFound) {
		return
	}
	c.Header("Content-Disposition", `attachment; filename=proforma_`+inv.InvoiceNumber+`.pdf`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ListInvoices handles the supplemented invoice-listing read path.
func (h Handlers) ListInvoices(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		writeValidationError(c, "tenant_id required")
		return
	}
	if !requireOwnTenant(c, tenantID, apperror.InvoiceNotFound) {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.Invoice.ListByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(page.Items))
	for _, inv := range page.Items {
		items = append(items, gin.H{
			"id":             inv.ID,
			"tenant_id":      inv.TenantID,
			"invoice_number": inv.InvoiceNumber,
			"status":         string(inv.Status),
			"total_amount":   inv.TotalAmount.String(),
			"currency":       inv.Currency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": page.Total, "limit": limit, "offset": offset})
}

// --- Anomalies: triage ---

// AcknowledgeAnomaly handles POST /billing/anomalies/{id}/acknowledge.
func (h Handlers) AcknowledgeAnomaly(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeValidationError(c, "anomaly id required")
		return
	}
	tenantID, ok := h.anomalyScopeTenant(c, id)
	if !ok {
		return
	}
	a, err := h.Anomaly.Acknowledge(c.Request.Context(), tenantID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logAnomalyTriage(c, a.TenantID, a.ID, "anomaly acknowledged")
	c.JSON(http.StatusOK, gin.H{"id": a.ID, "status": string(a.Status)})
}

// anomalyScopeTenant resolves which tenant_id to scope a triage mutation
// to. A super_admin may act across tenants, so its own JWT tenant would
// wrongly fail to match the anomaly's actual owner; for that caller the
// anomaly is looked up first to learn its real tenant. Any other caller
// is scoped to its own tenant, and UpdateStatus reports not-found if the
// id turns out to belong to someone else.
func (h Handlers) anomalyScopeTenant(c *gin.Context, id string) (string, bool) {
	role, _ := auth.RoleFromGin(c)
	if rbac.IsSuperAdmin(role) {
		a, err := h.Anomaly.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return "", false
		}
		return a.TenantID, true
	}
	tenantID, err := auth.TenantIDFromGin(c)
	if err != nil {
		writeError(c, apperror.New(apperror.AnomalyNotFound, "anomaly not found"))
		return "", false
	}
	return tenantID, true
}

type resolveAnomalyRequest struct {
	ResolvedBy    string `json:"resolved_by"`
	FalsePositive bool   `json:"false_positive"`
}

// ResolveAnomaly handles POST /billing/anomalies/{id}/resolve.
func (h Handlers) ResolveAnomaly(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeValidationError(c, "anomaly id required")
		return
	}
	var body resolveAnomalyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, "invalid request body")
		return
	}
	tenantID, ok := h.anomalyScopeTenant(c, id)
	if !ok {
		return
	}
	a, err := h.Anomaly.Resolve(c.Request.Context(), tenantID, id, body.ResolvedBy, body.FalsePositive)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logAnomalyTriage(c, a.TenantID, a.ID, "anomaly resolved")
	c.JSON(http.StatusOK, gin.H{"id": a.ID, "status": string(a.Status)})
}

// --- Reporting ---

// ConsumptionSummary handles GET /billing/reports/consumption.
func (h Handlers) ConsumptionSummary(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		writeValidationError(c, "tenant_id required")
		return
	}
	from, err1 := parseTimeQuery(c, "from")
	to, err2 := parseTimeQuery(c, "to")
	if err1 != nil || err2 != nil {
		writeValidationError(c, "from and to must be RFC3339 timestamps")
		return
	}
	out, err := h.Reporting.ConsumptionSummary(c.Request.Context(), reporting.ConsumptionSummaryRequest{
		TenantID: tenantID,
		Range:    reporting.TimeRange{From: from, To: to},
		Type:     c.Query("type"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			writeValidationError(c, "invalid reporting request")
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tenant_id":         out.TenantID,
		"total_consumed":    out.TotalConsumed.String(),
		"total_refunded":    out.TotalRefunded.String(),
		"total_allocated":   out.TotalAllocated.String(),
		"total_adjusted":    out.TotalAdjusted.String(),
		"net_delta":         out.NetDelta.String(),
		"transaction_count": out.TransactionCount,
	})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, errors.New(key + " required")
	}
	return time.Parse(time.RFC3339, v)
}

