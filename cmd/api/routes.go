package main

import (
	"billingledger/internal/httpapi"
	"billingledger/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// billingConcurrencyCap is the per-tenant limit on in-flight requests
// under /v1/billing, reads and writes alike (spec's admission-control
// collaborator ahead of the ledger row lock). The /v1/admin routes,
// including credits/adjust, are not capped.
const billingConcurrencyCap = 8

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, rdb *redis.Client) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
		}

		// BILLING routes (spec §6 HTTP surface).
		billing := v1.Group("/billing")
		billing.Use(rbac.RequireWorkspace())
		billing.Use(httpapi.ConcurrencyCapMiddleware(rdb, billingConcurrencyCap))
		{
			credits := billing.Group("/credits")
			{
				credits.POST("/consume", rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance, rbac.RoleSupport), h.ConsumeCredits)
				credits.POST("/refund", rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance), h.RefundCredits)
				credits.GET("/balance/:tenant_id", rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance, rbac.RoleSupport), h.GetBalance)
				credits.GET("/transactions", rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance, rbac.RoleSupport), h.ListTransactions)
				credits.POST("/estimate", rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance, rbac.RoleSupport), h.EstimateCost)
			}

			invoices := billing.Group("/invoices")
			invoices.Use(rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance))
			{
				invoices.GET("", h.ListInvoices)
				invoices.GET("/:id/proforma", h.GetProforma)
				invoices.GET("/:id/proforma/pdf", h.GetProformaPDF)
			}

			anomalies := billing.Group("/anomalies")
			anomalies.Use(rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance, rbac.RoleSuperAdmin))
			{
				anomalies.POST("/:id/acknowledge", h.AcknowledgeAnomaly)
				anomalies.POST("/:id/resolve", h.ResolveAnomaly)
			}

			reports := billing.Group("/reports")
			reports.Use(rbac.RequireAnyRole(rbac.RoleTenantAdmin, rbac.RoleFinance))
			{
				reports.GET("/consumption", h.ConsumptionSummary)
			}
		}

		// ADMIN routes: the hidden billing_ops role's manual balance
		// correction. Only super_admin/billing_ops can access.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireWorkspace())
		admin.Use(rbac.RequireAnyRole(rbac.RoleSuperAdmin, rbac.RoleBillingOps))
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})
			admin.POST("/credits/adjust", h.AdjustCredits)
		}
	}
}
