// Package httpapi exposes the owner console services as a JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/dashboard"
	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/ratelimit"
	"github.com/teresa-solution/owner-console/internal/service"
)

// Services are the dependencies the API routes to. All of them are required.
type Services struct {
	Owner     *service.OwnerService
	Billing   *service.BillingService
	Tenants   *service.TenantService
	Analytics *service.AnalyticsService
	Dashboard *dashboard.Controller
	Monitor   *monitoring.Monitor
	Limiter   *ratelimit.Limiter
}

type handler struct {
	Services
}

// NewRouter builds the gin engine with every owner route registered under
// /api/owner, plus /health and /metrics outside the rate limit.
func NewRouter(s Services) *gin.Engine {
	h := &handler{Services: s}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/owner")
	api.Use(s.Limiter.Middleware(ratelimit.OwnerAdmin, nil))

	api.GET("/dashboard", h.getDashboard)
	api.GET("/system-health", h.getSystemHealth)
	api.GET("/audit-logs", h.getAuditLogs)
	api.GET("/settings", h.getSettings)
	api.PATCH("/settings/:id", h.updateSetting)
	api.GET("/plans", h.getPlans)
	api.POST("/plans", h.createPlan)
	api.PATCH("/plans/:id", h.updatePlan)

	tenants := api.Group("/tenants")
	tenants.GET("", h.listTenants)
	tenants.POST("", h.createTenant)
	tenants.GET("/stats", h.tenantStats)
	tenants.GET("/:id", h.getTenant)
	tenants.PATCH("/:id", h.updateTenant)
	tenants.DELETE("/:id", h.deleteTenant)
	tenants.POST("/:id/suspend", h.suspendTenant)
	tenants.POST("/:id/activate", h.activateTenant)
	tenants.GET("/:id/usage", h.tenantUsage)
	tenants.GET("/:id/subscription", h.tenantSubscription)
	tenants.GET("/:id/invoices", h.tenantInvoices)

	billing := api.Group("/billing")
	billing.GET("/stats", h.billingStats)
	billing.GET("/revenue-history", h.revenueHistory)
	billing.GET("/invoices", h.listInvoices)
	billing.POST("/invoices", h.createInvoice)
	billing.POST("/invoices/:id/paid", h.markInvoicePaid)
	billing.GET("/subscriptions", h.listSubscriptions)
	billing.POST("/subscriptions/:id/cancel", h.cancelSubscription)
	billing.POST("/proration/calculate", h.calculateProration)
	billing.POST("/proration/apply", h.applyPlanChange)
	billing.POST("/proration/schedule", h.schedulePlanChange)

	churn := api.Group("/churn")
	churn.GET("/report", h.churnReport)
	churn.GET("/at-risk", h.atRiskCustomers)
	churn.POST("/retention/:id", h.executeRetention)

	trials := api.Group("/trials")
	trials.GET("", h.activeTrials)
	trials.GET("/expiring", h.expiringTrials)
	trials.GET("/metrics", h.trialMetrics)
	trials.POST("/reminders", h.sendTrialReminders)
	trials.POST("/:id/extend", h.extendTrial)
	trials.POST("/:id/convert", h.convertTrial)
	trials.POST("/:id/cancel", h.cancelTrial)

	analytics := api.Group("/analytics")
	analytics.GET("/cohorts", h.cohortAnalysis)
	analytics.GET("/funnel", h.funnel)
	analytics.GET("/revenue", h.revenueDashboard)
	analytics.GET("/customer-health", h.customerHealth)

	api.GET("/reports/templates", h.reportTemplates)
	api.POST("/reports/build", h.buildReport)
	api.GET("/exports", h.exportHistory)
	api.POST("/exports/:type", s.Limiter.Middleware(ratelimit.ExportData, nil), h.createExport)

	monitor := api.Group("/monitoring")
	monitor.GET("", h.monitoringStats)
	monitor.GET("/alerts", h.listAlerts)
	monitor.POST("/alerts", h.createAlert)
	monitor.GET("/events", h.listEvents)

	api.GET("/rate-limits/:type/:id", h.rateLimitInfo)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	}
}
