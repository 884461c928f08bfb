// Package service holds the owner console's aggregation services. Every
// service reads through a store.RecordStore chosen once at startup, so the
// same code runs against the seeded mock store and the live adapters.
//
// Read paths never fail: errors are logged, counted and replaced by empty or
// mock data. Write paths return their errors to the caller.
package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/store"
)

// ErrValidation wraps every input validation failure of a write operation.
var ErrValidation = errors.New("validation failed")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Collections read by the services.
const (
	collTenants       = "tenants"
	collInvoices      = "invoices"
	collSubscriptions = "subscriptions"
	collUsers         = "users"
	collClasses       = "classes"
	collTenantUsage   = "tenant_usage"
	collAlerts        = "system_alerts"
	collAuditLogs     = "audit_logs"
	collPages         = "analytics_pages"
	collSources       = "analytics_sources"
	collExpenses      = "finance_expenses"
	collPlans         = "subscription_plans"
	collSettings      = "system_settings"
	collHealth        = "system_health_metrics"
)

// PlanMonthlyPrice is the fixed plan price table used by billing stats and
// tenant MRR. Unknown plans are worth 0.
var PlanMonthlyPrice = map[model.Plan]float64{
	model.PlanFree:       0,
	model.PlanBasic:      99,
	model.PlanPro:        299,
	model.PlanEnterprise: 999,
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// jsRound rounds half away from zero for positives, matching Math.round.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthEnd is the last representable instant of t's month in the record
// store's millisecond layout.
func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}

func monthLabel(t time.Time) string {
	return t.Format("Jan")
}

// degrade logs a failed read and counts the fallback.
func degrade(err error, svc, section string) {
	log.Error().Err(err).Str("service", svc).Str("section", section).Msg("Read failed, serving fallback data")
	monitoring.RecordFallback(svc, section)
}

func countOf(res *store.ListResult) int {
	if res == nil {
		return 0
	}
	return res.TotalItems
}
