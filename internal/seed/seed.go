// Package seed builds the deterministic collections served by the mock-mode
// record store.
package seed

import (
	"fmt"
	"time"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

// PlanPrices is the monthly price used for seeded invoices.
var PlanPrices = map[model.Plan]int64{
	model.PlanFree:       0,
	model.PlanBasic:      99,
	model.PlanPro:        299,
	model.PlanEnterprise: 999,
}

type tenantSeed struct {
	id, name, subdomain string
	plan                model.Plan
	status, subStatus   string
	ageDays             int
	students, teachers  int
	classes             int
}

var tenantSeeds = []tenantSeed{
	{"t01", "Riverside Academy", "riverside", model.PlanEnterprise, model.TenantActive, model.SubscriptionActive, 210, 6, 3, 4},
	{"t02", "Northwind School", "northwind", model.PlanPro, model.TenantActive, model.SubscriptionActive, 185, 5, 2, 3},
	{"t03", "Lakeside Learning", "lakeside", model.PlanBasic, model.TenantActive, model.SubscriptionActive, 150, 4, 2, 2},
	{"t04", "Summit Prep", "summit", model.PlanPro, model.TenantActive, model.SubscriptionActive, 125, 4, 1, 2},
	{"t05", "Harbor Tutors", "harbor", model.PlanBasic, model.TenantSuspended, model.SubscriptionPastDue, 118, 2, 1, 1},
	{"t06", "Maple Grove", "maplegrove", model.PlanFree, model.TenantActive, model.SubscriptionActive, 95, 3, 1, 1},
	{"t07", "Cedar Institute", "cedar", model.PlanEnterprise, model.TenantActive, model.SubscriptionActive, 64, 5, 3, 3},
	{"t08", "Oakridge Online", "oakridge", model.PlanPro, model.TenantTrial, model.SubscriptionTrialing, 12, 2, 1, 1},
	{"t09", "Bright Minds", "brightminds", model.PlanBasic, model.TenantActive, model.SubscriptionActive, 33, 3, 1, 1},
	{"t10", "Pinecrest College", "pinecrest", model.PlanPro, model.TenantCancelled, model.SubscriptionCancelled, 160, 0, 0, 0},
	{"t11", "Willow Creek", "willowcreek", model.PlanBasic, model.TenantTrial, model.SubscriptionTrialing, 2, 1, 1, 0},
	{"t12", "Evergreen Charter", "evergreen", model.PlanPro, model.TenantActive, model.SubscriptionActive, 0, 2, 1, 1},
}

// TenantCount is the number of seeded tenants.
func TenantCount() int { return len(tenantSeeds) }

// Func returns a store.SeedFunc bound to the clock now.
func Func(now func() time.Time) store.SeedFunc {
	return func() map[string][]store.Record {
		return Load(now())
	}
}

// Load returns every seeded collection with timestamps relative to now.
func Load(now time.Time) map[string][]store.Record {
	now = now.UTC()
	ago := func(days, hours int) string {
		return store.FormatTime(now.AddDate(0, 0, -days).Add(-time.Duration(hours) * time.Hour))
	}

	data := map[string][]store.Record{}
	for _, t := range tenantSeeds {
		l := model.DefaultPlanLimits[t.plan]
		tenant := store.Record{
			"id":                  t.id,
			"name":                t.name,
			"subdomain":           t.subdomain,
			"plan":                string(t.plan),
			"status":              t.status,
			"subscription_status": t.subStatus,
			"admin_email":         "admin@" + t.subdomain + ".edu",
			"max_students":        float64(l.MaxStudents),
			"max_teachers":        float64(l.MaxTeachers),
			"max_storage_gb":      float64(l.MaxStorageGB),
			"features_enabled":    toAny(l.Features),
			"created":             ago(t.ageDays, 1),
			"updated":             ago(t.ageDays/2, 0),
		}
		if t.status == model.TenantTrial {
			tenant["trial_ends_at"] = store.FormatTime(now.AddDate(0, 0, 14-t.ageDays))
		}
		data["tenants"] = append(data["tenants"], tenant)

		data["subscriptions"] = append(data["subscriptions"], subscriptionFor(t, now))
		data["invoices"] = append(data["invoices"], invoicesFor(t, ago)...)

		for i := 0; i < t.students; i++ {
			data["users"] = append(data["users"], store.Record{
				"id": fmt.Sprintf("%s-s%02d", t.id, i), "tenant": t.id, "role": "Student",
				"created": ago(t.ageDays, 0),
			})
		}
		for i := 0; i < t.teachers; i++ {
			data["users"] = append(data["users"], store.Record{
				"id": fmt.Sprintf("%s-t%02d", t.id, i), "tenant": t.id, "role": "Teacher",
				"created": ago(t.ageDays, 0),
			})
		}
		for i := 0; i < t.classes; i++ {
			data["classes"] = append(data["classes"], store.Record{
				"id": fmt.Sprintf("%s-c%02d", t.id, i), "tenant": t.id, "name": fmt.Sprintf("Class %d", i+1),
				"created": ago(t.ageDays, 0),
			})
		}
		if t.status == model.TenantActive {
			data["tenant_usage"] = append(data["tenant_usage"], store.Record{
				"id":              t.id + "-u0",
				"tenant":          t.id,
				"period_start":    ago(30, 0),
				"period_end":      ago(0, 0),
				"student_count":   float64(t.students),
				"teacher_count":   float64(t.teachers),
				"storage_used_gb": float64(t.classes) * 0.5,
				"api_calls":       float64(t.students * 120),
				"active_users":    float64(t.students + t.teachers),
				"created":         ago(0, 2),
			})
		}
	}

	data["system_alerts"] = []store.Record{
		{"id": "al1", "severity": "critical", "message": "Payment webhook failures above threshold", "actionUrl": "/owner/billing", "created": ago(0, 3)},
		{"id": "al2", "severity": "warning", "message": "Harbor Tutors payment past due", "actionUrl": "/owner/tenants/t05", "created": ago(1, 0)},
		{"id": "al3", "severity": "info", "message": "Scheduled maintenance completed", "created": ago(3, 0)},
		{"id": "al4", "severity": "warning", "message": "Storage usage above 80% for Riverside Academy", "created": ago(5, 0)},
		{"id": "al5", "severity": "info", "message": "New enterprise tenant onboarded", "created": ago(64, 0)},
		{"id": "al6", "severity": "info", "message": "Backup verification passed", "created": ago(90, 0)},
	}
	data["audit_logs"] = []store.Record{
		{"id": "au1", "action": "Tenant Suspended", "user": "owner@platform.io", "details": map[string]any{"tenant": "t05"}, "ip_address": "10.0.0.4", "module": "Tenants", "created": ago(1, 2)},
		{"id": "au2", "action": "Plan Updated", "user": "owner@platform.io", "details": map[string]any{"plan": "pro"}, "ip_address": "10.0.0.4", "module": "Billing", "created": ago(4, 0)},
		{"id": "au3", "action": "Setting Changed", "user": "ops@platform.io", "details": map[string]any{"key": "maintenance_mode"}, "ip_address": "10.0.0.9", "module": "Settings", "created": ago(7, 0)},
		{"id": "au4", "action": "Login", "user": "owner@platform.io", "details": map[string]any{}, "ip_address": "10.0.0.4", "module": "Auth", "created": ago(0, 1)},
	}
	data["analytics_pages"] = []store.Record{
		{"id": "pg1", "path": "/dashboard", "visitors": 12840.0, "category": "Internal"},
		{"id": "pg2", "path": "/courses", "visitors": 9320.0, "category": "Internal"},
		{"id": "pg3", "path": "/blog/launch", "visitors": 4410.0, "category": "Social"},
		{"id": "pg4", "path": "/pricing", "visitors": 3870.0, "category": "Marketing"},
		{"id": "pg5", "path": "/community", "visitors": 2150.0, "category": "Social"},
	}
	data["analytics_sources"] = []store.Record{
		{"id": "src1", "source": "Direct", "visitors": 8200.0, "color": "#3b82f6"},
		{"id": "src2", "source": "Google", "visitors": 6100.0, "color": "#10b981"},
		{"id": "src3", "source": "Facebook", "visitors": 2300.0, "color": "#6366f1"},
		{"id": "src4", "source": "Referral", "visitors": 1200.0},
	}
	data["finance_expenses"] = []store.Record{
		{"id": "ex1", "category": "Infrastructure", "amount": 4200.0, "color": "#3b82f6", "percentage": 42.0},
		{"id": "ex2", "category": "Payroll", "amount": 3100.0, "color": "#8b5cf6", "percentage": 31.0},
		{"id": "ex3", "category": "Marketing", "amount": 1700.0, "color": "#f59e0b", "percentage": 17.0},
		{"id": "ex4", "category": "Support", "amount": 1000.0, "percentage": 10.0},
	}
	data["subscription_plans"] = []store.Record{
		plan("pl1", "Free", model.PlanFree, 0, 0, true),
		plan("pl2", "Basic", model.PlanBasic, 99, 990, true),
		plan("pl3", "Pro", model.PlanPro, 299, 2990, true),
		plan("pl4", "Enterprise", model.PlanEnterprise, 999, 9990, true),
		plan("pl5", "Legacy Starter", model.PlanBasic, 49, 490, false),
	}
	data["system_settings"] = []store.Record{
		{"id": "set1", "key": "maintenance_mode", "value": false, "description": "Show maintenance banner to all tenants", "category": "general"},
		{"id": "set2", "key": "default_trial_days", "value": 14.0, "description": "Trial length for new tenants", "category": "billing"},
		{"id": "set3", "key": "support_email", "value": "support@platform.io", "description": "Reply-to address for system email", "category": "email"},
	}
	data["system_health_metrics"] = []store.Record{
		{"id": "hm1", "service_name": "api", "status": model.HealthHealthy, "uptime_percentage": 99.9, "response_time_ms": 120.0, "last_check": ago(0, 1)},
		{"id": "hm2", "service_name": "api", "status": model.HealthDegraded, "uptime_percentage": 95.0, "response_time_ms": 1400.0, "last_check": ago(1, 0)},
		{"id": "hm3", "service_name": "database", "status": model.HealthHealthy, "uptime_percentage": 99.99, "response_time_ms": 8.0, "last_check": ago(0, 1)},
		{"id": "hm4", "service_name": "payments", "status": model.HealthHealthy, "uptime_percentage": 99.5, "response_time_ms": 310.0, "last_check": ago(0, 1)},
	}
	data["monitoring_events"] = []store.Record{
		{"id": "ev1", "severity": "warning", "message": "Elevated 5xx rate on /api/churn", "source": "payment-server", "timestamp": ago(0, 5), "created": ago(0, 5)},
		{"id": "ev2", "severity": "info", "message": "Rate limit table reloaded", "source": "owner-console", "timestamp": ago(2, 0), "created": ago(2, 0)},
	}
	return data
}

func subscriptionFor(t tenantSeed, now time.Time) store.Record {
	status := model.BillingActive
	switch t.subStatus {
	case model.SubscriptionTrialing:
		status = model.BillingTrialing
	case model.SubscriptionPastDue:
		status = model.BillingPastDue
	case model.SubscriptionCancelled:
		status = model.BillingCanceled
	}
	start := now.AddDate(0, 0, -(t.ageDays % 30))
	return store.Record{
		"id":                   "sub-" + t.id,
		"tenant":               t.id,
		"plan":                 string(t.plan),
		"status":               status,
		"current_period_start": store.FormatTime(start),
		"current_period_end":   store.FormatTime(start.AddDate(0, 1, 0)),
		"cancel_at_period_end": false,
		"created":              store.FormatTime(now.AddDate(0, 0, -t.ageDays)),
	}
}

// invoicesFor bills a paying tenant every 30 days since signup, newest first,
// for at most six periods.
func invoicesFor(t tenantSeed, ago func(days, hours int) string) []store.Record {
	price := PlanPrices[t.plan]
	if price == 0 || t.status == model.TenantTrial {
		if t.status == model.TenantTrial {
			return []store.Record{{
				"id": "inv-" + t.id + "-0", "tenant": t.id, "amount": float64(PlanPrices[t.plan]),
				"status": model.InvoicePending, "created": ago(0, 4),
			}}
		}
		return nil
	}

	var out []store.Record
	for k := 0; k < 6; k++ {
		days := k*30 + 2
		if days > t.ageDays {
			break
		}
		inv := store.Record{
			"id":           fmt.Sprintf("inv-%s-%d", t.id, k),
			"tenant":       t.id,
			"amount":       float64(price),
			"status":       model.InvoicePaid,
			"paid_at":      ago(days, 0),
			"period_start": ago(days, 0),
			"period_end":   ago(days-30, 0),
			"created":      ago(days, 1),
		}
		switch {
		case t.status == model.TenantSuspended && k == 0:
			inv["status"] = model.InvoiceFailed
			delete(inv, "paid_at")
		case t.status == model.TenantCancelled && k < 2:
			continue
		}
		out = append(out, inv)
	}
	return out
}

func plan(id, name string, p model.Plan, monthly, yearly float64, active bool) store.Record {
	l := model.DefaultPlanLimits[p]
	return store.Record{
		"id":             id,
		"name":           name,
		"price_monthly":  monthly,
		"price_yearly":   yearly,
		"max_students":   float64(l.MaxStudents),
		"max_teachers":   float64(l.MaxTeachers),
		"max_storage_gb": float64(l.MaxStorageGB),
		"features":       toAny(l.Features),
		"is_active":      active,
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
