package service

import (
	"context"
	"fmt"
	"time"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

// CohortProvider supplies the cohort retention table of the owner dashboard.
type CohortProvider interface {
	Cohorts(ctx context.Context) ([]model.CohortData, error)
}

// StubCohortProvider returns a fixed retention table. It is not computed
// from data and stands in until real cohort analytics exist.
type StubCohortProvider struct{}

func (StubCohortProvider) Cohorts(ctx context.Context) ([]model.CohortData, error) {
	return []model.CohortData{
		{Cohort: "Aug 2024", Retention: []float64{100, 95, 90, 88, 85}},
		{Cohort: "Sep 2024", Retention: []float64{100, 92, 88, 85}},
		{Cohort: "Oct 2024", Retention: []float64{100, 94, 91}},
		{Cohort: "Nov 2024", Retention: []float64{100, 96}},
		{Cohort: "Dec 2024", Retention: []float64{100}},
	}, nil
}

var mockRevenue = []float64{32000, 34500, 36200, 38900, 40100, 42500}
var mockTenantGrowth = []float64{98, 104, 109, 115, 121, 128}

// MockDashboardData is the fully populated owner dashboard served when
// aggregation fails outright. Month labels follow now.
func MockDashboardData(now time.Time) *model.OwnerDashboardData {
	now = now.UTC()
	cohorts, _ := StubCohortProvider{}.Cohorts(context.Background())

	revenue := make([]model.ChartDataPoint, 0, len(mockRevenue))
	growth := make([]model.ChartDataPoint, 0, len(mockTenantGrowth))
	for i := range mockRevenue {
		m := monthStart(now).AddDate(0, i-len(mockRevenue)+1, 0)
		revenue = append(revenue, model.ChartDataPoint{Label: monthLabel(m), Value: mockRevenue[i]})
		growth = append(growth, model.ChartDataPoint{Label: monthLabel(m), Value: mockTenantGrowth[i]})
	}
	stamp := func(hours int) string {
		return store.FormatTime(now.Add(-time.Duration(hours) * time.Hour))
	}

	return &model.OwnerDashboardData{
		KPIs: model.DashboardKPIs{
			MRR: model.DashboardKPI{
				Label: "Monthly Recurring Revenue", Value: "$42,500", Change: 6,
				ChangeLabel: "from last month", Trend: model.TrendUp, Color: "green",
			},
			ActiveTenants: model.DashboardKPI{
				Label: "Active Tenants", Value: "128", Change: 7,
				ChangeLabel: "new this month", Trend: model.TrendUp, Color: "blue",
			},
			LTV: model.DashboardKPI{
				Label: "Customer LTV", Value: "$12,450", Change: 0,
				ChangeLabel: "avg. increase", Trend: model.TrendNeutral, Color: "purple",
			},
			Churn: model.DashboardKPI{
				Label: "Churn Rate", Value: "2.7%", Change: 0,
				ChangeLabel: "from last month", Trend: model.TrendNeutral, Color: "orange",
			},
		},
		Alerts: []model.SystemAlert{
			{ID: "mock-alert-1", Severity: "warning", Message: "High API latency detected on payment server", Timestamp: stamp(1), Created: stamp(1)},
			{ID: "mock-alert-2", Severity: "info", Message: "Scheduled backup completed", Timestamp: stamp(6), Created: stamp(6)},
		},
		RevenueHistory: revenue,
		TenantGrowth:   growth,
		RecentActivity: []model.AuditLog{
			{ID: "mock-act-1", Action: "New Tenant", User: "System", Details: map[string]any{"name": "Riverside Academy"}, IPAddress: "-", Module: "Tenants", Created: stamp(2)},
			{ID: "mock-act-2", Action: "Payment Received", User: "System", Details: map[string]any{"amount": 999.0, "status": "paid"}, IPAddress: "-", Module: "Billing", Created: stamp(5)},
		},
		TopVisitedPages: []model.RankedItem{
			{Label: "/dashboard", Value: 12840, Color: "#06b6d4", SubLabel: "Internal"},
			{Label: "/blog/launch", Value: 4410, Color: "#3b82f6", SubLabel: "Social"},
			{Label: "/pricing", Value: 3870, Color: "#8b5cf6", SubLabel: "Marketing"},
		},
		TopUserAccess: []model.RankedItem{
			{Label: "Direct", Value: 8200, Color: "#3b82f6"},
			{Label: "Google", Value: 6100, Color: "#10b981"},
			{Label: "Referral", Value: 1200, Color: "#cbd5e1"},
		},
		ExpensesByCategory: []model.ExpenseItem{
			{Label: "Infrastructure", Value: 4200, Color: "#3b82f6", Percentage: 42},
			{Label: "Payroll", Value: 3100, Color: "#8b5cf6", Percentage: 31},
			{Label: "Marketing", Value: 1700, Color: "#f59e0b", Percentage: 17},
		},
		PredictiveRevenue: predictRevenue(revenue, now),
		CohortRetention:   cohorts,
	}
}

// MockBillingStats is served when billing stats cannot be computed.
func MockBillingStats() model.BillingStats {
	return model.BillingStats{
		MRR:                 45000,
		ARR:                 540000,
		ChurnRate:           2.5,
		LTV:                 12000,
		ActiveSubscriptions: 150,
		TrialSubscriptions:  12,
		FailedPayments:      3,
	}
}

var fallbackTenantSeeds = []struct {
	name, subdomain string
	plan            model.Plan
	status          string
}{
	{"Demo Academy", "demo-academy", model.PlanPro, model.TenantActive},
	{"Sample High School", "sample-high", model.PlanEnterprise, model.TenantActive},
	{"Pilot Learning Center", "pilot-learning", model.PlanBasic, model.TenantTrial},
	{"Test Tutoring Co", "test-tutoring", model.PlanFree, model.TenantActive},
	{"Legacy Institute", "legacy-institute", model.PlanBasic, model.TenantSuspended},
}

// FallbackTenants is the deterministic tenant page served when the tenant
// list cannot be fetched in time.
func FallbackTenants(now time.Time) *model.TenantList {
	now = now.UTC()
	items := make([]model.Tenant, 0, len(fallbackTenantSeeds))
	for i, t := range fallbackTenantSeeds {
		created := store.FormatTime(now.AddDate(0, 0, -30*(i+1)))
		subStatus := model.SubscriptionActive
		switch t.status {
		case model.TenantTrial:
			subStatus = model.SubscriptionTrialing
		case model.TenantSuspended:
			subStatus = model.SubscriptionPastDue
		}
		items = append(items, model.Tenant{
			ID:                 fmt.Sprintf("fallback-%d", i+1),
			Name:               t.name,
			Subdomain:          t.subdomain,
			Plan:               t.plan,
			Status:             t.status,
			SubscriptionStatus: subStatus,
			AdminEmail:         "admin@" + t.subdomain + ".edu",
			MaxStudents:        500,
			MaxTeachers:        50,
			MaxStorageGB:       25,
			FeaturesEnabled:    []string{"gradebook", "attendance"},
			Created:            created,
			Updated:            created,
		})
	}
	return &model.TenantList{
		Page:       1,
		PerPage:    TenantListPerPage,
		TotalItems: len(items),
		TotalPages: 1,
		Items:      items,
	}
}
