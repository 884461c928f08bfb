package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/teresa-solution/owner-console/internal/model"
)

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)

// MockClient serves literal responses in mock mode. Responses have the same
// shape as the live server's.
type MockClient struct {
	now func() time.Time
}

func NewMockClient(now func() time.Time) *MockClient {
	if now == nil {
		now = time.Now
	}
	return &MockClient{now: now}
}

func (m *MockClient) stamp(days int) string {
	return m.now().UTC().AddDate(0, 0, days).Format(time.RFC3339)
}

func (m *MockClient) CalculateProration(ctx context.Context, subscriptionID, newPriceID string) (*model.ProrationPreview, error) {
	return &model.ProrationPreview{
		Success:        true,
		SubscriptionID: subscriptionID,
		CurrentPlan:    model.ProrationPlan{PriceID: "price_basic_monthly", Amount: 2900, Currency: "usd", Interval: "month"},
		NewPlan:        model.ProrationPlan{PriceID: newPriceID, Amount: 7900, Currency: "usd", Interval: "month"},
		Timing: model.ProrationTiming{
			CurrentPeriodStart: m.stamp(-15),
			CurrentPeriodEnd:   m.stamp(15),
			ProrationDate:      m.stamp(0),
			DaysRemaining:      15,
			TotalDays:          30,
		},
		Proration: model.ProrationAmounts{
			ProratedAmount:  2500,
			UnusedAmount:    1450,
			NewPlanAmount:   3950,
			Difference:      2500,
			IsUpgrade:       true,
			ImmediateCharge: 2500,
		},
	}, nil
}

func (m *MockClient) ApplyPlanChange(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	return &model.PlanChangeResult{
		Success:       true,
		Message:       fmt.Sprintf("Successfully changed plan from price_basic_monthly to %s", newPriceID),
		EffectiveDate: m.stamp(0),
		Proration: &model.ProrationAmounts{
			ProratedAmount: 2500, UnusedAmount: 1450, NewPlanAmount: 3950,
			Difference: 2500, IsUpgrade: true, ImmediateCharge: 2500,
		},
	}, nil
}

func (m *MockClient) SchedulePlanChangeAtPeriodEnd(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	return &model.PlanChangeResult{
		Success:       true,
		Message:       "Plan change scheduled for next billing period",
		EffectiveDate: m.stamp(15),
	}, nil
}

func (m *MockClient) GetChurnReport(ctx context.Context) (*model.ChurnReport, error) {
	at, _ := m.GetAtRiskCustomers(ctx, 50, DefaultAtRiskLimit)
	return &model.ChurnReport{
		TotalCustomers:       248,
		AtRiskCount:          31,
		AvgRiskScore:         34.6,
		EstimatedRevenueLoss: 9270,
		Breakdown:            model.RiskBreakdown{Low: 171, Medium: 46, High: 24, Critical: 7},
		TopRisks:             at,
	}, nil
}

func (m *MockClient) GetAtRiskCustomers(ctx context.Context, minRiskScore float64, limit int) ([]model.ChurnAnalysis, error) {
	all := []model.ChurnAnalysis{
		{
			CustomerID: "cus_harbor", RiskScore: 86, RiskLevel: model.RiskCritical,
			ContributingFactors: []model.ChurnFactor{
				{Factor: "payment_failures", Score: 90, Weight: 0.35},
				{Factor: "low_engagement", Score: 80, Weight: 0.25},
			},
			Recommendations: []model.ChurnRecommendation{
				{Action: "update_payment_method", Priority: "high", Description: "Ask the customer to update their card"},
			},
			LTV: 1188, AccountAge: 118, ActiveSubscriptions: 1, LastActivity: m.stamp(-21),
		},
		{
			CustomerID: "cus_summit", RiskScore: 64, RiskLevel: model.RiskHigh,
			ContributingFactors: []model.ChurnFactor{{Factor: "declining_usage", Score: 70, Weight: 0.3}},
			Recommendations: []model.ChurnRecommendation{
				{Action: "schedule_checkin", Priority: "medium", Description: "Book a success call"},
			},
			LTV: 1196, AccountAge: 125, ActiveSubscriptions: 1, LastActivity: m.stamp(-9),
		},
		{
			CustomerID: "cus_lakeside", RiskScore: 42, RiskLevel: model.RiskMedium,
			ContributingFactors: []model.ChurnFactor{{Factor: "support_tickets", Score: 45, Weight: 0.2}},
			LTV: 495, AccountAge: 150, ActiveSubscriptions: 1, LastActivity: m.stamp(-3),
		},
	}
	if limit <= 0 {
		limit = DefaultAtRiskLimit
	}
	out := []model.ChurnAnalysis{}
	for _, a := range all {
		if a.RiskScore >= minRiskScore && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockClient) ExecuteRetention(ctx context.Context, customerID string) (*model.RetentionResult, error) {
	return &model.RetentionResult{
		CustomerID: customerID,
		Actions:    []string{"send_retention_email", "offer_discount"},
	}, nil
}

func (m *MockClient) GetActiveTrials(ctx context.Context) ([]model.Trial, error) {
	return []model.Trial{
		{SubscriptionID: "sub-t08", CustomerID: "cus_oakridge", Status: "trialing", TrialStart: m.stamp(-12), TrialEnd: m.stamp(2),
			DaysRemaining: 2, Plan: "pro", Amount: 29900, Currency: "usd", HasPaymentMethod: false},
		{SubscriptionID: "sub-t11", CustomerID: "cus_willow", Status: "trialing", TrialStart: m.stamp(-2), TrialEnd: m.stamp(12),
			DaysRemaining: 12, Plan: "basic", Amount: 9900, Currency: "usd", HasPaymentMethod: true},
	}, nil
}

func (m *MockClient) GetExpiringTrials(ctx context.Context, daysThreshold int) ([]model.Trial, error) {
	if daysThreshold <= 0 {
		daysThreshold = DefaultExpiringThreshold
	}
	active, _ := m.GetActiveTrials(ctx)
	out := []model.Trial{}
	for _, t := range active {
		if t.DaysRemaining <= daysThreshold {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockClient) GetTrialMetrics(ctx context.Context) (*model.TrialMetrics, error) {
	return &model.TrialMetrics{
		TotalTrials:      40,
		ActiveTrials:     2,
		ConvertedTrials:  26,
		CanceledTrials:   12,
		ConversionRate:   65,
		AvgTrialDuration: 13.2,
		Revenue:          7774,
		Period:           model.Period{Start: m.stamp(-90), End: m.stamp(0)},
	}, nil
}

func (m *MockClient) ExtendTrial(ctx context.Context, subscriptionID string, additionalDays int) (*model.TrialActionResult, error) {
	return &model.TrialActionResult{
		Success:        true,
		SubscriptionID: subscriptionID,
		NewTrialEnd:    m.stamp(additionalDays),
		Message:        fmt.Sprintf("Trial extended by %d days", additionalDays),
	}, nil
}

func (m *MockClient) ConvertTrial(ctx context.Context, subscriptionID string) (*model.TrialActionResult, error) {
	return &model.TrialActionResult{Success: true, SubscriptionID: subscriptionID, Message: "Trial converted to paid subscription"}, nil
}

func (m *MockClient) CancelTrial(ctx context.Context, subscriptionID, reason string) (*model.TrialActionResult, error) {
	return &model.TrialActionResult{Success: true, SubscriptionID: subscriptionID, Message: "Trial canceled: " + reason}, nil
}

func (m *MockClient) SendTrialReminders(ctx context.Context) (*model.TrialActionResult, error) {
	return &model.TrialActionResult{Success: true, RemindersSent: 1}, nil
}

func (m *MockClient) GetRevenueDashboard(ctx context.Context) (*model.RevenueDashboard, error) {
	growth := make([]model.RevenueGrowth, 0, 6)
	start := m.now().UTC().AddDate(0, -5, 0)
	for i := 0; i < 6; i++ {
		total := 3800 + float64(i)*260
		growth = append(growth, model.RevenueGrowth{
			Month:               start.AddDate(0, i, 0).Format("2006-01"),
			TotalRevenue:        total,
			SubscriptionRevenue: total - 150,
			OneTimeRevenue:      150,
		})
	}
	return &model.RevenueDashboard{
		Summary: model.RevenueSummary{
			MRR: 5100, ARR: 61200, AverageRevenuePerAccount: 510,
			MonthOverMonthGrowth: 5.4, TotalRevenueLast12Months: 52300, ActiveSubscriptions: 10,
		},
		Growth: growth,
		ChurnImpact: model.ChurnImpact{
			LostMRR: 299, LostARR: 3588, ChurnedSubscriptions: 1, RecoveredRevenue: 99,
			CancellationReasons: map[string]int{"too_expensive": 1},
		},
		Breakdown: model.RevenueBreakdown{
			ByPlan:     map[string]float64{"basic": 297, "pro": 1196, "enterprise": 1998},
			ByInterval: map[string]float64{"monthly": 3491, "yearly": 0, "other": 0},
		},
	}, nil
}

func (m *MockClient) GetCustomerHealthDashboard(ctx context.Context) (*model.CustomerHealthDashboard, error) {
	return &model.CustomerHealthDashboard{
		Health: model.HealthSummary{
			TotalCustomers: 12, HealthyCustomers: 8, OverallHealthPercentage: 66.7,
			AtRiskCount: 3, HighEngagementCount: 5, AverageHealthScore: 71.5,
		},
		Segments: model.CustomerSegments{Champions: 3, Loyalists: 4, AtRisk: 3, NewCustomers: 2, Hibernating: 0},
	}, nil
}

func (m *MockClient) GetReportTemplates(ctx context.Context) ([]model.ReportTemplate, error) {
	return []model.ReportTemplate{
		{
			ID: "active-subscriptions", Name: "Active Subscriptions", Description: "Every active subscription with plan and amount",
			Spec: model.ReportSpec{
				Type: "subscriptions", Columns: []string{"customer", "status", "plan", "amount"},
				Filters: map[string]any{"status": "active"}, Sort: model.ReportSort{Field: "created", Order: "desc"}, Limit: 1000,
			},
		},
	}, nil
}

func (m *MockClient) BuildReport(ctx context.Context, spec model.ReportSpec) (*model.ReportData, error) {
	return &model.ReportData{
		Columns:     spec.Columns,
		Rows:        []map[string]any{},
		TotalRows:   0,
		GeneratedAt: m.stamp(0),
	}, nil
}

func (m *MockClient) GetExportHistory(ctx context.Context) ([]model.ExportFile, error) {
	return []model.ExportFile{
		{Filename: "subscriptions-" + m.now().UTC().Format("2006-01-02") + ".csv", Type: "subscriptions-csv", Size: 18432,
			CreatedAt: m.stamp(0), URL: "/api/export-center/download/subscriptions.csv"},
	}, nil
}

func (m *MockClient) CreateExport(ctx context.Context, exportType string, months int) (*model.ExportResult, error) {
	if !isExportType(exportType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExport, exportType)
	}
	return &model.ExportResult{
		Success:  true,
		Filename: fmt.Sprintf("%s-report-%s", exportType, m.now().UTC().Format("2006-01-02")),
		Message:  "Export completed (mock)",
	}, nil
}

func (m *MockClient) GetCohortAnalysis(ctx context.Context, cohortBy, metric string) (*model.CohortAnalysis, error) {
	out := &model.CohortAnalysis{
		Success: true,
		Cohorts: []model.Cohort{{
			Cohort:     m.now().UTC().AddDate(0, -3, 0).Format("2006-01"),
			CohortDate: m.now().UTC().AddDate(0, -3, 0).Format("2006-01") + "-01T00:00:00Z",
			Size:       150,
			Retention: []model.CohortPeriod{
				{Period: 0, ActiveUsers: 150, RetentionRate: 100},
				{Period: 1, ActiveUsers: 120, RetentionRate: 80},
				{Period: 2, ActiveUsers: 105, RetentionRate: 70},
				{Period: 3, ActiveUsers: 90, RetentionRate: 60},
			},
			Revenue:          7500,
			AvgLifetimeValue: 50,
		}},
	}
	out.Summary.TotalCohorts = 12
	out.Summary.TotalUsers = 1800
	out.Summary.AvgRetentionRate = 65.5
	return out, nil
}

func (m *MockClient) GetFunnel(ctx context.Context, steps []string) (*model.Funnel, error) {
	out := &model.Funnel{
		Success: true,
		Funnel: []model.FunnelStep{
			{Step: 1, Name: "Visit", Count: 10000, ConversionRate: 100, DropoffRate: 0},
			{Step: 2, Name: "Sign Up", Count: 2000, ConversionRate: 20, DropoffRate: 80},
			{Step: 3, Name: "First Payment", Count: 1200, ConversionRate: 60, DropoffRate: 40},
		},
	}
	out.Summary.TotalSteps = 3
	out.Summary.OverallConversion = 12
	return out, nil
}

func (m *MockClient) Health(ctx context.Context) error { return nil }
