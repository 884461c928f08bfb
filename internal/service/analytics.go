package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/payment"
)

const analyticsSvc = "analytics"

// DefaultFunnelSteps is used when a funnel is requested without steps.
var DefaultFunnelSteps = []string{"Visit", "Sign Up", "First Payment"}

// AnalyticsService fronts the payment server's analytics, churn, trial,
// proration and reporting endpoints. Reads fall back to the mock client's
// data; writes return their errors.
type AnalyticsService struct {
	client   payment.Client
	fallback payment.Client
}

func NewAnalyticsService(client payment.Client, clock Clock) *AnalyticsService {
	return &AnalyticsService{
		client:   client,
		fallback: payment.NewMockClient(clock.now),
	}
}

// read calls live and serves the mock client's answer when live fails.
func read[T any](ctx context.Context, section string, live, mock func(context.Context) (T, error)) T {
	v, err := live(ctx)
	if err == nil {
		return v
	}
	degrade(err, analyticsSvc, section)
	v, _ = mock(context.Background())
	return v
}

// GetCohortRetention returns signup cohorts as retention percentages per
// period. When the analytics API is unavailable the fixed stub table is
// served.
func (s *AnalyticsService) GetCohortRetention(ctx context.Context) []model.CohortData {
	analysis, err := s.client.GetCohortAnalysis(ctx, "month", "retention")
	if err != nil {
		degrade(err, analyticsSvc, "cohorts")
		stub, _ := StubCohortProvider{}.Cohorts(ctx)
		return stub
	}
	out := make([]model.CohortData, 0, len(analysis.Cohorts))
	for _, c := range analysis.Cohorts {
		retention := make([]float64, 0, len(c.Retention))
		for _, p := range c.Retention {
			retention = append(retention, p.RetentionRate)
		}
		out = append(out, model.CohortData{Cohort: c.Cohort, Retention: retention})
	}
	return out
}

func (s *AnalyticsService) GetCohortAnalysis(ctx context.Context, cohortBy, metric string) *model.CohortAnalysis {
	call := func(c payment.Client) func(context.Context) (*model.CohortAnalysis, error) {
		return func(ctx context.Context) (*model.CohortAnalysis, error) {
			return c.GetCohortAnalysis(ctx, cohortBy, metric)
		}
	}
	return read(ctx, "cohort_analysis", call(s.client), call(s.fallback))
}

func (s *AnalyticsService) GetFunnel(ctx context.Context, steps []string) *model.Funnel {
	if len(steps) == 0 {
		steps = DefaultFunnelSteps
	}
	call := func(c payment.Client) func(context.Context) (*model.Funnel, error) {
		return func(ctx context.Context) (*model.Funnel, error) {
			return c.GetFunnel(ctx, steps)
		}
	}
	return read(ctx, "funnel", call(s.client), call(s.fallback))
}

func (s *AnalyticsService) GetChurnReport(ctx context.Context) *model.ChurnReport {
	return read(ctx, "churn_report", s.client.GetChurnReport, s.fallback.GetChurnReport)
}

func (s *AnalyticsService) GetAtRiskCustomers(ctx context.Context, minRiskScore float64, limit int) []model.ChurnAnalysis {
	call := func(c payment.Client) func(context.Context) ([]model.ChurnAnalysis, error) {
		return func(ctx context.Context) ([]model.ChurnAnalysis, error) {
			return c.GetAtRiskCustomers(ctx, minRiskScore, limit)
		}
	}
	return read(ctx, "at_risk", call(s.client), call(s.fallback))
}

// ExecuteRetention triggers the payment server's retention actions.
func (s *AnalyticsService) ExecuteRetention(ctx context.Context, customerID string) (*model.RetentionResult, error) {
	if customerID == "" {
		return nil, validationError("customer id is required")
	}
	return s.client.ExecuteRetention(ctx, customerID)
}

func (s *AnalyticsService) GetActiveTrials(ctx context.Context) []model.Trial {
	return read(ctx, "active_trials", s.client.GetActiveTrials, s.fallback.GetActiveTrials)
}

func (s *AnalyticsService) GetExpiringTrials(ctx context.Context, daysThreshold int) []model.Trial {
	call := func(c payment.Client) func(context.Context) ([]model.Trial, error) {
		return func(ctx context.Context) ([]model.Trial, error) {
			return c.GetExpiringTrials(ctx, daysThreshold)
		}
	}
	return read(ctx, "expiring_trials", call(s.client), call(s.fallback))
}

func (s *AnalyticsService) GetTrialMetrics(ctx context.Context) *model.TrialMetrics {
	return read(ctx, "trial_metrics", s.client.GetTrialMetrics, s.fallback.GetTrialMetrics)
}

func (s *AnalyticsService) ExtendTrial(ctx context.Context, subscriptionID string, additionalDays int) (*model.TrialActionResult, error) {
	if subscriptionID == "" {
		return nil, validationError("subscription id is required")
	}
	if additionalDays <= 0 {
		return nil, validationError("additional days must be positive")
	}
	return s.client.ExtendTrial(ctx, subscriptionID, additionalDays)
}

func (s *AnalyticsService) ConvertTrial(ctx context.Context, subscriptionID string) (*model.TrialActionResult, error) {
	if subscriptionID == "" {
		return nil, validationError("subscription id is required")
	}
	return s.client.ConvertTrial(ctx, subscriptionID)
}

func (s *AnalyticsService) CancelTrial(ctx context.Context, subscriptionID, reason string) (*model.TrialActionResult, error) {
	if subscriptionID == "" {
		return nil, validationError("subscription id is required")
	}
	return s.client.CancelTrial(ctx, subscriptionID, reason)
}

func (s *AnalyticsService) SendTrialReminders(ctx context.Context) (*model.TrialActionResult, error) {
	return s.client.SendTrialReminders(ctx)
}

func validatePlanChange(subscriptionID, newPriceID string) error {
	if subscriptionID == "" || newPriceID == "" {
		return validationError("subscription id and new price id are required")
	}
	return nil
}

// CalculateProration previews a plan change. The math is done by the
// payment server; errors are returned so a stale preview is never shown.
func (s *AnalyticsService) CalculateProration(ctx context.Context, subscriptionID, newPriceID string) (*model.ProrationPreview, error) {
	if err := validatePlanChange(subscriptionID, newPriceID); err != nil {
		return nil, err
	}
	return s.client.CalculateProration(ctx, subscriptionID, newPriceID)
}

func (s *AnalyticsService) ApplyPlanChange(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	if err := validatePlanChange(subscriptionID, newPriceID); err != nil {
		return nil, err
	}
	return s.client.ApplyPlanChange(ctx, subscriptionID, newPriceID)
}

func (s *AnalyticsService) SchedulePlanChangeAtPeriodEnd(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	if err := validatePlanChange(subscriptionID, newPriceID); err != nil {
		return nil, err
	}
	return s.client.SchedulePlanChangeAtPeriodEnd(ctx, subscriptionID, newPriceID)
}

func (s *AnalyticsService) GetRevenueDashboard(ctx context.Context) *model.RevenueDashboard {
	return read(ctx, "revenue_dashboard", s.client.GetRevenueDashboard, s.fallback.GetRevenueDashboard)
}

func (s *AnalyticsService) GetCustomerHealthDashboard(ctx context.Context) *model.CustomerHealthDashboard {
	return read(ctx, "customer_health", s.client.GetCustomerHealthDashboard, s.fallback.GetCustomerHealthDashboard)
}

func (s *AnalyticsService) GetReportTemplates(ctx context.Context) []model.ReportTemplate {
	return read(ctx, "report_templates", s.client.GetReportTemplates, s.fallback.GetReportTemplates)
}

// BuildReport asks the payment server to run a report.
func (s *AnalyticsService) BuildReport(ctx context.Context, spec model.ReportSpec) (*model.ReportData, error) {
	if strings.TrimSpace(spec.Type) == "" {
		return nil, validationError("report type is required")
	}
	if len(spec.Columns) == 0 {
		return nil, validationError("report needs at least one column")
	}
	return s.client.BuildReport(ctx, spec)
}

func (s *AnalyticsService) GetExportHistory(ctx context.Context) []model.ExportFile {
	return read(ctx, "export_history", s.client.GetExportHistory, s.fallback.GetExportHistory)
}

// CreateExport generates an export covering the trailing months.
func (s *AnalyticsService) CreateExport(ctx context.Context, exportType string, months int) (*model.ExportResult, error) {
	if months <= 0 {
		months = 12
	}
	res, err := s.client.CreateExport(ctx, exportType, months)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", exportType, err)
	}
	return res, nil
}
