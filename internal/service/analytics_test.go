package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/payment"
)

// downPaymentServer answers every request with 503 and counts the calls.
func downPaymentServer(t *testing.T) (*payment.HTTPClient, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "maintenance"})
	}))
	t.Cleanup(srv.Close)
	return payment.NewHTTPClient(srv.URL+"/", "test-key", srv.Client()), &calls
}

func TestAnalytics_ReadsFallBackWhenPaymentServerIsDown(t *testing.T) {
	client, calls := downPaymentServer(t)
	svc := NewAnalyticsService(client, testClock)
	ctx := context.Background()

	cohorts := svc.GetCohortRetention(ctx)
	stub, _ := StubCohortProvider{}.Cohorts(ctx)
	assert.Equal(t, stub, cohorts)

	assert.Len(t, svc.GetFunnel(ctx, nil).Funnel, 3)
	assert.Equal(t, 248, svc.GetChurnReport(ctx).TotalCustomers)
	assert.Len(t, svc.GetAtRiskCustomers(ctx, 60, 0), 2)
	assert.Len(t, svc.GetActiveTrials(ctx), 2)
	assert.NotNil(t, svc.GetTrialMetrics(ctx))
	assert.Equal(t, 5100.0, svc.GetRevenueDashboard(ctx).Summary.MRR)
	assert.Equal(t, 12, svc.GetCustomerHealthDashboard(ctx).Health.TotalCustomers)
	assert.Len(t, svc.GetReportTemplates(ctx), 1)
	assert.Len(t, svc.GetExportHistory(ctx), 1)
	assert.True(t, svc.GetCohortAnalysis(ctx, "month", "retention").Success)

	assert.Greater(t, atomic.LoadInt32(calls), int32(0))
}

func TestAnalytics_WritesSurfaceErrors(t *testing.T) {
	client, _ := downPaymentServer(t)
	svc := NewAnalyticsService(client, testClock)
	ctx := context.Background()

	var apiErr *payment.APIError
	_, err := svc.ExecuteRetention(ctx, "cus_1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	_, err = svc.CalculateProration(ctx, "sub_1", "price_pro")
	assert.ErrorAs(t, err, &apiErr)
	_, err = svc.ApplyPlanChange(ctx, "sub_1", "price_pro")
	assert.ErrorAs(t, err, &apiErr)
	_, err = svc.ExtendTrial(ctx, "sub_1", 7)
	assert.ErrorAs(t, err, &apiErr)
	_, err = svc.CreateExport(ctx, "revenue-excel", 0)
	assert.ErrorAs(t, err, &apiErr)
}

func TestAnalytics_Validation(t *testing.T) {
	svc := NewAnalyticsService(payment.NewMockClient(testClock), testClock)
	ctx := context.Background()

	_, err := svc.ExecuteRetention(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CalculateProration(ctx, "sub_1", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SchedulePlanChangeAtPeriodEnd(ctx, "", "price_pro")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ExtendTrial(ctx, "sub_1", 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ConvertTrial(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CancelTrial(ctx, "", "price")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.BuildReport(ctx, model.ReportSpec{Type: "subscriptions"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.BuildReport(ctx, model.ReportSpec{Columns: []string{"plan"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalytics_MockClientPassThrough(t *testing.T) {
	svc := NewAnalyticsService(payment.NewMockClient(testClock), testClock)
	ctx := context.Background()

	cohorts := svc.GetCohortRetention(ctx)
	require.Len(t, cohorts, 1)
	assert.Equal(t, "2026-07", cohorts[0].Cohort)
	assert.Equal(t, []float64{100, 80, 70, 60}, cohorts[0].Retention)

	preview, err := svc.CalculateProration(ctx, "sub_1", "price_pro")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", preview.SubscriptionID)
	assert.True(t, preview.Proration.IsUpgrade)

	report, err := svc.BuildReport(ctx, model.ReportSpec{Type: "subscriptions", Columns: []string{"plan"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"plan"}, report.Columns)

	res, err := svc.CreateExport(ctx, "revenue-excel", 0)
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = svc.CreateExport(ctx, "nope", 3)
	assert.ErrorIs(t, err, payment.ErrUnknownExport)

	reminders, err := svc.SendTrialReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reminders.RemindersSent)
}

func TestDashboardCohortsStayOnStubTable(t *testing.T) {
	ctx := context.Background()
	analytics := NewAnalyticsService(payment.NewMockClient(testClock), testClock)
	audit := NewAuditRecorder(seededStore(), 4)
	defer audit.Close()

	data, err := NewOwnerService(seededStore(), testClock).WithAudit(audit).GetDashboardData(ctx)
	require.NoError(t, err)
	stub, _ := StubCohortProvider{}.Cohorts(ctx)
	assert.Equal(t, stub, data.CohortRetention)

	live := analytics.GetCohortRetention(ctx)
	require.Len(t, live, 1)
	assert.Equal(t, "2026-07", live[0].Cohort)
	assert.NotEqual(t, stub, live)
}
