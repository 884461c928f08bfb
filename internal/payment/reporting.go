package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/teresa-solution/owner-console/internal/model"
)

// Export types offered by the export center.
var ExportTypes = []string{
	"subscriptions-csv",
	"revenue-excel",
	"customer-health-excel",
	"churn-pdf",
	"trial-json",
	"all-data",
}

func isExportType(t string) bool {
	for _, e := range ExportTypes {
		if e == t {
			return true
		}
	}
	return false
}

func (c *HTTPClient) GetRevenueDashboard(ctx context.Context) (*model.RevenueDashboard, error) {
	var out model.RevenueDashboard
	if err := c.do(ctx, http.MethodGet, "/api/revenue/dashboard", authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetCustomerHealthDashboard(ctx context.Context) (*model.CustomerHealthDashboard, error) {
	var out model.CustomerHealthDashboard
	if err := c.do(ctx, http.MethodGet, "/api/customer-health/dashboard", authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetReportTemplates(ctx context.Context) ([]model.ReportTemplate, error) {
	var out struct {
		Templates []model.ReportTemplate `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/reports/templates", authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

func (c *HTTPClient) BuildReport(ctx context.Context, spec model.ReportSpec) (*model.ReportData, error) {
	var out model.ReportData
	if err := c.do(ctx, http.MethodPost, "/api/reports/build", authAPIKey, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetExportHistory(ctx context.Context) ([]model.ExportFile, error) {
	var out []model.ExportFile
	if err := c.do(ctx, http.MethodGet, "/api/export-center/history", authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateExport(ctx context.Context, exportType string, months int) (*model.ExportResult, error) {
	if !isExportType(exportType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExport, exportType)
	}
	var out model.ExportResult
	body := map[string]int{"months": months}
	if err := c.do(ctx, http.MethodPost, "/api/export-center/"+exportType, authAPIKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetCohortAnalysis(ctx context.Context, cohortBy, metric string) (*model.CohortAnalysis, error) {
	if cohortBy == "" {
		cohortBy = "month"
	}
	if metric == "" {
		metric = "retention"
	}
	q := url.Values{}
	q.Set("cohortBy", cohortBy)
	q.Set("metric", metric)

	var out model.CohortAnalysis
	if err := c.do(ctx, http.MethodGet, "/api/analytics/cohorts?"+q.Encode(), authBearer, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetFunnel(ctx context.Context, steps []string) (*model.Funnel, error) {
	var out model.Funnel
	body := map[string][]string{"steps": steps}
	if err := c.do(ctx, http.MethodPost, "/api/analytics/funnel", authBearer, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
