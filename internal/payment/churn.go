package payment

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/teresa-solution/owner-console/internal/model"
)

// DefaultAtRiskLimit is the page size used by the churn dashboard.
const DefaultAtRiskLimit = 50

func (c *HTTPClient) GetChurnReport(ctx context.Context) (*model.ChurnReport, error) {
	var out model.ChurnReport
	if err := c.do(ctx, http.MethodGet, "/api/churn/report", authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetAtRiskCustomers(ctx context.Context, minRiskScore float64, limit int) ([]model.ChurnAnalysis, error) {
	if limit <= 0 {
		limit = DefaultAtRiskLimit
	}
	q := url.Values{}
	q.Set("minRiskScore", strconv.FormatFloat(minRiskScore, 'f', -1, 64))
	q.Set("limit", strconv.Itoa(limit))

	var out struct {
		Customers []model.ChurnAnalysis `json:"customers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/churn/at-risk?"+q.Encode(), authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

func (c *HTTPClient) ExecuteRetention(ctx context.Context, customerID string) (*model.RetentionResult, error) {
	var out model.RetentionResult
	path := "/api/churn/retention/" + url.PathEscape(customerID)
	if err := c.do(ctx, http.MethodPost, path, authAPIKey, nil, &out); err != nil {
		return nil, err
	}
	if out.CustomerID == "" {
		out.CustomerID = customerID
	}
	return &out, nil
}
