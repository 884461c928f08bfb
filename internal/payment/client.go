// Package payment is the client for the external payment and reporting server.
// All billing math (proration, churn scoring, trial conversion) happens on the
// server; this package only shapes requests and responses.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teresa-solution/owner-console/internal/model"
)

// Client is implemented by HTTPClient (live) and MockClient (mock mode).
type Client interface {
	CalculateProration(ctx context.Context, subscriptionID, newPriceID string) (*model.ProrationPreview, error)
	ApplyPlanChange(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error)
	SchedulePlanChangeAtPeriodEnd(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error)

	GetChurnReport(ctx context.Context) (*model.ChurnReport, error)
	GetAtRiskCustomers(ctx context.Context, minRiskScore float64, limit int) ([]model.ChurnAnalysis, error)
	ExecuteRetention(ctx context.Context, customerID string) (*model.RetentionResult, error)

	GetActiveTrials(ctx context.Context) ([]model.Trial, error)
	GetExpiringTrials(ctx context.Context, daysThreshold int) ([]model.Trial, error)
	GetTrialMetrics(ctx context.Context) (*model.TrialMetrics, error)
	ExtendTrial(ctx context.Context, subscriptionID string, additionalDays int) (*model.TrialActionResult, error)
	ConvertTrial(ctx context.Context, subscriptionID string) (*model.TrialActionResult, error)
	CancelTrial(ctx context.Context, subscriptionID, reason string) (*model.TrialActionResult, error)
	SendTrialReminders(ctx context.Context) (*model.TrialActionResult, error)

	GetRevenueDashboard(ctx context.Context) (*model.RevenueDashboard, error)
	GetCustomerHealthDashboard(ctx context.Context) (*model.CustomerHealthDashboard, error)
	GetReportTemplates(ctx context.Context) ([]model.ReportTemplate, error)
	BuildReport(ctx context.Context, spec model.ReportSpec) (*model.ReportData, error)
	GetExportHistory(ctx context.Context) ([]model.ExportFile, error)
	CreateExport(ctx context.Context, exportType string, months int) (*model.ExportResult, error)
	GetCohortAnalysis(ctx context.Context, cohortBy, metric string) (*model.CohortAnalysis, error)
	GetFunnel(ctx context.Context, steps []string) (*model.Funnel, error)

	Health(ctx context.Context) error
}

// APIError is a non-2xx response from the payment server.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment: %s returned %d: %s", e.Endpoint, e.Status, e.Message)
}

// ErrUnknownExport is returned for an export type the server does not offer.
var ErrUnknownExport = errors.New("payment: unknown export type")

type auth int

const (
	authAPIKey auth = iota // x-api-key header
	authBearer             // Authorization: Bearer
)

// HTTPClient calls the payment server over REST with JSON bodies.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, a auth, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch a {
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	default:
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &payload) == nil {
			if payload.Error != "" {
				msg = payload.Error
			} else if payload.Message != "" {
				msg = payload.Message
			}
		}
		return &APIError{Status: resp.StatusCode, Endpoint: path, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payment: decode %s: %w", path, err)
	}
	return nil
}

// Health calls the server health endpoint.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", authAPIKey, nil, nil)
}
