package payment

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/teresa-solution/owner-console/internal/model"
)

// DefaultExpiringThreshold is the look-ahead used for expiring trials.
const DefaultExpiringThreshold = 7

type trialList struct {
	Trials []model.Trial `json:"trials"`
}

func (c *HTTPClient) GetActiveTrials(ctx context.Context) ([]model.Trial, error) {
	var out trialList
	if err := c.do(ctx, http.MethodGet, "/api/trial/active", authBearer, nil, &out); err != nil {
		return nil, err
	}
	return out.Trials, nil
}

func (c *HTTPClient) GetExpiringTrials(ctx context.Context, daysThreshold int) ([]model.Trial, error) {
	if daysThreshold <= 0 {
		daysThreshold = DefaultExpiringThreshold
	}
	var out trialList
	path := "/api/trial/expiring?daysThreshold=" + strconv.Itoa(daysThreshold)
	if err := c.do(ctx, http.MethodGet, path, authBearer, nil, &out); err != nil {
		return nil, err
	}
	return out.Trials, nil
}

func (c *HTTPClient) GetTrialMetrics(ctx context.Context) (*model.TrialMetrics, error) {
	var out struct {
		Metrics model.TrialMetrics `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/trial/metrics", authBearer, nil, &out); err != nil {
		return nil, err
	}
	return &out.Metrics, nil
}

func (c *HTTPClient) ExtendTrial(ctx context.Context, subscriptionID string, additionalDays int) (*model.TrialActionResult, error) {
	body := map[string]int{"additionalDays": additionalDays}
	return c.trialAction(ctx, "/api/trial/extend/"+url.PathEscape(subscriptionID), body)
}

func (c *HTTPClient) ConvertTrial(ctx context.Context, subscriptionID string) (*model.TrialActionResult, error) {
	return c.trialAction(ctx, "/api/trial/convert/"+url.PathEscape(subscriptionID), nil)
}

func (c *HTTPClient) CancelTrial(ctx context.Context, subscriptionID, reason string) (*model.TrialActionResult, error) {
	body := map[string]string{"reason": reason}
	return c.trialAction(ctx, "/api/trial/cancel/"+url.PathEscape(subscriptionID), body)
}

func (c *HTTPClient) SendTrialReminders(ctx context.Context) (*model.TrialActionResult, error) {
	return c.trialAction(ctx, "/api/trial/send-reminders", nil)
}

func (c *HTTPClient) trialAction(ctx context.Context, path string, body any) (*model.TrialActionResult, error) {
	var out model.TrialActionResult
	if err := c.do(ctx, http.MethodPost, path, authBearer, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
