package payment

import (
	"context"
	"net/http"

	"github.com/teresa-solution/owner-console/internal/model"
)

type planChangeRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
}

// CalculateProration previews the cost of moving a subscription to newPriceID.
func (c *HTTPClient) CalculateProration(ctx context.Context, subscriptionID, newPriceID string) (*model.ProrationPreview, error) {
	var out model.ProrationPreview
	err := c.do(ctx, http.MethodPost, "/api/billing/proration/calculate", authAPIKey,
		planChangeRequest{SubscriptionID: subscriptionID, NewPriceID: newPriceID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyPlanChange switches the plan immediately with proration.
func (c *HTTPClient) ApplyPlanChange(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	var out model.PlanChangeResult
	err := c.do(ctx, http.MethodPost, "/api/billing/proration/apply", authAPIKey,
		planChangeRequest{SubscriptionID: subscriptionID, NewPriceID: newPriceID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SchedulePlanChangeAtPeriodEnd defers the plan change to the next period.
func (c *HTTPClient) SchedulePlanChangeAtPeriodEnd(ctx context.Context, subscriptionID, newPriceID string) (*model.PlanChangeResult, error) {
	var out model.PlanChangeResult
	err := c.do(ctx, http.MethodPost, "/api/billing/proration/schedule", authAPIKey,
		planChangeRequest{SubscriptionID: subscriptionID, NewPriceID: newPriceID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
