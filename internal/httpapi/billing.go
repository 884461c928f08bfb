package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teresa-solution/owner-console/internal/model"
)

func (h *handler) billingStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Billing.GetBillingStats(c.Request.Context()))
}

func (h *handler) revenueHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.Billing.GetRevenueHistory(c.Request.Context()))
}

func (h *handler) listInvoices(c *gin.Context) {
	c.JSON(http.StatusOK, h.Billing.GetInvoices(c.Request.Context(), c.Query("tenant")))
}

func (h *handler) createInvoice(c *gin.Context) {
	var inv model.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	created, err := h.Billing.CreateInvoice(c.Request.Context(), inv)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) markInvoicePaid(c *gin.Context) {
	inv, err := h.Billing.MarkInvoicePaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *handler) listSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Billing.GetSubscriptions(c.Request.Context()))
}

// cancelSubscription cancels immediately unless ?atPeriodEnd=true.
func (h *handler) cancelSubscription(c *gin.Context) {
	sub, err := h.Billing.CancelSubscription(c.Request.Context(), c.Param("id"), c.Query("atPeriodEnd") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type planChangeRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
}

func bindPlanChange(c *gin.Context) (planChangeRequest, bool) {
	var req planChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return req, false
	}
	req.SubscriptionID = strings.TrimSpace(req.SubscriptionID)
	req.NewPriceID = strings.TrimSpace(req.NewPriceID)
	return req, true
}

func (h *handler) calculateProration(c *gin.Context) {
	req, ok := bindPlanChange(c)
	if !ok {
		return
	}
	preview, err := h.Analytics.CalculateProration(c.Request.Context(), req.SubscriptionID, req.NewPriceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *handler) applyPlanChange(c *gin.Context) {
	req, ok := bindPlanChange(c)
	if !ok {
		return
	}
	res, err := h.Analytics.ApplyPlanChange(c.Request.Context(), req.SubscriptionID, req.NewPriceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) schedulePlanChange(c *gin.Context) {
	req, ok := bindPlanChange(c)
	if !ok {
		return
	}
	res, err := h.Analytics.SchedulePlanChangeAtPeriodEnd(c.Request.Context(), req.SubscriptionID, req.NewPriceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
