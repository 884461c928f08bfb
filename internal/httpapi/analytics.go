package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/payment"
)

func (h *handler) churnReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetChurnReport(c.Request.Context()))
}

func (h *handler) atRiskCustomers(c *gin.Context) {
	minScore, err := strconv.ParseFloat(c.DefaultQuery("minRiskScore", "0"), 64)
	if err != nil || minScore < 0 {
		badRequest(c, "minRiskScore must be a non-negative number")
		return
	}
	limit := intQuery(c, "limit", payment.DefaultAtRiskLimit)
	c.JSON(http.StatusOK, h.Analytics.GetAtRiskCustomers(c.Request.Context(), minScore, limit))
}

func (h *handler) executeRetention(c *gin.Context) {
	res, err := h.Analytics.ExecuteRetention(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) activeTrials(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetActiveTrials(c.Request.Context()))
}

func (h *handler) expiringTrials(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetExpiringTrials(c.Request.Context(), intQuery(c, "days", 7)))
}

func (h *handler) trialMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetTrialMetrics(c.Request.Context()))
}

func (h *handler) extendTrial(c *gin.Context) {
	var req struct {
		AdditionalDays int `json:"additionalDays"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.Analytics.ExtendTrial(c.Request.Context(), c.Param("id"), req.AdditionalDays)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) convertTrial(c *gin.Context) {
	res, err := h.Analytics.ConvertTrial(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// cancelTrial takes an optional {"reason": "..."} body.
func (h *handler) cancelTrial(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	res, err := h.Analytics.CancelTrial(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) sendTrialReminders(c *gin.Context) {
	res, err := h.Analytics.SendTrialReminders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) cohortAnalysis(c *gin.Context) {
	res := h.Analytics.GetCohortAnalysis(c.Request.Context(),
		c.DefaultQuery("cohortBy", "month"), c.DefaultQuery("metric", "retention"))
	c.JSON(http.StatusOK, res)
}

// funnel reads ?steps=Visit,Sign Up,First Payment; empty uses the default steps.
func (h *handler) funnel(c *gin.Context) {
	var steps []string
	for _, s := range strings.Split(c.Query("steps"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	c.JSON(http.StatusOK, h.Analytics.GetFunnel(c.Request.Context(), steps))
}

func (h *handler) revenueDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetRevenueDashboard(c.Request.Context()))
}

func (h *handler) customerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetCustomerHealthDashboard(c.Request.Context()))
}

func (h *handler) reportTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetReportTemplates(c.Request.Context()))
}

func (h *handler) buildReport(c *gin.Context) {
	var spec model.ReportSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	report, err := h.Analytics.BuildReport(c.Request.Context(), spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) exportHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.GetExportHistory(c.Request.Context()))
}

func (h *handler) createExport(c *gin.Context) {
	res, err := h.Analytics.CreateExport(c.Request.Context(), c.Param("type"), intQuery(c, "months", 12))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
