package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teresa-solution/owner-console/internal/model"
)

const dashboardNotLoaded = "dashboard not loaded"

// getDashboard serves the controller's last state. The first request, or one
// with ?refresh=true, reloads the aggregate before answering. With nothing
// loaded after the refresh it answers 503.
func (h *handler) getDashboard(c *gin.Context) {
	st := h.Dashboard.State()
	if st.Data == nil || c.Query("refresh") == "true" {
		st = h.Dashboard.Refresh(c.Request.Context())
	}
	if st.Data == nil {
		if st.Error == "" {
			st.Error = dashboardNotLoaded
		}
		c.JSON(http.StatusServiceUnavailable, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) getSystemHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.Owner.GetSystemHealth(c.Request.Context()))
}

func (h *handler) getAuditLogs(c *gin.Context) {
	c.JSON(http.StatusOK, h.Owner.GetAuditLogs(c.Request.Context(), intQuery(c, "page", 1), intQuery(c, "perPage", 50)))
}

func (h *handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Owner.GetSystemSettings(c.Request.Context()))
}

func (h *handler) updateSetting(c *gin.Context) {
	var req struct {
		Value any `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	setting, err := h.Owner.UpdateSystemSetting(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *handler) getPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.Owner.GetSubscriptionPlans(c.Request.Context()))
}

func (h *handler) createPlan(c *gin.Context) {
	var plan model.SubscriptionPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	created, err := h.Owner.CreateSubscriptionPlan(c.Request.Context(), plan)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) updatePlan(c *gin.Context) {
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	plan, err := h.Owner.UpdateSubscriptionPlan(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *handler) monitoringStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.Stats(c.Request.Context()))
}

func (h *handler) listAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.ListAlerts(c.Request.Context(), intQuery(c, "limit", 20)))
}

func (h *handler) createAlert(c *gin.Context) {
	var req struct {
		Severity  string `json:"severity"`
		Message   string `json:"message"`
		ActionURL string `json:"action_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	alert, err := h.Monitor.CreateAlert(c.Request.Context(), req.Severity, req.Message, req.ActionURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *handler) listEvents(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.ListEvents(c.Request.Context(), c.Query("severity"), intQuery(c, "limit", 50)))
}

func (h *handler) rateLimitInfo(c *gin.Context) {
	limitType := c.Param("type")
	if _, ok := h.Limiter.Limits()[limitType]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown limit type %q", limitType)})
		return
	}
	c.JSON(http.StatusOK, h.Limiter.GetRateLimitInfo(c.Param("id"), limitType))
}
