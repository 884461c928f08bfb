package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teresa-solution/owner-console/internal/model"
)

var tenantStatuses = map[string]bool{
	model.TenantActive:    true,
	model.TenantSuspended: true,
	model.TenantTrial:     true,
	model.TenantCancelled: true,
}

// listTenants accepts an optional ?status= narrowing to one lifecycle state.
func (h *handler) listTenants(c *gin.Context) {
	filter := ""
	if status := c.Query("status"); status != "" {
		if !tenantStatuses[status] {
			badRequest(c, fmt.Sprintf("unknown status %q", status))
			return
		}
		filter = fmt.Sprintf(`status = "%s"`, status)
	}
	c.JSON(http.StatusOK, h.Tenants.GetTenants(c.Request.Context(), filter))
}

func (h *handler) tenantStats(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"stats": h.Tenants.GetTenantStats(ctx),
		"mrr":   h.Tenants.CalculateMRR(ctx),
	})
}

func (h *handler) getTenant(c *gin.Context) {
	t, err := h.Tenants.GetTenantByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) createTenant(c *gin.Context) {
	var t model.Tenant
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	created, err := h.Tenants.CreateTenant(c.Request.Context(), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) updateTenant(c *gin.Context) {
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, err := h.Tenants.UpdateTenant(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) deleteTenant(c *gin.Context) {
	if err := h.Tenants.DeleteTenant(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) suspendTenant(c *gin.Context) {
	t, err := h.Tenants.SuspendTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) activateTenant(c *gin.Context) {
	t, err := h.Tenants.ActivateTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// tenantUsage returns the usage history, live counts and remaining headroom.
func (h *handler) tenantUsage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	current, err := h.Tenants.GetCurrentUsage(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	canAddStudent, err := h.Tenants.CanAddStudent(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	canAddTeacher, err := h.Tenants.CanAddTeacher(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current":       current,
		"history":       h.Tenants.GetTenantUsage(ctx, id, c.Query("start"), c.Query("end")),
		"canAddStudent": canAddStudent,
		"canAddTeacher": canAddTeacher,
	})
}

func (h *handler) tenantSubscription(c *gin.Context) {
	sub := h.Billing.GetTenantSubscription(c.Request.Context(), c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *handler) tenantInvoices(c *gin.Context) {
	c.JSON(http.StatusOK, h.Billing.GetInvoices(c.Request.Context(), c.Param("id")))
}
