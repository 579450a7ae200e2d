package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/pkg/response"
)

// DashboardHandler exposes the admin dashboard summary and its drill-downs.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AuditTrail godoc
// @Summary Recent decision history for a resource
// @Tags Dashboard
// @Produce json
// @Param resource query string true "Resource kind (enrollments, mentorship_requests, mentorship_bookings, guest_bookings, courses)"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *DashboardHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.dashboard.AuditTrail(c.Request.Context(), c.Query("resource"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// RevenueLedger godoc
// @Summary Ledger entries for one entity
// @Tags Dashboard
// @Produce json
// @Param id path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /revenue/{id}/ledger [get]
func (h *DashboardHandler) RevenueLedger(c *gin.Context) {
	entries, err := h.dashboard.RevenueLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
