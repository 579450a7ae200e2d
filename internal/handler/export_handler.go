package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/internal/workflow"
	"github.com/edulink/admin-api/pkg/response"
)

// ExportHandler streams CSV and PDF exports as file downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Enrollments godoc
// @Summary Export enrollments
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param status query string false "Filter by status"
// @Param courseId query string false "Filter by course"
// @Success 200 {file} file
// @Router /exports/enrollments [get]
func (h *ExportHandler) Enrollments(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.CourseID = c.Query("courseId")
	filter.Status = workflow.Status(strings.ToUpper(c.Query("status")))

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	data, contentType, err := h.exports.Enrollments(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, "enrollments", format, contentType, data)
}

// GuestBookings godoc
// @Summary Export guest bookings
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param status query string false "Filter by status"
// @Param payment query string false "Filter by payment status"
// @Success 200 {file} file
// @Router /exports/guest-bookings [get]
func (h *ExportHandler) GuestBookings(c *gin.Context) {
	var filter models.GuestBookingFilter
	filter.Status = workflow.Status(strings.ToUpper(c.Query("status")))
	filter.Payment = workflow.PaymentStatus(strings.ToUpper(c.Query("payment")))

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	data, contentType, err := h.exports.GuestBookings(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, "guest-bookings", format, contentType, data)
}

func serveDownload(c *gin.Context, name string, format service.ExportFormat, contentType string, data []byte) {
	ext := "csv"
	if format == service.FormatPDF {
		ext = "pdf"
	}
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
