package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
	"github.com/edulink/admin-api/pkg/response"
)

// GuestBookingHandler exposes guest booking endpoints.
type GuestBookingHandler struct {
	bookings *service.GuestBookingService
}

// NewGuestBookingHandler constructs GuestBookingHandler.
func NewGuestBookingHandler(bookings *service.GuestBookingService) *GuestBookingHandler {
	return &GuestBookingHandler{bookings: bookings}
}

// List godoc
// @Summary List guest bookings
// @Tags GuestBookings
// @Produce json
// @Param guestEmail query string false "Filter by guest email"
// @Param status query string false "Filter by status"
// @Param payment query string false "Filter by payment status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /guest-bookings [get]
func (h *GuestBookingHandler) List(c *gin.Context) {
	var filter models.GuestBookingFilter
	filter.GuestEmail = c.Query("guestEmail")
	filter.Status = workflow.Status(strings.ToUpper(c.Query("status")))
	filter.Payment = workflow.PaymentStatus(strings.ToUpper(c.Query("payment")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Create godoc
// @Summary Register a guest booking
// @Tags GuestBookings
// @Accept json
// @Produce json
// @Param payload body service.CreateGuestBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /guest-bookings [post]
func (h *GuestBookingHandler) Create(c *gin.Context) {
	var req service.CreateGuestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Confirm godoc
// @Summary Confirm a pending guest booking with a schedule
// @Tags GuestBookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.ConfirmGuestBookingRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /guest-bookings/{id}/confirm [put]
func (h *GuestBookingHandler) Confirm(c *gin.Context) {
	var req service.ConfirmGuestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Confirm(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindGuestBooking, booking.Status))
}

// Cancel godoc
// @Summary Cancel a guest booking
// @Tags GuestBookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.RejectRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /guest-bookings/{id}/cancel [put]
func (h *GuestBookingHandler) Cancel(c *gin.Context) {
	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindGuestBooking, booking.Status))
}

// Complete godoc
// @Summary Mark a paid guest booking as completed
// @Tags GuestBookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /guest-bookings/{id}/complete [put]
func (h *GuestBookingHandler) Complete(c *gin.Context) {
	booking, err := h.bookings.Complete(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindGuestBooking, booking.Status))
}

// UpdatePayment godoc
// @Summary Apply a payment action to a guest booking
// @Tags GuestBookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body paymentActionRequest true "Payment action"
// @Success 200 {object} response.Envelope
// @Router /guest-bookings/{id}/payment [put]
func (h *GuestBookingHandler) UpdatePayment(c *gin.Context) {
	var req paymentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.UpdatePayment(c.Request.Context(), c.Param("id"), req.Action, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindGuestBooking, booking.Status))
}
