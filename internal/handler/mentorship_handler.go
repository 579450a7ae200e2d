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

// MentorshipHandler exposes mentorship request and booking endpoints.
type MentorshipHandler struct {
	mentorships *service.MentorshipService
}

// NewMentorshipHandler constructs MentorshipHandler.
func NewMentorshipHandler(mentorships *service.MentorshipService) *MentorshipHandler {
	return &MentorshipHandler{mentorships: mentorships}
}

// paymentActionRequest carries the payment-axis action name.
type paymentActionRequest struct {
	Action workflow.PaymentAction `json:"action" binding:"required"`
}

// approvalResult bundles the approved request with the booking it spawned.
type approvalResult struct {
	Request *models.MentorshipRequest `json:"request"`
	Booking *models.MentorshipBooking `json:"booking,omitempty"`
}

func mentorshipFilterFromQuery(c *gin.Context) models.MentorshipFilter {
	var filter models.MentorshipFilter
	filter.MenteeID = c.Query("menteeId")
	filter.MentorID = c.Query("mentorId")
	filter.Status = workflow.Status(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// ListRequests godoc
// @Summary List mentorship requests
// @Tags Mentorships
// @Produce json
// @Param menteeId query string false "Filter by mentee"
// @Param mentorId query string false "Filter by mentor"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentorships/requests [get]
func (h *MentorshipHandler) ListRequests(c *gin.Context) {
	requests, pagination, err := h.mentorships.ListRequests(c.Request.Context(), mentorshipFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// CreateRequest godoc
// @Summary Register a mentorship request
// @Tags Mentorships
// @Accept json
// @Produce json
// @Param payload body service.CreateMentorshipRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /mentorships/requests [post]
func (h *MentorshipHandler) CreateRequest(c *gin.Context) {
	var req service.CreateMentorshipRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.mentorships.CreateRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ApproveRequest godoc
// @Summary Approve a mentorship request and spawn its booking
// @Tags Mentorships
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ApproveMentorshipRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /mentorships/requests/{id}/approve [put]
func (h *MentorshipHandler) ApproveRequest(c *gin.Context) {
	var req service.ApproveMentorshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, booking, err := h.mentorships.ApproveRequest(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approvalResult{Request: request, Booking: booking}, nil, actionsMeta(workflow.KindMentorshipRequest, request.Status))
}

// RejectRequest godoc
// @Summary Reject a mentorship request
// @Tags Mentorships
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.RejectRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /mentorships/requests/{id}/reject [put]
func (h *MentorshipHandler) RejectRequest(c *gin.Context) {
	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.mentorships.RejectRequest(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil, actionsMeta(workflow.KindMentorshipRequest, request.Status))
}

// ListBookings godoc
// @Summary List mentorship bookings
// @Tags Mentorships
// @Produce json
// @Param menteeId query string false "Filter by mentee"
// @Param mentorId query string false "Filter by mentor"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentorships/bookings [get]
func (h *MentorshipHandler) ListBookings(c *gin.Context) {
	bookings, pagination, err := h.mentorships.ListBookings(c.Request.Context(), mentorshipFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// CompleteBooking godoc
// @Summary Mark a paid booking as completed
// @Tags Mentorships
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /mentorships/bookings/{id}/complete [put]
func (h *MentorshipHandler) CompleteBooking(c *gin.Context) {
	booking, err := h.mentorships.CompleteBooking(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindMentorshipBooking, booking.Status))
}

// CancelBooking godoc
// @Summary Cancel a confirmed booking
// @Tags Mentorships
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.RejectRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /mentorships/bookings/{id}/cancel [put]
func (h *MentorshipHandler) CancelBooking(c *gin.Context) {
	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.mentorships.CancelBooking(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindMentorshipBooking, booking.Status))
}

// UpdateBookingPayment godoc
// @Summary Apply a payment action to a booking
// @Tags Mentorships
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body paymentActionRequest true "Payment action"
// @Success 200 {object} response.Envelope
// @Router /mentorships/bookings/{id}/payment [put]
func (h *MentorshipHandler) UpdateBookingPayment(c *gin.Context) {
	var req paymentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.mentorships.UpdateBookingPayment(c.Request.Context(), c.Param("id"), req.Action, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil, actionsMeta(workflow.KindMentorshipBooking, booking.Status))
}
