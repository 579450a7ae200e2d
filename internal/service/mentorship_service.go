package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type mentorshipRepository interface {
	ListRequests(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipRequest, int, error)
	FindRequestByID(ctx context.Context, id string) (*models.MentorshipRequest, error)
	CreateRequest(ctx context.Context, request *models.MentorshipRequest) error
	UpdateRequestFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error)
	ListBookings(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipBooking, int, error)
	FindBookingByID(ctx context.Context, id string) (*models.MentorshipBooking, error)
	CreateBooking(ctx context.Context, booking *models.MentorshipBooking) error
	UpdateBookingFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error)
}

// CreateMentorshipRequestRequest registers a mentee's pending request.
type CreateMentorshipRequestRequest struct {
	MenteeID string `json:"mentee_id" validate:"required"`
	MentorID string `json:"mentor_id" validate:"required"`
	Topic    string `json:"topic" validate:"required"`
	Message  string `json:"message"`
}

// ApproveMentorshipRequest carries the schedule the approval requires. Date
// and time slot are mandatory; the engine refuses the approval without them.
type ApproveMentorshipRequest struct {
	Date            string `json:"date"`
	TimeSlot        string `json:"time_slot"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingLink     string `json:"meeting_link"`
}

// MentorshipPricing carries the booking defaults applied on approval.
type MentorshipPricing struct {
	SessionPriceCents      int64
	DefaultDurationMinutes int
}

// MentorshipService orchestrates mentorship requests and the bookings spawned
// from approvals.
type MentorshipService struct {
	repo      mentorshipRepository
	effects   effectSink
	audits    auditRecorder
	cache     cacheInvalidator
	metrics   *MetricsService
	pricing   MentorshipPricing
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMentorshipService constructs MentorshipService.
func NewMentorshipService(repo mentorshipRepository, effects effectSink, audits auditRecorder, cache cacheInvalidator, metrics *MetricsService, pricing MentorshipPricing, validate *validator.Validate, logger *zap.Logger) *MentorshipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pricing.DefaultDurationMinutes <= 0 {
		pricing.DefaultDurationMinutes = 60
	}
	return &MentorshipService{
		repo:      repo,
		effects:   effects,
		audits:    audits,
		cache:     cache,
		metrics:   metrics,
		pricing:   pricing,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListRequests returns mentorship requests with pagination metadata.
func (s *MentorshipService) ListRequests(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipRequest, *models.Pagination, error) {
	requests, total, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorship requests")
	}
	return requests, paginationFor(filter.Page, filter.PageSize, total), nil
}

// CreateRequest registers a pending mentorship request.
func (s *MentorshipService) CreateRequest(ctx context.Context, req CreateMentorshipRequestRequest) (*models.MentorshipRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentorship request payload")
	}
	request := &models.MentorshipRequest{
		MenteeID: req.MenteeID,
		MentorID: req.MentorID,
		Topic:    req.Topic,
		Message:  req.Message,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentorship request")
	}
	return request, nil
}

// ApproveRequest schedules and approves a pending request, then spawns the
// confirmed booking the mentee pays for.
func (s *MentorshipService) ApproveRequest(ctx context.Context, id string, req ApproveMentorshipRequest, actor Actor) (*models.MentorshipRequest, *models.MentorshipBooking, error) {
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.pricing.DefaultDurationMinutes
	}
	payload := workflow.Payload{
		Date:            req.Date,
		TimeSlot:        req.TimeSlot,
		DurationMinutes: duration,
		MeetingLink:     req.MeetingLink,
	}

	oldStatus := request.Status
	next, effects, err := workflow.Transition(request.Snapshot(), workflow.ActionApprove, payload, s.now())
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionApprove), appErrors.FromError(err).Code)
		return nil, nil, err
	}

	version, err := s.repo.UpdateRequestFromSnapshot(ctx, next, request.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionApprove), appErrors.FromError(err).Code)
		return nil, nil, err
	}
	next.Version = version
	request.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionApprove), "ok")

	booking := &models.MentorshipBooking{
		RequestID:       request.ID,
		MenteeID:        request.MenteeID,
		MentorID:        request.MentorID,
		ScheduledDate:   request.ScheduledDate,
		TimeSlot:        request.TimeSlot,
		DurationMinutes: request.DurationMinutes,
		MeetingLink:     request.MeetingLink,
		AmountCents:     s.pricing.SessionPriceCents,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		// The approval is already persisted; surface the failure rather than
		// pretending the whole decision failed.
		return request, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "approved but failed to create booking")
	}

	key := next.ID + ":" + string(next.Status)
	if err := s.effects.Dispatch(ctx, key, next, effects, "", ""); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("request_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionMentorshipDecision, "mentorship_requests", id, string(oldStatus), string(next.Status))
	s.invalidateDashboard(ctx)
	return request, booking, nil
}

// RejectRequest declines a pending request with the operator's reason.
func (s *MentorshipService) RejectRequest(ctx context.Context, id string, req RejectRequest, actor Actor) (*models.MentorshipRequest, error) {
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := request.Status
	next, effects, err := workflow.Transition(request.Snapshot(), workflow.ActionReject, workflow.Payload{Reason: req.Reason}, s.now())
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionReject), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateRequestFromSnapshot(ctx, next, request.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionReject), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	request.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindMentorshipRequest, string(workflow.ActionReject), "ok")

	key := next.ID + ":" + string(next.Status)
	if err := s.effects.Dispatch(ctx, key, next, effects, "", ""); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("request_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionMentorshipDecision, "mentorship_requests", id, string(oldStatus), string(next.Status))
	s.invalidateDashboard(ctx)
	return request, nil
}

// ListBookings returns mentorship bookings with pagination metadata.
func (s *MentorshipService) ListBookings(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipBooking, *models.Pagination, error) {
	bookings, total, err := s.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorship bookings")
	}
	return bookings, paginationFor(filter.Page, filter.PageSize, total), nil
}

// CompleteBooking closes a confirmed booking after the session took place.
// Refused while the payment has not cleared.
func (s *MentorshipService) CompleteBooking(ctx context.Context, id string, actor Actor) (*models.MentorshipBooking, error) {
	return s.decideBooking(ctx, id, workflow.ActionComplete, workflow.Payload{}, actor)
}

// CancelBooking cancels a confirmed booking with the operator's reason.
func (s *MentorshipService) CancelBooking(ctx context.Context, id string, req RejectRequest, actor Actor) (*models.MentorshipBooking, error) {
	return s.decideBooking(ctx, id, workflow.ActionCancel, workflow.Payload{Reason: req.Reason}, actor)
}

// UpdateBookingPayment applies a payment-axis action (markPaid, markFailed,
// refund) to a booking.
func (s *MentorshipService) UpdateBookingPayment(ctx context.Context, id string, action workflow.PaymentAction, actor Actor) (*models.MentorshipBooking, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayment := booking.Payment
	next, effects, err := workflow.TransitionPayment(booking.Snapshot(), action)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateBookingFromSnapshot(ctx, next, booking.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	booking.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), "ok")

	key := next.ID + ":payment:" + string(next.Payment)
	if err := s.effects.Dispatch(ctx, key, next, effects, "", ""); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("booking_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionPaymentUpdate, "mentorship_bookings", id, string(oldPayment), string(next.Payment))
	s.invalidateDashboard(ctx)
	return booking, nil
}

func (s *MentorshipService) decideBooking(ctx context.Context, id string, action workflow.Action, payload workflow.Payload, actor Actor) (*models.MentorshipBooking, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := booking.Status
	next, effects, err := workflow.Transition(booking.Snapshot(), action, payload, s.now())
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateBookingFromSnapshot(ctx, next, booking.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	booking.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindMentorshipBooking, string(action), "ok")

	key := next.ID + ":" + string(next.Status)
	if err := s.effects.Dispatch(ctx, key, next, effects, "", ""); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("booking_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionMentorshipDecision, "mentorship_bookings", id, string(oldStatus), string(next.Status))
	s.invalidateDashboard(ctx)
	return booking, nil
}

func (s *MentorshipService) loadRequest(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	request, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship request")
	}
	return request, nil
}

func (s *MentorshipService) loadBooking(ctx context.Context, id string) (*models.MentorshipBooking, error) {
	booking, err := s.repo.FindBookingByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship booking")
	}
	return booking, nil
}

func (s *MentorshipService) recordAudit(ctx context.Context, actor Actor, action, resource, id, from, to string) {
	if s.audits == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": from})
	newValues, _ := json.Marshal(map[string]string{"status": to})
	log := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := s.audits.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.Error(err))
	}
}

func (s *MentorshipService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
