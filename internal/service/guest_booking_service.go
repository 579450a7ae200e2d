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

type guestBookingRepository interface {
	List(ctx context.Context, filter models.GuestBookingFilter) ([]models.GuestBooking, int, error)
	FindByID(ctx context.Context, id string) (*models.GuestBooking, error)
	Create(ctx context.Context, booking *models.GuestBooking) error
	UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error)
}

// CreateGuestBookingRequest registers a visitor's pending session booking.
type CreateGuestBookingRequest struct {
	GuestName  string `json:"guest_name" validate:"required"`
	GuestEmail string `json:"guest_email" validate:"required,email"`
	Topic      string `json:"topic" validate:"required"`
}

// ConfirmGuestBookingRequest carries the schedule assigned on confirmation.
type ConfirmGuestBookingRequest struct {
	Date            string `json:"date"`
	TimeSlot        string `json:"time_slot"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingLink     string `json:"meeting_link"`
}

// GuestBookingService orchestrates the guest session workflow.
type GuestBookingService struct {
	repo       guestBookingRepository
	effects    effectSink
	audits     auditRecorder
	cache      cacheInvalidator
	metrics    *MetricsService
	priceCents int64
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewGuestBookingService constructs GuestBookingService.
func NewGuestBookingService(repo guestBookingRepository, effects effectSink, audits auditRecorder, cache cacheInvalidator, metrics *MetricsService, priceCents int64, validate *validator.Validate, logger *zap.Logger) *GuestBookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuestBookingService{
		repo:       repo,
		effects:    effects,
		audits:     audits,
		cache:      cache,
		metrics:    metrics,
		priceCents: priceCents,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns guest bookings with pagination metadata.
func (s *GuestBookingService) List(ctx context.Context, filter models.GuestBookingFilter) ([]models.GuestBooking, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list guest bookings")
	}
	return bookings, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Create registers a pending guest booking at the configured session price.
func (s *GuestBookingService) Create(ctx context.Context, req CreateGuestBookingRequest) (*models.GuestBooking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guest booking payload")
	}
	booking := &models.GuestBooking{
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		Topic:       req.Topic,
		AmountCents: s.priceCents,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guest booking")
	}
	return booking, nil
}

// Confirm schedules and confirms a pending guest booking.
func (s *GuestBookingService) Confirm(ctx context.Context, id string, req ConfirmGuestBookingRequest, actor Actor) (*models.GuestBooking, error) {
	payload := workflow.Payload{
		Date:            req.Date,
		TimeSlot:        req.TimeSlot,
		DurationMinutes: req.DurationMinutes,
		MeetingLink:     req.MeetingLink,
	}
	return s.decide(ctx, id, workflow.ActionConfirm, payload, actor)
}

// Cancel cancels a pending or confirmed guest booking. A pending payment is
// closed alongside; a cleared one stays paid for the refund flow.
func (s *GuestBookingService) Cancel(ctx context.Context, id string, req RejectRequest, actor Actor) (*models.GuestBooking, error) {
	return s.decide(ctx, id, workflow.ActionCancel, workflow.Payload{Reason: req.Reason}, actor)
}

// Complete closes a confirmed guest booking. Refused while the payment has
// not cleared.
func (s *GuestBookingService) Complete(ctx context.Context, id string, actor Actor) (*models.GuestBooking, error) {
	return s.decide(ctx, id, workflow.ActionComplete, workflow.Payload{}, actor)
}

// UpdatePayment applies a payment-axis action to a guest booking.
func (s *GuestBookingService) UpdatePayment(ctx context.Context, id string, action workflow.PaymentAction, actor Actor) (*models.GuestBooking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayment := booking.Payment
	next, effects, err := workflow.TransitionPayment(booking.Snapshot(), action)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateFromSnapshot(ctx, next, booking.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	booking.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), "ok")

	key := next.ID + ":payment:" + string(next.Payment)
	if err := s.effects.Dispatch(ctx, key, next, effects, booking.GuestName, booking.GuestEmail); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("guest_booking_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionPaymentUpdate, id, string(oldPayment), string(next.Payment))
	s.invalidateDashboard(ctx)
	return booking, nil
}

func (s *GuestBookingService) decide(ctx context.Context, id string, action workflow.Action, payload workflow.Payload, actor Actor) (*models.GuestBooking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := booking.Status
	next, effects, err := workflow.Transition(booking.Snapshot(), action, payload, s.now())
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateFromSnapshot(ctx, next, booking.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	booking.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindGuestBooking, string(action), "ok")

	key := next.ID + ":" + string(next.Status)
	if err := s.effects.Dispatch(ctx, key, next, effects, booking.GuestName, booking.GuestEmail); err != nil {
		s.logger.Error("effect dispatch failed", zap.String("guest_booking_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, models.AuditActionGuestBookingDecision, id, string(oldStatus), string(next.Status))
	s.invalidateDashboard(ctx)
	return booking, nil
}

func (s *GuestBookingService) load(ctx context.Context, id string) (*models.GuestBooking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guest booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guest booking")
	}
	return booking, nil
}

func (s *GuestBookingService) recordAudit(ctx context.Context, actor Actor, action, id, from, to string) {
	if s.audits == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": from})
	newValues, _ := json.Marshal(map[string]string{"status": to})
	log := &models.AuditLog{
		Action:     action,
		Resource:   "guest_bookings",
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

func (s *GuestBookingService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
