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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error)
}

type effectSink interface {
	Dispatch(ctx context.Context, key string, snap workflow.Snapshot, effects []workflow.Effect, guestName, guestEmail string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Actor identifies the operator performing a decision, for the audit trail.
type Actor struct {
	UserID    string
	IP        string
	UserAgent string
}

// CreateEnrollmentRequest registers a student's pending enrollment.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// RejectRequest carries the operator's reason for a reject or cancel.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// EnrollmentService orchestrates the enrollment approval workflow around the
// pure transition engine.
type EnrollmentService struct {
	repo      enrollmentRepository
	effects   effectSink
	audits    auditRecorder
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, effects effectSink, audits auditRecorder, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		effects:   effects,
		audits:    audits,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a pending enrollment.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Approve moves a pending enrollment to approved, dispatching the
// credentials email and decision notification on success.
func (s *EnrollmentService) Approve(ctx context.Context, id string, actor Actor) (*models.Enrollment, error) {
	return s.decide(ctx, id, workflow.ActionApprove, workflow.Payload{}, actor)
}

// Reject moves a pending enrollment to rejected with the operator's reason.
func (s *EnrollmentService) Reject(ctx context.Context, id string, req RejectRequest, actor Actor) (*models.Enrollment, error) {
	return s.decide(ctx, id, workflow.ActionReject, workflow.Payload{Reason: req.Reason}, actor)
}

// Complete closes an approved enrollment.
func (s *EnrollmentService) Complete(ctx context.Context, id string, actor Actor) (*models.Enrollment, error) {
	return s.decide(ctx, id, workflow.ActionComplete, workflow.Payload{}, actor)
}

func (s *EnrollmentService) decide(ctx context.Context, id string, action workflow.Action, payload workflow.Payload, actor Actor) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	oldStatus := enrollment.Status
	next, effects, err := workflow.Transition(enrollment.Snapshot(), action, payload, s.now())
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindEnrollment, string(action), appErrors.FromError(err).Code)
		return nil, err
	}

	version, err := s.repo.UpdateFromSnapshot(ctx, next, enrollment.Version)
	if err != nil {
		s.metrics.ObserveTransition(workflow.KindEnrollment, string(action), appErrors.FromError(err).Code)
		return nil, err
	}
	next.Version = version
	enrollment.ApplySnapshot(next)
	s.metrics.ObserveTransition(workflow.KindEnrollment, string(action), "ok")

	key := next.ID + ":" + string(next.Status)
	if err := s.effects.Dispatch(ctx, key, next, effects, "", ""); err != nil {
		// The transition is persisted; a dispatch failure must not roll it
		// back. The dedup key stays unclaimed so a retry can pick it up.
		s.logger.Error("effect dispatch failed", zap.String("enrollment_id", id), zap.Error(err))
	}

	s.recordAudit(ctx, actor, id, oldStatus, next.Status)
	s.invalidateDashboard(ctx)
	return enrollment, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actor Actor, id string, from, to workflow.Status) {
	if s.audits == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
	newValues, _ := json.Marshal(map[string]string{"status": string(to)})
	userID := actor.UserID
	log := &models.AuditLog{
		Action:     models.AuditActionEnrollmentDecision,
		Resource:   "enrollments",
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audits.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.Error(err))
	}
}

func (s *EnrollmentService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
