package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edulink/admin-api/internal/models"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type dashboardAnalytics interface {
	PendingCounts(ctx context.Context) (enrollments, mentorshipRequests, guestBookings int, err error)
	AverageQuizScore(ctx context.Context) (float64, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const dashboardSummaryKey = "dashboard:summary"

// DashboardService composes the admin landing page summary: pending queues,
// net recognized revenue and the catalog-wide quiz average. It also serves
// the decision audit trail and per-entity ledger drill-downs.
type DashboardService struct {
	analytics dashboardAnalytics
	revenue   revenueLedgerReader
	audits    auditTrailReader
	cache     dashboardCache
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

type revenueLedgerReader interface {
	TotalCents(ctx context.Context) (int64, error)
	ListByEntity(ctx context.Context, entityID string) ([]models.RevenueEntry, error)
}

type auditTrailReader interface {
	ListAuditLogs(ctx context.Context, resource string, limit int) ([]models.AuditLog, error)
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(analytics dashboardAnalytics, revenue revenueLedgerReader, audits auditTrailReader, cache dashboardCache, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		analytics: analytics,
		revenue:   revenue,
		audits:    audits,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the dashboard numbers, served from cache when fresh. The
// quiz average is zero when no graded submissions exist, not an error.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, dashboardSummaryKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	pendingEnrollments, pendingRequests, pendingGuest, err := s.analytics.PendingCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending counts")
	}

	revenueTotal, err := s.revenue.TotalCents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revenue total")
	}

	quizAverage, err := s.analytics.AverageQuizScore(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz average")
	}

	summary := &models.DashboardSummary{
		PendingEnrollments:        pendingEnrollments,
		PendingMentorshipRequests: pendingRequests,
		PendingGuestBookings:      pendingGuest,
		RevenueTotalCents:         revenueTotal,
		AverageQuizScore:          quizAverage,
		GeneratedAt:               s.now(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardSummaryKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// AuditTrail returns the most recent decision history for a resource kind
// (e.g. "enrollments"). Empty resource lists nothing; the repository clamps
// the limit.
func (s *DashboardService) AuditTrail(ctx context.Context, resource string, limit int) ([]models.AuditLog, error) {
	if resource == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource is required")
	}
	logs, err := s.audits.ListAuditLogs(ctx, resource, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// RevenueLedger returns the append-only ledger rows for one entity, oldest
// first, so an operator can see an accrual and its refund reversal side by
// side.
func (s *DashboardService) RevenueLedger(ctx context.Context, entityID string) ([]models.RevenueEntry, error) {
	entries, err := s.revenue.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list revenue entries")
	}
	return entries, nil
}
