package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/models"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type mockDashboardAnalytics struct {
	enrollments int
	requests    int
	guests      int
	quizAverage float64
}

func (m *mockDashboardAnalytics) PendingCounts(ctx context.Context) (int, int, int, error) {
	return m.enrollments, m.requests, m.guests, nil
}

func (m *mockDashboardAnalytics) AverageQuizScore(ctx context.Context) (float64, error) {
	return m.quizAverage, nil
}

type mockRevenueTotal struct {
	total   int64
	entries []models.RevenueEntry
}

func (m *mockRevenueTotal) TotalCents(ctx context.Context) (int64, error) {
	return m.total, nil
}

func (m *mockRevenueTotal) ListByEntity(ctx context.Context, entityID string) ([]models.RevenueEntry, error) {
	var matched []models.RevenueEntry
	for _, e := range m.entries {
		if e.EntityID == entityID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

type mockAuditTrail struct {
	logs []models.AuditLog
}

func (m *mockAuditTrail) ListAuditLogs(ctx context.Context, resource string, limit int) ([]models.AuditLog, error) {
	var matched []models.AuditLog
	for _, l := range m.logs {
		if l.Resource == resource {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

type mapCache struct {
	values map[string][]byte
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func TestDashboardServiceSummary(t *testing.T) {
	analytics := &mockDashboardAnalytics{enrollments: 3, requests: 2, guests: 1, quizAverage: 87.5}
	svc := NewDashboardService(analytics, &mockRevenueTotal{total: 14800}, &mockAuditTrail{}, &mapCache{}, nil, nil, time.Minute)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PendingEnrollments)
	assert.Equal(t, 2, summary.PendingMentorshipRequests)
	assert.Equal(t, 1, summary.PendingGuestBookings)
	assert.Equal(t, int64(14800), summary.RevenueTotalCents)
	assert.Equal(t, 87.5, summary.AverageQuizScore)
	assert.False(t, summary.GeneratedAt.IsZero())

	// Second read is served from cache, not recomputed.
	analytics.enrollments = 99
	cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, cached.PendingEnrollments)
}

func TestDashboardServiceEmptyQuizSetIsZero(t *testing.T) {
	analytics := &mockDashboardAnalytics{}
	svc := NewDashboardService(analytics, &mockRevenueTotal{}, &mockAuditTrail{}, nil, nil, nil, 0)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	// No graded submissions renders as zero, not an error.
	assert.Zero(t, summary.AverageQuizScore)
	assert.Zero(t, summary.RevenueTotalCents)
}

func TestDashboardServiceAuditTrail(t *testing.T) {
	audits := &mockAuditTrail{logs: []models.AuditLog{
		{ID: "log-1", Action: models.AuditActionEnrollmentDecision, Resource: "enrollments"},
		{ID: "log-2", Action: models.AuditActionCourseRetag, Resource: "courses"},
	}}
	svc := NewDashboardService(&mockDashboardAnalytics{}, &mockRevenueTotal{}, audits, nil, nil, nil, 0)

	logs, err := svc.AuditTrail(context.Background(), "enrollments", 50)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].ID)

	_, err = svc.AuditTrail(context.Background(), "", 50)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDashboardServiceRevenueLedger(t *testing.T) {
	revenue := &mockRevenueTotal{entries: []models.RevenueEntry{
		{ID: "rev-1", EntityID: "bk-1", TransitionKey: "bk-1:COMPLETED", AmountCents: 9900},
		{ID: "rev-2", EntityID: "bk-1", TransitionKey: "bk-1:payment:REFUNDED", AmountCents: -9900},
		{ID: "rev-3", EntityID: "bk-2", TransitionKey: "bk-2:COMPLETED", AmountCents: 4900},
	}}
	svc := NewDashboardService(&mockDashboardAnalytics{}, revenue, &mockAuditTrail{}, nil, nil, nil, 0)

	entries, err := svc.RevenueLedger(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(9900), entries[0].AmountCents)
	assert.Equal(t, int64(-9900), entries[1].AmountCents)
}
