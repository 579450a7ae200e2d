package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
)

type dashboardAnalyticsStub struct{}

func (dashboardAnalyticsStub) PendingCounts(ctx context.Context) (int, int, int, error) {
	return 0, 0, 0, nil
}

func (dashboardAnalyticsStub) AverageQuizScore(ctx context.Context) (float64, error) {
	return 0, nil
}

type dashboardRevenueStub struct {
	entries []models.RevenueEntry
}

func (s *dashboardRevenueStub) TotalCents(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *dashboardRevenueStub) ListByEntity(ctx context.Context, entityID string) ([]models.RevenueEntry, error) {
	var out []models.RevenueEntry
	for _, e := range s.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type dashboardAuditStub struct {
	logs []models.AuditLog
}

func (s *dashboardAuditStub) ListAuditLogs(ctx context.Context, resource string, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, l := range s.logs {
		if l.Resource == resource {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newDashboardTestHandler(revenue *dashboardRevenueStub, audits *dashboardAuditStub) *DashboardHandler {
	svc := service.NewDashboardService(dashboardAnalyticsStub{}, revenue, audits, nil, nil, nil, time.Minute)
	return NewDashboardHandler(svc)
}

func TestDashboardHandlerAuditTrail(t *testing.T) {
	audits := &dashboardAuditStub{logs: []models.AuditLog{
		{ID: "log-1", Action: "approve", Resource: "enrollments"},
		{ID: "log-2", Action: "confirm", Resource: "guest_bookings"},
	}}
	h := newDashboardTestHandler(&dashboardRevenueStub{}, audits)

	c, w := testContext(t, http.MethodGet, "/audit-logs?resource=enrollments", nil)
	h.AuditTrail(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.AuditLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "log-1", body.Data[0].ID)
}

func TestDashboardHandlerAuditTrailMissingResource(t *testing.T) {
	h := newDashboardTestHandler(&dashboardRevenueStub{}, &dashboardAuditStub{})

	c, w := testContext(t, http.MethodGet, "/audit-logs", nil)
	h.AuditTrail(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardHandlerRevenueLedger(t *testing.T) {
	revenue := &dashboardRevenueStub{entries: []models.RevenueEntry{
		{ID: "rev-1", EntityID: "bk-1", AmountCents: 9900},
		{ID: "rev-2", EntityID: "bk-1", AmountCents: -9900},
		{ID: "rev-3", EntityID: "bk-2", AmountCents: 4500},
	}}
	h := newDashboardTestHandler(revenue, &dashboardAuditStub{})

	c, w := testContext(t, http.MethodGet, "/revenue/bk-1/ledger", nil)
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}
	h.RevenueLedger(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.RevenueEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, int64(9900), body.Data[0].AmountCents)
	assert.Equal(t, int64(-9900), body.Data[1].AmountCents)
}
