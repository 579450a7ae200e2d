package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/middleware"
	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type enrollmentRepoStub struct {
	enrollments map[string]*models.Enrollment
}

func (m *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (m *enrollmentRepoStub) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.enrollments[enrollment.ID] = enrollment
	return nil
}

func (m *enrollmentRepoStub) UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	e, ok := m.enrollments[snap.ID]
	if !ok || e.Version != expectedVersion {
		return 0, appErrors.Clone(appErrors.ErrAlreadyFinalized, "entity was modified concurrently")
	}
	e.ApplySnapshot(snap)
	e.Version = expectedVersion + 1
	return e.Version, nil
}

type sinkStub struct{ keys []string }

func (m *sinkStub) Dispatch(ctx context.Context, key string, snap workflow.Snapshot, effects []workflow.Effect, guestName, guestEmail string) error {
	m.keys = append(m.keys, key)
	return nil
}

type auditStub struct{ logs []*models.AuditLog }

func (m *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type cacheStub struct{}

func (m *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func newEnrollmentTestHandler(repo *enrollmentRepoStub) *EnrollmentHandler {
	svc := service.NewEnrollmentService(repo, &sinkStub{}, &auditStub{}, &cacheStub{}, nil, nil, nil)
	return NewEnrollmentHandler(svc)
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "op-1", Role: models.RoleOperator})
	return c, w
}

func TestEnrollmentHandlerApprove(t *testing.T) {
	repo := &enrollmentRepoStub{enrollments: map[string]*models.Enrollment{
		"enr-1": {
			ID:          "enr-1",
			StudentID:   "stu-1",
			CourseID:    "crs-1",
			Status:      workflow.StatusPending,
			RequestedAt: time.Now(),
			Version:     1,
		},
	}}
	handler := newEnrollmentTestHandler(repo)

	c, w := testContext(t, http.MethodPut, "/enrollments/enr-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Enrollment      `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, workflow.StatusApproved, envelope.Data.Status)
	assert.Equal(t, 2, envelope.Data.Version)
	assert.Equal(t, []interface{}{"complete"}, envelope.Meta["allowed_actions"])
}

func TestEnrollmentHandlerApproveTerminal(t *testing.T) {
	repo := &enrollmentRepoStub{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: workflow.StatusRejected, Version: 2},
	}}
	handler := newEnrollmentTestHandler(repo)

	c, w := testContext(t, http.MethodPut, "/enrollments/enr-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Approve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	handler := newEnrollmentTestHandler(&enrollmentRepoStub{enrollments: map[string]*models.Enrollment{}})

	c, w := testContext(t, http.MethodPost, "/enrollments", []byte(`not json`))

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerRejectNotFound(t *testing.T) {
	handler := newEnrollmentTestHandler(&enrollmentRepoStub{enrollments: map[string]*models.Enrollment{}})

	body, _ := json.Marshal(service.RejectRequest{Reason: "duplicate request"})
	c, w := testContext(t, http.MethodPut, "/enrollments/missing/reject", body)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Reject(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
