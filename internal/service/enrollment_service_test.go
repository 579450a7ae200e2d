package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments      map[string]models.Enrollment
	created          *models.Enrollment
	conflictOnUpdate bool
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	if enrollment.Status == "" {
		enrollment.Status = workflow.StatusPending
	}
	if enrollment.Version == 0 {
		enrollment.Version = 1
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	e, ok := m.enrollments[snap.ID]
	if m.conflictOnUpdate || !ok || e.Version != expectedVersion {
		return 0, appErrors.Clone(appErrors.ErrAlreadyFinalized, "entity was modified concurrently")
	}
	e.ApplySnapshot(snap)
	e.Version = expectedVersion + 1
	m.enrollments[snap.ID] = e
	return e.Version, nil
}

type dispatchedBatch struct {
	Key        string
	Snapshot   workflow.Snapshot
	Effects    []workflow.Effect
	GuestEmail string
}

type mockEffectSink struct {
	batches []dispatchedBatch
}

func (m *mockEffectSink) Dispatch(ctx context.Context, key string, snap workflow.Snapshot, effects []workflow.Effect, guestName, guestEmail string) error {
	m.batches = append(m.batches, dispatchedBatch{Key: key, Snapshot: snap, Effects: effects, GuestEmail: guestEmail})
	return nil
}

type mockAuditRecorder struct {
	logs []models.AuditLog
}

func (m *mockAuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func effectTypes(effects []workflow.Effect) []workflow.EffectType {
	types := make([]workflow.EffectType, 0, len(effects))
	for _, e := range effects {
		types = append(types, e.Type)
	}
	return types
}

func newTestEnrollmentService(repo *mockEnrollmentRepo) (*EnrollmentService, *mockEffectSink, *mockAuditRecorder) {
	sink := &mockEffectSink{}
	audits := &mockAuditRecorder{}
	svc := NewEnrollmentService(repo, sink, audits, &mockCacheInvalidator{}, nil, nil, nil)
	return svc, sink, audits
}

func TestEnrollmentServiceApprove(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "course-1", Status: workflow.StatusPending, RequestedAt: time.Now(), Version: 1},
	}}
	svc, sink, audits := newTestEnrollmentService(repo)

	enrollment, err := svc.Approve(context.Background(), "enr-1", Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, enrollment.Status)
	assert.Equal(t, 2, enrollment.Version)
	require.NotNil(t, enrollment.DecidedAt)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, "enr-1:APPROVED", sink.batches[0].Key)
	assert.Equal(t, []workflow.EffectType{workflow.EffectSendCredentialsEmail, workflow.EffectSendDecisionNotification}, effectTypes(sink.batches[0].Effects))

	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionEnrollmentDecision, audits.logs[0].Action)
}

func TestEnrollmentServiceApproveTwiceRefused(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", Status: workflow.StatusPending, Version: 1},
	}}
	svc, sink, _ := newTestEnrollmentService(repo)

	_, err := svc.Approve(context.Background(), "enr-1", Actor{})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "enr-1", Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
	assert.Len(t, sink.batches, 1)
}

func TestEnrollmentServiceRejectTerminalRefused(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", Status: workflow.StatusRejected, Version: 2},
	}}
	svc, _, _ := newTestEnrollmentService(repo)

	_, err := svc.Reject(context.Background(), "enr-1", RejectRequest{Reason: "late"}, Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
}

func TestEnrollmentServiceVersionConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", Status: workflow.StatusPending, Version: 1},
		},
		conflictOnUpdate: true,
	}
	svc, sink, _ := newTestEnrollmentService(repo)

	// A concurrent writer wins the compare-and-swap; no effects may leak out
	// for the losing decision.
	_, err := svc.Approve(context.Background(), "enr-1", Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
	assert.Empty(t, sink.batches)
}

func TestEnrollmentServiceNotFound(t *testing.T) {
	svc, _, _ := newTestEnrollmentService(&mockEnrollmentRepo{})
	_, err := svc.Complete(context.Background(), "missing", Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollmentServiceCreate(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc, _, _ := newTestEnrollmentService(repo)

	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, enrollment.Status)
	require.NotNil(t, repo.created)

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
