package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "requested_at", "decided_at", "rejection_reason", "version"}).
		AddRow("enr-1", "stu-1", "course-1", workflow.StatusPending, time.Now(), nil, "", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, status, requested_at, decided_at, rejection_reason, version FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusPending, enrollment.Status)
	require.Equal(t, 1, enrollment.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateFromSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	decided := time.Now().UTC()
	snap := workflow.Snapshot{
		ID:        "enr-1",
		Kind:      workflow.KindEnrollment,
		Status:    workflow.StatusApproved,
		DecidedAt: &decided,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, decided_at = $3, rejection_reason = $4, version = version + 1")).
		WithArgs("enr-1", workflow.StatusApproved, decided, "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := repo.UpdateFromSnapshot(context.Background(), snap, 1)
	require.NoError(t, err)
	require.Equal(t, 2, version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateFromSnapshotVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	snap := workflow.Snapshot{ID: "enr-1", Kind: workflow.KindEnrollment, Status: workflow.StatusApproved}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, decided_at = $3, rejection_reason = $4, version = version + 1")).
		WithArgs("enr-1", workflow.StatusApproved, nil, "", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateFromSnapshot(context.Background(), snap, 1)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
	require.NoError(t, mock.ExpectationsWereMet())
}
