package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
)

func TestRevenueRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRevenueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revenue_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.RevenueEntry{
		EntityKind:    workflow.KindGuestBooking,
		EntityID:      "gb-1",
		TransitionKey: "gb-1:COMPLETED",
		AmountCents:   4900,
	}
	written, err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, written)
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueRepositoryInsertDuplicateKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRevenueRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows affected for a replayed key.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revenue_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	entry := &models.RevenueEntry{
		EntityKind:    workflow.KindGuestBooking,
		EntityID:      "gb-1",
		TransitionKey: "gb-1:COMPLETED",
		AmountCents:   4900,
	}
	written, err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	require.False(t, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueRepositoryTotalCents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRevenueRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow(14800)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount_cents), 0) FROM revenue_entries")).
		WillReturnRows(rows)

	total, err := repo.TotalCents(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(14800), total)
	require.NoError(t, mock.ExpectationsWereMet())
}
