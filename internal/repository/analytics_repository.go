package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AnalyticsRepository aggregates the dashboard numbers straight from the
// workflow tables.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// PendingCounts returns the number of pending enrollments, mentorship
// requests and guest bookings awaiting an operator decision.
func (r *AnalyticsRepository) PendingCounts(ctx context.Context) (enrollments, mentorshipRequests, guestBookings int, err error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM enrollments WHERE status = 'PENDING') AS pending_enrollments,
        (SELECT COUNT(*) FROM mentorship_requests WHERE status = 'PENDING') AS pending_mentorship_requests,
        (SELECT COUNT(*) FROM guest_bookings WHERE status = 'PENDING') AS pending_guest_bookings`
	row := struct {
		Enrollments        int `db:"pending_enrollments"`
		MentorshipRequests int `db:"pending_mentorship_requests"`
		GuestBookings      int `db:"pending_guest_bookings"`
	}{}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, 0, fmt.Errorf("pending counts: %w", err)
	}
	return row.Enrollments, row.MentorshipRequests, row.GuestBookings, nil
}

// AverageQuizScore returns the mean score over all graded quiz submissions,
// zero when none exist.
func (r *AnalyticsRepository) AverageQuizScore(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(AVG(score), 0) FROM quiz_submissions WHERE graded = TRUE`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query); err != nil {
		return 0, fmt.Errorf("average quiz score: %w", err)
	}
	return avg, nil
}
