package models

import (
	"time"

	"github.com/edulink/admin-api/internal/workflow"
)

// RevenueEntry is an append-only ledger row. TransitionKey is the dedup key
// (entity id + target status) so a retried dispatch cannot double-book.
type RevenueEntry struct {
	ID            string        `db:"id" json:"id"`
	EntityKind    workflow.Kind `db:"entity_kind" json:"entity_kind"`
	EntityID      string        `db:"entity_id" json:"entity_id"`
	TransitionKey string        `db:"transition_key" json:"transition_key"`
	AmountCents   int64         `db:"amount_cents" json:"amount_cents"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// DashboardSummary aggregates the admin landing page numbers.
type DashboardSummary struct {
	PendingEnrollments        int       `json:"pending_enrollments"`
	PendingMentorshipRequests int       `json:"pending_mentorship_requests"`
	PendingGuestBookings      int       `json:"pending_guest_bookings"`
	RevenueTotalCents         int64     `json:"revenue_total_cents"`
	AverageQuizScore          float64   `json:"average_quiz_score"`
	GeneratedAt               time.Time `json:"generated_at"`
}
