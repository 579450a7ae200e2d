package models

import (
	"time"

	"github.com/edulink/admin-api/internal/workflow"
)

// GuestBooking is a paid one-off session booked by a visitor without an
// account. OwnerRef is the guest's email; there is no counterpart user.
type GuestBooking struct {
	ID                string                 `db:"id" json:"id"`
	GuestName         string                 `db:"guest_name" json:"guest_name"`
	GuestEmail        string                 `db:"guest_email" json:"guest_email"`
	Topic             string                 `db:"topic" json:"topic"`
	Status            workflow.Status        `db:"status" json:"status"`
	Payment           workflow.PaymentStatus `db:"payment_status" json:"payment_status"`
	RequestedAt       time.Time              `db:"requested_at" json:"requested_at"`
	DecidedAt         *time.Time             `db:"decided_at" json:"decided_at,omitempty"`
	ScheduledDate     string                 `db:"scheduled_date" json:"scheduled_date,omitempty"`
	TimeSlot          string                 `db:"time_slot" json:"time_slot,omitempty"`
	DurationMinutes   int                    `db:"duration_minutes" json:"duration_minutes,omitempty"`
	MeetingLink       string                 `db:"meeting_link" json:"meeting_link,omitempty"`
	RejectionReason   string                 `db:"rejection_reason" json:"rejection_reason,omitempty"`
	AmountCents       int64                  `db:"amount_cents" json:"amount_cents"`
	RevenueRecognized bool                   `db:"revenue_recognized" json:"-"`
	Version           int                    `db:"version" json:"version"`
}

// GuestBookingFilter provides filters for listing guest bookings.
type GuestBookingFilter struct {
	GuestEmail string
	Status     workflow.Status
	Payment    workflow.PaymentStatus
	Page       int
	PageSize   int
}

// Snapshot projects the booking into the workflow engine's view.
func (g GuestBooking) Snapshot() workflow.Snapshot {
	snap := workflow.Snapshot{
		ID:                g.ID,
		Kind:              workflow.KindGuestBooking,
		Status:            g.Status,
		Payment:           g.Payment,
		RequestedAt:       g.RequestedAt,
		DecidedAt:         g.DecidedAt,
		RejectionReason:   g.RejectionReason,
		OwnerID:           g.GuestEmail,
		AmountCents:       g.AmountCents,
		RevenueRecognized: g.RevenueRecognized,
		Version:           g.Version,
	}
	if g.ScheduledDate != "" {
		snap.Schedule = &workflow.Schedule{
			Date:            g.ScheduledDate,
			TimeSlot:        g.TimeSlot,
			DurationMinutes: g.DurationMinutes,
			MeetingLink:     g.MeetingLink,
		}
	}
	return snap
}

// ApplySnapshot copies the engine's decision back onto the row.
func (g *GuestBooking) ApplySnapshot(snap workflow.Snapshot) {
	g.Status = snap.Status
	g.Payment = snap.Payment
	g.DecidedAt = snap.DecidedAt
	g.RejectionReason = snap.RejectionReason
	g.RevenueRecognized = snap.RevenueRecognized
	g.Version = snap.Version
	if snap.Schedule != nil {
		g.ScheduledDate = snap.Schedule.Date
		g.TimeSlot = snap.Schedule.TimeSlot
		g.DurationMinutes = snap.Schedule.DurationMinutes
		g.MeetingLink = snap.Schedule.MeetingLink
	}
}
