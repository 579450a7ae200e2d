package models

import (
	"time"

	"github.com/edulink/admin-api/internal/workflow"
)

// MentorshipRequest is a mentee's ask for a session with a mentor. Approval
// requires a schedule and spawns a MentorshipBooking.
type MentorshipRequest struct {
	ID              string          `db:"id" json:"id"`
	MenteeID        string          `db:"mentee_id" json:"mentee_id"`
	MentorID        string          `db:"mentor_id" json:"mentor_id"`
	Topic           string          `db:"topic" json:"topic"`
	Message         string          `db:"message" json:"message,omitempty"`
	Status          workflow.Status `db:"status" json:"status"`
	RequestedAt     time.Time       `db:"requested_at" json:"requested_at"`
	DecidedAt       *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	ScheduledDate   string          `db:"scheduled_date" json:"scheduled_date,omitempty"`
	TimeSlot        string          `db:"time_slot" json:"time_slot,omitempty"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes,omitempty"`
	MeetingLink     string          `db:"meeting_link" json:"meeting_link,omitempty"`
	RejectionReason string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Version         int             `db:"version" json:"version"`
}

// MentorshipBooking is the paid session derived from an approved request.
// Created CONFIRMED with payment pending.
type MentorshipBooking struct {
	ID                string                 `db:"id" json:"id"`
	RequestID         string                 `db:"request_id" json:"request_id"`
	MenteeID          string                 `db:"mentee_id" json:"mentee_id"`
	MentorID          string                 `db:"mentor_id" json:"mentor_id"`
	Status            workflow.Status        `db:"status" json:"status"`
	Payment           workflow.PaymentStatus `db:"payment_status" json:"payment_status"`
	ScheduledDate     string                 `db:"scheduled_date" json:"scheduled_date"`
	TimeSlot          string                 `db:"time_slot" json:"time_slot"`
	DurationMinutes   int                    `db:"duration_minutes" json:"duration_minutes"`
	MeetingLink       string                 `db:"meeting_link" json:"meeting_link,omitempty"`
	AmountCents       int64                  `db:"amount_cents" json:"amount_cents"`
	RevenueRecognized bool                   `db:"revenue_recognized" json:"-"`
	RejectionReason   string                 `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time              `db:"created_at" json:"created_at"`
	DecidedAt         *time.Time             `db:"decided_at" json:"decided_at,omitempty"`
	Version           int                    `db:"version" json:"version"`
}

// MentorshipFilter provides filters for listing requests and bookings.
type MentorshipFilter struct {
	MenteeID string
	MentorID string
	Status   workflow.Status
	Page     int
	PageSize int
}

// Snapshot projects the request into the workflow engine's view.
func (r MentorshipRequest) Snapshot() workflow.Snapshot {
	snap := workflow.Snapshot{
		ID:              r.ID,
		Kind:            workflow.KindMentorshipRequest,
		Status:          r.Status,
		RequestedAt:     r.RequestedAt,
		DecidedAt:       r.DecidedAt,
		RejectionReason: r.RejectionReason,
		OwnerID:         r.MenteeID,
		CounterpartID:   r.MentorID,
		Version:         r.Version,
	}
	if r.ScheduledDate != "" {
		snap.Schedule = &workflow.Schedule{
			Date:            r.ScheduledDate,
			TimeSlot:        r.TimeSlot,
			DurationMinutes: r.DurationMinutes,
			MeetingLink:     r.MeetingLink,
		}
	}
	return snap
}

// ApplySnapshot copies the engine's decision back onto the row.
func (r *MentorshipRequest) ApplySnapshot(snap workflow.Snapshot) {
	r.Status = snap.Status
	r.DecidedAt = snap.DecidedAt
	r.RejectionReason = snap.RejectionReason
	r.Version = snap.Version
	if snap.Schedule != nil {
		r.ScheduledDate = snap.Schedule.Date
		r.TimeSlot = snap.Schedule.TimeSlot
		r.DurationMinutes = snap.Schedule.DurationMinutes
		r.MeetingLink = snap.Schedule.MeetingLink
	}
}

// Snapshot projects the booking into the workflow engine's view.
func (b MentorshipBooking) Snapshot() workflow.Snapshot {
	snap := workflow.Snapshot{
		ID:                b.ID,
		Kind:              workflow.KindMentorshipBooking,
		Status:            b.Status,
		Payment:           b.Payment,
		RequestedAt:       b.CreatedAt,
		DecidedAt:         b.DecidedAt,
		RejectionReason:   b.RejectionReason,
		OwnerID:           b.MenteeID,
		CounterpartID:     b.MentorID,
		AmountCents:       b.AmountCents,
		RevenueRecognized: b.RevenueRecognized,
		Version:           b.Version,
	}
	if b.ScheduledDate != "" {
		snap.Schedule = &workflow.Schedule{
			Date:            b.ScheduledDate,
			TimeSlot:        b.TimeSlot,
			DurationMinutes: b.DurationMinutes,
			MeetingLink:     b.MeetingLink,
		}
	}
	return snap
}

// ApplySnapshot copies the engine's decision back onto the row.
func (b *MentorshipBooking) ApplySnapshot(snap workflow.Snapshot) {
	b.Status = snap.Status
	b.Payment = snap.Payment
	b.DecidedAt = snap.DecidedAt
	b.RejectionReason = snap.RejectionReason
	b.RevenueRecognized = snap.RevenueRecognized
	b.Version = snap.Version
	if snap.Schedule != nil {
		b.ScheduledDate = snap.Schedule.Date
		b.TimeSlot = snap.Schedule.TimeSlot
		b.DurationMinutes = snap.Schedule.DurationMinutes
		b.MeetingLink = snap.Schedule.MeetingLink
	}
}
