package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
)

// GuestBookingRepository handles persistence of guest session bookings.
type GuestBookingRepository struct {
	db *sqlx.DB
}

// NewGuestBookingRepository constructs the repository.
func NewGuestBookingRepository(db *sqlx.DB) *GuestBookingRepository {
	return &GuestBookingRepository{db: db}
}

// List returns guest bookings filtered by the provided criteria.
func (r *GuestBookingRepository) List(ctx context.Context, filter models.GuestBookingFilter) ([]models.GuestBooking, int, error) {
	base := "FROM guest_bookings"
	var conditions []string
	var args []interface{}

	if filter.GuestEmail != "" {
		conditions = append(conditions, fmt.Sprintf("guest_email = $%d", len(args)+1))
		args = append(args, filter.GuestEmail)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Payment != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)+1))
		args = append(args, filter.Payment)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT id, guest_name, guest_email, topic, status, payment_status, requested_at, decided_at,
        scheduled_date, time_slot, duration_minutes, meeting_link, rejection_reason, amount_cents, revenue_recognized, version
        %s ORDER BY requested_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var bookings []models.GuestBooking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list guest bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count guest bookings: %w", err)
	}
	return bookings, total, nil
}

// FindByID returns a guest booking by its ID.
func (r *GuestBookingRepository) FindByID(ctx context.Context, id string) (*models.GuestBooking, error) {
	const query = `SELECT id, guest_name, guest_email, topic, status, payment_status, requested_at, decided_at,
        scheduled_date, time_slot, duration_minutes, meeting_link, rejection_reason, amount_cents, revenue_recognized, version
        FROM guest_bookings WHERE id = $1`
	var booking models.GuestBooking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create persists a new guest booking in the pending state with payment
// pending.
func (r *GuestBookingRepository) Create(ctx context.Context, booking *models.GuestBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.RequestedAt.IsZero() {
		booking.RequestedAt = time.Now().UTC()
	}
	if booking.Status == "" {
		booking.Status = workflow.StatusPending
	}
	if booking.Payment == "" {
		booking.Payment = workflow.PaymentPending
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	const query = `INSERT INTO guest_bookings (id, guest_name, guest_email, topic, status, payment_status, requested_at, decided_at,
        scheduled_date, time_slot, duration_minutes, meeting_link, rejection_reason, amount_cents, revenue_recognized, version)
        VALUES (:id, :guest_name, :guest_email, :topic, :status, :payment_status, :requested_at, :decided_at,
        :scheduled_date, :time_slot, :duration_minutes, :meeting_link, :rejection_reason, :amount_cents, :revenue_recognized, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create guest booking: %w", err)
	}
	return nil
}

// UpdateFromSnapshot persists an engine decision with a compare-and-swap on
// the version the caller read.
func (r *GuestBookingRepository) UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	var date, slot, link string
	var duration int
	if snap.Schedule != nil {
		date = snap.Schedule.Date
		slot = snap.Schedule.TimeSlot
		duration = snap.Schedule.DurationMinutes
		link = snap.Schedule.MeetingLink
	}
	const query = `UPDATE guest_bookings SET status = $2, payment_status = $3, decided_at = $4, rejection_reason = $5,
        scheduled_date = $6, time_slot = $7, duration_minutes = $8, meeting_link = $9, revenue_recognized = $10, version = version + 1
        WHERE id = $1 AND version = $11`
	res, err := r.db.ExecContext(ctx, query, snap.ID, snap.Status, snap.Payment, snap.DecidedAt, snap.RejectionReason,
		date, slot, duration, link, snap.RevenueRecognized, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update guest booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update guest booking rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
