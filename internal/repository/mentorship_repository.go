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

// MentorshipRepository handles persistence of mentorship requests and the
// bookings spawned from approved requests.
type MentorshipRepository struct {
	db *sqlx.DB
}

// NewMentorshipRepository constructs the repository.
func NewMentorshipRepository(db *sqlx.DB) *MentorshipRepository {
	return &MentorshipRepository{db: db}
}

func mentorshipConditions(filter models.MentorshipFilter, alias string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.MenteeID != "" {
		conditions = append(conditions, fmt.Sprintf("%s.mentee_id = $%d", alias, len(args)+1))
		args = append(args, filter.MenteeID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("%s.mentor_id = $%d", alias, len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("%s.status = $%d", alias, len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

// ListRequests returns mentorship requests filtered by the provided criteria.
func (r *MentorshipRepository) ListRequests(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipRequest, int, error) {
	base := "FROM mentorship_requests m"
	clause, args := mentorshipConditions(filter, "m")
	size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT m.id, m.mentee_id, m.mentor_id, m.topic, m.message, m.status, m.requested_at, m.decided_at,
        m.scheduled_date, m.time_slot, m.duration_minutes, m.meeting_link, m.rejection_reason, m.version
        %s ORDER BY m.requested_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var requests []models.MentorshipRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mentorship requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count mentorship requests: %w", err)
	}
	return requests, total, nil
}

// FindRequestByID returns a mentorship request by its ID.
func (r *MentorshipRepository) FindRequestByID(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	const query = `SELECT id, mentee_id, mentor_id, topic, message, status, requested_at, decided_at,
        scheduled_date, time_slot, duration_minutes, meeting_link, rejection_reason, version
        FROM mentorship_requests WHERE id = $1`
	var request models.MentorshipRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// CreateRequest persists a new mentorship request in the pending state.
func (r *MentorshipRepository) CreateRequest(ctx context.Context, request *models.MentorshipRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = workflow.StatusPending
	}
	if request.Version == 0 {
		request.Version = 1
	}
	const query = `INSERT INTO mentorship_requests (id, mentee_id, mentor_id, topic, message, status, requested_at, decided_at,
        scheduled_date, time_slot, duration_minutes, meeting_link, rejection_reason, version)
        VALUES (:id, :mentee_id, :mentor_id, :topic, :message, :status, :requested_at, :decided_at,
        :scheduled_date, :time_slot, :duration_minutes, :meeting_link, :rejection_reason, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create mentorship request: %w", err)
	}
	return nil
}

// UpdateRequestFromSnapshot persists an engine decision on a request with a
// compare-and-swap on the version the caller read.
func (r *MentorshipRepository) UpdateRequestFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	var date, slot, link string
	var duration int
	if snap.Schedule != nil {
		date = snap.Schedule.Date
		slot = snap.Schedule.TimeSlot
		duration = snap.Schedule.DurationMinutes
		link = snap.Schedule.MeetingLink
	}
	const query = `UPDATE mentorship_requests SET status = $2, decided_at = $3, rejection_reason = $4,
        scheduled_date = $5, time_slot = $6, duration_minutes = $7, meeting_link = $8, version = version + 1
        WHERE id = $1 AND version = $9`
	res, err := r.db.ExecContext(ctx, query, snap.ID, snap.Status, snap.DecidedAt, snap.RejectionReason,
		date, slot, duration, link, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update mentorship request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update mentorship request rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

// ListBookings returns mentorship bookings filtered by the provided criteria.
func (r *MentorshipRepository) ListBookings(ctx context.Context, filter models.MentorshipFilter) ([]models.MentorshipBooking, int, error) {
	base := "FROM mentorship_bookings b"
	clause, args := mentorshipConditions(filter, "b")
	size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT b.id, b.request_id, b.mentee_id, b.mentor_id, b.status, b.payment_status,
        b.scheduled_date, b.time_slot, b.duration_minutes, b.meeting_link, b.amount_cents, b.revenue_recognized,
        b.rejection_reason, b.created_at, b.decided_at, b.version
        %s ORDER BY b.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var bookings []models.MentorshipBooking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mentorship bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count mentorship bookings: %w", err)
	}
	return bookings, total, nil
}

// FindBookingByID returns a mentorship booking by its ID.
func (r *MentorshipRepository) FindBookingByID(ctx context.Context, id string) (*models.MentorshipBooking, error) {
	const query = `SELECT id, request_id, mentee_id, mentor_id, status, payment_status,
        scheduled_date, time_slot, duration_minutes, meeting_link, amount_cents, revenue_recognized,
        rejection_reason, created_at, decided_at, version
        FROM mentorship_bookings WHERE id = $1`
	var booking models.MentorshipBooking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CreateBooking persists the booking spawned by an approved request. Bookings
// start confirmed with payment pending.
func (r *MentorshipRepository) CreateBooking(ctx context.Context, booking *models.MentorshipBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	if booking.Status == "" {
		booking.Status = workflow.StatusConfirmed
	}
	if booking.Payment == "" {
		booking.Payment = workflow.PaymentPending
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	const query = `INSERT INTO mentorship_bookings (id, request_id, mentee_id, mentor_id, status, payment_status,
        scheduled_date, time_slot, duration_minutes, meeting_link, amount_cents, revenue_recognized,
        rejection_reason, created_at, decided_at, version)
        VALUES (:id, :request_id, :mentee_id, :mentor_id, :status, :payment_status,
        :scheduled_date, :time_slot, :duration_minutes, :meeting_link, :amount_cents, :revenue_recognized,
        :rejection_reason, :created_at, :decided_at, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create mentorship booking: %w", err)
	}
	return nil
}

// UpdateBookingFromSnapshot persists an engine decision on a booking with a
// compare-and-swap on the version the caller read.
func (r *MentorshipRepository) UpdateBookingFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	const query = `UPDATE mentorship_bookings SET status = $2, payment_status = $3, decided_at = $4,
        rejection_reason = $5, revenue_recognized = $6, version = version + 1
        WHERE id = $1 AND version = $7`
	res, err := r.db.ExecContext(ctx, query, snap.ID, snap.Status, snap.Payment, snap.DecidedAt,
		snap.RejectionReason, snap.RevenueRecognized, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update mentorship booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update mentorship booking rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
