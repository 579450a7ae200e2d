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

type mockGuestBookingRepo struct {
	bookings map[string]models.GuestBooking
}

func (m *mockGuestBookingRepo) List(ctx context.Context, filter models.GuestBookingFilter) ([]models.GuestBooking, int, error) {
	return nil, 0, nil
}

func (m *mockGuestBookingRepo) FindByID(ctx context.Context, id string) (*models.GuestBooking, error) {
	if b, ok := m.bookings[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGuestBookingRepo) Create(ctx context.Context, booking *models.GuestBooking) error {
	if m.bookings == nil {
		m.bookings = make(map[string]models.GuestBooking)
	}
	if booking.ID == "" {
		booking.ID = "new-guest-booking"
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
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *mockGuestBookingRepo) UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	b, ok := m.bookings[snap.ID]
	if !ok || b.Version != expectedVersion {
		return 0, appErrors.Clone(appErrors.ErrAlreadyFinalized, "entity was modified concurrently")
	}
	b.ApplySnapshot(snap)
	b.Version = expectedVersion + 1
	m.bookings[snap.ID] = b
	return b.Version, nil
}

func newTestGuestBookingService(repo *mockGuestBookingRepo) (*GuestBookingService, *mockEffectSink) {
	sink := &mockEffectSink{}
	svc := NewGuestBookingService(repo, sink, &mockAuditRecorder{}, &mockCacheInvalidator{}, nil, 4900, nil, nil)
	return svc, sink
}

func pendingGuestBooking(id string) models.GuestBooking {
	return models.GuestBooking{
		ID:          id,
		GuestName:   "Ada",
		GuestEmail:  "ada@example.com",
		Topic:       "career advice",
		Status:      workflow.StatusPending,
		Payment:     workflow.PaymentPending,
		RequestedAt: time.Now(),
		AmountCents: 4900,
		Version:     1,
	}
}

func TestGuestBookingServiceCreate(t *testing.T) {
	repo := &mockGuestBookingRepo{}
	svc, _ := newTestGuestBookingService(repo)

	booking, err := svc.Create(context.Background(), CreateGuestBookingRequest{
		GuestName:  "Ada",
		GuestEmail: "ada@example.com",
		Topic:      "career advice",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, booking.Status)
	assert.Equal(t, workflow.PaymentPending, booking.Payment)
	assert.Equal(t, int64(4900), booking.AmountCents)

	_, err = svc.Create(context.Background(), CreateGuestBookingRequest{GuestName: "Ada", GuestEmail: "not-an-email", Topic: "x"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGuestBookingServiceFullPaidFlow(t *testing.T) {
	repo := &mockGuestBookingRepo{bookings: map[string]models.GuestBooking{"gb-1": pendingGuestBooking("gb-1")}}
	svc, sink := newTestGuestBookingService(repo)

	booking, err := svc.Confirm(context.Background(), "gb-1", ConfirmGuestBookingRequest{
		Date:     "2026-09-12",
		TimeSlot: "14:00",
	}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusConfirmed, booking.Status)

	// Completing before payment clears is refused.
	_, err = svc.Complete(context.Background(), "gb-1", Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPaymentRequired))

	booking, err = svc.UpdatePayment(context.Background(), "gb-1", workflow.PaymentActionMarkPaid, Actor{})
	require.NoError(t, err)
	assert.Equal(t, workflow.PaymentPaid, booking.Payment)

	booking, err = svc.Complete(context.Background(), "gb-1", Actor{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, booking.Status)
	assert.True(t, booking.RevenueRecognized)

	// Guest effects are routed to the guest's email, no user lookup.
	last := sink.batches[len(sink.batches)-1]
	assert.Equal(t, "ada@example.com", last.GuestEmail)
	assert.Contains(t, effectTypes(last.Effects), workflow.EffectAccrueRevenue)
}

func TestGuestBookingServiceCancelClosesPendingPayment(t *testing.T) {
	repo := &mockGuestBookingRepo{bookings: map[string]models.GuestBooking{"gb-1": pendingGuestBooking("gb-1")}}
	svc, _ := newTestGuestBookingService(repo)

	booking, err := svc.Cancel(context.Background(), "gb-1", RejectRequest{Reason: "no longer needed"}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, booking.Status)
	assert.Equal(t, workflow.PaymentCancelled, booking.Payment)
}

func TestGuestBookingServiceCancelLeavesPaidAlone(t *testing.T) {
	paid := pendingGuestBooking("gb-1")
	paid.Status = workflow.StatusConfirmed
	paid.Payment = workflow.PaymentPaid
	repo := &mockGuestBookingRepo{bookings: map[string]models.GuestBooking{"gb-1": paid}}
	svc, _ := newTestGuestBookingService(repo)

	booking, err := svc.Cancel(context.Background(), "gb-1", RejectRequest{Reason: "operator error"}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, booking.Status)
	// A cleared payment stays paid; the refund is a separate decision.
	assert.Equal(t, workflow.PaymentPaid, booking.Payment)
}
