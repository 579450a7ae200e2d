package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/edulink/admin-api/pkg/errors"
)

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func pendingSnapshot(kind Kind) Snapshot {
	snap := Snapshot{
		ID:          "ent-1",
		Kind:        kind,
		Status:      StatusPending,
		RequestedAt: testNow.Add(-time.Hour),
		OwnerID:     "user-1",
		AmountCents: 4900,
	}
	if kind.Paid() {
		snap.Payment = PaymentPending
	}
	return snap
}

func effectTypes(effects []Effect) []EffectType {
	types := make([]EffectType, len(effects))
	for i, e := range effects {
		types[i] = e.Type
	}
	return types
}

func TestTransitionEnrollmentApprove(t *testing.T) {
	snap := pendingSnapshot(KindEnrollment)

	next, effects, err := Transition(snap, ActionApprove, Payload{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, next.Status)
	require.NotNil(t, next.DecidedAt)
	assert.Equal(t, testNow, *next.DecidedAt)
	assert.Equal(t, []EffectType{EffectSendCredentialsEmail, EffectSendDecisionNotification}, effectTypes(effects))
	assert.Equal(t, "user-1", effects[0].UserID)
	assert.Equal(t, StatusApproved, effects[1].Decision)

	// Double-submit on the returned snapshot: the entity is decided, so the
	// loser gets AlreadyFinalized, not a bad-edge error.
	_, effects, err = Transition(next, ActionApprove, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
	assert.Empty(t, effects)
}

func TestTransitionDecidedEntityRefusesRedecision(t *testing.T) {
	snap := pendingSnapshot(KindEnrollment)

	approved, _, err := Transition(snap, ActionApprove, Payload{}, testNow)
	require.NoError(t, err)
	require.NotNil(t, approved.DecidedAt)

	// APPROVED is not terminal (complete remains), but approve and reject
	// must both surface the already-decided conflict with zero effects.
	for _, action := range []Action{ActionApprove, ActionReject} {
		_, effects, err := Transition(approved, action, Payload{}, testNow)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
		assert.Empty(t, effects)
	}

	// An illegal edge on an undecided entity stays InvalidTransition.
	_, _, err = Transition(snap, ActionComplete, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestTransitionEnrollmentRejectIsTerminal(t *testing.T) {
	snap := pendingSnapshot(KindEnrollment)

	next, effects, err := Transition(snap, ActionReject, Payload{Reason: "duplicate request"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, next.Status)
	assert.Equal(t, "duplicate request", next.RejectionReason)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectSendDecisionNotification, effects[0].Type)
	assert.Equal(t, "duplicate request", effects[0].Reason)

	_, effects, err = Transition(next, ActionApprove, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
	assert.Empty(t, effects)
}

func TestTransitionEnrollmentCompleteOnlyFromApproved(t *testing.T) {
	snap := pendingSnapshot(KindEnrollment)

	_, _, err := Transition(snap, ActionComplete, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	approved, _, err := Transition(snap, ActionApprove, Payload{}, testNow)
	require.NoError(t, err)

	completed, effects, err := Transition(approved, ActionComplete, Payload{}, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Empty(t, effects)
	// decidedAt was set by the approval and must not move.
	assert.Equal(t, testNow, *completed.DecidedAt)
}

func TestTransitionMentorshipApproveRequiresSchedule(t *testing.T) {
	snap := pendingSnapshot(KindMentorshipRequest)

	_, _, err := Transition(snap, ActionApprove, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingSchedule))

	_, _, err = Transition(snap, ActionApprove, Payload{Date: "2025-03-20"}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingSchedule))

	payload := Payload{Date: "2025-03-20", TimeSlot: "14:00-15:00", DurationMinutes: 60, MeetingLink: "https://meet.example/abc"}
	next, effects, err := Transition(snap, ActionApprove, payload, testNow)
	require.NoError(t, err)

	require.NotNil(t, next.Schedule)
	assert.Equal(t, "2025-03-20", next.Schedule.Date)
	assert.Equal(t, "14:00-15:00", next.Schedule.TimeSlot)
	assert.Equal(t, []EffectType{EffectSendDecisionNotification, EffectScheduleCalendarEntry}, effectTypes(effects))
	assert.Equal(t, "https://meet.example/abc", effects[1].MeetingLink)
}

func TestTransitionMentorshipRejectNeedsNoSchedule(t *testing.T) {
	snap := pendingSnapshot(KindMentorshipRequest)

	next, effects, err := Transition(snap, ActionReject, Payload{Reason: "mentor unavailable"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, next.Status)
	assert.Nil(t, next.Schedule)
	require.Len(t, effects, 1)
}

func TestTransitionGuestBookingCompleteRequiresPayment(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)

	confirmed, _, err := Transition(snap, ActionConfirm, Payload{Date: "2025-03-21", TimeSlot: "09:00-10:00"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, PaymentPending, confirmed.Payment)

	_, _, err = Transition(confirmed, ActionComplete, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPaymentRequired))

	paid, effects, err := TransitionPayment(confirmed, PaymentActionMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.Payment)
	assert.Empty(t, effects)

	completed, effects, err := Transition(paid, ActionComplete, Payload{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectAccrueRevenue, effects[0].Type)
	assert.Equal(t, int64(4900), effects[0].AmountCents)
	assert.True(t, completed.RevenueRecognized)
}

func TestTransitionGuestBookingConfirmWhilePaidAccruesOnce(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)
	snap.Payment = PaymentPaid

	confirmed, effects, err := Transition(snap, ActionConfirm, Payload{}, testNow)
	require.NoError(t, err)
	assert.Contains(t, effectTypes(effects), EffectAccrueRevenue)
	assert.True(t, confirmed.RevenueRecognized)

	completed, effects, err := Transition(confirmed, ActionComplete, Payload{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotContains(t, effectTypes(effects), EffectAccrueRevenue)
}

func TestTransitionGuestBookingCancelClosesPendingPayment(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)

	cancelled, effects, err := Transition(snap, ActionCancel, Payload{Reason: "guest no-show"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, PaymentCancelled, cancelled.Payment)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectSendDecisionNotification, effects[0].Type)

	// Cancelling a confirmed, paid booking leaves the payment axis alone;
	// refunds are an explicit separate action.
	paidSnap := pendingSnapshot(KindGuestBooking)
	paidSnap.Status = StatusConfirmed
	paidSnap.Payment = PaymentPaid
	cancelled, _, err = Transition(paidSnap, ActionCancel, Payload{Reason: "venue closed"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, cancelled.Payment)
}

func TestTransitionMentorshipBookingLifecycle(t *testing.T) {
	snap := Snapshot{
		ID:          "bk-1",
		Kind:        KindMentorshipBooking,
		Status:      StatusConfirmed,
		Payment:     PaymentPending,
		OwnerID:     "user-2",
		AmountCents: 9900,
	}

	_, _, err := Transition(snap, ActionComplete, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPaymentRequired))

	paid, _, err := TransitionPayment(snap, PaymentActionMarkPaid)
	require.NoError(t, err)

	completed, effects, err := Transition(paid, ActionComplete, Payload{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, []EffectType{EffectAccrueRevenue}, effectTypes(effects))
}

func TestTransitionDecidedAtSetExactlyOnce(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)
	assert.Nil(t, snap.DecidedAt)

	confirmed, _, err := Transition(snap, ActionConfirm, Payload{}, testNow)
	require.NoError(t, err)
	require.NotNil(t, confirmed.DecidedAt)
	first := *confirmed.DecidedAt

	confirmed.Payment = PaymentPaid
	completed, _, err := Transition(confirmed, ActionComplete, Payload{}, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, *completed.DecidedAt)
}

func TestTransitionUnknownKind(t *testing.T) {
	snap := Snapshot{ID: "x", Kind: Kind("PODCAST"), Status: StatusPending}
	_, _, err := Transition(snap, ActionApprove, Payload{}, testNow)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestTransitionPaymentTable(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)

	failed, _, err := TransitionPayment(snap, PaymentActionMarkFailed)
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, failed.Payment)

	// Failed is terminal on the payment axis.
	_, _, err = TransitionPayment(failed, PaymentActionMarkPaid)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))

	// Refund requires paid.
	_, _, err = TransitionPayment(snap, PaymentActionRefund)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	// Kinds without a payment axis reject payment actions outright.
	_, _, err = TransitionPayment(pendingSnapshot(KindEnrollment), PaymentActionMarkPaid)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestTransitionPaymentRefundReversesRevenue(t *testing.T) {
	snap := pendingSnapshot(KindGuestBooking)
	snap.Status = StatusConfirmed
	snap.Payment = PaymentPaid
	snap.RevenueRecognized = true

	refunded, effects, err := TransitionPayment(snap, PaymentActionRefund)
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, refunded.Payment)
	assert.False(t, refunded.RevenueRecognized)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectAccrueRevenue, effects[0].Type)
	assert.Equal(t, int64(-4900), effects[0].AmountCents)
}

// Exhaustively walk every kind's table from PENDING (or the booking's
// CONFIRMED start) and assert the reachable closure is exactly the
// documented lifecycle.
func TestReachableStatusClosure(t *testing.T) {
	expected := map[Kind]map[Status]bool{
		KindEnrollment:        {StatusPending: true, StatusApproved: true, StatusRejected: true, StatusCompleted: true},
		KindMentorshipRequest: {StatusPending: true, StatusApproved: true, StatusRejected: true, StatusCompleted: true},
		KindMentorshipBooking: {StatusConfirmed: true, StatusCompleted: true, StatusCancelled: true},
		KindGuestBooking:      {StatusPending: true, StatusConfirmed: true, StatusCancelled: true, StatusCompleted: true},
	}
	starts := map[Kind]Status{
		KindEnrollment:        StatusPending,
		KindMentorshipRequest: StatusPending,
		KindMentorshipBooking: StatusConfirmed,
		KindGuestBooking:      StatusPending,
	}
	allActions := []Action{ActionApprove, ActionReject, ActionComplete, ActionConfirm, ActionCancel}

	for kind, start := range starts {
		reached := map[Status]bool{start: true}
		frontier := []Status{start}
		for len(frontier) > 0 {
			status := frontier[0]
			frontier = frontier[1:]
			for _, action := range allActions {
				snap := Snapshot{ID: "walk", Kind: kind, Status: status, OwnerID: "u"}
				if kind.Paid() {
					snap.Payment = PaymentPaid
				}
				payload := Payload{Date: "2025-01-01", TimeSlot: "08:00-09:00", Reason: "walk"}
				next, _, err := Transition(snap, action, payload, testNow)
				if err != nil {
					continue
				}
				if !reached[next.Status] {
					reached[next.Status] = true
					frontier = append(frontier, next.Status)
				}
			}
		}
		assert.Equal(t, expected[kind], reached, "closure mismatch for %s", kind)
	}
}
