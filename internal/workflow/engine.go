// Package workflow implements the approval/booking state machine shared by
// enrollments, mentorship requests, mentorship bookings and guest bookings.
//
// The engine is a pure function from (snapshot, action, payload) to
// (snapshot, effects). It performs no I/O and reads no clock; callers pass
// the decision time in. Persisting the returned snapshot and executing the
// returned effects is the caller's responsibility, under the optimistic
// concurrency contract of the repositories.
package workflow

import (
	"fmt"
	"time"

	appErrors "github.com/edulink/admin-api/pkg/errors"
)

// Transition validates a lifecycle action against the per-kind table and, on
// success, returns the updated snapshot plus the side effects the caller must
// execute. Failures are typed: ErrAlreadyFinalized when the current status is
// terminal or the entity was already decided (the double-submit cases),
// ErrInvalidTransition for an illegal edge on an undecided entity,
// ErrMissingSchedule when
// a mentorship approval lacks date or time slot, and ErrPaymentRequired when
// completing a paid entity whose payment has not cleared.
func Transition(snap Snapshot, action Action, payload Payload, now time.Time) (Snapshot, []Effect, error) {
	table, ok := lifecycleTables[snap.Kind]
	if !ok {
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown entity kind %q", snap.Kind))
	}

	edges := table[snap.Status]
	if len(edges) == 0 {
		// Terminal state. Surfaced distinctly from a bad edge because it
		// usually indicates a concurrent double-submit.
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrAlreadyFinalized,
			fmt.Sprintf("%s %s is already %s", kindLabel(snap.Kind), snap.ID, snap.Status))
	}

	target, ok := edges[action]
	if !ok {
		if snap.DecidedAt != nil {
			// The entity was already decided; an illegal edge here is the
			// losing half of a double-submit, not a caller bug.
			return Snapshot{}, nil, appErrors.Clone(appErrors.ErrAlreadyFinalized,
				fmt.Sprintf("%s %s was already decided as %s", kindLabel(snap.Kind), snap.ID, snap.Status))
		}
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s a %s in status %s", action, kindLabel(snap.Kind), snap.Status))
	}

	if snap.Kind == KindMentorshipRequest && action == ActionApprove {
		if payload.Date == "" || payload.TimeSlot == "" {
			return Snapshot{}, nil, appErrors.Clone(appErrors.ErrMissingSchedule,
				"mentorship approval requires a scheduled date and time slot")
		}
	}

	if action == ActionComplete && snap.Kind.Paid() && snap.Payment != PaymentPaid {
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrPaymentRequired,
			fmt.Sprintf("cannot complete %s %s while payment is %s", kindLabel(snap.Kind), snap.ID, snap.Payment))
	}

	next := snap
	next.Status = target

	if next.DecidedAt == nil {
		decided := now.UTC()
		next.DecidedAt = &decided
	}

	switch action {
	case ActionApprove, ActionConfirm:
		if payload.Date != "" || payload.MeetingLink != "" {
			next.Schedule = &Schedule{
				Date:            payload.Date,
				TimeSlot:        payload.TimeSlot,
				DurationMinutes: payload.DurationMinutes,
				MeetingLink:     payload.MeetingLink,
			}
		}
	case ActionReject, ActionCancel:
		next.RejectionReason = payload.Reason
		// Money was never collected; close the payment axis alongside.
		if snap.Kind.Paid() && next.Payment == PaymentPending {
			next.Payment = PaymentCancelled
		}
	}

	effects := make([]Effect, 0, 3)

	if snap.Kind == KindEnrollment && action == ActionApprove {
		effects = append(effects, Effect{Type: EffectSendCredentialsEmail, UserID: snap.OwnerID})
	}

	switch action {
	case ActionApprove, ActionConfirm, ActionReject, ActionCancel:
		effects = append(effects, Effect{
			Type:     EffectSendDecisionNotification,
			UserID:   snap.OwnerID,
			Decision: target,
			Reason:   payload.Reason,
		})
	}

	if (action == ActionApprove || action == ActionConfirm) && next.Schedule != nil {
		effects = append(effects, Effect{
			Type:            EffectScheduleCalendarEntry,
			UserID:          snap.OwnerID,
			Date:            next.Schedule.Date,
			TimeSlot:        next.Schedule.TimeSlot,
			DurationMinutes: next.Schedule.DurationMinutes,
			MeetingLink:     next.Schedule.MeetingLink,
		})
	}

	// Revenue accrues on the lifecycle transition that first lands the entity
	// in a revenue-bearing status while paid. The persisted flag prevents the
	// CONFIRMED -> COMPLETED pair from counting the same money twice.
	if snap.Kind.Paid() && next.Payment == PaymentPaid && revenueStatus(target) && !snap.RevenueRecognized {
		next.RevenueRecognized = true
		effects = append(effects, Effect{Type: EffectAccrueRevenue, AmountCents: snap.AmountCents})
	}

	return next, effects, nil
}

// TransitionPayment advances the orthogonal payment status. It never touches
// the lifecycle status or decidedAt. A refund after revenue was recognized
// emits a negative accrual to reverse the ledger entry.
func TransitionPayment(snap Snapshot, action PaymentAction) (Snapshot, []Effect, error) {
	if !snap.Kind.Paid() {
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s has no payment status", kindLabel(snap.Kind)))
	}

	edges := paymentTable[snap.Payment]
	if len(edges) == 0 {
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrAlreadyFinalized,
			fmt.Sprintf("payment for %s %s is already %s", kindLabel(snap.Kind), snap.ID, snap.Payment))
	}

	target, ok := edges[action]
	if !ok {
		return Snapshot{}, nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s while payment is %s", action, snap.Payment))
	}

	next := snap
	next.Payment = target

	var effects []Effect
	if action == PaymentActionRefund && snap.RevenueRecognized {
		next.RevenueRecognized = false
		effects = append(effects, Effect{Type: EffectAccrueRevenue, AmountCents: -snap.AmountCents})
	}

	return next, effects, nil
}

func kindLabel(k Kind) string {
	switch k {
	case KindEnrollment:
		return "enrollment"
	case KindMentorshipRequest:
		return "mentorship request"
	case KindMentorshipBooking:
		return "mentorship booking"
	case KindGuestBooking:
		return "guest booking"
	}
	return string(k)
}
