package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(KindEnrollment, StatusRejected))
	assert.True(t, Terminal(KindEnrollment, StatusCompleted))
	assert.False(t, Terminal(KindEnrollment, StatusApproved))
	assert.False(t, Terminal(KindGuestBooking, StatusConfirmed))
	assert.True(t, Terminal(KindGuestBooking, StatusCancelled))
	assert.True(t, Terminal(KindMentorshipBooking, StatusCompleted))
}

func TestAllowedActions(t *testing.T) {
	actions := AllowedActions(KindGuestBooking, StatusPending)
	assert.ElementsMatch(t, []Action{ActionConfirm, ActionCancel}, actions)

	assert.Nil(t, AllowedActions(KindEnrollment, StatusRejected))
	assert.ElementsMatch(t, []Action{ActionComplete}, AllowedActions(KindMentorshipRequest, StatusApproved))
}

func TestKindPaid(t *testing.T) {
	assert.False(t, KindEnrollment.Paid())
	assert.False(t, KindMentorshipRequest.Paid())
	assert.True(t, KindMentorshipBooking.Paid())
	assert.True(t, KindGuestBooking.Paid())
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindEnrollment.Valid())
	assert.False(t, Kind("QUIZ").Valid())
}
