package workflow

// Kind identifies which transition table applies to an entity.
type Kind string

// Concrete workflow entity kinds.
const (
	KindEnrollment        Kind = "ENROLLMENT"
	KindMentorshipRequest Kind = "MENTORSHIP_REQUEST"
	KindMentorshipBooking Kind = "MENTORSHIP_BOOKING"
	KindGuestBooking      Kind = "GUEST_BOOKING"
)

// Paid reports whether the kind carries an orthogonal payment status.
func (k Kind) Paid() bool {
	return k == KindMentorshipBooking || k == KindGuestBooking
}

// Valid reports whether the kind has a transition table.
func (k Kind) Valid() bool {
	_, ok := lifecycleTables[k]
	return ok
}

// Status is the lifecycle state of a workflow entity.
type Status string

// Lifecycle statuses across all kinds. PENDING is always the initial state.
const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Action is a named lifecycle transition.
type Action string

// Lifecycle actions.
const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
)

// PaymentStatus tracks money collection independently of the lifecycle.
type PaymentStatus string

// Payment statuses. The empty value marks kinds without a payment axis.
const (
	PaymentNone      PaymentStatus = ""
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// PaymentAction is a named payment transition.
type PaymentAction string

// Payment actions.
const (
	PaymentActionMarkPaid   PaymentAction = "markPaid"
	PaymentActionMarkFailed PaymentAction = "markFailed"
	PaymentActionRefund     PaymentAction = "refund"
)

// lifecycleTables is the per-kind closed transition table. A status with no
// outgoing edges is terminal for that kind.
var lifecycleTables = map[Kind]map[Status]map[Action]Status{
	KindEnrollment: {
		StatusPending:  {ActionApprove: StatusApproved, ActionReject: StatusRejected},
		StatusApproved: {ActionComplete: StatusCompleted},
	},
	KindMentorshipRequest: {
		StatusPending:  {ActionApprove: StatusApproved, ActionReject: StatusRejected},
		StatusApproved: {ActionComplete: StatusCompleted},
	},
	// Bookings are created CONFIRMED when the underlying mentorship request
	// is approved, so they have no PENDING row.
	KindMentorshipBooking: {
		StatusConfirmed: {ActionComplete: StatusCompleted, ActionCancel: StatusCancelled},
	},
	KindGuestBooking: {
		StatusPending:   {ActionConfirm: StatusConfirmed, ActionCancel: StatusCancelled},
		StatusConfirmed: {ActionComplete: StatusCompleted, ActionCancel: StatusCancelled},
	},
}

// paymentTable is the orthogonal payment transition table shared by all paid
// kinds. FAILED, REFUNDED and CANCELLED are terminal.
var paymentTable = map[PaymentStatus]map[PaymentAction]PaymentStatus{
	PaymentPending: {
		PaymentActionMarkPaid:   PaymentPaid,
		PaymentActionMarkFailed: PaymentFailed,
	},
	PaymentPaid: {
		PaymentActionRefund: PaymentRefunded,
	},
}

// Terminal reports whether status has no outgoing edges for the kind.
func Terminal(kind Kind, status Status) bool {
	return len(lifecycleTables[kind][status]) == 0
}

// AllowedActions returns the legal actions from status for the kind, in no
// particular order. Decision endpoints advertise these in response metadata.
func AllowedActions(kind Kind, status Status) []Action {
	edges := lifecycleTables[kind][status]
	if len(edges) == 0 {
		return nil
	}
	actions := make([]Action, 0, len(edges))
	for action := range edges {
		actions = append(actions, action)
	}
	return actions
}

// revenueStatus reports whether a lifecycle status counts as revenue-bearing
// when combined with a PAID payment status.
func revenueStatus(status Status) bool {
	switch status {
	case StatusApproved, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}
