package workflow

// EffectType enumerates the declared side effects a transition can require.
type EffectType string

// Effect types. Effects are computed by the engine and executed by the
// caller; the engine itself performs no I/O.
const (
	EffectSendCredentialsEmail     EffectType = "SEND_CREDENTIALS_EMAIL"
	EffectSendDecisionNotification EffectType = "SEND_DECISION_NOTIFICATION"
	EffectScheduleCalendarEntry    EffectType = "SCHEDULE_CALENDAR_ENTRY"
	EffectAccrueRevenue            EffectType = "ACCRUE_REVENUE"
)

// Effect is a declared, not-yet-executed action. Only the fields relevant to
// the Type are populated.
type Effect struct {
	Type EffectType `json:"type"`

	// Notification routing.
	UserID   string `json:"user_id,omitempty"`
	Decision Status `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Calendar provisioning.
	Date            string `json:"date,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	MeetingLink     string `json:"meeting_link,omitempty"`

	// Revenue accrual. Negative on refund reversal.
	AmountCents int64 `json:"amount_cents,omitempty"`
}
