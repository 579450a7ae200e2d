package workflow

import "time"

// Schedule captures the agreed meeting details attached on approval.
type Schedule struct {
	Date            string `json:"date"`
	TimeSlot        string `json:"time_slot"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingLink     string `json:"meeting_link,omitempty"`
}

// Snapshot is the engine's view of a workflow entity. It must reflect the
// latest persisted state; the engine never fetches. Version carries the
// optimistic-concurrency token the caller read the snapshot at.
type Snapshot struct {
	ID                string
	Kind              Kind
	Status            Status
	Payment           PaymentStatus
	RequestedAt       time.Time
	DecidedAt         *time.Time
	Schedule          *Schedule
	RejectionReason   string
	OwnerID           string
	CounterpartID     string
	AmountCents       int64
	RevenueRecognized bool
	Version           int
}

// Payload carries action-specific input. Schedule fields apply to approve and
// confirm; Reason applies to reject and cancel.
type Payload struct {
	Date            string
	TimeSlot        string
	DurationMinutes int
	MeetingLink     string
	Reason          string
}
