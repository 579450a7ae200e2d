package models

import (
	"time"

	"github.com/edulink/admin-api/internal/workflow"
)

// Enrollment captures a student's request to join a course. Its lifecycle is
// driven exclusively through the workflow engine; Version is the optimistic
// concurrency token.
type Enrollment struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	CourseID        string          `db:"course_id" json:"course_id"`
	Status          workflow.Status `db:"status" json:"status"`
	RequestedAt     time.Time       `db:"requested_at" json:"requested_at"`
	DecidedAt       *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	RejectionReason string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Version         int             `db:"version" json:"version"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseTitle  string `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    workflow.Status
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Snapshot projects the enrollment into the workflow engine's view.
func (e Enrollment) Snapshot() workflow.Snapshot {
	return workflow.Snapshot{
		ID:              e.ID,
		Kind:            workflow.KindEnrollment,
		Status:          e.Status,
		RequestedAt:     e.RequestedAt,
		DecidedAt:       e.DecidedAt,
		RejectionReason: e.RejectionReason,
		OwnerID:         e.StudentID,
		Version:         e.Version,
	}
}

// ApplySnapshot copies the engine's decision back onto the row.
func (e *Enrollment) ApplySnapshot(snap workflow.Snapshot) {
	e.Status = snap.Status
	e.DecidedAt = snap.DecidedAt
	e.RejectionReason = snap.RejectionReason
	e.Version = snap.Version
}
